package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGitHub(t *testing.T, tokenHandler, profileHandler http.HandlerFunc) *GitHub {
	t.Helper()

	tokenSrv := httptest.NewServer(tokenHandler)
	t.Cleanup(tokenSrv.Close)
	profileSrv := httptest.NewServer(profileHandler)
	t.Cleanup(profileSrv.Close)

	g, err := NewGitHub(GitHubConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		TokenURL:     tokenSrv.URL,
		ProfileURL:   profileSrv.URL,
	})
	require.NoError(t, err)
	return g
}

func TestExchangeCode(t *testing.T) {
	g := newTestGitHub(t,
		func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "the-code", r.FormValue("code"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"gho_abc","token_type":"bearer"}`))
		},
		nil,
	)

	token, err := g.ExchangeCode(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "gho_abc", token)
}

func TestExchangeCodeRejected(t *testing.T) {
	g := newTestGitHub(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		},
		nil,
	)

	_, err := g.ExchangeCode(context.Background(), "bad-code")
	assert.ErrorIs(t, err, ErrProviderRejected)
}

func TestExchangeCodeEmptyToken(t *testing.T) {
	g := newTestGitHub(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"","token_type":"bearer"}`))
		},
		nil,
	)

	_, err := g.ExchangeCode(context.Background(), "the-code")
	assert.ErrorIs(t, err, ErrProviderRejected)
}

func TestFetchProfile(t *testing.T) {
	g := newTestGitHub(t, nil,
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer gho_abc", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"id":42,"login":"alice","name":"Alice","avatar_url":"https://example.com/a.png"}`))
		},
	)

	identity, err := g.FetchProfile(context.Background(), "gho_abc")
	require.NoError(t, err)
	assert.Equal(t, int64(42), identity.ExternalID)
	assert.Equal(t, "alice", identity.Login)
	assert.Equal(t, "Alice", identity.Name)
	assert.Equal(t, "https://example.com/a.png", identity.AvatarURL)
}

func TestFetchProfileUnauthorized(t *testing.T) {
	g := newTestGitHub(t, nil,
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		},
	)

	_, err := g.FetchProfile(context.Background(), "stale-token")
	assert.ErrorIs(t, err, ErrProviderRejected)
}

func TestFetchProfileMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing id", body: `{"login":"alice","name":"Alice","avatar_url":"https://example.com/a.png"}`},
		{name: "missing login", body: `{"id":42,"name":"Alice","avatar_url":"https://example.com/a.png"}`},
		{name: "empty name", body: `{"id":42,"login":"alice","name":"","avatar_url":"https://example.com/a.png"}`},
		{name: "relative avatar url", body: `{"id":42,"login":"alice","name":"Alice","avatar_url":"/a.png"}`},
		{name: "not json", body: `<html>splash page</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGitHub(t, nil,
				func(w http.ResponseWriter, r *http.Request) {
					w.Header().Set("Content-Type", "application/json")
					w.Write([]byte(tt.body))
				},
			)

			_, err := g.FetchProfile(context.Background(), "gho_abc")
			assert.ErrorIs(t, err, ErrMalformedProfile)
		})
	}
}
