package auth

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/capsule/pkg/observability"
	"github.com/platinummonkey/capsule/pkg/provider"
	"github.com/platinummonkey/capsule/pkg/users"
)

type fakeProvider struct {
	exchangeErr error
	profileErr  error
	accessToken string
	identity    *provider.Identity

	gotCode  string
	gotToken string
}

func (f *fakeProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	f.gotCode = code
	if f.exchangeErr != nil {
		return "", f.exchangeErr
	}
	return f.accessToken, nil
}

func (f *fakeProvider) FetchProfile(ctx context.Context, accessToken string) (*provider.Identity, error) {
	f.gotToken = accessToken
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return f.identity, nil
}

type fakeDirectory struct {
	user *users.User
	err  error

	gotIdentity *provider.Identity
}

func (f *fakeDirectory) UpsertByExternalID(ctx context.Context, identity *provider.Identity) (*users.User, error) {
	f.gotIdentity = identity
	return f.user, f.err
}

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

func TestRegister(t *testing.T) {
	codec := NewCodec("test-secret", time.Hour)
	prov := &fakeProvider{
		accessToken: "gho_abc",
		identity: &provider.Identity{
			ExternalID: 42,
			Login:      "alice",
			Name:       "Alice",
			AvatarURL:  "https://example.com/a.png",
		},
	}
	dir := &fakeDirectory{
		user: &users.User{
			ID:         "1b671a64-40d5-491e-99b0-da01ff1f3341",
			ExternalID: 42,
			Login:      "alice",
			Name:       "Alice",
			AvatarURL:  "https://example.com/a.png",
		},
	}
	svc := NewService(prov, dir, codec, testLogger())

	token, err := svc.Register(context.Background(), "the-code")
	require.NoError(t, err)

	assert.Equal(t, "the-code", prov.gotCode)
	assert.Equal(t, "gho_abc", prov.gotToken)
	assert.Equal(t, int64(42), dir.gotIdentity.ExternalID)

	claims, err := codec.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, dir.user.ID, claims.Subject)
	assert.Equal(t, "Alice", claims.Name)
	assert.Equal(t, "https://example.com/a.png", claims.AvatarURL)
}

func TestRegisterEmptyCode(t *testing.T) {
	svc := NewService(&fakeProvider{}, &fakeDirectory{}, NewCodec("s", time.Hour), testLogger())

	_, err := svc.Register(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyCode)
}

func TestRegisterProviderRejection(t *testing.T) {
	prov := &fakeProvider{exchangeErr: provider.ErrProviderRejected}
	dir := &fakeDirectory{}
	svc := NewService(prov, dir, NewCodec("s", time.Hour), testLogger())

	_, err := svc.Register(context.Background(), "bad-code")
	assert.ErrorIs(t, err, provider.ErrProviderRejected)
	assert.Nil(t, dir.gotIdentity, "no user should be written when the exchange fails")
}

func TestRegisterMalformedProfile(t *testing.T) {
	prov := &fakeProvider{accessToken: "gho_abc", profileErr: provider.ErrMalformedProfile}
	dir := &fakeDirectory{}
	svc := NewService(prov, dir, NewCodec("s", time.Hour), testLogger())

	_, err := svc.Register(context.Background(), "the-code")
	assert.ErrorIs(t, err, provider.ErrMalformedProfile)
	assert.Nil(t, dir.gotIdentity)
}
