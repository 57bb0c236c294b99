package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

const (
	defaultTokenURL   = "https://github.com/login/oauth/access_token"
	defaultProfileURL = "https://api.github.com/user"
)

// GitHubConfig configures the GitHub OAuth client. TokenURL and ProfileURL
// default to github.com; tests point them at local fakes.
type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	ProfileURL   string
}

// GitHub implements Client against the GitHub OAuth token and user
// endpoints.
type GitHub struct {
	oauth2Config *oauth2.Config
	profileURL   string
	httpClient   *http.Client
}

// NewGitHub creates a new GitHub provider client
func NewGitHub(cfg GitHubConfig) (*GitHub, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("client_id is required")
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("client_secret is required")
	}

	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = defaultTokenURL
	}
	profileURL := cfg.ProfileURL
	if profileURL == "" {
		profileURL = defaultProfileURL
	}

	return &GitHub{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL: tokenURL,
			},
		},
		profileURL: profileURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// ExchangeCode implements Client.ExchangeCode. Any provider decline
// (bad code, revoked app, endpoint error) is surfaced as
// ErrProviderRejected; there is no retry.
func (g *GitHub) ExchangeCode(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)

	token, err := g.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderRejected, err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrProviderRejected)
	}

	return token.AccessToken, nil
}

// githubProfile is the subset of the GitHub user response this service
// consumes. Pointer fields distinguish absent from zero-valued.
type githubProfile struct {
	ID        *int64  `json:"id"`
	Login     *string `json:"login"`
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatar_url"`
}

// FetchProfile implements Client.FetchProfile. The response is validated
// against the expected shape before anything reaches the user directory.
func (g *GitHub) FetchProfile(ctx context.Context, accessToken string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.profileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderRejected, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: profile request failed with status %d", ErrProviderRejected, resp.StatusCode)
	}

	var profile githubProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedProfile, err)
	}

	return validateProfile(&profile)
}

// validateProfile converts the raw provider response into an Identity,
// rejecting anything that does not conform to the expected schema.
func validateProfile(p *githubProfile) (*Identity, error) {
	if p.ID == nil {
		return nil, fmt.Errorf("%w: missing numeric id", ErrMalformedProfile)
	}
	if p.Login == nil || *p.Login == "" {
		return nil, fmt.Errorf("%w: missing login", ErrMalformedProfile)
	}
	if p.Name == nil || *p.Name == "" {
		return nil, fmt.Errorf("%w: missing name", ErrMalformedProfile)
	}
	if p.AvatarURL == nil {
		return nil, fmt.Errorf("%w: missing avatar_url", ErrMalformedProfile)
	}

	parsed, err := url.Parse(*p.AvatarURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("%w: avatar_url is not a well-formed URL", ErrMalformedProfile)
	}

	return &Identity{
		ExternalID: *p.ID,
		Login:      *p.Login,
		Name:       *p.Name,
		AvatarURL:  *p.AvatarURL,
	}, nil
}
