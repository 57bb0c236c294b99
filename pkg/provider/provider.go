// Package provider implements the upstream identity provider client.
//
// The service supports exactly one provider (GitHub OAuth). The Client
// interface exists so the authentication flow can be tested without network
// access; the GitHub implementation is the only production client.
package provider

import (
	"context"
	"errors"
)

var (
	// ErrProviderRejected is returned when the provider declines the
	// authorization code or access token. Not retried; the client
	// restarts the OAuth dance.
	ErrProviderRejected = errors.New("identity provider rejected the request")

	// ErrMalformedProfile is returned when the provider's profile response
	// does not match the expected shape. Treated as a provider-trust
	// failure and logged distinctly from ordinary validation errors.
	ErrMalformedProfile = errors.New("identity provider returned a malformed profile")
)

// Identity is the provider's view of a user, fetched once per login
// attempt and never persisted as-is.
type Identity struct {
	// ExternalID is the provider-assigned numeric user ID
	ExternalID int64
	// Login is the provider account handle
	Login string
	// Name is the display name
	Name string
	// AvatarURL is a well-formed http(s) URL
	AvatarURL string
}

// Client exchanges an authorization code for an access token and fetches
// the profile behind that token. Both calls are single-shot outbound
// requests; a failure at either step fails the whole login.
type Client interface {
	ExchangeCode(ctx context.Context, code string) (accessToken string, err error)
	FetchProfile(ctx context.Context, accessToken string) (*Identity, error)
}
