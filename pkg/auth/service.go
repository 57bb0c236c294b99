package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/platinummonkey/capsule/pkg/observability"
	"github.com/platinummonkey/capsule/pkg/provider"
	"github.com/platinummonkey/capsule/pkg/users"
)

// ErrEmptyCode is returned when the registration request carries no
// authorization code. Structural validation only; the provider is the
// authority on code validity.
var ErrEmptyCode = errors.New("authorization code is required")

// Directory is the slice of the user directory the authentication flow
// needs. *users.Directory satisfies it.
type Directory interface {
	UpsertByExternalID(ctx context.Context, identity *provider.Identity) (*users.User, error)
}

// Service orchestrates the authentication flow: code exchange, profile
// fetch, user upsert, token issuance. Steps run strictly in order; the
// user upsert is the only durable write and happens only after the
// provider has vouched for the code and the profile has validated.
type Service struct {
	provider provider.Client
	users    Directory
	codec    *Codec
	logger   *observability.Logger
}

// NewService creates a new authentication flow service
func NewService(providerClient provider.Client, directory Directory, codec *Codec, logger *observability.Logger) *Service {
	return &Service{
		provider: providerClient,
		users:    directory,
		codec:    codec,
		logger:   logger,
	}
}

// Register exchanges an authorization code for a signed bearer token
func (s *Service) Register(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", ErrEmptyCode
	}

	accessToken, err := s.provider.ExchangeCode(ctx, code)
	if err != nil {
		return "", err
	}

	identity, err := s.provider.FetchProfile(ctx, accessToken)
	if err != nil {
		if errors.Is(err, provider.ErrMalformedProfile) {
			// Provider-trust failure, not a client mistake
			s.logger.WithError(err).Error("identity provider returned malformed profile")
		}
		return "", err
	}

	user, err := s.users.UpsertByExternalID(ctx, identity)
	if err != nil {
		return "", fmt.Errorf("failed to upsert user: %w", err)
	}

	token, err := s.codec.Sign(user.ID, user.Name, user.AvatarURL)
	if err != nil {
		return "", err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":     user.ID,
		"external_id": user.ExternalID,
	}).Info("user authenticated")

	return token, nil
}
