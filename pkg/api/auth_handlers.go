package api

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/capsule/pkg/auth"
	"github.com/platinummonkey/capsule/pkg/httputil"
	"github.com/platinummonkey/capsule/pkg/observability"
	"github.com/platinummonkey/capsule/pkg/provider"
)

// AuthHandlers handles the login exchange
type AuthHandlers struct {
	service *auth.Service
	metrics *observability.Metrics
	logger  *observability.Logger
}

// NewAuthHandlers creates a new auth handlers instance
func NewAuthHandlers(service *auth.Service, metrics *observability.Metrics, logger *observability.Logger) *AuthHandlers {
	return &AuthHandlers{
		service: service,
		metrics: metrics,
		logger:  logger,
	}
}

// register handles POST /register
func (h *AuthHandlers) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}

	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	token, err := h.service.Register(r.Context(), req.Code)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmptyCode):
			h.metrics.LoginsTotal.WithLabelValues("rejected").Inc()
			httputil.WriteValidationError(w, "code is required")
		case errors.Is(err, provider.ErrProviderRejected):
			h.metrics.LoginsTotal.WithLabelValues("rejected").Inc()
			httputil.WriteValidationError(w, "authorization code was rejected")
		case errors.Is(err, provider.ErrMalformedProfile):
			h.metrics.LoginsTotal.WithLabelValues("rejected").Inc()
			httputil.WriteValidationError(w, "identity provider returned an unusable profile")
		default:
			h.metrics.LoginsTotal.WithLabelValues("error").Inc()
			h.logger.WithError(err).Error("Login exchange failed")
			httputil.WriteInternalError(w, err)
		}
		return
	}

	h.metrics.LoginsTotal.WithLabelValues("success").Inc()
	httputil.WriteSuccess(w, map[string]string{"token": token})
}
