package api

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/capsule/pkg/httputil"
	"github.com/platinummonkey/capsule/pkg/memories"
	"github.com/platinummonkey/capsule/pkg/middleware"
	"github.com/platinummonkey/capsule/pkg/observability"
)

// MemoriesHandlers handles the memories CRUD routes
type MemoriesHandlers struct {
	service *memories.Service
	logger  *observability.Logger
}

// NewMemoriesHandlers creates a new memories handlers instance
func NewMemoriesHandlers(service *memories.Service, logger *observability.Logger) *MemoriesHandlers {
	return &MemoriesHandlers{
		service: service,
		logger:  logger,
	}
}

// list handles GET /memories
func (h *MemoriesHandlers) list(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)

	summaries, err := h.service.List(r.Context(), authCtx.Subject)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list memories")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, summaries)
}

// get handles GET /memories/{id}. Auth is optional on this route: public
// memories are readable without a session.
func (h *MemoriesHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	var userID string
	if authCtx := middleware.GetAuthContext(r); authCtx != nil {
		userID = authCtx.Subject
	}

	mem, err := h.service.Get(r.Context(), id, userID)
	if err != nil {
		h.writeMemoryError(w, err, id)
		return
	}
	httputil.WriteSuccess(w, mem)
}

// create handles POST /memories
func (h *MemoriesHandlers) create(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)

	var req memories.CreateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	mem, err := h.service.Create(r.Context(), authCtx.Subject, &req)
	if err != nil {
		h.logger.WithError(err).Error("Failed to create memory")
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteCreated(w, mem)
}

// update handles PUT /memories/{id}
func (h *MemoriesHandlers) update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	authCtx := middleware.GetAuthContext(r)

	var req memories.UpdateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	mem, err := h.service.Update(r.Context(), id, authCtx.Subject, &req)
	if err != nil {
		h.writeMemoryError(w, err, id)
		return
	}
	httputil.WriteSuccess(w, mem)
}

// delete handles DELETE /memories/{id}
func (h *MemoriesHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	authCtx := middleware.GetAuthContext(r)

	if err := h.service.Delete(r.Context(), id, authCtx.Subject); err != nil {
		h.writeMemoryError(w, err, id)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *MemoriesHandlers) writeMemoryError(w http.ResponseWriter, err error, id string) {
	switch {
	case errors.Is(err, memories.ErrNotFound):
		httputil.WriteNotFoundError(w, "memory not found")
	case errors.Is(err, memories.ErrNotOwner):
		httputil.WriteUnauthorized(w, "memory is not accessible to this user")
	default:
		h.logger.WithError(err).WithField("memory_id", id).Error("Memory operation failed")
		httputil.WriteInternalError(w, err)
	}
}
