package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"veristry/internal/access"
	"veristry/internal/transport/http/middleware"
	"veristry/internal/transport/http/shared"
	"veristry/pkg/domain"
	dErrors "veristry/pkg/domain-errors"
)

// AdminHandler exposes role administration and the per-registry pause
// switches.
type AdminHandler struct {
	gate   *access.Gate
	logger *slog.Logger
}

// NewAdminHandler creates the handler.
func NewAdminHandler(gate *access.Gate, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{gate: gate, logger: logger}
}

// Register mounts the admin routes.
func (h *AdminHandler) Register(r chi.Router) {
	r.Post("/admin/roles", h.handleGrantRole)
	r.Delete("/admin/roles", h.handleRevokeRole)
	r.Get("/admin/roles/{principal}/{role}", h.handleHasRole)
	r.Put("/admin/pause/{registry}", h.handleSetPaused)
	r.Get("/admin/pause/{registry}", h.handleIsPaused)
}

type roleRequest struct {
	Principal string `json:"principal"`
	Role      string `json:"role"`
}

func (h *AdminHandler) handleGrantRole(w http.ResponseWriter, r *http.Request) {
	h.changeRole(w, r, h.gate.GrantRole)
}

func (h *AdminHandler) handleRevokeRole(w http.ResponseWriter, r *http.Request) {
	h.changeRole(w, r, h.gate.RevokeRole)
}

func (h *AdminHandler) changeRole(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, caller, target domain.Principal, role access.Role) error) {
	ctx := r.Context()

	var body roleRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	target, err := domain.ParsePrincipal(body.Principal)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, err.Error()))
		return
	}

	if err := apply(ctx, middleware.GetCaller(ctx), target, access.Role(body.Role)); err != nil {
		h.logger.WarnContext(ctx, "role change rejected",
			"error", err.Error(),
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) handleHasRole(w http.ResponseWriter, r *http.Request) {
	principal, err := pathPrincipal(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	role := access.Role(chi.URLParam(r, "role"))
	if !role.Valid() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "unknown role"))
		return
	}
	held, err := h.gate.HasRole(r.Context(), principal, role)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]bool{"hasRole": held})
}

type pauseRequest struct {
	Paused bool `json:"paused"`
}

func (h *AdminHandler) handleSetPaused(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	registry := access.Registry(chi.URLParam(r, "registry"))
	var body pauseRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.gate.SetPaused(ctx, middleware.GetCaller(ctx), registry, body.Paused); err != nil {
		h.logger.WarnContext(ctx, "pause change rejected",
			"error", err.Error(),
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) handleIsPaused(w http.ResponseWriter, r *http.Request) {
	registry := access.Registry(chi.URLParam(r, "registry"))
	if !registry.Valid() {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "unknown registry"))
		return
	}
	paused, err := h.gate.IsPaused(r.Context(), registry)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]bool{"paused": paused})
}
