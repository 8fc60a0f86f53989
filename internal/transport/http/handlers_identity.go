package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	identitymodels "veristry/internal/identity/models"
	"veristry/internal/transport/http/middleware"
	"veristry/internal/transport/http/shared"
	"veristry/pkg/domain"
	dErrors "veristry/pkg/domain-errors"
)

// IdentityService is the registry surface the identity handler delegates to.
type IdentityService interface {
	Create(ctx context.Context, req identitymodels.CreateRequest) (identitymodels.Identity, error)
	Burn(ctx context.Context, caller domain.Principal, id domain.IdentityID) error
	Transfer(ctx context.Context, caller domain.Principal, id domain.IdentityID, to domain.Principal) error
	Approve(ctx context.Context, caller domain.Principal, id domain.IdentityID, approved domain.Principal) error
	IsRegistered(ctx context.Context, principal domain.Principal) (bool, error)
	IdentityOf(ctx context.Context, principal domain.Principal) (domain.IdentityID, error)
	OwnerOf(ctx context.Context, id domain.IdentityID) (domain.Principal, error)
	BalanceOf(ctx context.Context, principal domain.Principal) (int, error)
}

// IdentityHandler exposes the identity registry over HTTP.
type IdentityHandler struct {
	service IdentityService
	logger  *slog.Logger
}

// NewIdentityHandler creates the handler.
func NewIdentityHandler(service IdentityService, logger *slog.Logger) *IdentityHandler {
	return &IdentityHandler{service: service, logger: logger}
}

// Register mounts the identity routes.
func (h *IdentityHandler) Register(r chi.Router) {
	r.Post("/identities", h.handleCreate)
	r.Delete("/identities/{id}", h.handleBurn)
	r.Post("/identities/{id}/transfer", h.handleTransfer)
	r.Post("/identities/{id}/approve", h.handleApprove)
	r.Get("/identities/{id}/owner", h.handleOwnerOf)
	r.Get("/principals/{principal}/identity", h.handleIdentityOf)
	r.Get("/principals/{principal}/registered", h.handleIsRegistered)
	r.Get("/principals/{principal}/balance", h.handleBalanceOf)
}

type createIdentityRequest struct {
	Signature   string `json:"signature"`
	KYCHash     string `json:"kycHash"`
	Principal   string `json:"principal"`
	MetadataURI string `json:"metadataUri"`
	Nonce       uint64 `json:"nonce"`
}

type identityResponse struct {
	ID          uint64 `json:"id"`
	Owner       string `json:"owner"`
	MetadataURI string `json:"metadataUri"`
}

func (h *IdentityHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body createIdentityRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	principal, err := domain.ParsePrincipal(body.Principal)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, err.Error()))
		return
	}
	signature, err := shared.ParseHexBytes("signature", body.Signature)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, err.Error()))
		return
	}
	kycHash, err := shared.ParseHexBytes("kycHash", body.KYCHash)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, err.Error()))
		return
	}

	identity, err := h.service.Create(ctx, identitymodels.CreateRequest{
		Caller:      middleware.GetCaller(ctx),
		Signature:   signature,
		KYCHash:     kycHash,
		Principal:   principal,
		MetadataURI: body.MetadataURI,
		Nonce:       domain.Nonce(body.Nonce),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "identity create rejected",
			"error", err.Error(),
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, identityResponse{
		ID:          uint64(identity.ID),
		Owner:       identity.Owner.String(),
		MetadataURI: identity.MetadataURI,
	})
}

func (h *IdentityHandler) handleBurn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathIdentityID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := h.service.Burn(ctx, middleware.GetCaller(ctx), id); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type transferRequest struct {
	To string `json:"to"`
}

func (h *IdentityHandler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathIdentityID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var body transferRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	to, parseErr := domain.ParsePrincipal(body.To)
	if parseErr != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, parseErr.Error()))
		return
	}
	shared.WriteError(w, h.service.Transfer(ctx, middleware.GetCaller(ctx), id, to))
}

func (h *IdentityHandler) handleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathIdentityID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	var body transferRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	approved, parseErr := domain.ParsePrincipal(body.To)
	if parseErr != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, parseErr.Error()))
		return
	}
	shared.WriteError(w, h.service.Approve(ctx, middleware.GetCaller(ctx), id, approved))
}

func (h *IdentityHandler) handleOwnerOf(w http.ResponseWriter, r *http.Request) {
	id, err := pathIdentityID(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	owner, err := h.service.OwnerOf(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"owner": owner.String()})
}

func (h *IdentityHandler) handleIdentityOf(w http.ResponseWriter, r *http.Request) {
	principal, err := pathPrincipal(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	id, err := h.service.IdentityOf(r.Context(), principal)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]uint64{"identityId": uint64(id)})
}

func (h *IdentityHandler) handleIsRegistered(w http.ResponseWriter, r *http.Request) {
	principal, err := pathPrincipal(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	registered, err := h.service.IsRegistered(r.Context(), principal)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]bool{"registered": registered})
}

func (h *IdentityHandler) handleBalanceOf(w http.ResponseWriter, r *http.Request) {
	principal, err := pathPrincipal(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	balance, err := h.service.BalanceOf(r.Context(), principal)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]int{"balance": balance})
}

func pathIdentityID(r *http.Request) (domain.IdentityID, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid identity id")
	}
	return domain.IdentityID(id), nil
}

func pathPrincipal(r *http.Request) (domain.Principal, error) {
	principal, err := domain.ParsePrincipal(chi.URLParam(r, "principal"))
	if err != nil {
		return domain.ZeroPrincipal, dErrors.New(dErrors.CodeInvalidInput, err.Error())
	}
	return principal, nil
}
