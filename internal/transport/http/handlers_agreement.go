package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	agreementmodels "veristry/internal/agreement/models"
	"veristry/internal/transport/http/middleware"
	"veristry/internal/transport/http/shared"
	"veristry/pkg/domain"
	dErrors "veristry/pkg/domain-errors"
)

// AgreementService is the registry surface the agreement handler delegates to.
type AgreementService interface {
	Create(ctx context.Context, req agreementmodels.CreateRequest) (agreementmodels.Agreement, error)
	AgreementOf(ctx context.Context, distributor domain.Principal) (agreementmodels.Agreement, error)
}

// AgreementHandler exposes the agreement registry over HTTP.
type AgreementHandler struct {
	service AgreementService
	logger  *slog.Logger
}

// NewAgreementHandler creates the handler.
func NewAgreementHandler(service AgreementService, logger *slog.Logger) *AgreementHandler {
	return &AgreementHandler{service: service, logger: logger}
}

// Register mounts the agreement routes.
func (h *AgreementHandler) Register(r chi.Router) {
	r.Post("/agreements", h.handleCreate)
	r.Get("/agreements/{distributor}", h.handleAgreementOf)
}

type createAgreementRequest struct {
	Distributor  string `json:"distributor"`
	Signature    string `json:"signature"`
	TermsPayload string `json:"termsPayload"`
	ProductID    uint64 `json:"productId"`
	Units        uint64 `json:"units"`
	UnitPrice    uint64 `json:"unitPrice"`
	Percentage   uint64 `json:"percentage"`
	Nonce        uint64 `json:"nonce"`
}

type agreementResponse struct {
	Distributor string    `json:"distributor"`
	TermsHash   string    `json:"termsHash"`
	ProductID   uint64    `json:"productId"`
	Units       uint64    `json:"units"`
	UnitPrice   uint64    `json:"unitPrice"`
	Percentage  uint64    `json:"percentage"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toAgreementResponse(a agreementmodels.Agreement) agreementResponse {
	return agreementResponse{
		Distributor: a.Distributor.String(),
		TermsHash:   a.TermsHash.Hex(),
		ProductID:   uint64(a.ProductID),
		Units:       a.Units,
		UnitPrice:   a.UnitPrice,
		Percentage:  a.Percentage,
		CreatedAt:   a.CreatedAt,
	}
}

func (h *AgreementHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body createAgreementRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	distributor, err := domain.ParsePrincipal(body.Distributor)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, err.Error()))
		return
	}
	signature, err := shared.ParseHexBytes("signature", body.Signature)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, err.Error()))
		return
	}
	termsPayload, err := shared.ParseHexBytes("termsPayload", body.TermsPayload)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, err.Error()))
		return
	}

	agreement, err := h.service.Create(ctx, agreementmodels.CreateRequest{
		Caller:       middleware.GetCaller(ctx),
		Distributor:  distributor,
		Signature:    signature,
		TermsPayload: termsPayload,
		ProductID:    domain.ProductID(body.ProductID),
		Units:        body.Units,
		UnitPrice:    body.UnitPrice,
		Percentage:   body.Percentage,
		Nonce:        domain.Nonce(body.Nonce),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "agreement create rejected",
			"error", err.Error(),
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, toAgreementResponse(agreement))
}

func (h *AgreementHandler) handleAgreementOf(w http.ResponseWriter, r *http.Request) {
	distributor, err := domain.ParsePrincipal(chi.URLParam(r, "distributor"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, err.Error()))
		return
	}
	agreement, svcErr := h.service.AgreementOf(r.Context(), distributor)
	if svcErr != nil {
		shared.WriteError(w, svcErr)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toAgreementResponse(agreement))
}
