package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	dpmodels "veristry/internal/datapermission/models"
	"veristry/internal/transport/http/middleware"
	"veristry/internal/transport/http/shared"
	"veristry/pkg/domain"
	dErrors "veristry/pkg/domain-errors"
)

// DataPermissionService is the registry surface the data-permission handler
// delegates to.
type DataPermissionService interface {
	SubmitData(ctx context.Context, req dpmodels.SubmitRequest) (dpmodels.DataRecord, error)
	GetPermission(ctx context.Context, req dpmodels.PermissionRequest) (dpmodels.Permission, error)
	GetPermissionDeadline(ctx context.Context, hash domain.DataHash, product domain.ProductID) (time.Time, error)
	PermissionOf(ctx context.Context, hash domain.DataHash, product domain.ProductID) (dpmodels.Permission, error)
	RecordCount(ctx context.Context) (uint64, error)
	RecordByIndex(ctx context.Context, index uint64) (dpmodels.DataRecord, error)
	RecordsByOwner(ctx context.Context, principal domain.Principal) ([]dpmodels.DataRecord, error)
	PermissionHistory(ctx context.Context, principal domain.Principal) ([]common.Hash, error)
}

// DataPermissionHandler exposes the data-permission registry over HTTP.
type DataPermissionHandler struct {
	service DataPermissionService
	logger  *slog.Logger
}

// NewDataPermissionHandler creates the handler.
func NewDataPermissionHandler(service DataPermissionService, logger *slog.Logger) *DataPermissionHandler {
	return &DataPermissionHandler{service: service, logger: logger}
}

// Register mounts the data-permission routes.
func (h *DataPermissionHandler) Register(r chi.Router) {
	r.Post("/data", h.handleSubmit)
	r.Post("/permissions", h.handleGetPermission)
	r.Get("/permissions/{hash}/{product}", h.handlePermissionOf)
	r.Get("/permissions/{hash}/{product}/deadline", h.handleDeadline)
	r.Get("/data/count", h.handleRecordCount)
	r.Get("/data/{index}", h.handleRecordByIndex)
	r.Get("/principals/{principal}/data", h.handleRecordsByOwner)
	r.Get("/principals/{principal}/permissions", h.handlePermissionHistory)
}

type submitDataRequest struct {
	Signature string `json:"signature"`
	Principal string `json:"principal"`
	DataHash  string `json:"dataHash"`
	Nonce     uint64 `json:"nonce"`
}

type dataRecordResponse struct {
	DataHash        string    `json:"dataHash"`
	OwnerIdentityID uint64    `json:"ownerIdentityId"`
	SequenceIndex   uint64    `json:"sequenceIndex"`
	SubmittedAt     time.Time `json:"submittedAt"`
}

func recordResponse(record dpmodels.DataRecord) dataRecordResponse {
	return dataRecordResponse{
		DataHash:        record.Hash.String(),
		OwnerIdentityID: uint64(record.OwnerIdentityID),
		SequenceIndex:   record.SequenceIndex,
		SubmittedAt:     record.SubmittedAt,
	}
}

func (h *DataPermissionHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body submitDataRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	principal, err := domain.ParsePrincipal(body.Principal)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, err.Error()))
		return
	}
	dataHash, err := domain.ParseDataHash(body.DataHash)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, err.Error()))
		return
	}
	signature, err := shared.ParseHexBytes("signature", body.Signature)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, err.Error()))
		return
	}

	record, err := h.service.SubmitData(ctx, dpmodels.SubmitRequest{
		Caller:    middleware.GetCaller(ctx),
		Signature: signature,
		Principal: principal,
		DataHash:  dataHash,
		Nonce:     domain.Nonce(body.Nonce),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "data submission rejected",
			"error", err.Error(),
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, recordResponse(record))
}

type permissionGrantRequest struct {
	Signature               string `json:"signature"`
	Owner                   string `json:"owner"`
	DataHash                string `json:"dataHash"`
	ProductID               uint64 `json:"productId"`
	Nonce                   uint64 `json:"nonce"`
	ExpirationOffsetSeconds uint64 `json:"expirationOffsetSeconds"`
}

type permissionResponse struct {
	DataHash       string    `json:"dataHash"`
	ProductID      uint64    `json:"productId"`
	State          string    `json:"state"`
	RequesterID    uint64    `json:"requesterId"`
	PermissionHash string    `json:"permissionHash"`
	GrantedAt      time.Time `json:"grantedAt"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

func toPermissionResponse(p dpmodels.Permission) permissionResponse {
	return permissionResponse{
		DataHash:       p.DataHash.String(),
		ProductID:      uint64(p.ProductID),
		State:          string(p.State),
		RequesterID:    uint64(p.RequesterID),
		PermissionHash: p.PermissionHash.Hex(),
		GrantedAt:      p.GrantedAt,
		ExpiresAt:      p.ExpiresAt,
	}
}

func (h *DataPermissionHandler) handleGetPermission(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body permissionGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	owner, err := domain.ParsePrincipal(body.Owner)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, err.Error()))
		return
	}
	dataHash, err := domain.ParseDataHash(body.DataHash)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, err.Error()))
		return
	}
	signature, err := shared.ParseHexBytes("signature", body.Signature)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, err.Error()))
		return
	}

	permission, err := h.service.GetPermission(ctx, dpmodels.PermissionRequest{
		Caller:           middleware.GetCaller(ctx),
		Signature:        signature,
		Owner:            owner,
		DataHash:         dataHash,
		ProductID:        domain.ProductID(body.ProductID),
		Nonce:            domain.Nonce(body.Nonce),
		ExpirationOffset: time.Duration(body.ExpirationOffsetSeconds) * time.Second,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "permission grant rejected",
			"error", err.Error(),
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, toPermissionResponse(permission))
}

func (h *DataPermissionHandler) handlePermissionOf(w http.ResponseWriter, r *http.Request) {
	hash, product, err := pathPermissionKey(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	permission, err := h.service.PermissionOf(r.Context(), hash, product)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, toPermissionResponse(permission))
}

func (h *DataPermissionHandler) handleDeadline(w http.ResponseWriter, r *http.Request) {
	hash, product, err := pathPermissionKey(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	deadline, err := h.service.GetPermissionDeadline(r.Context(), hash, product)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]time.Time{"expiresAt": deadline})
}

func (h *DataPermissionHandler) handleRecordCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.RecordCount(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]uint64{"count": count})
}

func (h *DataPermissionHandler) handleRecordByIndex(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseUint(chi.URLParam(r, "index"), 10, 64)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid record index"))
		return
	}
	record, svcErr := h.service.RecordByIndex(r.Context(), index)
	if svcErr != nil {
		shared.WriteError(w, svcErr)
		return
	}
	shared.WriteJSON(w, http.StatusOK, recordResponse(record))
}

func (h *DataPermissionHandler) handleRecordsByOwner(w http.ResponseWriter, r *http.Request) {
	principal, err := pathPrincipal(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	records, err := h.service.RecordsByOwner(r.Context(), principal)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out := make([]dataRecordResponse, 0, len(records))
	for _, record := range records {
		out = append(out, recordResponse(record))
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func (h *DataPermissionHandler) handlePermissionHistory(w http.ResponseWriter, r *http.Request) {
	principal, err := pathPrincipal(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	history, err := h.service.PermissionHistory(r.Context(), principal)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	out := make([]string, 0, len(history))
	for _, receipt := range history {
		out = append(out, receipt.Hex())
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

func pathPermissionKey(r *http.Request) (domain.DataHash, domain.ProductID, error) {
	hash, err := domain.ParseDataHash(chi.URLParam(r, "hash"))
	if err != nil {
		return domain.DataHash{}, 0, dErrors.New(dErrors.CodeInvalidInput, err.Error())
	}
	product, err := strconv.ParseUint(chi.URLParam(r, "product"), 10, 64)
	if err != nil {
		return domain.DataHash{}, 0, dErrors.New(dErrors.CodeInvalidInput, "invalid product id")
	}
	return hash, domain.ProductID(product), nil
}
