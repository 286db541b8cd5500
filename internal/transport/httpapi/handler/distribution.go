package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kislikjeka/caseledger/internal/distribution"
	"github.com/kislikjeka/caseledger/pkg/logger"
)

// DistributionServiceInterface defines the interface for distribution operations
type DistributionServiceInterface interface {
	Preview(ctx context.Context, req distribution.Request) (*distribution.Result, error)
	Declare(ctx context.Context, req distribution.Request) (*distribution.Declaration, error)
	List(ctx context.Context, caseID uuid.UUID) ([]*distribution.Declaration, error)
	Get(ctx context.Context, caseID, id uuid.UUID) (*distribution.Declaration, error)
	Delete(ctx context.Context, caseID, id uuid.UUID, confirm bool, actor string) error
}

// DistributionHandler handles distribution HTTP requests
type DistributionHandler struct {
	service DistributionServiceInterface
	logger  *logger.Logger
}

// NewDistributionHandler creates a new distribution handler
func NewDistributionHandler(service DistributionServiceInterface, log *logger.Logger) *DistributionHandler {
	return &DistributionHandler{
		service: service,
		logger:  log.WithField("component", "distribution_handler"),
	}
}

// DistributionRequest is the body of a case distribution preview or declaration
type DistributionRequest struct {
	DistributionType string `json:"distribution_type" validate:"required,oneof=secured preferential secondary_preferential unsecured members"`
	SumToDistribute  string `json:"sum_to_distribute" validate:"required"`
	SumToRetain      string `json:"sum_to_retain"`
}

// CalculateRequest is the body of a stateless distribution calculation
type CalculateRequest struct {
	DistributionRequest
	Claims []distribution.Claim `json:"claims" validate:"required"`
}

// DistributionListResponse wraps a case's declaration history
type DistributionListResponse struct {
	Declarations []*distribution.Declaration `json:"declarations"`
	Count        int                         `json:"count"`
}

// Calculate handles POST /distributions/preview
func (h *DistributionHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	dreq, err := req.toRequest(uuid.Nil)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	// only claims ranking in the class being paid take part
	claims := distribution.OfType(req.Claims, dreq.DistributionType)
	result, err := distribution.Calculate(claims, dreq.SumToDistribute, dreq.SumToRetain, dreq.DistributionType)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// PreviewCase handles POST /cases/{caseID}/distributions/preview
func (h *DistributionHandler) PreviewCase(w http.ResponseWriter, r *http.Request) {
	caseID, ok := parseCaseID(w, r)
	if !ok {
		return
	}

	var req DistributionRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	dreq, err := req.toRequest(caseID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Preview(r.Context(), dreq)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// Declare handles POST /cases/{caseID}/distributions
func (h *DistributionHandler) Declare(w http.ResponseWriter, r *http.Request) {
	caseID, ok := parseCaseID(w, r)
	if !ok {
		return
	}

	var req DistributionRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	dreq, err := req.toRequest(caseID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	dreq.DeclaredBy = subject(r.Context())

	decl, err := h.service.Declare(r.Context(), dreq)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, decl)
}

// List handles GET /cases/{caseID}/distributions
func (h *DistributionHandler) List(w http.ResponseWriter, r *http.Request) {
	caseID, ok := parseCaseID(w, r)
	if !ok {
		return
	}

	decls, err := h.service.List(r.Context(), caseID)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}
	if decls == nil {
		decls = []*distribution.Declaration{}
	}

	respondWithJSON(w, http.StatusOK, DistributionListResponse{Declarations: decls, Count: len(decls)})
}

// Get handles GET /cases/{caseID}/distributions/{id}
func (h *DistributionHandler) Get(w http.ResponseWriter, r *http.Request) {
	caseID, ok := parseCaseID(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid distribution ID")
		return
	}

	decl, err := h.service.Get(r.Context(), caseID, id)
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, decl)
}

// Delete handles DELETE /cases/{caseID}/distributions/{id}?confirm=true
func (h *DistributionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caseID, ok := parseCaseID(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid distribution ID")
		return
	}

	confirm := false
	if v := r.URL.Query().Get("confirm"); v != "" {
		if confirm, err = strconv.ParseBool(v); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid confirm")
			return
		}
	}

	if err := h.service.Delete(r.Context(), caseID, id, confirm, subject(r.Context())); err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (req DistributionRequest) toRequest(caseID uuid.UUID) (distribution.Request, error) {
	toDistribute, err := parseAmount("sum_to_distribute", req.SumToDistribute)
	if err != nil {
		return distribution.Request{}, err
	}
	toRetain, err := parseAmount("sum_to_retain", req.SumToRetain)
	if err != nil {
		return distribution.Request{}, err
	}
	return distribution.Request{
		CaseID:           caseID,
		DistributionType: distribution.CreditorType(req.DistributionType),
		SumToDistribute:  toDistribute,
		SumToRetain:      toRetain,
	}, nil
}

func parseCaseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	caseID, err := uuid.Parse(chi.URLParam(r, "caseID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid case ID")
		return uuid.Nil, false
	}
	return caseID, true
}

// subject is the authenticated caller recorded against declarations
func subject(ctx context.Context) string {
	s, _ := ctx.Value(logger.SubjectKey).(string)
	return s
}
