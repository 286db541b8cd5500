package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kislikjeka/caseledger/internal/casefile"
	"github.com/kislikjeka/caseledger/internal/statement"
	"github.com/kislikjeka/caseledger/pkg/logger"
)

// ReportServiceInterface defines the interface for case report operations
type ReportServiceInterface interface {
	Report(ctx context.Context, kind casefile.ReportKind, caseID uuid.UUID, opts casefile.ReportOptions) (*casefile.Report, error)
	Invalidate(ctx context.Context, caseID uuid.UUID) error
}

// ReportHandler handles case report HTTP requests
type ReportHandler struct {
	service  ReportServiceInterface
	composer *statement.Composer
	logger   *logger.Logger
	now      func() time.Time
}

// NewReportHandler creates a new report handler. The composer serves the
// stateless endpoints that carry their own snapshot.
func NewReportHandler(service ReportServiceInterface, composer *statement.Composer, log *logger.Logger) *ReportHandler {
	return &ReportHandler{
		service:  service,
		composer: composer,
		logger:   log.WithField("component", "report_handler"),
		now:      time.Now,
	}
}

// ComputeReportRequest is the body of a stateless report request
type ComputeReportRequest struct {
	Snapshot          *casefile.Snapshot `json:"snapshot" validate:"required"`
	PeriodFrom        string             `json:"period_from" validate:"omitempty,datetime=2006-01-02"`
	PeriodTo          string             `json:"period_to" validate:"omitempty,datetime=2006-01-02"`
	BankAccount       string             `json:"bank_account" validate:"omitempty,max=255"`
	IncludeUnapproved bool               `json:"include_unapproved"`
}

// kindFromPath maps the URL segment to a report kind
func kindFromPath(segment string) casefile.ReportKind {
	switch segment {
	case "statement":
		return casefile.ReportStatement
	case "trial-balance":
		return casefile.ReportTrialBalance
	case "vat":
		return casefile.ReportVAT
	default:
		return casefile.ReportKind(segment)
	}
}

// ComputeReport handles POST /reports/{kind}
func (h *ReportHandler) ComputeReport(w http.ResponseWriter, r *http.Request) {
	kind := kindFromPath(chi.URLParam(r, "kind"))
	if !kind.IsValid() {
		respondWithError(w, http.StatusNotFound, "unknown report kind")
		return
	}

	var req ComputeReportRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts, err := buildOptions(req.PeriodFrom, req.PeriodTo, req.BankAccount, req.IncludeUnapproved)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := casefile.Compute(h.composer, kind, req.Snapshot, opts, h.now())
	if err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, report)
}

// GetCaseReport handles GET /cases/{caseID}/{kind}
func (h *ReportHandler) GetCaseReport(kind casefile.ReportKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caseID, err := uuid.Parse(chi.URLParam(r, "caseID"))
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid case ID")
			return
		}

		q := r.URL.Query()
		includeUnapproved := false
		if v := q.Get("include_unapproved"); v != "" {
			includeUnapproved, err = strconv.ParseBool(v)
			if err != nil {
				respondWithError(w, http.StatusBadRequest, "invalid include_unapproved")
				return
			}
		}

		opts, err := buildOptions(q.Get("from"), q.Get("to"), q.Get("account"), includeUnapproved)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		ctx := context.WithValue(r.Context(), logger.CaseIDKey, caseID.String())
		report, err := h.service.Report(ctx, kind, caseID, opts)
		if err != nil {
			respondWithServiceError(w, r.WithContext(ctx), h.logger, err)
			return
		}

		if report.Stale {
			w.Header().Set("Warning", `110 - "Response is Stale"`)
		}
		respondWithJSON(w, http.StatusOK, report)
	}
}

// InvalidateCase handles POST /cases/{caseID}/invalidate
func (h *ReportHandler) InvalidateCase(w http.ResponseWriter, r *http.Request) {
	caseID, err := uuid.Parse(chi.URLParam(r, "caseID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid case ID")
		return
	}

	if err := h.service.Invalidate(r.Context(), caseID); err != nil {
		respondWithServiceError(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func buildOptions(from, to, account string, includeUnapproved bool) (casefile.ReportOptions, error) {
	periodFrom, err := parseDate(from)
	if err != nil {
		return casefile.ReportOptions{}, err
	}
	periodTo, err := parseDate(to)
	if err != nil {
		return casefile.ReportOptions{}, err
	}
	return casefile.ReportOptions{
		PeriodFrom:        periodFrom,
		PeriodTo:          periodTo,
		BankAccount:       account,
		IncludeUnapproved: includeUnapproved,
	}, nil
}
