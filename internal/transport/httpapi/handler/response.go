package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kislikjeka/caseledger/internal/casefile"
	"github.com/kislikjeka/caseledger/internal/distribution"
	"github.com/kislikjeka/caseledger/internal/ledger"
	"github.com/kislikjeka/caseledger/pkg/logger"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondWithJSON sends a JSON response
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWithError sends an error response
func respondWithError(w http.ResponseWriter, code int, message string) {
	response, _ := json.Marshal(ErrorResponse{Error: message})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, distribution.ErrDeclarationNotFound),
		errors.Is(err, casefile.ErrCaseNotFound):
		return http.StatusNotFound
	case errors.Is(err, distribution.ErrDeletionNotConfirmed):
		return http.StatusConflict
	case errors.Is(err, distribution.ErrInvalidDistribution),
		errors.Is(err, distribution.ErrNoEligibleClaims),
		errors.Is(err, distribution.ErrInvalidDistributionType),
		errors.Is(err, distribution.ErrMissingCaseID),
		errors.Is(err, casefile.ErrInvalidSnapshot),
		errors.Is(err, casefile.ErrInvalidReportKind),
		errors.Is(err, ledger.ErrPeriodReversed),
		errors.Is(err, ledger.ErrPeriodBeforeInception),
		errors.Is(err, ledger.ErrPeriodStartsEarly):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondWithServiceError maps err to a status. Internal errors are logged
// and hidden from the caller.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		log.WithContext(r.Context()).WithError(err).Error("request failed", "path", r.URL.Path)
		respondWithError(w, code, "internal server error")
		return
	}
	respondWithError(w, code, err.Error())
}
