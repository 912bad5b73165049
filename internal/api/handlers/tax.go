package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sterlingtax/cryptotax-backend/internal/api/response"
	"github.com/sterlingtax/cryptotax-backend/internal/apperrors"
	"github.com/sterlingtax/cryptotax-backend/internal/service"
	"github.com/sterlingtax/cryptotax-backend/internal/tax"
	"github.com/sterlingtax/cryptotax-backend/internal/validation"
)

// TaxHandler handles HTTP requests for tax reports. Every endpoint recomputes
// from the full stored history; engine options come from query parameters.
type TaxHandler struct {
	taxService *service.TaxService
}

// NewTaxHandler creates a new TaxHandler with the provided service dependency.
func NewTaxHandler(taxService *service.TaxService) *TaxHandler {
	return &TaxHandler{
		taxService: taxService,
	}
}

// engineOptions builds engine options from the shared query parameters:
// yearStart (DD-MM), window (days), transfers (policy name).
func engineOptions(r *http.Request) (tax.Options, error) {
	q := r.URL.Query()
	return validation.ParseEngineOptions(q.Get("yearStart"), q.Get("window"), q.Get("transfers"))
}

// Report handles GET requests for a full capital gains report across all tax
// years, including valued holdings.
//
// Endpoint: GET /api/tax/report
// Query: yearStart, window, transfers (all optional)
// Response: 200 OK with the full calculation result
// Error: 400 Bad Request if an option is invalid
// Error: 422 Unprocessable Entity if a required price is unavailable
// Error: 500 Internal Server Error otherwise
func (h *TaxHandler) Report(w http.ResponseWriter, r *http.Request) {
	opts, err := engineOptions(r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid engine options", err.Error())
		return
	}

	result, err := h.taxService.Report(r.Context(), opts, true)
	if err != nil {
		respondCalculationError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// YearReport handles GET requests for one tax year's summary.
//
// Endpoint: GET /api/tax/report/{year}
// Query: yearStart, window, transfers (all optional)
// Response: 200 OK with YearSummary
// Error: 400 Bad Request if the year or an option is invalid
// Error: 422 Unprocessable Entity if a required price is unavailable
// Error: 500 Internal Server Error otherwise
func (h *TaxHandler) YearReport(w http.ResponseWriter, r *http.Request) {
	year, err := validation.ParseTaxYear(chi.URLParam(r, "year"))
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidTaxYear.Error(), err.Error())
		return
	}

	opts, err := engineOptions(r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid engine options", err.Error())
		return
	}

	summary, err := h.taxService.YearReport(r.Context(), year, opts)
	if err != nil {
		respondCalculationError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, summary)
}

// Holdings handles GET requests for the final Section 104 pools valued at
// today's prices.
//
// Endpoint: GET /api/tax/holdings
// Response: 200 OK with HoldingsSnapshot
func (h *TaxHandler) Holdings(w http.ResponseWriter, r *http.Request) {
	opts, err := engineOptions(r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid engine options", err.Error())
		return
	}

	holdings, err := h.taxService.Holdings(r.Context(), opts)
	if err != nil {
		respondCalculationError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, holdings)
}

// Audit handles GET requests for the integrity cross-check between raw
// balances and the Section 104 pools.
//
// Endpoint: GET /api/tax/audit
// Response: 200 OK with AuditResult
func (h *TaxHandler) Audit(w http.ResponseWriter, r *http.Request) {
	opts, err := engineOptions(r)
	if err != nil {
		response.RespondError(w, http.StatusBadRequest, "invalid engine options", err.Error())
		return
	}

	audit, err := h.taxService.Audit(r.Context(), opts)
	if err != nil {
		respondCalculationError(w, err)
		return
	}

	response.RespondJSON(w, http.StatusOK, audit)
}

// respondCalculationError maps engine failures onto HTTP statuses. A missing
// price is the caller's data problem, not a server fault.
func respondCalculationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidTaxYear):
		response.RespondError(w, http.StatusBadRequest, apperrors.ErrInvalidTaxYear.Error(), err.Error())
	case errors.Is(err, apperrors.ErrPriceNotAvailable):
		response.RespondError(w, http.StatusUnprocessableEntity, apperrors.ErrPriceNotAvailable.Error(), err.Error())
	default:
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToCalculate.Error(), err.Error())
	}
}
