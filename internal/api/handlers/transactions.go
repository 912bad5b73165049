package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sterlingtax/cryptotax-backend/internal/api/response"
	"github.com/sterlingtax/cryptotax-backend/internal/apperrors"
	"github.com/sterlingtax/cryptotax-backend/internal/parsers"
	"github.com/sterlingtax/cryptotax-backend/internal/service"
)

// TransactionHandler handles HTTP requests for the stored transaction set.
// It serves as the HTTP layer adapter, parsing requests and delegating
// business logic to the importService.
type TransactionHandler struct {
	importService *service.ImportService
}

// NewTransactionHandler creates a new TransactionHandler with the provided service dependency.
func NewTransactionHandler(importService *service.ImportService) *TransactionHandler {
	return &TransactionHandler{
		importService: importService,
	}
}

// AllTransactions handles GET requests to retrieve all stored transactions
// in engine processing order.
//
// Endpoint: GET /api/transaction
// Response: 200 OK with array of Transaction
// Error: 500 Internal Server Error if retrieval fails
func (h *TransactionHandler) AllTransactions(w http.ResponseWriter, _ *http.Request) {
	transactions, err := h.importService.Transactions()
	if err != nil {
		response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToRetrieveTransactions.Error(), err.Error())
		return
	}

	response.RespondJSON(w, http.StatusOK, transactions)
}

// Import handles POST requests to import an export file. The request body is
// the raw CSV; the source path parameter selects the parser.
//
// Endpoint: POST /api/transaction/import/{source}
// Request Body: CSV file content
// Response: 200 OK with ImportResult
// Error: 400 Bad Request if the source is unknown or the file cannot be parsed
// Error: 500 Internal Server Error if storage fails
func (h *TransactionHandler) Import(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")

	result, err := h.importService.Import(r.Context(), source, r.Body)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrUnknownSource), errors.Is(err, apperrors.ErrImportFailure):
			response.RespondError(w, http.StatusBadRequest, apperrors.ErrImportFailure.Error(), err.Error())
		default:
			response.RespondError(w, http.StatusInternalServerError, apperrors.ErrFailedToStoreTransactions.Error(), err.Error())
		}
		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

// DeleteAll handles DELETE requests to clear the stored transaction set.
//
// Endpoint: DELETE /api/transaction
// Response: 204 No Content
// Error: 500 Internal Server Error if deletion fails
func (h *TransactionHandler) DeleteAll(w http.ResponseWriter, _ *http.Request) {
	if err := h.importService.Clear(); err != nil {
		response.RespondError(w, http.StatusInternalServerError, "failed to delete transactions", err.Error())
		return
	}
	response.RespondJSON(w, http.StatusNoContent, nil)
}

// Sources handles GET requests listing the supported import sources.
//
// Endpoint: GET /api/transaction/sources
// Response: 200 OK with array of source names
func (h *TransactionHandler) Sources(w http.ResponseWriter, _ *http.Request) {
	response.RespondJSON(w, http.StatusOK, parsers.Sources())
}
