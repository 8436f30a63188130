package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/ariefcatur/mitra-storefront/internal/orders"
	"github.com/ariefcatur/mitra-storefront/internal/sales"
	"github.com/ariefcatur/mitra-storefront/internal/stock"
	"log"
	"net/http"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, "invalid json")
		return false
	}
	return true
}

// writeError maps domain errors onto status codes. Validation batches are
// reported whole so the client can fix every line at once.
func writeError(w http.ResponseWriter, err error) {
	if vs, ok := stock.AsViolations(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": vs})
		return
	}
	switch {
	case errors.Is(err, stock.ErrConcurrentStockConflict):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": err.Error(), "kind": stock.KindConcurrentStockConflict, "retryable": true,
		})
	case errors.Is(err, orders.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error(), "retryable": false})
	case errors.Is(err, orders.ErrNotFound), errors.Is(err, sales.ErrNotFound), errors.Is(err, orders.ErrDestinationNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, sales.ErrInvalidReturn):
		badRequest(w, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, map[string]string{"error": "request timed out"})
	default:
		log.Printf("[httpx] internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
