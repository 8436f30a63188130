package httpx

import (
	"github.com/shopspring/decimal"
	"log"
	"net/http"
)

func (a *API) quoteShipping(w http.ResponseWriter, r *http.Request) {
	dest := r.URL.Query().Get("destination_id")
	if dest == "" {
		badRequest(w, "destination_id is required")
		return
	}
	q, err := a.Orders.ShippingQuote(r.Context(), dest)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (a *API) publishSetting(w http.ResponseWriter, r *http.Request) {
	if a.Settings == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "shipping settings are read-only here"})
		return
	}
	var req struct {
		PricePerKm *decimal.Decimal `json:"price_per_km"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.PricePerKm == nil {
		badRequest(w, "price_per_km is required")
		return
	}
	s, err := a.Settings.PublishSetting(r.Context(), *req.PricePerKm)
	if err != nil {
		writeError(w, err)
		return
	}
	log.Printf("[shipping] setting version=%d price_per_km=%s", s.Version, s.PricePerKm)
	writeJSON(w, http.StatusOK, s)
}
