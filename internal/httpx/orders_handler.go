package httpx

import (
	"context"
	"encoding/json"
	"github.com/ariefcatur/mitra-storefront/internal/actor"
	"github.com/ariefcatur/mitra-storefront/internal/orders"
	"github.com/go-chi/chi/v5"
	"net/http"
	"time"
)

// CheckoutReq carries exactly one of Item (buy now) or Items (cart).
type CheckoutReq struct {
	ExternalID    string             `json:"external_id"`
	DestinationID string             `json:"destination_id"`
	Notes         string             `json:"notes"`
	Item          *orders.ItemInput  `json:"item,omitempty"`
	Items         []orders.ItemInput `json:"items,omitempty"`
}

func (c CheckoutReq) request() (orders.Request, bool) {
	switch {
	case c.Item != nil && c.Items == nil:
		return orders.BuyNow(*c.Item), true
	case c.Item == nil && c.Items != nil:
		return orders.Cart(c.Items), true
	}
	return orders.Request{}, false
}

type OrderResp struct {
	*orders.Order
	Idempotent bool `json:"idempotent"`
}

type statusBody struct {
	OrderID   string        `json:"order_id"`
	BuyerID   string        `json:"buyer_id,omitempty"`
	Status    orders.Status `json:"status"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type TransitionReq struct {
	Status orders.Status `json:"status"`
	Note   string        `json:"note"`
}

func (a *API) placeInput(w http.ResponseWriter, r *http.Request) (orders.PlaceInput, bool) {
	var req CheckoutReq
	if !decodeJSON(w, r, &req) {
		return orders.PlaceInput{}, false
	}
	or, ok := req.request()
	if !ok {
		badRequest(w, "exactly one of item or items is required")
		return orders.PlaceInput{}, false
	}
	in := orders.PlaceInput{
		ExternalID:    req.ExternalID,
		DestinationID: req.DestinationID,
		Notes:         req.Notes,
		Request:       or,
	}
	if act, ok := actor.FromContext(r.Context()); ok {
		in.BuyerID = act.ID
	}
	return in, true
}

func (a *API) quoteOrder(w http.ResponseWriter, r *http.Request) {
	in, ok := a.placeInput(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	q, err := a.Orders.Quote(ctx, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (a *API) createOrder(w http.ResponseWriter, r *http.Request) {
	in, ok := a.placeInput(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Fast path for replays; the store stays the source of truth.
	if id, ok := a.Cache.OrderIDFor(ctx, in.ExternalID); ok {
		if o, err := a.Orders.Get(ctx, id); err == nil && canSeeOrder(ctx, o.BuyerID) {
			writeJSON(w, http.StatusOK, OrderResp{Order: o, Idempotent: true})
			return
		}
	}

	o, existed, err := a.Orders.Place(ctx, in)
	if err != nil {
		writeError(w, err)
		return
	}
	a.Cache.RememberOrder(ctx, o.ExternalID, o.ID)
	if existed {
		if !canSeeOrder(ctx, o.BuyerID) {
			writeJSON(w, http.StatusConflict, map[string]any{"error": "external_id already used", "retryable": false})
			return
		}
		writeJSON(w, http.StatusOK, OrderResp{Order: o, Idempotent: true})
		return
	}
	a.cacheStatus(ctx, o)
	a.Events.OrderCreated(ctx, o)
	writeJSON(w, http.StatusCreated, OrderResp{Order: o})
}

// loadOwnOrder fetches the order and hides it from buyers who did not place it.
func (a *API) loadOwnOrder(w http.ResponseWriter, r *http.Request) (*orders.Order, bool) {
	o, err := a.Orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	if !canSeeOrder(r.Context(), o.BuyerID) {
		writeError(w, orders.ErrNotFound)
		return nil, false
	}
	return o, true
}

func canSeeOrder(ctx context.Context, buyerID string) bool {
	act, _ := actor.FromContext(ctx)
	return act.Role == actor.RoleAdmin || act.ID == buyerID
}

func (a *API) getOrder(w http.ResponseWriter, r *http.Request) {
	if o, ok := a.loadOwnOrder(w, r); ok {
		writeJSON(w, http.StatusOK, o)
	}
}

func (a *API) getOrderHistory(w http.ResponseWriter, r *http.Request) {
	o, ok := a.loadOwnOrder(w, r)
	if !ok {
		return
	}
	hist, err := a.Orders.History(r.Context(), o.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

func (a *API) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) cache
	if b, ok := a.Cache.Status(ctx, orderID); ok {
		var body statusBody
		if err := json.Unmarshal(b, &body); err == nil && canSeeOrder(ctx, body.BuyerID) {
			writeJSON(w, http.StatusOK, body)
			return
		}
	}

	// 2) store
	o, err := a.Orders.Get(ctx, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !canSeeOrder(ctx, o.BuyerID) {
		writeError(w, orders.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, a.cacheStatus(ctx, o))
}

func (a *API) cancelOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := a.loadOwnOrder(w, r)
	if !ok {
		return
	}
	var req struct {
		Note string `json:"note"`
	}
	if r.ContentLength > 0 && !decodeJSON(w, r, &req) {
		return
	}
	a.transition(w, r, o.ID, orders.StatusCancelled, req.Note)
}

func (a *API) transitionOrder(w http.ResponseWriter, r *http.Request) {
	var req TransitionReq
	if !decodeJSON(w, r, &req) {
		return
	}
	a.transition(w, r, chi.URLParam(r, "id"), req.Status, req.Note)
}

func (a *API) transition(w http.ResponseWriter, r *http.Request, id string, to orders.Status, note string) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, changed, err := a.Orders.Transition(ctx, id, to, note)
	if err != nil {
		writeError(w, err)
		return
	}
	if changed {
		a.cacheStatus(ctx, o)
		a.Events.OrderStatusChanged(ctx, o)
	}
	writeJSON(w, http.StatusOK, o)
}

func (a *API) cacheStatus(ctx context.Context, o *orders.Order) statusBody {
	body := statusBody{OrderID: o.ID, BuyerID: o.BuyerID, Status: o.Status, UpdatedAt: o.UpdatedAt}
	if b, err := json.Marshal(body); err == nil {
		a.Cache.PutStatus(ctx, o.ID, b)
	}
	return body
}
