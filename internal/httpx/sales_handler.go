package httpx

import (
	"context"
	"github.com/ariefcatur/mitra-storefront/internal/actor"
	"github.com/ariefcatur/mitra-storefront/internal/orders"
	"github.com/ariefcatur/mitra-storefront/internal/sales"
	"github.com/go-chi/chi/v5"
	"net/http"
	"time"
)

type AssignReq struct {
	AgentID   string `json:"agent_id"`
	ProductID string `json:"product_id"`
	SKUID     string `json:"sku_id"`
	Quantity  int    `json:"quantity"`
}

type ReturnReq struct {
	Mode     string `json:"mode"`
	Quantity int    `json:"quantity"`
}

type SalesTransactionReq struct {
	AgentID       string             `json:"agent_id"`
	DestinationID string             `json:"destination_id"`
	Notes         string             `json:"notes"`
	Items         []orders.ItemInput `json:"items"`
}

type AssignmentResp struct {
	*sales.Assignment
	Current int `json:"current"`
	Moved   int `json:"moved"`
}

type TransactionResp struct {
	*sales.Transaction
	Assignments []sales.Assignment `json:"assignments"`
}

// agentScope returns whose assignments the caller may touch. Agents are
// pinned to themselves; admins name the agent explicitly.
func agentScope(ctx context.Context, requested string) (string, bool) {
	act, _ := actor.FromContext(ctx)
	if act.Role == actor.RoleAgent {
		return act.ID, requested == "" || requested == act.ID
	}
	return requested, requested != ""
}

func (a *API) assign(w http.ResponseWriter, r *http.Request) {
	var req AssignReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.AgentID == "" || req.ProductID == "" {
		badRequest(w, "agent_id and product_id are required")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	as, err := a.Sales.Assign(ctx, sales.AssignInput{
		AgentID: req.AgentID, ProductID: req.ProductID, SKUID: req.SKUID, Quantity: req.Quantity,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	a.Events.LedgerUpdated(ctx, *as, sales.MovementAssign, req.Quantity)
	writeJSON(w, http.StatusCreated, AssignmentResp{Assignment: as, Current: as.Current(), Moved: req.Quantity})
}

func (a *API) listAssignments(w http.ResponseWriter, r *http.Request) {
	agentID, ok := agentScope(r.Context(), r.URL.Query().Get("agent_id"))
	if !ok {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "agent_id is required and must be your own"})
		return
	}
	list, err := a.Sales.ListByAgent(r.Context(), agentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// loadOwnAssignment hides other agents' assignments behind a 404.
func (a *API) loadOwnAssignment(w http.ResponseWriter, r *http.Request) (*sales.Assignment, bool) {
	as, err := a.Sales.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	act, _ := actor.FromContext(r.Context())
	if act.Role == actor.RoleAgent && as.AgentID != act.ID {
		writeError(w, sales.ErrNotFound)
		return nil, false
	}
	return as, true
}

func (a *API) listMovements(w http.ResponseWriter, r *http.Request) {
	as, ok := a.loadOwnAssignment(w, r)
	if !ok {
		return
	}
	ms, err := a.Sales.Movements(r.Context(), as.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ms)
}

func (a *API) recordSale(w http.ResponseWriter, r *http.Request) {
	as, ok := a.loadOwnAssignment(w, r)
	if !ok {
		return
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	as, err := a.Sales.RecordSale(ctx, as.ID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	a.Events.LedgerUpdated(ctx, *as, sales.MovementSale, req.Quantity)
	writeJSON(w, http.StatusOK, AssignmentResp{Assignment: as, Current: as.Current(), Moved: req.Quantity})
}

func (a *API) recordReturn(w http.ResponseWriter, r *http.Request) {
	as, ok := a.loadOwnAssignment(w, r)
	if !ok {
		return
	}
	var req ReturnReq
	if !decodeJSON(w, r, &req) {
		return
	}
	mode, err := sales.ParseReturnMode(req.Mode)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	as, moved, err := a.Sales.RecordReturn(ctx, as.ID, sales.Return{Mode: mode, Quantity: req.Quantity})
	if err != nil {
		writeError(w, err)
		return
	}
	if moved > 0 {
		a.Events.LedgerUpdated(ctx, *as, sales.MovementReturn, moved)
	}
	writeJSON(w, http.StatusOK, AssignmentResp{Assignment: as, Current: as.Current(), Moved: moved})
}

func (a *API) recordTransaction(w http.ResponseWriter, r *http.Request) {
	var req SalesTransactionReq
	if !decodeJSON(w, r, &req) {
		return
	}
	agentID, ok := agentScope(r.Context(), req.AgentID)
	if !ok {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "agent_id is required and must be your own"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	t, touched, err := a.Sales.RecordTransaction(ctx, sales.TransactionInput{
		AgentID:       agentID,
		DestinationID: req.DestinationID,
		Notes:         req.Notes,
		Items:         req.Items,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	sold := make(map[string]int, len(touched))
	for _, l := range t.Lines {
		sold[l.Pool().String()] += l.Qty
	}
	for _, as := range touched {
		a.Events.LedgerUpdated(ctx, as, sales.MovementSale, sold[as.Pool().String()])
	}
	writeJSON(w, http.StatusCreated, TransactionResp{Transaction: t, Assignments: touched})
}
