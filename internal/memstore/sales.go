package memstore

import (
	"context"
	"github.com/ariefcatur/mitra-storefront/internal/catalog"
	"github.com/ariefcatur/mitra-storefront/internal/sales"
	"github.com/ariefcatur/mitra-storefront/internal/stock"
)

type SalesStore struct{ s *Store }

var _ sales.Store = (*SalesStore)(nil)

func (ss *SalesStore) Products(ctx context.Context, ids []string) (map[string]catalog.Product, error) {
	return ss.s.readProducts(ctx, ids)
}

func (ss *SalesStore) Get(_ context.Context, id string) (*sales.Assignment, error) {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	a, ok := ss.s.assignments[id]
	if !ok {
		return nil, sales.ErrNotFound
	}
	return &a, nil
}

func (ss *SalesStore) ListByAgent(_ context.Context, agentID string) ([]sales.Assignment, error) {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	out := make([]sales.Assignment, 0)
	for _, a := range ss.s.assignments {
		if a.AgentID == agentID {
			out = append(out, a)
		}
	}
	sortAssignments(out)
	return out, nil
}

func (ss *SalesStore) Movements(_ context.Context, assignmentID string) ([]sales.Movement, error) {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	if _, ok := ss.s.assignments[assignmentID]; !ok {
		return nil, sales.ErrNotFound
	}
	return append([]sales.Movement(nil), ss.s.movements[assignmentID]...), nil
}

// Transaction returns a recorded sales transaction, for inspection.
func (ss *SalesStore) Transaction(id string) (sales.Transaction, bool) {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	t, ok := ss.s.transactions[id]
	return t, ok
}

func (ss *SalesStore) InTx(ctx context.Context, fn func(ctx context.Context, tx sales.Tx) error) error {
	return ss.s.inTx(ctx, func(t *txState) error {
		return fn(ctx, salesTx{t})
	})
}

type salesTx struct{ *txState }

func (t salesTx) LockAssignment(_ context.Context, id string) (*sales.Assignment, error) {
	a, ok := t.s.assignments[id]
	if !ok {
		return nil, sales.ErrNotFound
	}
	return &a, nil
}

func (t salesTx) LockAgentAssignments(_ context.Context, agentID string, pools []stock.Pool) (map[stock.Pool]*sales.Assignment, error) {
	out := make(map[stock.Pool]*sales.Assignment, len(pools))
	for _, p := range stock.SortedUnique(pools) {
		id, ok := t.s.byAgentPool[agentPool{agentID: agentID, pool: p}]
		if !ok {
			continue
		}
		a := t.s.assignments[id]
		out[p] = &a
	}
	return out, nil
}

func (t salesTx) SaveAssignment(_ context.Context, a *sales.Assignment) error {
	s := t.s
	key := agentPool{agentID: a.AgentID, pool: a.Pool()}
	prev, existed := s.assignments[a.ID]
	s.assignments[a.ID] = *a
	if !existed {
		s.byAgentPool[key] = a.ID
	}
	t.undo = append(t.undo, func() {
		if existed {
			s.assignments[a.ID] = prev
			return
		}
		delete(s.assignments, a.ID)
		delete(s.byAgentPool, key)
	})
	return nil
}

func (t salesTx) AppendMovement(_ context.Context, m sales.Movement) error {
	s := t.s
	prev := s.movements[m.AssignmentID]
	s.movements[m.AssignmentID] = append(append([]sales.Movement(nil), prev...), m)
	t.undo = append(t.undo, func() { s.movements[m.AssignmentID] = prev })
	return nil
}

func (t salesTx) InsertTransaction(_ context.Context, tr *sales.Transaction) error {
	s := t.s
	cp := *tr
	cp.Lines = append(cp.Lines[:0:0], tr.Lines...)
	s.transactions[tr.ID] = cp
	t.undo = append(t.undo, func() { delete(s.transactions, tr.ID) })
	return nil
}
