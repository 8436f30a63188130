package orders

// RequestKind tags which input shape a Request carries.
type RequestKind int

const (
	KindBuyNow RequestKind = iota + 1
	KindCart
	KindExplicit
)

func (k RequestKind) String() string {
	switch k {
	case KindBuyNow:
		return "buy_now"
	case KindCart:
		return "cart"
	case KindExplicit:
		return "explicit"
	}
	return "unknown"
}

// Request is the single input type of the composer. Build it with BuyNow,
// Cart or Explicit; the zero value composes to EmptyOrder.
type Request struct {
	kind    RequestKind
	items   []ItemInput
	agentID string
}

func BuyNow(item ItemInput) Request {
	return Request{kind: KindBuyNow, items: []ItemInput{item}}
}

func Cart(items []ItemInput) Request {
	return Request{kind: KindCart, items: append([]ItemInput(nil), items...)}
}

// Explicit is the sales-transaction shape: lines sold by a field agent.
func Explicit(agentID string, items []ItemInput) Request {
	return Request{kind: KindExplicit, items: append([]ItemInput(nil), items...), agentID: agentID}
}

func (r Request) Kind() RequestKind  { return r.kind }
func (r Request) Items() []ItemInput { return r.items }
func (r Request) AgentID() string    { return r.agentID }
