package orders

type Status string

const (
	StatusPending         Status = "pending"
	StatusValidation      Status = "validation"
	StatusPaid            Status = "paid"
	StatusProcessing      Status = "processing"
	StatusOutForDelivery  Status = "out_for_delivery"
	StatusDelivered       Status = "delivered"
	StatusCompleted       Status = "completed"
	StatusPaymentRejected Status = "payment_rejected"
	StatusFailedDelivery  Status = "failed_delivery"
	StatusCancelled       Status = "cancelled"
	StatusReturned        Status = "returned"
	StatusRefunded        Status = "refunded"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:         {StatusValidation: true, StatusCancelled: true},
	StatusValidation:      {StatusPaid: true, StatusPaymentRejected: true, StatusCancelled: true},
	StatusPaymentRejected: {StatusValidation: true, StatusCancelled: true},
	StatusPaid:            {StatusProcessing: true, StatusReturned: true, StatusRefunded: true},
	StatusProcessing:      {StatusOutForDelivery: true, StatusReturned: true, StatusRefunded: true},
	StatusOutForDelivery:  {StatusDelivered: true, StatusFailedDelivery: true},
	StatusFailedDelivery:  {StatusOutForDelivery: true, StatusReturned: true},
	StatusDelivered:       {StatusCompleted: true, StatusReturned: true},
	StatusReturned:        {StatusRefunded: true},
	StatusCompleted:       {},
	StatusCancelled:       {},
	StatusRefunded:        {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

func (s Status) Terminal() bool {
	return s.Valid() && len(validNext[s]) == 0
}

// RestoresStock reports whether entering s gives the order's units back to
// their pools. The order's StockRestored flag keeps it to once per order.
// Returns after delivered or failed_delivery restore too: the units come back
// to the vendor whichever state the order left from.
func (s Status) RestoresStock() bool {
	switch s {
	case StatusCancelled, StatusReturned, StatusRefunded:
		return true
	}
	return false
}
