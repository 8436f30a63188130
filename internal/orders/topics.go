package orders

const (
	TopicOrderCreated         = "order.created"
	TopicOrderStatusChanged   = "order.status.changed"
	TopicOrderStatusRequested = "order.status.requested"
	TopicSalesLedgerUpdated   = "sales.ledger.updated"
)

// Partition key = order_id (or assignment id), so every event of one aggregate keeps its order.
func PartitionKey(id string) []byte { return []byte(id) }
