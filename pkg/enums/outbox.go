package enums

// OutboxEventType names the domain events queued for publication.
type OutboxEventType string

const (
	EventOrderCreated OutboxEventType = "order.created"
	EventOrderPaid    OutboxEventType = "order.paid"
	EventOrderStatus  OutboxEventType = "order.status_changed"
)

// OutboxAggregateType scopes an outbox event to its aggregate root.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregatePayment OutboxAggregateType = "payment"
)
