package events

// Topics emitted by the storefront.
const (
	TopicOrderCreated = "order.created"
	TopicCartCleared  = "cart.cleared"
)
