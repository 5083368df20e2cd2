package order

// Status is the lifecycle state of an order.
type Status string

// PaymentStatus tracks how far the payment for an order has progressed.
type PaymentStatus string

const (
	StatusPending    Status = "PENDING"
	StatusPaid       Status = "PAID"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

const (
	PaymentUnpaid    PaymentStatus = "UNPAID"
	PaymentPaid      PaymentStatus = "PAID"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentExpired   PaymentStatus = "EXPIRED"
	PaymentCancelled PaymentStatus = "CANCELLED"
)

// statusRank orders the happy-path states. CANCELLED is not ranked: it is an
// absorbing side branch reachable only from PENDING or PAID.
var statusRank = map[Status]int{
	StatusPending:    0,
	StatusPaid:       1,
	StatusProcessing: 2,
	StatusShipped:    3,
	StatusDelivered:  4,
}

// Valid reports whether s is a known order status.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok || s == StatusCancelled
}

// Terminal reports whether no further transitions may leave s.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusDelivered
}

// CanTransition reports whether an order may move from its current status to
// next. Self-transitions are allowed so replayed notifications converge
// without erroring. Forward moves follow the rank ordering; CANCELLED is
// reachable only from PENDING or PAID and never left.
func (s Status) CanTransition(next Status) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if next == s {
		return true
	}
	if s.Terminal() {
		return false
	}
	if next == StatusCancelled {
		return s == StatusPending || s == StatusPaid
	}
	return statusRank[next] > statusRank[s]
}
