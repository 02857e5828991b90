package order

import "context"

//go:generate mockgen -source=api.go -package order -destination orders_mock.go Orders
type Orders interface {
	// GetOrder fetches a single order without access checks; the caller is
	// responsible for ownership enforcement.
	GetOrder(c context.Context, uid string) (Order, bool, error)

	// ApplyPaymentFlag records the outcome of a payment on the order. A paid
	// or confirmed flag moves a pending order to processing; the other flags
	// leave the workflow status untouched.
	ApplyPaymentFlag(c context.Context, orderUID string, flag string, summary string) error
}
