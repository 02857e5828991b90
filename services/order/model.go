package order

import "time"

const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
	OrderStatusRefunded   = "refunded"
)

const (
	PaymentFlagUnpaid    = "unpaid"
	PaymentFlagPaid      = "paid"
	PaymentFlagFailed    = "failed"
	PaymentFlagRefunded  = "refunded"
	PaymentFlagConfirmed = "confirmed"
)

// Order is created once by checkout and mutated afterwards only through the
// status machine and the payment flag. Lines carry the price frozen at
// checkout time.
type Order struct {
	UID             string
	ShopperUID      string
	CartKey         string
	Lines           []OrderLine
	TotalInCents    int64
	Currency        string
	ShippingAddress string
	BillingAddress  string
	PaymentMethod   string
	Status          string
	StatusHistory   []StatusChange
	PaymentFlag     string
	PaymentSummary  string
	CreatedAt       time.Time
	LastModified    *time.Time
}

type OrderLine struct {
	ItemUID          string
	Description      string
	Quantity         int
	UnitPriceInCents int64
	LineTotalInCents int64
	Currency         string
}

// StatusChange is one entry of the append-only workflow log.
type StatusChange struct {
	Status string
	At     time.Time
	By     string
	Note   string
}

// allowedTransitions encodes the workflow machine. Pending is the only entry
// state; delivered, cancelled and refunded are terminal.
var allowedTransitions = map[string][]string{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusRefunded},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
	OrderStatusRefunded:   {},
}

func IsValidStatus(status string) bool {
	_, exists := allowedTransitions[status]
	return exists
}

func (o Order) CanTransitionTo(next string) bool {
	for _, allowed := range allowedTransitions[o.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}
