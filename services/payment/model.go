package payment

import (
	"strings"
	"time"
)

const (
	PaymentStatusPending    = "pending"
	PaymentStatusProcessing = "processing"
	PaymentStatusCompleted  = "completed"
	PaymentStatusFailed     = "failed"
	PaymentStatusRefunded   = "refunded"

	// PaymentStatusConfirmed is the terminal state of the manual cash path,
	// set together with its creation.
	PaymentStatusConfirmed = "confirmed"
)

// Payment is one attempt to settle an order. An order can accumulate several
// of these, e.g. a failed card attempt followed by a successful retry.
type Payment struct {
	UID           string
	OrderUID      string
	OwnerUID      string
	AmountInCents int64
	Currency      string
	Method        string
	Status        string
	Detail        string
	ExternalRef   string
	CreatedAt     time.Time
	LastModified  *time.Time
	CompletedAt   *time.Time
}

// A refunded payment may originate from a completed one; that is the only
// exit out of a terminal-looking state.
var allowedTransitions = map[string][]string{
	PaymentStatusPending:    {PaymentStatusProcessing, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded},
	PaymentStatusProcessing: {PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded},
	PaymentStatusCompleted:  {PaymentStatusRefunded},
	PaymentStatusConfirmed:  {PaymentStatusRefunded},
	PaymentStatusFailed:     {},
	PaymentStatusRefunded:   {},
}

func IsValidPaymentStatus(status string) bool {
	_, exists := allowedTransitions[status]
	return exists
}

func (p Payment) CanTransitionTo(next string) bool {
	for _, allowed := range allowedTransitions[p.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (p Payment) IsSettled() bool {
	return p.Status == PaymentStatusCompleted || p.Status == PaymentStatusConfirmed
}

// MaskedDetail hides the provider blob except for a trailing hint, good
// enough for a receipt line like "card ****1234".
func (p Payment) MaskedDetail() string {
	detail := strings.TrimSpace(p.Detail)
	if detail == "" {
		return p.Method
	}
	if len(detail) <= 4 {
		return p.Method + " ****"
	}
	return p.Method + " ****" + detail[len(detail)-4:]
}
