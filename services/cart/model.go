package cart

import "time"

// Cart is one document per identity. AccountUID and GuestToken are mutually
// exclusive: once a guest cart is merged into an account cart, the guest
// record is deleted and its token never resolves to cart contents again.
type Cart struct {
	Key          string
	AccountUID   string
	GuestToken   string
	Lines        []CartLine
	CreatedAt    time.Time
	LastModified *time.Time
}

// CartLine references one stone. The catalog uid appears at most once per
// cart; adding the same stone again sums quantities.
type CartLine struct {
	ItemUID  string
	Quantity int
}

func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

func (c Cart) lineIndex(itemUID string) int {
	for i, line := range c.Lines {
		if line.ItemUID == itemUID {
			return i
		}
	}
	return -1
}

// CartView is the read-side shape: persisted lines hydrated with the current
// catalog price and availability. Display only; checkout re-reads the catalog.
type CartView struct {
	Key          string
	AccountUID   string
	GuestToken   string
	Lines        []LineView
	TotalInCents int64
	Currency     string
	CreatedAt    time.Time
	LastModified *time.Time
}

type LineView struct {
	ItemUID          string
	Description      string
	Quantity         int
	PriceInCents     int64
	LineTotalInCents int64
	Currency         string
	Available        bool
}
