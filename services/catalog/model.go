package catalog

import "time"

// Diamond is one physical stone. Availability is deliberately a boolean, not
// a counter: every catalog entry is a unique, non-fungible item that can be
// sold exactly once.
type Diamond struct {
	UID          string
	Description  string
	CaratWeight  float64
	Color        string
	Clarity      string
	PriceInCents int64
	Currency     string
	Available    bool
	CreatedAt    time.Time
	LastModified *time.Time
}
