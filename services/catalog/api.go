package catalog

import "context"

// Catalog is the read-mostly reference consumed by the cart and checkout
// services: current price and availability by uid, plus the availability
// flip performed when a stone is sold.
//
//go:generate mockgen -source=api.go -package catalog -destination catalog_mock.go Catalog
type Catalog interface {
	GetItem(c context.Context, uid string) (Diamond, bool, error)
	MarkUnavailable(c context.Context, uid string) error
}
