package payment

import (
	"github.com/luminagems/shopbackend/lib/mylog"
	"github.com/luminagems/shopbackend/lib/mypublisher"
	"github.com/luminagems/shopbackend/lib/mystore"
	"github.com/luminagems/shopbackend/lib/mytime"
	"github.com/luminagems/shopbackend/lib/myuuid"
	"github.com/luminagems/shopbackend/services/order"
)

type service struct {
	paymentStore     mystore.Store[Payment]
	orders           order.Orders
	publisher        mypublisher.Publisher
	nower            mytime.Nower
	uuider           myuuid.UUIDer
	logger           mylog.Logger
	taxRatePercent   float64
	shippingFeeCents int64
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(store mystore.Store[Payment], orders order.Orders, publisher mypublisher.Publisher, nower mytime.Nower, uuider myuuid.UUIDer, logger mylog.Logger, taxRatePercent float64, shippingFeeCents int64) *service {
	return &service{
		paymentStore:     store,
		orders:           orders,
		publisher:        publisher,
		nower:            nower,
		uuider:           uuider,
		logger:           logger,
		taxRatePercent:   taxRatePercent,
		shippingFeeCents: shippingFeeCents,
	}
}
