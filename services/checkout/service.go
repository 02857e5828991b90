package checkout

import (
	"github.com/luminagems/shopbackend/lib/mylog"
	"github.com/luminagems/shopbackend/lib/mypublisher"
	"github.com/luminagems/shopbackend/lib/mystore"
	"github.com/luminagems/shopbackend/lib/mytime"
	"github.com/luminagems/shopbackend/lib/myuuid"
	"github.com/luminagems/shopbackend/services/cart"
	"github.com/luminagems/shopbackend/services/catalog"
	"github.com/luminagems/shopbackend/services/order"
)

type service struct {
	cartStore  mystore.Store[cart.Cart]
	orderStore mystore.Store[order.Order]
	catalog    catalog.Catalog
	publisher  mypublisher.Publisher
	nower      mytime.Nower
	uuider     myuuid.UUIDer
	logger     mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(cartStore mystore.Store[cart.Cart], orderStore mystore.Store[order.Order], cat catalog.Catalog, publisher mypublisher.Publisher, nower mytime.Nower, uuider myuuid.UUIDer, logger mylog.Logger) *service {
	return &service{
		cartStore:  cartStore,
		orderStore: orderStore,
		catalog:    cat,
		publisher:  publisher,
		nower:      nower,
		uuider:     uuider,
		logger:     logger,
	}
}
