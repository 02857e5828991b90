package cart

import (
	"github.com/luminagems/shopbackend/lib/mylog"
	"github.com/luminagems/shopbackend/lib/mypubsub"
	"github.com/luminagems/shopbackend/lib/mystore"
	"github.com/luminagems/shopbackend/lib/mytime"
	"github.com/luminagems/shopbackend/lib/myuuid"
	"github.com/luminagems/shopbackend/services/catalog"
)

type service struct {
	cartStore  mystore.Store[Cart]
	catalog    catalog.Catalog
	subscriber mypubsub.PubSub
	nower      mytime.Nower
	uuider     myuuid.UUIDer
	logger     mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(store mystore.Store[Cart], cat catalog.Catalog, nower mytime.Nower, uuider myuuid.UUIDer, subscriber mypubsub.PubSub, logger mylog.Logger) *service {
	return &service{
		cartStore:  store,
		catalog:    cat,
		subscriber: subscriber,
		nower:      nower,
		uuider:     uuider,
		logger:     logger,
	}
}
