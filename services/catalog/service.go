package catalog

import (
	"github.com/luminagems/shopbackend/lib/mylog"
	"github.com/luminagems/shopbackend/lib/mypubsub"
	"github.com/luminagems/shopbackend/lib/mystore"
	"github.com/luminagems/shopbackend/lib/mytime"
)

type service struct {
	catalogStore    mystore.Store[Diamond]
	subscriber      mypubsub.PubSub
	nower           mytime.Nower
	logger          mylog.Logger
	defaultCurrency string
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(store mystore.Store[Diamond], nower mytime.Nower, subscriber mypubsub.PubSub, logger mylog.Logger, defaultCurrency string) *service {
	return &service{
		catalogStore:    store,
		subscriber:      subscriber,
		nower:           nower,
		logger:          logger,
		defaultCurrency: defaultCurrency,
	}
}
