package order

import (
	"github.com/luminagems/shopbackend/lib/mylog"
	"github.com/luminagems/shopbackend/lib/mypubsub"
	"github.com/luminagems/shopbackend/lib/mystore"
	"github.com/luminagems/shopbackend/lib/mytime"
)

type service struct {
	orderStore mystore.Store[Order]
	nower      mytime.Nower
	subscriber mypubsub.PubSub
	logger     mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(store mystore.Store[Order], nower mytime.Nower, subscriber mypubsub.PubSub, logger mylog.Logger) *service {
	return &service{
		orderStore: store,
		nower:      nower,
		subscriber: subscriber,
		logger:     logger,
	}
}
