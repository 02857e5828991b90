package catalog

import (
	"context"
	"fmt"

	"github.com/luminagems/shopbackend/lib/myerrors"
	"github.com/luminagems/shopbackend/lib/myhttp"
	"github.com/luminagems/shopbackend/lib/mylog"
	"github.com/luminagems/shopbackend/services/checkout/checkoutevents"
)

func (s *service) Subscribe(c context.Context) error {
	err := s.subscriber.CreateTopic(c, checkoutevents.TopicName)
	if err != nil {
		return fmt.Errorf("error creating topic %s: %s", checkoutevents.TopicName, err)
	}

	err = s.subscriber.Subscribe(c, checkoutevents.TopicName, myhttp.GuessHostnameWithScheme()+"/api/catalog/event")
	if err != nil {
		return fmt.Errorf("error subscribing to topic %s: %s", checkoutevents.TopicName, err)
	}

	return nil
}

// OnOrderCreated retires every stone named in the order. Checkout already
// attempted the flip inline; this path exists to reconcile a crash between
// order-creation and the flip, so an already-retired stone is a no-op here.
func (s *service) OnOrderCreated(c context.Context, topic string, event checkoutevents.OrderCreated) error {
	for _, uid := range event.ItemUIDs {
		err := s.MarkUnavailable(c, uid)
		if err != nil {
			if myerrors.IsKind(err, myerrors.KindConflict) {
				continue
			}
			return err
		}
		s.logger.Log(c, event.OrderUID, mylog.SeverityInfo, "Retired catalog item %s for order %s", uid, event.OrderUID)
	}

	return nil
}

func (s *service) OnCheckoutFailed(c context.Context, topic string, event checkoutevents.CheckoutFailed) error {
	return nil
}
