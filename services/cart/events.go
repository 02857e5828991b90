package cart

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

	err = s.subscriber.Subscribe(c, checkoutevents.TopicName, myhttp.GuessHostnameWithScheme()+"/api/cart/event")
	if err != nil {
		return fmt.Errorf("error subscribing to topic %s: %s", checkoutevents.TopicName, err)
	}

	return nil
}

// OnOrderCreated deletes the cart that was converted into the order. Checkout
// already attempted this inline; this path reconciles a crash in between.
func (s *service) OnOrderCreated(c context.Context, topic string, event checkoutevents.OrderCreated) error {
	if event.CartKey == "" {
		return nil
	}

	// must be idempotent
	err := s.cartStore.Delete(c, event.CartKey)
	if err != nil {
		return myerrors.NewUnavailableError(fmt.Errorf("error deleting cart"))
	}

	s.logger.Log(c, event.OrderUID, mylog.SeverityInfo, "Deleted cart %s after order %s", event.CartKey, event.OrderUID)

	return nil
}

func (s *service) OnCheckoutFailed(c context.Context, topic string, event checkoutevents.CheckoutFailed) error {
	return nil
}
