package order

import (
	"context"
	"fmt"

	"github.com/luminagems/shopbackend/lib/myhttp"
	"github.com/luminagems/shopbackend/services/payment/paymentevents"
)

func (s *service) Subscribe(c context.Context) error {
	err := s.subscriber.CreateTopic(c, paymentevents.TopicName)
	if err != nil {
		return fmt.Errorf("error creating topic %s: %s", paymentevents.TopicName, err)
	}

	err = s.subscriber.Subscribe(c, paymentevents.TopicName, myhttp.GuessHostnameWithScheme()+"/api/order/event")
	if err != nil {
		return fmt.Errorf("error subscribing to topic %s: %s", paymentevents.TopicName, err)
	}

	return nil
}

// OnPaymentStatusChanged applies a payment outcome onto the order. The
// payment service already attempted this inline; this path reconciles a
// crash in between.
func (s *service) OnPaymentStatusChanged(c context.Context, topic string, event paymentevents.PaymentStatusChanged) error {
	if event.OrderUID == "" || event.PaymentFlag == "" {
		return nil
	}

	// must be idempotent
	return s.ApplyPaymentFlag(c, event.OrderUID, event.PaymentFlag, event.Summary)
}
