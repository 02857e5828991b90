package checkoutevents

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/luminagems/shopbackend/lib/myerrors"
	"github.com/luminagems/shopbackend/lib/myevents"
)

const (
	TopicName          = "checkout"
	orderCreatedName   = TopicName + ".orderCreated"
	checkoutFailedName = TopicName + ".failed"
)

type CheckoutEventService interface {
	Subscribe(c context.Context) error
	OnOrderCreated(c context.Context, topic string, event OrderCreated) error
	OnCheckoutFailed(c context.Context, topic string, event CheckoutFailed) error
}

func DispatchEvent(c context.Context, reader io.Reader, service CheckoutEventService) error {
	envelope, err := myevents.ParseEventEnvelope(reader)
	if err != nil {
		return myerrors.NewInvalidInputError(err)
	}

	switch envelope.EventTypeName {
	case orderCreatedName:
		{
			event := OrderCreated{}
			err := json.Unmarshal([]byte(envelope.EventPayload), &event)
			if err != nil {
				return myerrors.NewInvalidInputError(err)
			}
			return service.OnOrderCreated(c, envelope.Topic, event)
		}
	case checkoutFailedName:
		{
			event := CheckoutFailed{}
			err := json.Unmarshal([]byte(envelope.EventPayload), &event)
			if err != nil {
				return myerrors.NewInvalidInputError(err)
			}
			return service.OnCheckoutFailed(c, envelope.Topic, event)
		}
	default:
		return myerrors.NewNotImplementedError(fmt.Errorf("unknown event type %s", envelope.EventTypeName))
	}
}

// OrderCreated marks the commit point of a checkout. The cart deletion and
// the availability flips it announces are reconciled by subscribers; the
// order itself is already durable when this event is published.
type OrderCreated struct {
	OrderUID      string
	CartKey       string
	ShopperUID    string
	ItemUIDs      []string
	AmountInCents int64
	Currency      string
}

func (e OrderCreated) GetEventTypeName() string {
	return orderCreatedName
}

func (e OrderCreated) GetAggregateName() string {
	return e.OrderUID
}

type CheckoutFailed struct {
	CartKey string
	Reason  string
}

func (e CheckoutFailed) GetEventTypeName() string {
	return checkoutFailedName
}

func (e CheckoutFailed) GetAggregateName() string {
	return e.CartKey
}
