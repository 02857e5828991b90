package paymentevents

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/luminagems/shopbackend/lib/myerrors"
	"github.com/luminagems/shopbackend/lib/myevents"
)

const (
	TopicName         = "payment"
	statusChangedName = TopicName + ".statusChanged"
)

type PaymentEventService interface {
	Subscribe(c context.Context) error
	OnPaymentStatusChanged(c context.Context, topic string, event PaymentStatusChanged) error
}

func DispatchEvent(c context.Context, reader io.Reader, service PaymentEventService) error {
	envelope, err := myevents.ParseEventEnvelope(reader)
	if err != nil {
		return myerrors.NewInvalidInputError(err)
	}

	switch envelope.EventTypeName {
	case statusChangedName:
		{
			event := PaymentStatusChanged{}
			err := json.Unmarshal([]byte(envelope.EventPayload), &event)
			if err != nil {
				return myerrors.NewInvalidInputError(err)
			}
			return service.OnPaymentStatusChanged(c, envelope.Topic, event)
		}
	default:
		return myerrors.NewNotImplementedError(fmt.Errorf("unknown event type %s", envelope.EventTypeName))
	}
}

// PaymentStatusChanged carries the order-level consequence of a payment
// outcome. The ledger row is already durable when this event is published;
// the order subscriber replays the flag application idempotently.
type PaymentStatusChanged struct {
	PaymentUID  string
	OrderUID    string
	PaymentFlag string
	Summary     string
}

func (e PaymentStatusChanged) GetEventTypeName() string {
	return statusChangedName
}

func (e PaymentStatusChanged) GetAggregateName() string {
	return e.OrderUID
}
