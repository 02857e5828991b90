package checkout

import (
	"context"
	"fmt"

	"github.com/luminagems/shopbackend/lib/myerrors"
	"github.com/luminagems/shopbackend/lib/mylog"
	"github.com/luminagems/shopbackend/services/checkout/checkoutevents"
	"github.com/luminagems/shopbackend/services/identity"
	"github.com/luminagems/shopbackend/services/order"
)

type checkoutRequest struct {
	ShippingAddress string `form:"shippingAddress"`
	BillingAddress  string `form:"billingAddress"`
	PaymentMethod   string `form:"paymentMethod"`
}

// checkout converts the caller's cart into a pending order. The order write
// is the single durability boundary: everything before it validates without
// side effects, everything after it is best-effort and reconciled through the
// published event.
func (s *service) checkout(c context.Context, ident identity.Identity, req checkoutRequest) (order.Order, error) {
	if req.ShippingAddress == "" {
		return order.Order{}, myerrors.NewInvalidInputError(fmt.Errorf("missing shipping address"))
	}
	if req.PaymentMethod == "" {
		return order.Order{}, myerrors.NewInvalidInputError(fmt.Errorf("missing payment method"))
	}
	if req.BillingAddress == "" {
		req.BillingAddress = req.ShippingAddress
	}

	if ident.IsAnonymous() {
		return order.Order{}, myerrors.NewEmptyCartError(fmt.Errorf("no cart for this session"))
	}

	// snapshot read; concurrent cart mutations after this point do not affect
	// the order being built
	currentCart, found, err := s.cartStore.Get(c, ident.CartKey())
	if err != nil {
		return order.Order{}, myerrors.NewUnavailableError(fmt.Errorf("error fetching cart"))
	}
	if !found || currentCart.IsEmpty() {
		return order.Order{}, myerrors.NewEmptyCartError(fmt.Errorf("cart is empty"))
	}

	now := s.nower.Now()

	// prices come from the catalog as it is now, never from the cart display
	lines := make([]order.OrderLine, 0, len(currentCart.Lines))
	itemUIDs := make([]string, 0, len(currentCart.Lines))
	var totalInCents int64
	currency := ""
	for _, cartLine := range currentCart.Lines {
		diamond, found, err := s.catalog.GetItem(c, cartLine.ItemUID)
		if err != nil {
			return order.Order{}, err
		}
		if !found || !diamond.Available {
			s.announceFailure(c, currentCart.Key, fmt.Sprintf("item %s unavailable", cartLine.ItemUID))
			return order.Order{}, myerrors.NewItemUnavailableError(fmt.Errorf("item %s is no longer available", cartLine.ItemUID))
		}

		lineTotal := diamond.PriceInCents * int64(cartLine.Quantity)
		lines = append(lines, order.OrderLine{
			ItemUID:          cartLine.ItemUID,
			Description:      diamond.Description,
			Quantity:         cartLine.Quantity,
			UnitPriceInCents: diamond.PriceInCents,
			LineTotalInCents: lineTotal,
			Currency:         diamond.Currency,
		})
		itemUIDs = append(itemUIDs, cartLine.ItemUID)
		totalInCents += lineTotal
		if currency == "" {
			currency = diamond.Currency
		}
	}

	newOrder := order.Order{
		UID:             s.uuider.Create(),
		ShopperUID:      ident.AccountUID(),
		CartKey:         currentCart.Key,
		Lines:           lines,
		TotalInCents:    totalInCents,
		Currency:        currency,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
		PaymentMethod:   req.PaymentMethod,
		Status:          order.OrderStatusPending,
		PaymentFlag:     order.PaymentFlagUnpaid,
		CreatedAt:       now,
	}

	err = s.orderStore.RunInTransaction(c, func(c context.Context) error {
		err := s.orderStore.Put(c, newOrder.UID, newOrder)
		if err != nil {
			return myerrors.NewUnavailableError(fmt.Errorf("error storing order"))
		}

		err = s.publisher.Publish(c, checkoutevents.TopicName, checkoutevents.OrderCreated{
			OrderUID:      newOrder.UID,
			CartKey:       currentCart.Key,
			ShopperUID:    newOrder.ShopperUID,
			ItemUIDs:      itemUIDs,
			AmountInCents: totalInCents,
			Currency:      currency,
		})
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error publishing order-created event: %s", err))
		}

		return nil
	})
	if err != nil {
		return order.Order{}, err
	}

	s.logger.Log(c, newOrder.UID, mylog.SeverityInfo, "Created order %s (%d cents) from cart %s", newOrder.UID, totalInCents, currentCart.Key)

	// Best-effort follow-ups. A failure here never rolls back the order; the
	// published event lets subscribers catch up.
	err = s.cartStore.Delete(c, currentCart.Key)
	if err != nil {
		s.logger.Log(c, newOrder.UID, mylog.SeverityWarn, "Could not delete cart %s after checkout: %s", currentCart.Key, err)
	}
	for _, itemUID := range itemUIDs {
		err = s.catalog.MarkUnavailable(c, itemUID)
		if err != nil {
			s.logger.Log(c, newOrder.UID, mylog.SeverityWarn, "Could not mark item %s unavailable after checkout: %s", itemUID, err)
		}
	}

	return newOrder, nil
}

func (s *service) announceFailure(c context.Context, cartKey string, reason string) {
	err := s.publisher.Publish(c, checkoutevents.TopicName, checkoutevents.CheckoutFailed{
		CartKey: cartKey,
		Reason:  reason,
	})
	if err != nil {
		s.logger.Log(c, cartKey, mylog.SeverityWarn, "Could not publish checkout-failed event: %s", err)
	}
}
