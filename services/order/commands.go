package order

import (
	"context"
	"fmt"

	"github.com/luminagems/shopbackend/lib/myerrors"
	"github.com/luminagems/shopbackend/lib/mylog"
	"github.com/luminagems/shopbackend/lib/mystore"
	"github.com/luminagems/shopbackend/services/identity"
)

// listOrders returns the caller's order history, or everything for an admin.
func (s *service) listOrders(c context.Context, ident identity.Identity) ([]Order, error) {
	if ident.IsAdmin() {
		orders, err := s.orderStore.List(c)
		if err != nil {
			return nil, myerrors.NewUnavailableError(fmt.Errorf("error fetching orders"))
		}
		return orders, nil
	}

	orders, err := s.orderStore.Query(c, []mystore.Filter{
		{Field: "ShopperUID", Compare: "=", Value: ident.AccountUID()},
	}, "CreatedAt")
	if err != nil {
		return nil, myerrors.NewUnavailableError(fmt.Errorf("error fetching orders"))
	}

	return orders, nil
}

// getOrder returns the order when the caller owns it or is admin. A foreign
// order reads as not-found rather than forbidden, so uids cannot be probed.
func (s *service) getOrder(c context.Context, ident identity.Identity, uid string) (Order, error) {
	order, found, err := s.orderStore.Get(c, uid)
	if err != nil {
		return Order{}, myerrors.NewUnavailableError(fmt.Errorf("error fetching order"))
	}
	if !found {
		return Order{}, myerrors.NewNotFoundError(fmt.Errorf("order with uid %s not found", uid))
	}
	if !ident.IsAdmin() && order.ShopperUID != ident.AccountUID() {
		return Order{}, myerrors.NewNotFoundError(fmt.Errorf("order with uid %s not found", uid))
	}

	return order, nil
}

// updateStatus moves the order through the workflow machine and appends to
// the status history. Callers must already be admin.
func (s *service) updateStatus(c context.Context, adminUID string, orderUID string, newStatus string, note string) (Order, error) {
	if !IsValidStatus(newStatus) {
		return Order{}, myerrors.NewInvalidInputError(fmt.Errorf("unknown order status %s", newStatus))
	}

	now := s.nower.Now()

	var order Order
	err := s.orderStore.RunInTransaction(c, func(c context.Context) error {
		var found bool
		var err error
		order, found, err = s.orderStore.Get(c, orderUID)
		if err != nil {
			return myerrors.NewUnavailableError(fmt.Errorf("error fetching order"))
		}
		if !found {
			return myerrors.NewNotFoundError(fmt.Errorf("order with uid %s not found", orderUID))
		}

		if !order.CanTransitionTo(newStatus) {
			return myerrors.NewInvalidInputError(fmt.Errorf("order %s cannot move from %s to %s", orderUID, order.Status, newStatus))
		}

		order.Status = newStatus
		order.StatusHistory = append(order.StatusHistory, StatusChange{
			Status: newStatus,
			At:     now,
			By:     adminUID,
			Note:   note,
		})
		order.LastModified = &now

		err = s.orderStore.Put(c, orderUID, order)
		if err != nil {
			return myerrors.NewUnavailableError(fmt.Errorf("error storing order"))
		}

		return nil
	})
	if err != nil {
		return Order{}, err
	}

	s.logger.Log(c, orderUID, mylog.SeverityInfo, "Order %s moved to status %s by %s", orderUID, newStatus, adminUID)

	return order, nil
}

func (s *service) GetOrder(c context.Context, uid string) (Order, bool, error) {
	order, found, err := s.orderStore.Get(c, uid)
	if err != nil {
		return Order{}, false, myerrors.NewUnavailableError(fmt.Errorf("error fetching order"))
	}

	return order, found, nil
}

func (s *service) ApplyPaymentFlag(c context.Context, orderUID string, flag string, summary string) error {
	now := s.nower.Now()

	err := s.orderStore.RunInTransaction(c, func(c context.Context) error {
		order, found, err := s.orderStore.Get(c, orderUID)
		if err != nil {
			return myerrors.NewUnavailableError(fmt.Errorf("error fetching order"))
		}
		if !found {
			return myerrors.NewNotFoundError(fmt.Errorf("order with uid %s not found", orderUID))
		}

		order.PaymentFlag = flag
		if summary != "" {
			order.PaymentSummary = summary
		}

		// a successful payment starts fulfilment; the other outcomes leave
		// the workflow status alone
		if (flag == PaymentFlagPaid || flag == PaymentFlagConfirmed) && order.CanTransitionTo(OrderStatusProcessing) {
			order.Status = OrderStatusProcessing
			order.StatusHistory = append(order.StatusHistory, StatusChange{
				Status: OrderStatusProcessing,
				At:     now,
				By:     "payment",
				Note:   fmt.Sprintf("payment %s", flag),
			})
		}
		order.LastModified = &now

		err = s.orderStore.Put(c, orderUID, order)
		if err != nil {
			return myerrors.NewUnavailableError(fmt.Errorf("error storing order"))
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Log(c, orderUID, mylog.SeverityInfo, "Order %s payment flag set to %s", orderUID, flag)

	return nil
}
