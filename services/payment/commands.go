package payment

import (
	"context"
	"fmt"

	"github.com/luminagems/shopbackend/lib/myerrors"
	"github.com/luminagems/shopbackend/lib/mylog"
	"github.com/luminagems/shopbackend/lib/mystore"
	"github.com/luminagems/shopbackend/services/identity"
	"github.com/luminagems/shopbackend/services/order"
	"github.com/luminagems/shopbackend/services/payment/paymentevents"
)

// mayPayOrder decides whether the caller can settle this order. Accounts own
// the orders carrying their uid; a guest owns the orders their cart produced,
// matched by cart key.
func mayPayOrder(ident identity.Identity, ord order.Order) bool {
	if ident.IsAdmin() {
		return true
	}
	if ident.IsAccount() {
		return ord.ShopperUID == ident.AccountUID()
	}
	if ident.IsGuest() {
		return ord.ShopperUID == "" && ord.CartKey == ident.CartKey()
	}
	return false
}

type createPaymentRequest struct {
	OrderUID      string
	AmountInCents int64
	Currency      string
	Method        string
	Status        string
	Detail        string
	ExternalRef   string
}

// createPayment opens a ledger row for an order. Owners may create payments
// for their own orders, guests included, admins for any.
func (s *service) createPayment(c context.Context, ident identity.Identity, req createPaymentRequest) (Payment, error) {
	if ident.IsAnonymous() {
		return Payment{}, myerrors.NewUnauthorizedError(fmt.Errorf("account or guest session required"))
	}
	if req.OrderUID == "" {
		return Payment{}, myerrors.NewInvalidInputError(fmt.Errorf("missing order uid"))
	}
	if req.Method == "" {
		return Payment{}, myerrors.NewInvalidInputError(fmt.Errorf("missing payment method"))
	}
	if req.Status == "" {
		req.Status = PaymentStatusPending
	}
	if !IsValidPaymentStatus(req.Status) {
		return Payment{}, myerrors.NewInvalidInputError(fmt.Errorf("unknown payment status %s", req.Status))
	}

	ord, found, err := s.orders.GetOrder(c, req.OrderUID)
	if err != nil {
		return Payment{}, err
	}
	if !found {
		return Payment{}, myerrors.NewNotFoundError(fmt.Errorf("order with uid %s not found", req.OrderUID))
	}
	if !mayPayOrder(ident, ord) {
		return Payment{}, myerrors.NewForbiddenError(fmt.Errorf("order %s belongs to another shopper", req.OrderUID))
	}

	if req.AmountInCents == 0 {
		req.AmountInCents = ord.TotalInCents
	}
	if req.Currency == "" {
		req.Currency = ord.Currency
	}

	now := s.nower.Now()
	p := Payment{
		UID:           s.uuider.Create(),
		OrderUID:      req.OrderUID,
		OwnerUID:      ord.ShopperUID,
		AmountInCents: req.AmountInCents,
		Currency:      req.Currency,
		Method:        req.Method,
		Status:        req.Status,
		Detail:        req.Detail,
		ExternalRef:   req.ExternalRef,
		CreatedAt:     now,
	}

	err = s.paymentStore.Put(c, p.UID, p)
	if err != nil {
		return Payment{}, myerrors.NewUnavailableError(fmt.Errorf("error storing payment"))
	}

	s.logger.Log(c, p.UID, mylog.SeverityInfo, "Created payment %s (%d cents) for order %s", p.UID, p.AmountInCents, p.OrderUID)

	return p, nil
}

func (s *service) listPayments(c context.Context, ident identity.Identity) ([]Payment, error) {
	if ident.IsAdmin() {
		payments, err := s.paymentStore.List(c)
		if err != nil {
			return nil, myerrors.NewUnavailableError(fmt.Errorf("error fetching payments"))
		}
		return payments, nil
	}

	payments, err := s.paymentStore.Query(c, []mystore.Filter{
		{Field: "OwnerUID", Compare: "=", Value: ident.AccountUID()},
	}, "CreatedAt")
	if err != nil {
		return nil, myerrors.NewUnavailableError(fmt.Errorf("error fetching payments"))
	}

	return payments, nil
}

func (s *service) getPayment(c context.Context, ident identity.Identity, uid string) (Payment, error) {
	p, found, err := s.paymentStore.Get(c, uid)
	if err != nil {
		return Payment{}, myerrors.NewUnavailableError(fmt.Errorf("error fetching payment"))
	}
	if !found {
		return Payment{}, myerrors.NewNotFoundError(fmt.Errorf("payment with uid %s not found", uid))
	}
	if !ident.IsAdmin() && p.OwnerUID != ident.AccountUID() {
		return Payment{}, myerrors.NewNotFoundError(fmt.Errorf("payment with uid %s not found", uid))
	}

	return p, nil
}

// updatePaymentStatus moves a payment through its state machine and cascades
// the outcome onto the order. Callers must already be admin.
func (s *service) updatePaymentStatus(c context.Context, uid string, newStatus string) (Payment, error) {
	if !IsValidPaymentStatus(newStatus) {
		return Payment{}, myerrors.NewInvalidInputError(fmt.Errorf("unknown payment status %s", newStatus))
	}

	now := s.nower.Now()

	var p Payment
	err := s.paymentStore.RunInTransaction(c, func(c context.Context) error {
		var found bool
		var err error
		p, found, err = s.paymentStore.Get(c, uid)
		if err != nil {
			return myerrors.NewUnavailableError(fmt.Errorf("error fetching payment"))
		}
		if !found {
			return myerrors.NewNotFoundError(fmt.Errorf("payment with uid %s not found", uid))
		}

		if !p.CanTransitionTo(newStatus) {
			return myerrors.NewInvalidInputError(fmt.Errorf("payment %s cannot move from %s to %s", uid, p.Status, newStatus))
		}

		p.Status = newStatus
		p.LastModified = &now
		if newStatus == PaymentStatusCompleted {
			p.CompletedAt = &now
		}

		err = s.paymentStore.Put(c, uid, p)
		if err != nil {
			return myerrors.NewUnavailableError(fmt.Errorf("error storing payment"))
		}

		return s.publishOutcome(c, p)
	})
	if err != nil {
		return Payment{}, err
	}

	s.cascade(c, p)

	s.logger.Log(c, uid, mylog.SeverityInfo, "Payment %s moved to status %s", uid, newStatus)

	return p, nil
}

// orderFlagFor maps a payment status onto the order's payment flag. An empty
// flag means the status has no order-level consequence.
func orderFlagFor(p Payment) (string, string) {
	switch p.Status {
	case PaymentStatusCompleted:
		return order.PaymentFlagPaid, p.MaskedDetail()
	case PaymentStatusConfirmed:
		return order.PaymentFlagConfirmed, p.MaskedDetail()
	case PaymentStatusFailed:
		return order.PaymentFlagFailed, ""
	case PaymentStatusRefunded:
		return order.PaymentFlagRefunded, ""
	}
	return "", ""
}

// publishOutcome stores the order-level consequence in the caller's
// transaction, so it survives a crash before the inline cascade ran.
func (s *service) publishOutcome(c context.Context, p Payment) error {
	flag, summary := orderFlagFor(p)
	if flag == "" {
		return nil
	}

	err := s.publisher.Publish(c, paymentevents.TopicName, paymentevents.PaymentStatusChanged{
		PaymentUID:  p.UID,
		OrderUID:    p.OrderUID,
		PaymentFlag: flag,
		Summary:     summary,
	})
	if err != nil {
		return myerrors.NewInternalError(fmt.Errorf("error publishing payment-status event: %s", err))
	}

	return nil
}

// cascade applies the payment outcome onto the order inline. This is the
// fast path; a failure here is recovered when the published event reaches
// the order subscriber.
func (s *service) cascade(c context.Context, p Payment) {
	flag, summary := orderFlagFor(p)
	if flag == "" {
		return
	}

	err := s.orders.ApplyPaymentFlag(c, p.OrderUID, flag, summary)
	if err != nil {
		s.logger.Log(c, p.UID, mylog.SeverityWarn, "Could not apply payment %s onto order %s: %s", p.UID, p.OrderUID, err)
	}
}

// deletePayment removes a ledger row. When it was the last row for its
// order, the order's payment flag reverts to unpaid. The delete and the
// last-row check share one transaction so concurrent deletes cannot both
// observe a non-empty remainder.
func (s *service) deletePayment(c context.Context, uid string) error {
	var orderUID string
	revert := false
	err := s.paymentStore.RunInTransaction(c, func(c context.Context) error {
		p, found, err := s.paymentStore.Get(c, uid)
		if err != nil {
			return myerrors.NewUnavailableError(fmt.Errorf("error fetching payment"))
		}
		if !found {
			return myerrors.NewNotFoundError(fmt.Errorf("payment with uid %s not found", uid))
		}
		orderUID = p.OrderUID

		err = s.paymentStore.Delete(c, uid)
		if err != nil {
			return myerrors.NewUnavailableError(fmt.Errorf("error deleting payment"))
		}

		remaining, err := s.paymentStore.Query(c, []mystore.Filter{
			{Field: "OrderUID", Compare: "=", Value: p.OrderUID},
		}, "CreatedAt")
		if err != nil {
			return myerrors.NewUnavailableError(fmt.Errorf("error fetching payments"))
		}
		revert = len(remaining) == 0

		if revert {
			err = s.publisher.Publish(c, paymentevents.TopicName, paymentevents.PaymentStatusChanged{
				PaymentUID:  uid,
				OrderUID:    p.OrderUID,
				PaymentFlag: order.PaymentFlagUnpaid,
			})
			if err != nil {
				return myerrors.NewInternalError(fmt.Errorf("error publishing payment-status event: %s", err))
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	if revert {
		err = s.orders.ApplyPaymentFlag(c, orderUID, order.PaymentFlagUnpaid, "")
		if err != nil {
			s.logger.Log(c, uid, mylog.SeverityWarn, "Could not revert payment flag of order %s: %s", orderUID, err)
		}
	}

	s.logger.Log(c, uid, mylog.SeverityInfo, "Deleted payment %s of order %s", uid, orderUID)

	return nil
}

// confirmCashPayment is the manual settlement path: one call creates the
// ledger row already confirmed and marks the order accordingly.
func (s *service) confirmCashPayment(c context.Context, ident identity.Identity, orderUID string, reference string) (Payment, error) {
	if ident.IsAnonymous() {
		return Payment{}, myerrors.NewUnauthorizedError(fmt.Errorf("account or guest session required"))
	}
	if orderUID == "" {
		return Payment{}, myerrors.NewInvalidInputError(fmt.Errorf("missing order uid"))
	}

	ord, found, err := s.orders.GetOrder(c, orderUID)
	if err != nil {
		return Payment{}, err
	}
	if !found {
		return Payment{}, myerrors.NewNotFoundError(fmt.Errorf("order with uid %s not found", orderUID))
	}
	if !mayPayOrder(ident, ord) {
		return Payment{}, myerrors.NewForbiddenError(fmt.Errorf("order %s belongs to another shopper", orderUID))
	}

	now := s.nower.Now()
	p := Payment{
		UID:           s.uuider.Create(),
		OrderUID:      orderUID,
		OwnerUID:      ord.ShopperUID,
		AmountInCents: ord.TotalInCents,
		Currency:      ord.Currency,
		Method:        "cash",
		Status:        PaymentStatusConfirmed,
		ExternalRef:   reference,
		CreatedAt:     now,
		CompletedAt:   &now,
	}

	err = s.paymentStore.RunInTransaction(c, func(c context.Context) error {
		err := s.paymentStore.Put(c, p.UID, p)
		if err != nil {
			return myerrors.NewUnavailableError(fmt.Errorf("error storing payment"))
		}

		return s.publishOutcome(c, p)
	})
	if err != nil {
		return Payment{}, err
	}

	s.cascade(c, p)

	s.logger.Log(c, p.UID, mylog.SeverityInfo, "Confirmed cash payment %s for order %s", p.UID, orderUID)

	return p, nil
}
