package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/luminagems/shopbackend/lib/myerrors"
	"github.com/luminagems/shopbackend/lib/mystore"
	"github.com/luminagems/shopbackend/services/identity"
	"github.com/luminagems/shopbackend/services/order"
)

// Receipt is a pure projection over an order and its settled payment. It is
// never persisted.
type Receipt struct {
	OrderUID        string
	PaymentUID      string
	Lines           []ReceiptLine
	SubtotalInCents int64
	TaxInCents      int64
	ShippingInCents int64
	TotalInCents    int64
	Currency        string
	PaymentMethod   string
	PaidAt          *time.Time
}

type ReceiptLine struct {
	Description      string
	Quantity         int
	UnitPriceInCents int64
	LineTotalInCents int64
}

// receiptForPayment projects a receipt for one settled payment. Until the
// payment is completed or confirmed there is nothing to show.
func (s *service) receiptForPayment(c context.Context, ident identity.Identity, paymentUID string) (Receipt, error) {
	p, err := s.getPayment(c, ident, paymentUID)
	if err != nil {
		return Receipt{}, err
	}
	if !p.IsSettled() {
		return Receipt{}, myerrors.NewNotFoundError(fmt.Errorf("payment %s has not been settled", paymentUID))
	}

	ord, found, err := s.orders.GetOrder(c, p.OrderUID)
	if err != nil {
		return Receipt{}, err
	}
	if !found {
		return Receipt{}, myerrors.NewNotFoundError(fmt.Errorf("order with uid %s not found", p.OrderUID))
	}

	return s.project(ord, p), nil
}

// receiptForOrder finds the settled payment of an order and projects from it.
func (s *service) receiptForOrder(c context.Context, ident identity.Identity, orderUID string) (Receipt, error) {
	ord, found, err := s.orders.GetOrder(c, orderUID)
	if err != nil {
		return Receipt{}, err
	}
	if !found {
		return Receipt{}, myerrors.NewNotFoundError(fmt.Errorf("order with uid %s not found", orderUID))
	}
	if !ident.IsAdmin() && ord.ShopperUID != ident.AccountUID() {
		return Receipt{}, myerrors.NewNotFoundError(fmt.Errorf("order with uid %s not found", orderUID))
	}

	payments, err := s.paymentStore.Query(c, []mystore.Filter{
		{Field: "OrderUID", Compare: "=", Value: orderUID},
	}, "CreatedAt")
	if err != nil {
		return Receipt{}, myerrors.NewUnavailableError(fmt.Errorf("error fetching payments"))
	}

	for _, p := range payments {
		if p.IsSettled() {
			return s.project(ord, p), nil
		}
	}

	return Receipt{}, myerrors.NewNotFoundError(fmt.Errorf("order %s has no settled payment", orderUID))
}

func (s *service) project(ord order.Order, p Payment) Receipt {
	receipt := Receipt{
		OrderUID:      ord.UID,
		PaymentUID:    p.UID,
		Currency:      ord.Currency,
		PaymentMethod: p.MaskedDetail(),
		PaidAt:        p.CompletedAt,
	}

	for _, line := range ord.Lines {
		receipt.Lines = append(receipt.Lines, ReceiptLine{
			Description:      line.Description,
			Quantity:         line.Quantity,
			UnitPriceInCents: line.UnitPriceInCents,
			LineTotalInCents: line.LineTotalInCents,
		})
		receipt.SubtotalInCents += line.LineTotalInCents
	}

	// decimal keeps the tax rounding exact; half-up to whole cents
	subtotal := decimal.NewFromInt(receipt.SubtotalInCents)
	rate := decimal.NewFromFloat(s.taxRatePercent).Div(decimal.NewFromInt(100))
	receipt.TaxInCents = subtotal.Mul(rate).Round(0).IntPart()
	receipt.ShippingInCents = s.shippingFeeCents
	receipt.TotalInCents = receipt.SubtotalInCents + receipt.TaxInCents + receipt.ShippingInCents

	return receipt
}
