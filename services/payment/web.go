package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/luminagems/shopbackend/lib/mycontext"
	"github.com/luminagems/shopbackend/lib/myerrors"
	"github.com/luminagems/shopbackend/lib/myhttp"
	"github.com/luminagems/shopbackend/lib/mylog"
	"github.com/luminagems/shopbackend/lib/mypublisher"
	"github.com/luminagems/shopbackend/lib/mystore"
	"github.com/luminagems/shopbackend/lib/mytime"
	"github.com/luminagems/shopbackend/lib/myuuid"
	"github.com/luminagems/shopbackend/services/identity"
	"github.com/luminagems/shopbackend/services/order"
	"github.com/luminagems/shopbackend/services/payment/paymentevents"
)

type webService struct {
	service  *service
	resolver *identity.Resolver
	logger   mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(store mystore.Store[Payment], orders order.Orders, publisher mypublisher.Publisher, nower mytime.Nower, uuider myuuid.UUIDer, resolver *identity.Resolver, taxRatePercent float64, shippingFeeCents int64) *webService {
	logger := mylog.New("payment")
	return &webService{
		service:  newService(store, orders, publisher, nower, uuider, logger, taxRatePercent, shippingFeeCents),
		resolver: resolver,
		logger:   logger,
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/payments", s.createPaymentPage()).Methods("POST")
	router.HandleFunc("/payments", s.listPaymentsPage()).Methods("GET")
	router.HandleFunc("/payments/cash", s.confirmCashPage()).Methods("POST")
	router.HandleFunc("/payments/receipt", s.paymentReceiptPage()).Methods("GET")
	router.HandleFunc("/payments/{uid}", s.getPaymentPage()).Methods("GET")
	router.HandleFunc("/payments/{uid}", s.updatePaymentStatusPage()).Methods("PATCH")
	router.HandleFunc("/payments/{uid}", s.deletePaymentPage()).Methods("DELETE")

	// the order-scoped receipt lives here because the projection needs the
	// payment ledger
	router.HandleFunc("/orders/{uid}/receipt", s.orderReceiptPage()).Methods("GET")

	err := s.service.publisher.CreateTopic(c, paymentevents.TopicName)
	if err != nil {
		return fmt.Errorf("error creating topic %s: %s", paymentevents.TopicName, err)
	}

	return nil
}

type updatePaymentStatusRequest struct {
	Status string
}

type confirmCashRequest struct {
	OrderUID  string
	Reference string
}

func (s *webService) createPaymentPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		// guests settle their own orders too, so no account requirement here
		ident, err := s.resolver.Resolve(c, r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		req := createPaymentRequest{}
		err = json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			errorWriter.WriteError(c, w, 2, myerrors.NewInvalidInputError(fmt.Errorf("error parsing request body: %s", err)))
			return
		}

		p, err := s.service.createPayment(c, ident, req)
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, p)
	}
}

func (s *webService) listPaymentsPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		ident, err := s.resolver.RequireAccount(c, r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		payments, err := s.service.listPayments(c, ident)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, payments)
	}
}

func (s *webService) getPaymentPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		ident, err := s.resolver.RequireAccount(c, r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		p, err := s.service.getPayment(c, ident, mux.Vars(r)["uid"])
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, p)
	}
}

func (s *webService) updatePaymentStatusPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		_, err := s.resolver.RequireAdmin(c, r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		req := updatePaymentStatusRequest{}
		err = json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			errorWriter.WriteError(c, w, 2, myerrors.NewInvalidInputError(fmt.Errorf("error parsing request body: %s", err)))
			return
		}

		p, err := s.service.updatePaymentStatus(c, mux.Vars(r)["uid"], req.Status)
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, p)
	}
}

func (s *webService) deletePaymentPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		_, err := s.resolver.RequireAdmin(c, r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		err = s.service.deletePayment(c, mux.Vars(r)["uid"])
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.EmptyResponse{})
	}
}

func (s *webService) confirmCashPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		// guests settle their own orders too, so no account requirement here
		ident, err := s.resolver.Resolve(c, r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		req := confirmCashRequest{}
		err = json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			errorWriter.WriteError(c, w, 2, myerrors.NewInvalidInputError(fmt.Errorf("error parsing request body: %s", err)))
			return
		}

		p, err := s.service.confirmCashPayment(c, ident, req.OrderUID, req.Reference)
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, p)
	}
}

func (s *webService) paymentReceiptPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		ident, err := s.resolver.RequireAccount(c, r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		paymentUID := r.URL.Query().Get("paymentId")
		if paymentUID == "" {
			errorWriter.WriteError(c, w, 2, myerrors.NewInvalidInputError(fmt.Errorf("missing paymentId query parameter")))
			return
		}

		receipt, err := s.service.receiptForPayment(c, ident, paymentUID)
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, receipt)
	}
}

func (s *webService) orderReceiptPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		ident, err := s.resolver.RequireAccount(c, r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		receipt, err := s.service.receiptForOrder(c, ident, mux.Vars(r)["uid"])
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, receipt)
	}
}
