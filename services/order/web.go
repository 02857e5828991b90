package order

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
	"github.com/luminagems/shopbackend/lib/mypubsub"
	"github.com/luminagems/shopbackend/lib/mystore"
	"github.com/luminagems/shopbackend/lib/mytime"
	"github.com/luminagems/shopbackend/services/identity"
	"github.com/luminagems/shopbackend/services/payment/paymentevents"
)

type webService struct {
	service  *service
	resolver *identity.Resolver
	logger   mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(store mystore.Store[Order], nower mytime.Nower, subscriber mypubsub.PubSub, resolver *identity.Resolver) *webService {
	logger := mylog.New("order")
	return &webService{
		service:  newService(store, nower, subscriber, logger),
		resolver: resolver,
		logger:   logger,
	}
}

// Orders exposes the collaborator interface consumed by the payment ledger.
func (s *webService) Orders() Orders {
	return s.service
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/orders", s.listOrdersPage()).Methods("GET")
	router.HandleFunc("/orders/{uid}", s.getOrderPage()).Methods("GET")
	router.HandleFunc("/orders/{uid}/status", s.updateStatusPage()).Methods("PUT")

	// Payment announces settlement outcomes here so order flags catch up
	router.HandleFunc("/api/order/event", s.handleEventEnvelope()).Methods("POST")

	err := s.service.Subscribe(c)
	if err != nil {
		return fmt.Errorf("error subscribing to payment events: %s", err)
	}

	return nil
}

type updateStatusRequest struct {
	Status string
	Note   string
}

func (s *webService) listOrdersPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		ident, err := s.resolver.RequireAccount(c, r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		orders, err := s.service.listOrders(c, ident)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, orders)
	}
}

func (s *webService) getOrderPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		ident, err := s.resolver.RequireAccount(c, r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		order, err := s.service.getOrder(c, ident, mux.Vars(r)["uid"])
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, order)
	}
}

func (s *webService) handleEventEnvelope() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		err := paymentevents.DispatchEvent(c, r.Body, s.service)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.EmptyResponse{})
	}
}

func (s *webService) updateStatusPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		ident, err := s.resolver.RequireAdmin(c, r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		req := updateStatusRequest{}
		err = json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			errorWriter.WriteError(c, w, 2, myerrors.NewInvalidInputError(fmt.Errorf("error parsing request body: %s", err)))
			return
		}

		order, err := s.service.updateStatus(c, ident.AccountUID(), mux.Vars(r)["uid"], req.Status, req.Note)
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, order)
	}
}
