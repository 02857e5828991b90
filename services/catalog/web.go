package catalog

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
	"github.com/luminagems/shopbackend/services/checkout/checkoutevents"
	"github.com/luminagems/shopbackend/services/identity"
)

type webService struct {
	service  *service
	resolver *identity.Resolver
	logger   mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(store mystore.Store[Diamond], nower mytime.Nower, subscriber mypubsub.PubSub, resolver *identity.Resolver, defaultCurrency string) *webService {
	logger := mylog.New("catalog")
	return &webService{
		service:  newService(store, nower, subscriber, logger, defaultCurrency),
		resolver: resolver,
		logger:   logger,
	}
}

// Catalog exposes the collaborator interface consumed by cart and checkout.
func (s *webService) Catalog() Catalog {
	return s.service
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/catalog", s.listItemsPage()).Methods("GET")
	router.HandleFunc("/catalog/{uid}", s.getItemPage()).Methods("GET")
	router.HandleFunc("/catalog/{uid}", s.upsertItemPage()).Methods("PUT")

	// Checkout announces created orders here so sold stones get retired
	router.HandleFunc("/api/catalog/event", s.handleEventEnvelope()).Methods("POST")

	err := s.service.Subscribe(c)
	if err != nil {
		return fmt.Errorf("error subscribing to checkout events: %s", err)
	}

	return nil
}

func (s *webService) listItemsPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		diamonds, err := s.service.listItems(c)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, diamonds)
	}
}

func (s *webService) getItemPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		uid := mux.Vars(r)["uid"]

		diamond, err := s.service.getItem(c, uid)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, diamond)
	}
}

func (s *webService) upsertItemPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		_, err := s.resolver.RequireAdmin(c, r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		diamond := Diamond{}
		err = json.NewDecoder(r.Body).Decode(&diamond)
		if err != nil {
			errorWriter.WriteError(c, w, 2, myerrors.NewInvalidInputError(fmt.Errorf("error parsing request body: %s", err)))
			return
		}
		diamond.UID = mux.Vars(r)["uid"]

		stored, err := s.service.upsertItem(c, diamond)
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, stored)
	}
}

func (s *webService) handleEventEnvelope() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		err := checkoutevents.DispatchEvent(c, r.Body, s.service)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.EmptyResponse{})
	}
}
