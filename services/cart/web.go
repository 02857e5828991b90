package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/luminagems/shopbackend/lib/mycontext"
	"github.com/luminagems/shopbackend/lib/myerrors"
	"github.com/luminagems/shopbackend/lib/myhttp"
	"github.com/luminagems/shopbackend/lib/mylog"
	"github.com/luminagems/shopbackend/lib/mypubsub"
	"github.com/luminagems/shopbackend/lib/mystore"
	"github.com/luminagems/shopbackend/lib/mytime"
	"github.com/luminagems/shopbackend/lib/myuuid"
	"github.com/luminagems/shopbackend/services/catalog"
	"github.com/luminagems/shopbackend/services/checkout/checkoutevents"
	"github.com/luminagems/shopbackend/services/identity"
)

type webService struct {
	service        *service
	resolver       *identity.Resolver
	guestCookieTTL time.Duration
	logger         mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(store mystore.Store[Cart], cat catalog.Catalog, nower mytime.Nower, uuider myuuid.UUIDer, subscriber mypubsub.PubSub, resolver *identity.Resolver, guestCookieTTL time.Duration) *webService {
	logger := mylog.New("cart")
	return &webService{
		service:        newService(store, cat, nower, uuider, subscriber, logger),
		resolver:       resolver,
		guestCookieTTL: guestCookieTTL,
		logger:         logger,
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/cart", s.getCartPage()).Methods("GET")
	router.HandleFunc("/cart", s.replaceCartPage()).Methods("POST")
	router.HandleFunc("/cart", s.clearCartPage()).Methods("DELETE")
	router.HandleFunc("/cart/items", s.addItemPage()).Methods("POST")
	router.HandleFunc("/cart/items/{uid}", s.updateItemPage()).Methods("PUT")
	router.HandleFunc("/cart/items/{uid}", s.removeItemPage()).Methods("DELETE")
	router.HandleFunc("/cart/merge", s.mergeCartPage()).Methods("POST")

	// Checkout announces created orders here so converted carts get cleaned up
	router.HandleFunc("/api/cart/event", s.handleEventEnvelope()).Methods("POST")

	err := s.service.Subscribe(c)
	if err != nil {
		return fmt.Errorf("error subscribing to checkout events: %s", err)
	}

	return nil
}

type addItemRequest struct {
	ItemUID  string
	Quantity int
}

type replaceCartRequest struct {
	Lines []CartLine
}

func (s *webService) getCartPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		ident, err := s.resolver.Resolve(c, r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		view, err := s.service.getCart(c, ident)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, view)
	}
}

func (s *webService) addItemPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		ident, err := s.resolver.Resolve(c, r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		req := addItemRequest{}
		err = json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			errorWriter.WriteError(c, w, 2, myerrors.NewInvalidInputError(fmt.Errorf("error parsing request body: %s", err)))
			return
		}

		view, newGuestToken, err := s.service.addItem(c, ident, req.ItemUID, req.Quantity)
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		if newGuestToken != "" {
			identity.SetGuestCookie(w, newGuestToken, s.guestCookieTTL)
		}

		errorWriter.Write(c, w, http.StatusOK, view)
	}
}

func (s *webService) updateItemPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		ident, err := s.resolver.Resolve(c, r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		req := addItemRequest{}
		err = json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			errorWriter.WriteError(c, w, 2, myerrors.NewInvalidInputError(fmt.Errorf("error parsing request body: %s", err)))
			return
		}

		view, err := s.service.updateItemQuantity(c, ident, mux.Vars(r)["uid"], req.Quantity)
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, view)
	}
}

func (s *webService) removeItemPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		ident, err := s.resolver.Resolve(c, r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		view, err := s.service.removeItem(c, ident, mux.Vars(r)["uid"])
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, view)
	}
}

func (s *webService) replaceCartPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		ident, err := s.resolver.Resolve(c, r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		req := replaceCartRequest{}
		err = json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			errorWriter.WriteError(c, w, 2, myerrors.NewInvalidInputError(fmt.Errorf("error parsing request body: %s", err)))
			return
		}

		view, newGuestToken, err := s.service.replaceItems(c, ident, req.Lines)
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		if newGuestToken != "" {
			identity.SetGuestCookie(w, newGuestToken, s.guestCookieTTL)
		}

		errorWriter.Write(c, w, http.StatusOK, view)
	}
}

func (s *webService) clearCartPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		ident, err := s.resolver.Resolve(c, r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		err = s.service.clear(c, ident)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.EmptyResponse{})
	}
}

func (s *webService) mergeCartPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		ident, err := s.resolver.RequireAccount(c, r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		guestToken := ""
		cookie, cookieErr := r.Cookie(identity.GuestCookieName)
		if cookieErr == nil {
			guestToken = cookie.Value
		}

		view, _, err := s.service.merge(c, ident, guestToken)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		// the token no longer resolves to cart contents, drop it client-side
		if guestToken != "" {
			identity.ClearGuestCookie(w)
		}

		errorWriter.Write(c, w, http.StatusOK, view)
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
