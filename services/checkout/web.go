package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/form/v4"
	"github.com/gorilla/mux"

	"github.com/luminagems/shopbackend/lib/mycontext"
	"github.com/luminagems/shopbackend/lib/myerrors"
	"github.com/luminagems/shopbackend/lib/myhttp"
	"github.com/luminagems/shopbackend/lib/mylog"
	"github.com/luminagems/shopbackend/lib/mypublisher"
	"github.com/luminagems/shopbackend/lib/mystore"
	"github.com/luminagems/shopbackend/lib/mytime"
	"github.com/luminagems/shopbackend/lib/myuuid"
	"github.com/luminagems/shopbackend/services/cart"
	"github.com/luminagems/shopbackend/services/catalog"
	"github.com/luminagems/shopbackend/services/checkout/checkoutevents"
	"github.com/luminagems/shopbackend/services/identity"
	"github.com/luminagems/shopbackend/services/order"
)

type webService struct {
	service     *service
	resolver    *identity.Resolver
	formDecoder *form.Decoder
	logger      mylog.Logger
}

// Use dependency injection to isolate the infrastructure and easy testing
func NewWebService(cartStore mystore.Store[cart.Cart], orderStore mystore.Store[order.Order], cat catalog.Catalog, publisher mypublisher.Publisher, nower mytime.Nower, uuider myuuid.UUIDer, resolver *identity.Resolver) *webService {
	logger := mylog.New("checkout")
	return &webService{
		service:     newService(cartStore, orderStore, cat, publisher, nower, uuider, logger),
		resolver:    resolver,
		formDecoder: form.NewDecoder(),
		logger:      logger,
	}
}

func (s *webService) RegisterEndpoints(c context.Context, router *mux.Router) error {
	router.HandleFunc("/cart/checkout", s.checkoutPage()).Methods("POST")

	err := s.service.publisher.CreateTopic(c, checkoutevents.TopicName)
	if err != nil {
		return fmt.Errorf("error creating topic %s: %s", checkoutevents.TopicName, err)
	}

	return nil
}

func (s *webService) checkoutPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(s.logger)

		ident, err := s.resolver.Resolve(c, r)
		if err != nil {
			errorWriter.WriteError(c, w, 1, err)
			return
		}

		req, err := s.parseRequest(r)
		if err != nil {
			errorWriter.WriteError(c, w, 2, err)
			return
		}

		createdOrder, err := s.service.checkout(c, ident, req)
		if err != nil {
			errorWriter.WriteError(c, w, 3, err)
			return
		}

		errorWriter.Write(c, w, http.StatusOK, createdOrder)
	}
}

// parseRequest accepts both a JSON body and a classic form post, so the
// storefront can submit its checkout form directly.
func (s *webService) parseRequest(r *http.Request) (checkoutRequest, error) {
	req := checkoutRequest{}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			return checkoutRequest{}, myerrors.NewInvalidInputError(fmt.Errorf("error parsing request body: %s", err))
		}
		return req, nil
	}

	err := r.ParseForm()
	if err != nil {
		return checkoutRequest{}, myerrors.NewInvalidInputError(fmt.Errorf("error parsing form: %s", err))
	}
	err = s.formDecoder.Decode(&req, r.Form)
	if err != nil {
		return checkoutRequest{}, myerrors.NewInvalidInputError(fmt.Errorf("error parsing form: %s", err))
	}

	return req, nil
}
