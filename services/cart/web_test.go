package cart

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/luminagems/shopbackend/lib/mypubsub"
	"github.com/luminagems/shopbackend/lib/mystore"
	"github.com/luminagems/shopbackend/lib/mytime"
	"github.com/luminagems/shopbackend/lib/myuuid"
	"github.com/luminagems/shopbackend/services/catalog"
	"github.com/luminagems/shopbackend/services/checkout/checkoutevents"
	"github.com/luminagems/shopbackend/services/identity"
)

var (
	diamond1 = catalog.Diamond{UID: "dia-1", Description: "Round brilliant 1.02ct", PriceInCents: 1250000, Currency: "USD", Available: true}
	diamond2 = catalog.Diamond{UID: "dia-2", Description: "Princess cut 0.71ct", PriceInCents: 480000, Currency: "USD", Available: true}

	userSession = identity.Session{Token: "user-token", AccountUID: "acc-1"}
)

func TestCartService(t *testing.T) {
	t.Run("Get cart for anonymous visitor is empty", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, _, _, _ := setup(t, ctrl)

		// when
		request, _ := http.NewRequest(http.MethodGet, "/cart", nil)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, 200, response.Code)
		assert.Contains(t, response.Body.String(), `"TotalInCents":0`)
	})

	t.Run("First anonymous write issues a guest cookie", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ctx, router, storer, uuider, _ := setup(t, ctrl)

		// given
		uuider.EXPECT().Create().Return("guest-123")

		// when
		request, _ := http.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"ItemUID":"dia-1","Quantity":1}`))
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, 200, response.Code)
		assert.Contains(t, response.Header().Get("Set-Cookie"), "shop_guest=guest-123")
		stored, exists, _ := storer.Get(ctx, identity.GuestCartKey("guest-123"))
		assert.True(t, exists)
		assert.Equal(t, 1, stored.Lines[0].Quantity)
	})

	t.Run("Adding the same stone twice sums quantities", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ctx, router, storer, _, _ := setup(t, ctrl)

		// when
		for i := 0; i < 2; i++ {
			request, _ := http.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"ItemUID":"dia-1","Quantity":1}`))
			request.AddCookie(&http.Cookie{Name: identity.GuestCookieName, Value: "guest-abc"})
			response := httptest.NewRecorder()
			router.ServeHTTP(response, request)
			assert.Equal(t, 200, response.Code)
		}

		// then
		stored, _, _ := storer.Get(ctx, identity.GuestCartKey("guest-abc"))
		assert.Len(t, stored.Lines, 1)
		assert.Equal(t, 2, stored.Lines[0].Quantity)
	})

	t.Run("Quantity below one is rejected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, _, _, _ := setup(t, ctrl)

		// when
		request, _ := http.NewRequest(http.MethodPut, "/cart/items/dia-1", strings.NewReader(`{"Quantity":0}`))
		request.AddCookie(&http.Cookie{Name: identity.GuestCookieName, Value: "guest-abc"})
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, 400, response.Code)
	})

	t.Run("Unknown catalog item is rejected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		_, router, _, _, _ := setup(t, ctrl)

		// when
		request, _ := http.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"ItemUID":"dia-99","Quantity":1}`))
		request.AddCookie(&http.Cookie{Name: identity.GuestCookieName, Value: "guest-abc"})
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, 404, response.Code)
	})

	t.Run("Merge sums guest lines into account cart", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ctx, router, storer, _, _ := setup(t, ctrl)

		// given
		guestKey := identity.GuestCartKey("guest-abc")
		accountKey := identity.AccountCartKey("acc-1")
		storer.Put(ctx, guestKey, Cart{Key: guestKey, GuestToken: "guest-abc",
			Lines: []CartLine{{ItemUID: "dia-1", Quantity: 2}}})
		storer.Put(ctx, accountKey, Cart{Key: accountKey, AccountUID: "acc-1",
			Lines: []CartLine{{ItemUID: "dia-1", Quantity: 3}, {ItemUID: "dia-2", Quantity: 1}}})

		// when
		request, _ := http.NewRequest(http.MethodPost, "/cart/merge", nil)
		request.Header.Set("Authorization", "Bearer user-token")
		request.AddCookie(&http.Cookie{Name: identity.GuestCookieName, Value: "guest-abc"})
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, 200, response.Code)
		assert.Contains(t, response.Header().Get("Set-Cookie"), "shop_guest=;")

		merged, _, _ := storer.Get(ctx, accountKey)
		assert.Len(t, merged.Lines, 2)
		assert.Equal(t, 5, merged.Lines[0].Quantity)
		assert.Equal(t, 1, merged.Lines[1].Quantity)

		_, guestExists, _ := storer.Get(ctx, guestKey)
		assert.False(t, guestExists)

		// a client still holding the old guest token reads an empty cart
		request, _ = http.NewRequest(http.MethodGet, "/cart", nil)
		request.AddCookie(&http.Cookie{Name: identity.GuestCookieName, Value: "guest-abc"})
		response = httptest.NewRecorder()
		router.ServeHTTP(response, request)
		assert.Equal(t, 200, response.Code)
		assert.Contains(t, response.Body.String(), `"TotalInCents":0`)
		assert.NotContains(t, response.Body.String(), "dia-1")
	})

	t.Run("Merge retargets ownership when account has no cart", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ctx, router, storer, _, _ := setup(t, ctrl)

		// given
		guestKey := identity.GuestCartKey("guest-abc")
		accountKey := identity.AccountCartKey("acc-1")
		storer.Put(ctx, guestKey, Cart{Key: guestKey, GuestToken: "guest-abc",
			Lines: []CartLine{{ItemUID: "dia-2", Quantity: 1}}})

		// when
		request, _ := http.NewRequest(http.MethodPost, "/cart/merge", nil)
		request.Header.Set("Authorization", "Bearer user-token")
		request.AddCookie(&http.Cookie{Name: identity.GuestCookieName, Value: "guest-abc"})
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, 200, response.Code)

		retargeted, exists, _ := storer.Get(ctx, accountKey)
		assert.True(t, exists)
		assert.Equal(t, "acc-1", retargeted.AccountUID)
		assert.Empty(t, retargeted.GuestToken)
		assert.Equal(t, []CartLine{{ItemUID: "dia-2", Quantity: 1}}, retargeted.Lines)

		_, guestExists, _ := storer.Get(ctx, guestKey)
		assert.False(t, guestExists)
	})

	t.Run("Merge replay is a no-op", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ctx, router, storer, _, _ := setup(t, ctrl)

		// given
		guestKey := identity.GuestCartKey("guest-abc")
		accountKey := identity.AccountCartKey("acc-1")
		storer.Put(ctx, guestKey, Cart{Key: guestKey, GuestToken: "guest-abc",
			Lines: []CartLine{{ItemUID: "dia-1", Quantity: 2}}})

		// when: the client retries the same merge
		for i := 0; i < 2; i++ {
			request, _ := http.NewRequest(http.MethodPost, "/cart/merge", nil)
			request.Header.Set("Authorization", "Bearer user-token")
			request.AddCookie(&http.Cookie{Name: identity.GuestCookieName, Value: "guest-abc"})
			response := httptest.NewRecorder()
			router.ServeHTTP(response, request)
			assert.Equal(t, 200, response.Code)
		}

		// then: quantities did not double
		merged, _, _ := storer.Get(ctx, accountKey)
		assert.Equal(t, 2, merged.Lines[0].Quantity)
	})

	t.Run("Replace cart swaps the full line list", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ctx, router, storer, _, _ := setup(t, ctrl)

		// given
		accountKey := identity.AccountCartKey("acc-1")
		storer.Put(ctx, accountKey, Cart{Key: accountKey, AccountUID: "acc-1",
			Lines: []CartLine{{ItemUID: "dia-1", Quantity: 5}}})

		// when
		request, _ := http.NewRequest(http.MethodPost, "/cart",
			strings.NewReader(`{"Lines":[{"ItemUID":"dia-2","Quantity":1},{"ItemUID":"dia-2","Quantity":2}]}`))
		request.Header.Set("Authorization", "Bearer user-token")
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then: duplicates collapse into one summed line
		assert.Equal(t, 200, response.Code)
		stored, _, _ := storer.Get(ctx, accountKey)
		assert.Equal(t, []CartLine{{ItemUID: "dia-2", Quantity: 3}}, stored.Lines)
	})

	t.Run("Order-created event deletes the converted cart", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		ctx, _, storer, _, svc := setup(t, ctrl)

		// given
		accountKey := identity.AccountCartKey("acc-1")
		storer.Put(ctx, accountKey, Cart{Key: accountKey, AccountUID: "acc-1",
			Lines: []CartLine{{ItemUID: "dia-1", Quantity: 1}}})

		event := checkoutevents.OrderCreated{OrderUID: "order-1", CartKey: accountKey}

		// when
		err := svc.OnOrderCreated(ctx, checkoutevents.TopicName, event)
		assert.NoError(t, err)

		// then
		_, exists, _ := storer.Get(ctx, accountKey)
		assert.False(t, exists)

		// replay is a no-op
		err = svc.OnOrderCreated(ctx, checkoutevents.TopicName, event)
		assert.NoError(t, err)
	})
}

func setup(t *testing.T, ctrl *gomock.Controller) (context.Context, *mux.Router, mystore.Store[Cart], *myuuid.MockUUIDer, *service) {
	c := context.TODO()
	storer, _, _ := mystore.NewInMemoryStore[Cart](c)
	uuider := myuuid.NewMockUUIDer(ctrl)
	subscriber := mypubsub.NewMockPubSub(ctrl)

	nower := mytime.NewMockNower(ctrl)
	nower.EXPECT().Now().Return(mytime.ExampleTime).AnyTimes()

	cat := catalog.NewMockCatalog(ctrl)
	cat.EXPECT().GetItem(gomock.Any(), gomock.Any()).DoAndReturn(
		func(c context.Context, uid string) (catalog.Diamond, bool, error) {
			switch uid {
			case diamond1.UID:
				return diamond1, true, nil
			case diamond2.UID:
				return diamond2, true, nil
			}
			return catalog.Diamond{}, false, nil
		}).AnyTimes()

	sessionStore, _, _ := mystore.NewInMemoryStore[identity.Session](c)
	sessionStore.Put(c, userSession.Token, userSession)
	sessionNower := mytime.NewMockNower(ctrl)
	sessionNower.EXPECT().Now().Return(mytime.ExampleTime).AnyTimes()
	resolver := identity.NewResolver(identity.NewVerifier(sessionStore, sessionNower))

	sut := NewWebService(storer, cat, nower, uuider, subscriber, resolver, identity.DefaultGuestCookieTTL)
	router := mux.NewRouter()

	// These are called by the following call to RegisterEndpoints()
	subscriber.EXPECT().CreateTopic(c, checkoutevents.TopicName).Return(nil)
	subscriber.EXPECT().Subscribe(c, checkoutevents.TopicName, "http://localhost:8080/api/cart/event").Return(nil)

	err := sut.RegisterEndpoints(c, router)
	assert.NoError(t, err)

	return c, router, storer, uuider, sut.service
}
