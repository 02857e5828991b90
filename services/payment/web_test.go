package payment

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/luminagems/shopbackend/lib/mypublisher"
	"github.com/luminagems/shopbackend/lib/mypubsub"
	"github.com/luminagems/shopbackend/lib/mystore"
	"github.com/luminagems/shopbackend/lib/mytime"
	"github.com/luminagems/shopbackend/lib/myuuid"
	"github.com/luminagems/shopbackend/services/identity"
	"github.com/luminagems/shopbackend/services/order"
	"github.com/luminagems/shopbackend/services/payment/paymentevents"
)

var (
	order1 = order.Order{
		UID:        "order-1",
		ShopperUID: "acc-1",
		Lines: []order.OrderLine{
			{ItemUID: "dia-1", Description: "Round brilliant 1.02ct", Quantity: 1, UnitPriceInCents: 1250000, LineTotalInCents: 1250000, Currency: "USD"},
		},
		TotalInCents:    1250000,
		Currency:        "USD",
		ShippingAddress: "1 Main Street, Springfield",
		PaymentMethod:   "card",
		Status:          order.OrderStatusPending,
		PaymentFlag:     order.PaymentFlagUnpaid,
	}

	// a guest checkout leaves no shopper uid, only the originating cart key
	guestOrder = order.Order{
		UID:     "order-guest",
		CartKey: identity.GuestCartKey("guest-g1"),
		Lines: []order.OrderLine{
			{ItemUID: "dia-2", Description: "Princess cut 0.71ct", Quantity: 1, UnitPriceInCents: 480000, LineTotalInCents: 480000, Currency: "USD"},
		},
		TotalInCents:    480000,
		Currency:        "USD",
		ShippingAddress: "2 Side Street, Springfield",
		PaymentMethod:   "cash",
		Status:          order.OrderStatusPending,
		PaymentFlag:     order.PaymentFlagUnpaid,
	}

	userSession  = identity.Session{Token: "user-token", AccountUID: "acc-1"}
	otherSession = identity.Session{Token: "other-token", AccountUID: "acc-2"}
	adminSession = identity.Session{Token: "admin-token", AccountUID: "admin-1", Admin: true}
)

type fixture struct {
	ctx          context.Context
	router       *mux.Router
	paymentStore mystore.Store[Payment]
	orderStore   mystore.Store[order.Order]
	published    *[]paymentevents.PaymentStatusChanged
}

func TestPaymentService(t *testing.T) {
	t.Run("Creating a payment requires authentication", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		f := setup(t, ctrl)

		// when
		request, _ := http.NewRequest(http.MethodPost, "/payments", strings.NewReader(`{"OrderUID":"order-1","Method":"card"}`))
		response := httptest.NewRecorder()
		f.router.ServeHTTP(response, request)

		// then
		assert.Equal(t, 401, response.Code)
	})

	t.Run("Owner creates a pending payment with order defaults", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		f := setup(t, ctrl)

		// when
		response := doRequest(f.router, http.MethodPost, "/payments", `{"OrderUID":"order-1","Method":"card","Detail":"4111111111111234"}`, "user-token")

		// then
		assert.Equal(t, 200, response.Code)
		stored, exists, _ := f.paymentStore.Get(f.ctx, "pay-1")
		assert.True(t, exists)
		assert.Equal(t, PaymentStatusPending, stored.Status)
		assert.Equal(t, int64(1250000), stored.AmountInCents)
		assert.Equal(t, "USD", stored.Currency)
		assert.Equal(t, "acc-1", stored.OwnerUID)
	})

	t.Run("Foreign order is forbidden", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		f := setup(t, ctrl)

		// when
		response := doRequest(f.router, http.MethodPost, "/payments", `{"OrderUID":"order-1","Method":"card"}`, "other-token")

		// then
		assert.Equal(t, 403, response.Code)
	})

	t.Run("Unknown order is not-found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		f := setup(t, ctrl)

		// when
		response := doRequest(f.router, http.MethodPost, "/payments", `{"OrderUID":"order-99","Method":"card"}`, "user-token")

		// then
		assert.Equal(t, 404, response.Code)
	})

	t.Run("Payment listing is scoped to the owner", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		f := setup(t, ctrl)

		// given
		f.paymentStore.Put(f.ctx, "pay-a", Payment{UID: "pay-a", OrderUID: "order-1", OwnerUID: "acc-1", Status: PaymentStatusPending})
		f.paymentStore.Put(f.ctx, "pay-b", Payment{UID: "pay-b", OrderUID: "order-2", OwnerUID: "acc-2", Status: PaymentStatusPending})

		// when
		response := doRequest(f.router, http.MethodGet, "/payments", "", "user-token")

		// then
		assert.Equal(t, 200, response.Code)
		assert.Contains(t, response.Body.String(), "pay-a")
		assert.NotContains(t, response.Body.String(), "pay-b")

		// admin sees everything
		response = doRequest(f.router, http.MethodGet, "/payments", "", "admin-token")
		assert.Equal(t, 200, response.Code)
		assert.Contains(t, response.Body.String(), "pay-a")
		assert.Contains(t, response.Body.String(), "pay-b")
	})

	t.Run("Status update requires admin", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		f := setup(t, ctrl)

		// given
		f.paymentStore.Put(f.ctx, "pay-a", Payment{UID: "pay-a", OrderUID: "order-1", OwnerUID: "acc-1", Status: PaymentStatusPending})

		// when
		response := doRequest(f.router, http.MethodPatch, "/payments/pay-a", `{"Status":"completed"}`, "user-token")

		// then
		assert.Equal(t, 403, response.Code)
	})

	t.Run("Completed payment cascades onto the order", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		f := setup(t, ctrl)

		// given
		response := doRequest(f.router, http.MethodPost, "/payments", `{"OrderUID":"order-1","Method":"card","Detail":"4111111111111234"}`, "user-token")
		assert.Equal(t, 200, response.Code)

		// when
		response = doRequest(f.router, http.MethodPatch, "/payments/pay-1", `{"Status":"completed"}`, "admin-token")

		// then
		assert.Equal(t, 200, response.Code)
		storedOrder, _, _ := f.orderStore.Get(f.ctx, "order-1")
		assert.Equal(t, order.OrderStatusProcessing, storedOrder.Status)
		assert.Equal(t, order.PaymentFlagPaid, storedOrder.PaymentFlag)
		assert.Equal(t, "card ****1234", storedOrder.PaymentSummary)

		// a later refund of a second payment flips the flag only
		response = doRequest(f.router, http.MethodPost, "/payments", `{"OrderUID":"order-1","Method":"card"}`, "user-token")
		assert.Equal(t, 200, response.Code)
		response = doRequest(f.router, http.MethodPatch, "/payments/pay-2", `{"Status":"refunded"}`, "admin-token")
		assert.Equal(t, 200, response.Code)

		storedOrder, _, _ = f.orderStore.Get(f.ctx, "order-1")
		assert.Equal(t, order.PaymentFlagRefunded, storedOrder.PaymentFlag)
		assert.Equal(t, order.OrderStatusProcessing, storedOrder.Status)
	})

	t.Run("Failed payment leaves order workflow untouched", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		f := setup(t, ctrl)

		// given
		f.paymentStore.Put(f.ctx, "pay-a", Payment{UID: "pay-a", OrderUID: "order-1", OwnerUID: "acc-1", Status: PaymentStatusPending})

		// when
		response := doRequest(f.router, http.MethodPatch, "/payments/pay-a", `{"Status":"failed"}`, "admin-token")

		// then
		assert.Equal(t, 200, response.Code)
		storedOrder, _, _ := f.orderStore.Get(f.ctx, "order-1")
		assert.Equal(t, order.OrderStatusPending, storedOrder.Status)
		assert.Equal(t, order.PaymentFlagFailed, storedOrder.PaymentFlag)
	})

	t.Run("Illegal payment transition is rejected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		f := setup(t, ctrl)

		// given
		f.paymentStore.Put(f.ctx, "pay-a", Payment{UID: "pay-a", OrderUID: "order-1", OwnerUID: "acc-1", Status: PaymentStatusFailed})

		// when
		response := doRequest(f.router, http.MethodPatch, "/payments/pay-a", `{"Status":"completed"}`, "admin-token")

		// then
		assert.Equal(t, 400, response.Code)
	})

	t.Run("Deleting the last payment reverts the order to unpaid", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		f := setup(t, ctrl)

		// given
		f.paymentStore.Put(f.ctx, "pay-a", Payment{UID: "pay-a", OrderUID: "order-1", OwnerUID: "acc-1", Status: PaymentStatusFailed})
		paid := order1
		paid.PaymentFlag = order.PaymentFlagFailed
		f.orderStore.Put(f.ctx, paid.UID, paid)

		// when
		response := doRequest(f.router, http.MethodDelete, "/payments/pay-a", "", "admin-token")

		// then
		assert.Equal(t, 200, response.Code)
		_, exists, _ := f.paymentStore.Get(f.ctx, "pay-a")
		assert.False(t, exists)
		storedOrder, _, _ := f.orderStore.Get(f.ctx, "order-1")
		assert.Equal(t, order.PaymentFlagUnpaid, storedOrder.PaymentFlag)
	})

	t.Run("Guest settles the order their cart produced", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		f := setup(t, ctrl)

		// when: only the guest cookie identifies the caller
		response := doGuestRequest(f.router, http.MethodPost, "/payments", `{"OrderUID":"order-guest","Method":"card","Detail":"4111111111111234"}`, "guest-g1")

		// then
		assert.Equal(t, 200, response.Code)
		stored, exists, _ := f.paymentStore.Get(f.ctx, "pay-1")
		assert.True(t, exists)
		assert.Equal(t, PaymentStatusPending, stored.Status)
		assert.Equal(t, int64(480000), stored.AmountInCents)
		assert.Empty(t, stored.OwnerUID)
	})

	t.Run("Guest cash confirmation settles the guest order", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		f := setup(t, ctrl)

		// when
		response := doGuestRequest(f.router, http.MethodPost, "/payments/cash", `{"OrderUID":"order-guest","Reference":"till-7"}`, "guest-g1")

		// then
		assert.Equal(t, 200, response.Code)
		storedOrder, _, _ := f.orderStore.Get(f.ctx, "order-guest")
		assert.Equal(t, order.OrderStatusProcessing, storedOrder.Status)
		assert.Equal(t, order.PaymentFlagConfirmed, storedOrder.PaymentFlag)
	})

	t.Run("Another guest cannot pay a foreign guest order", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		f := setup(t, ctrl)

		// when
		response := doGuestRequest(f.router, http.MethodPost, "/payments", `{"OrderUID":"order-guest","Method":"card"}`, "guest-zz")

		// then
		assert.Equal(t, 403, response.Code)
	})

	t.Run("Settlement stores the order outcome with the payment", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		f := setup(t, ctrl)

		// given
		f.paymentStore.Put(f.ctx, "pay-a", Payment{UID: "pay-a", OrderUID: "order-1", OwnerUID: "acc-1", Status: PaymentStatusPending, Method: "card", Detail: "4111111111111234"})

		// when
		response := doRequest(f.router, http.MethodPatch, "/payments/pay-a", `{"Status":"completed"}`, "admin-token")

		// then: the outcome rides along in the payment transaction
		assert.Equal(t, 200, response.Code)
		assert.Len(t, *f.published, 1)
		event := (*f.published)[0]
		assert.Equal(t, "pay-a", event.PaymentUID)
		assert.Equal(t, "order-1", event.OrderUID)
		assert.Equal(t, order.PaymentFlagPaid, event.PaymentFlag)
		assert.Equal(t, "card ****1234", event.Summary)
	})

	t.Run("Deleting one of two payments keeps the order flag", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		f := setup(t, ctrl)

		// given
		f.paymentStore.Put(f.ctx, "pay-a", Payment{UID: "pay-a", OrderUID: "order-1", OwnerUID: "acc-1", Status: PaymentStatusFailed})
		f.paymentStore.Put(f.ctx, "pay-b", Payment{UID: "pay-b", OrderUID: "order-1", OwnerUID: "acc-1", Status: PaymentStatusFailed})
		flagged := order1
		flagged.PaymentFlag = order.PaymentFlagFailed
		f.orderStore.Put(f.ctx, flagged.UID, flagged)

		// when
		response := doRequest(f.router, http.MethodDelete, "/payments/pay-a", "", "admin-token")

		// then: a row remains, the flag stays
		assert.Equal(t, 200, response.Code)
		storedOrder, _, _ := f.orderStore.Get(f.ctx, "order-1")
		assert.Equal(t, order.PaymentFlagFailed, storedOrder.PaymentFlag)

		// deleting the last row reverts it
		response = doRequest(f.router, http.MethodDelete, "/payments/pay-b", "", "admin-token")
		assert.Equal(t, 200, response.Code)
		storedOrder, _, _ = f.orderStore.Get(f.ctx, "order-1")
		assert.Equal(t, order.PaymentFlagUnpaid, storedOrder.PaymentFlag)
	})

	t.Run("Cash confirmation settles in one step", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		f := setup(t, ctrl)

		// when
		response := doRequest(f.router, http.MethodPost, "/payments/cash", `{"OrderUID":"order-1","Reference":"till-42"}`, "user-token")

		// then
		assert.Equal(t, 200, response.Code)
		stored, exists, _ := f.paymentStore.Get(f.ctx, "pay-1")
		assert.True(t, exists)
		assert.Equal(t, PaymentStatusConfirmed, stored.Status)
		assert.Equal(t, "till-42", stored.ExternalRef)
		assert.NotNil(t, stored.CompletedAt)

		storedOrder, _, _ := f.orderStore.Get(f.ctx, "order-1")
		assert.Equal(t, order.OrderStatusProcessing, storedOrder.Status)
		assert.Equal(t, order.PaymentFlagConfirmed, storedOrder.PaymentFlag)
	})

	t.Run("Receipt is not-found until the payment settles", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		f := setup(t, ctrl)

		// given
		f.paymentStore.Put(f.ctx, "pay-a", Payment{UID: "pay-a", OrderUID: "order-1", OwnerUID: "acc-1", Status: PaymentStatusPending})

		// when
		response := doRequest(f.router, http.MethodGet, "/payments/receipt?paymentId=pay-a", "", "user-token")

		// then
		assert.Equal(t, 404, response.Code)
	})

	t.Run("Receipt projects totals with tax and shipping", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		f := setup(t, ctrl)

		// given
		now := mytime.ExampleTime
		f.paymentStore.Put(f.ctx, "pay-a", Payment{
			UID: "pay-a", OrderUID: "order-1", OwnerUID: "acc-1",
			Status: PaymentStatusCompleted, Method: "card", Detail: "4111111111111234",
			AmountInCents: 1250000, Currency: "USD", CompletedAt: &now,
		})

		// when
		response := doRequest(f.router, http.MethodGet, "/payments/receipt?paymentId=pay-a", "", "user-token")

		// then: 8.25% of 1250000 is 103125, plus 2500 shipping
		assert.Equal(t, 200, response.Code)
		got := response.Body.String()
		assert.Contains(t, got, `"SubtotalInCents":1250000`)
		assert.Contains(t, got, `"TaxInCents":103125`)
		assert.Contains(t, got, `"ShippingInCents":2500`)
		assert.Contains(t, got, `"TotalInCents":1355625`)
		assert.Contains(t, got, "card ****1234")
		assert.NotContains(t, got, "4111111111111234")
	})

	t.Run("Order receipt finds the settled payment", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// setup
		f := setup(t, ctrl)

		// given: a failed attempt and a settled retry
		f.paymentStore.Put(f.ctx, "pay-a", Payment{UID: "pay-a", OrderUID: "order-1", OwnerUID: "acc-1", Status: PaymentStatusFailed})
		f.paymentStore.Put(f.ctx, "pay-b", Payment{UID: "pay-b", OrderUID: "order-1", OwnerUID: "acc-1", Status: PaymentStatusCompleted, Method: "card"})

		// when
		response := doRequest(f.router, http.MethodGet, "/orders/order-1/receipt", "", "user-token")

		// then
		assert.Equal(t, 200, response.Code)
		assert.Contains(t, response.Body.String(), `"PaymentUID":"pay-b"`)
	})
}

func doRequest(router *mux.Router, method string, path string, body string, token string) *httptest.ResponseRecorder {
	var request *http.Request
	if body != "" {
		request, _ = http.NewRequest(method, path, strings.NewReader(body))
	} else {
		request, _ = http.NewRequest(method, path, nil)
	}
	request.Header.Set("Authorization", "Bearer "+token)
	response := httptest.NewRecorder()
	router.ServeHTTP(response, request)
	return response
}

func doGuestRequest(router *mux.Router, method string, path string, body string, guestToken string) *httptest.ResponseRecorder {
	request, _ := http.NewRequest(method, path, strings.NewReader(body))
	request.AddCookie(&http.Cookie{Name: identity.GuestCookieName, Value: guestToken})
	response := httptest.NewRecorder()
	router.ServeHTTP(response, request)
	return response
}

func setup(t *testing.T, ctrl *gomock.Controller) fixture {
	c := context.TODO()
	paymentStore, _, _ := mystore.NewInMemoryStore[Payment](c)
	orderStore, _, _ := mystore.NewInMemoryStore[order.Order](c)
	orderStore.Put(c, order1.UID, order1)
	orderStore.Put(c, guestOrder.UID, guestOrder)

	nower := mytime.NewMockNower(ctrl)
	nower.EXPECT().Now().Return(mytime.ExampleTime).AnyTimes()

	var seq int
	uuider := myuuid.NewMockUUIDer(ctrl)
	uuider.EXPECT().Create().DoAndReturn(func() string {
		seq++
		return fmt.Sprintf("pay-%d", seq)
	}).AnyTimes()

	sessionStore, _, _ := mystore.NewInMemoryStore[identity.Session](c)
	sessionStore.Put(c, userSession.Token, userSession)
	sessionStore.Put(c, otherSession.Token, otherSession)
	sessionStore.Put(c, adminSession.Token, adminSession)
	sessionNower := mytime.NewMockNower(ctrl)
	sessionNower.EXPECT().Now().Return(mytime.ExampleTime).AnyTimes()
	resolver := identity.NewResolver(identity.NewVerifier(sessionStore, sessionNower))

	orders := order.NewWebService(orderStore, nower, mypubsub.NewMockPubSub(ctrl), resolver).Orders()

	published := &[]paymentevents.PaymentStatusChanged{}
	publisher := mypublisher.NewMockPublisher(ctrl)
	publisher.EXPECT().Publish(gomock.Any(), paymentevents.TopicName, gomock.Any()).DoAndReturn(
		func(c context.Context, topic string, event paymentevents.PaymentStatusChanged) error {
			*published = append(*published, event)
			return nil
		}).AnyTimes()

	sut := NewWebService(paymentStore, orders, publisher, nower, uuider, resolver, 8.25, 2500)
	router := mux.NewRouter()

	// This is called by the following call to RegisterEndpoints()
	publisher.EXPECT().CreateTopic(c, paymentevents.TopicName).Return(nil)

	err := sut.RegisterEndpoints(c, router)
	assert.NoError(t, err)

	return fixture{
		ctx:          c,
		router:       router,
		paymentStore: paymentStore,
		orderStore:   orderStore,
		published:    published,
	}
}
