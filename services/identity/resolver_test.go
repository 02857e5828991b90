package identity

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/luminagems/shopbackend/lib/myerrors"
	"github.com/luminagems/shopbackend/lib/mystore"
	"github.com/luminagems/shopbackend/lib/mytime"
)

func TestResolver(t *testing.T) {
	c := context.TODO()

	t.Run("No credential resolves to anonymous", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		sut := NewResolver(NewMockVerifier(ctrl))

		request, _ := http.NewRequest(http.MethodGet, "/cart", nil)

		ident, err := sut.Resolve(c, request)

		assert.NoError(t, err)
		assert.True(t, ident.IsAnonymous())
		assert.Equal(t, "", ident.CartKey())
	})

	t.Run("Guest cookie resolves to guest", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		sut := NewResolver(NewMockVerifier(ctrl))

		request, _ := http.NewRequest(http.MethodGet, "/cart", nil)
		request.AddCookie(&http.Cookie{Name: GuestCookieName, Value: "token-123"})

		ident, err := sut.Resolve(c, request)

		assert.NoError(t, err)
		assert.True(t, ident.IsGuest())
		assert.Equal(t, "guest-token-123", ident.CartKey())
	})

	t.Run("Valid bearer resolves to account", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		verifier := NewMockVerifier(ctrl)
		verifier.EXPECT().Verify(gomock.Any(), "abc").Return(Session{Token: "abc", AccountUID: "shopper-1"}, nil)
		sut := NewResolver(verifier)

		request, _ := http.NewRequest(http.MethodGet, "/cart", nil)
		request.Header.Set("Authorization", "Bearer abc")

		ident, err := sut.Resolve(c, request)

		assert.NoError(t, err)
		assert.True(t, ident.IsAccount())
		assert.Equal(t, "shopper-1", ident.AccountUID())
		assert.Equal(t, "account-shopper-1", ident.CartKey())
	})

	t.Run("Bearer wins over guest cookie", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		verifier := NewMockVerifier(ctrl)
		verifier.EXPECT().Verify(gomock.Any(), "abc").Return(Session{Token: "abc", AccountUID: "shopper-1"}, nil)
		sut := NewResolver(verifier)

		request, _ := http.NewRequest(http.MethodGet, "/cart", nil)
		request.Header.Set("Authorization", "Bearer abc")
		request.AddCookie(&http.Cookie{Name: GuestCookieName, Value: "token-123"})

		ident, err := sut.Resolve(c, request)

		assert.NoError(t, err)
		assert.True(t, ident.IsAccount())
	})

	t.Run("Malformed authorization header is rejected, not degraded to guest", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		sut := NewResolver(NewMockVerifier(ctrl))

		request, _ := http.NewRequest(http.MethodGet, "/cart", nil)
		request.Header.Set("Authorization", "garbage")
		request.AddCookie(&http.Cookie{Name: GuestCookieName, Value: "token-123"})

		_, err := sut.Resolve(c, request)

		assert.Error(t, err)
		assert.Equal(t, myerrors.KindUnauthorized, myerrors.GetKind(err))
	})

	t.Run("Invalid bearer is rejected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		verifier := NewMockVerifier(ctrl)
		verifier.EXPECT().Verify(gomock.Any(), "bad").Return(Session{}, myerrors.NewUnauthorizedError(assert.AnError))
		sut := NewResolver(verifier)

		request, _ := http.NewRequest(http.MethodGet, "/cart", nil)
		request.Header.Set("Authorization", "Bearer bad")

		_, err := sut.Resolve(c, request)

		assert.Error(t, err)
		assert.Equal(t, myerrors.KindUnauthorized, myerrors.GetKind(err))
	})

	t.Run("RequireAccount rejects guest", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		sut := NewResolver(NewMockVerifier(ctrl))

		request, _ := http.NewRequest(http.MethodPost, "/cart/merge", nil)
		request.AddCookie(&http.Cookie{Name: GuestCookieName, Value: "token-123"})

		_, err := sut.RequireAccount(c, request)

		assert.Error(t, err)
		assert.Equal(t, myerrors.KindUnauthorized, myerrors.GetKind(err))
	})

	t.Run("RequireAdmin rejects plain account", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		verifier := NewMockVerifier(ctrl)
		verifier.EXPECT().Verify(gomock.Any(), "abc").Return(Session{Token: "abc", AccountUID: "shopper-1"}, nil)
		sut := NewResolver(verifier)

		request, _ := http.NewRequest(http.MethodPatch, "/payments/1", nil)
		request.Header.Set("Authorization", "Bearer abc")

		_, err := sut.RequireAdmin(c, request)

		assert.Error(t, err)
		assert.Equal(t, myerrors.KindForbidden, myerrors.GetKind(err))
	})
}

func TestStoreVerifier(t *testing.T) {
	c := context.TODO()

	setup := func(t *testing.T, ctrl *gomock.Controller) (mystore.Store[Session], *mytime.MockNower, Verifier) {
		sessionStore, _, _ := mystore.NewInMemoryStore[Session](c)
		nower := mytime.NewMockNower(ctrl)
		return sessionStore, nower, NewVerifier(sessionStore, nower)
	}

	t.Run("Known token verifies", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		sessionStore, nower, sut := setup(t, ctrl)
		sessionStore.Put(c, "abc", Session{Token: "abc", AccountUID: "shopper-1", Admin: true, ExpiresAt: mytime.ExampleTime.Add(time.Hour)})
		nower.EXPECT().Now().Return(mytime.ExampleTime)

		session, err := sut.Verify(c, "abc")

		assert.NoError(t, err)
		assert.Equal(t, "shopper-1", session.AccountUID)
		assert.True(t, session.Admin)
	})

	t.Run("Unknown token is unauthorized", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		_, _, sut := setup(t, ctrl)

		_, err := sut.Verify(c, "nope")

		assert.Error(t, err)
		assert.Equal(t, myerrors.KindUnauthorized, myerrors.GetKind(err))
	})

	t.Run("Expired token is unauthorized", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		sessionStore, nower, sut := setup(t, ctrl)
		sessionStore.Put(c, "abc", Session{Token: "abc", AccountUID: "shopper-1", ExpiresAt: mytime.ExampleTime.Add(-time.Hour)})
		nower.EXPECT().Now().Return(mytime.ExampleTime)

		_, err := sut.Verify(c, "abc")

		assert.Error(t, err)
		assert.Equal(t, myerrors.KindUnauthorized, myerrors.GetKind(err))
	})
}
