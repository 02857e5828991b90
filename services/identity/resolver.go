package identity

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/luminagems/shopbackend/lib/myerrors"
)

const (
	// GuestCookieName holds the anonymous-session token on the client.
	GuestCookieName = "shop_guest"

	DefaultGuestCookieTTL = 30 * 24 * time.Hour
)

// Resolver turns an inbound request into exactly one Identity. A supplied
// bearer credential always wins over a guest cookie; a malformed or invalid
// credential is rejected, never silently degraded to guest.
type Resolver struct {
	verifier Verifier
}

func NewResolver(verifier Verifier) *Resolver {
	return &Resolver{
		verifier: verifier,
	}
}

func (res *Resolver) Resolve(c context.Context, r *http.Request) (Identity, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			return Anonymous, myerrors.NewUnauthorizedError(fmt.Errorf("malformed authorization header"))
		}

		session, err := res.verifier.Verify(c, token)
		if err != nil {
			return Anonymous, err
		}

		return Account(session.AccountUID, session.Admin), nil
	}

	cookie, err := r.Cookie(GuestCookieName)
	if err == nil && cookie.Value != "" {
		return Guest(cookie.Value), nil
	}

	return Anonymous, nil
}

func (res *Resolver) RequireAccount(c context.Context, r *http.Request) (Identity, error) {
	ident, err := res.Resolve(c, r)
	if err != nil {
		return Anonymous, err
	}
	if !ident.IsAccount() {
		return Anonymous, myerrors.NewUnauthorizedError(fmt.Errorf("authentication required"))
	}

	return ident, nil
}

func (res *Resolver) RequireAdmin(c context.Context, r *http.Request) (Identity, error) {
	ident, err := res.RequireAccount(c, r)
	if err != nil {
		return Anonymous, err
	}
	if !ident.IsAdmin() {
		return Anonymous, myerrors.NewForbiddenError(fmt.Errorf("administrator role required"))
	}

	return ident, nil
}

// SetGuestCookie hands a freshly allocated anonymous-session token to the
// client. Long enough to survive a browsing session, unreadable from scripts.
func SetGuestCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultGuestCookieTTL
	}
	http.SetCookie(w, &http.Cookie{
		Name:     GuestCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearGuestCookie invalidates the client-held guest token, e.g. after the
// guest cart has been merged into an account cart.
func ClearGuestCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     GuestCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
