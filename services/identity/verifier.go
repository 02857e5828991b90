package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/luminagems/shopbackend/lib/myerrors"
	"github.com/luminagems/shopbackend/lib/mystore"
	"github.com/luminagems/shopbackend/lib/mytime"
)

// Session is written by the authentication service when it issues a bearer
// token. Token issuance itself is outside this system; we only look tokens up.
type Session struct {
	Token      string
	AccountUID string
	Admin      bool
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

//go:generate mockgen -source=verifier.go -package identity -destination verifier_mock.go Verifier
type Verifier interface {
	Verify(c context.Context, token string) (Session, error)
}

type storeVerifier struct {
	sessionStore mystore.Store[Session]
	nower        mytime.Nower
}

func NewVerifier(sessionStore mystore.Store[Session], nower mytime.Nower) Verifier {
	return &storeVerifier{
		sessionStore: sessionStore,
		nower:        nower,
	}
}

func (v *storeVerifier) Verify(c context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, myerrors.NewUnauthorizedError(fmt.Errorf("empty bearer token"))
	}

	session, found, err := v.sessionStore.Get(c, token)
	if err != nil {
		return Session{}, myerrors.NewUnavailableError(fmt.Errorf("error fetching session"))
	}
	if !found {
		return Session{}, myerrors.NewUnauthorizedError(fmt.Errorf("unknown bearer token"))
	}
	if !session.ExpiresAt.IsZero() && session.ExpiresAt.Before(v.nower.Now()) {
		return Session{}, myerrors.NewUnauthorizedError(fmt.Errorf("expired bearer token"))
	}

	return session, nil
}
