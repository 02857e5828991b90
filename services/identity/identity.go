package identity

// Identity is the resolved shopper context of a request: an authenticated
// account, a guest with a client-held session token, or a brand-new visitor
// with neither. It is threaded explicitly through every cart and checkout
// call; business logic never re-derives it from ambient request state.
type Identity struct {
	kind       kind
	accountUID string
	admin      bool
	guestToken string
}

type kind int

const (
	kindAnonymous kind = iota
	kindGuest
	kindAccount
)

var Anonymous = Identity{kind: kindAnonymous}

func Account(accountUID string, admin bool) Identity {
	return Identity{
		kind:       kindAccount,
		accountUID: accountUID,
		admin:      admin,
	}
}

func Guest(token string) Identity {
	return Identity{
		kind:       kindGuest,
		guestToken: token,
	}
}

func (i Identity) IsAccount() bool {
	return i.kind == kindAccount
}

func (i Identity) IsGuest() bool {
	return i.kind == kindGuest
}

func (i Identity) IsAnonymous() bool {
	return i.kind == kindAnonymous
}

func (i Identity) IsAdmin() bool {
	return i.kind == kindAccount && i.admin
}

// AccountUID returns the owning account uid, or "" for guests and visitors.
func (i Identity) AccountUID() string {
	return i.accountUID
}

func (i Identity) GuestToken() string {
	return i.guestToken
}

// CartKey derives the cart document key for this identity. Anonymous
// visitors have no cart yet and therefore no key.
func (i Identity) CartKey() string {
	switch i.kind {
	case kindAccount:
		return AccountCartKey(i.accountUID)
	case kindGuest:
		return GuestCartKey(i.guestToken)
	default:
		return ""
	}
}

func AccountCartKey(accountUID string) string {
	return "account-" + accountUID
}

func GuestCartKey(token string) string {
	return "guest-" + token
}
