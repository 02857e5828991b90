package cart

import (
	"context"
	"fmt"

	"github.com/luminagems/shopbackend/lib/myerrors"
	"github.com/luminagems/shopbackend/lib/mylog"
	"github.com/luminagems/shopbackend/services/identity"
)

// merge reconciles a guest cart into the account cart at login. Idempotent in
// effect: once the guest cart is gone, re-invoking is a no-op that returns
// the account cart unchanged.
func (s *service) merge(c context.Context, accountIdent identity.Identity, guestToken string) (CartView, bool, error) {
	if !accountIdent.IsAccount() {
		return CartView{}, false, myerrors.NewUnauthorizedError(fmt.Errorf("merge requires an authenticated account"))
	}

	if guestToken == "" {
		view, err := s.getCart(c, accountIdent)
		return view, false, err
	}

	guestKey := identity.GuestCartKey(guestToken)
	accountKey := accountIdent.CartKey()
	now := s.nower.Now()

	var result Cart
	var merged bool
	err := s.cartStore.RunInTransaction(c, func(c context.Context) error {
		guestCart, guestFound, err := s.cartStore.Get(c, guestKey)
		if err != nil {
			return myerrors.NewUnavailableError(fmt.Errorf("error fetching guest cart"))
		}
		accountCart, accountFound, err := s.cartStore.Get(c, accountKey)
		if err != nil {
			return myerrors.NewUnavailableError(fmt.Errorf("error fetching account cart"))
		}

		if !guestFound || guestCart.IsEmpty() {
			// nothing to merge; a lingering empty guest record is removed
			if guestFound {
				err = s.cartStore.Delete(c, guestKey)
				if err != nil {
					return myerrors.NewUnavailableError(fmt.Errorf("error deleting guest cart"))
				}
			}
			if accountFound {
				result = accountCart
			} else {
				result = Cart{Key: accountKey, AccountUID: accountIdent.AccountUID()}
			}
			return nil
		}

		merged = true

		if !accountFound {
			// account has no cart yet: retarget ownership, lines untouched
			result = guestCart
			result.Key = accountKey
			result.AccountUID = accountIdent.AccountUID()
			result.GuestToken = ""
		} else {
			// merge by catalog id: matching lines sum, the rest is appended
			result = accountCart
			for _, guestLine := range guestCart.Lines {
				if idx := result.lineIndex(guestLine.ItemUID); idx >= 0 {
					result.Lines[idx].Quantity += guestLine.Quantity
				} else {
					result.Lines = append(result.Lines, guestLine)
				}
			}
		}
		result.LastModified = &now

		err = s.cartStore.Put(c, accountKey, result)
		if err != nil {
			return myerrors.NewUnavailableError(fmt.Errorf("error storing account cart"))
		}

		err = s.cartStore.Delete(c, guestKey)
		if err != nil {
			return myerrors.NewUnavailableError(fmt.Errorf("error deleting guest cart"))
		}

		return nil
	})
	if err != nil {
		return CartView{}, false, err
	}

	if merged {
		s.logger.Log(c, accountKey, mylog.SeverityInfo, "Merged guest cart %s into account cart %s", guestKey, accountKey)
	}

	view, err := s.hydrate(c, result)
	return view, merged, err
}
