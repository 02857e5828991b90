package cart

import (
	"context"
	"fmt"

	"github.com/luminagems/shopbackend/lib/myerrors"
	"github.com/luminagems/shopbackend/lib/mylog"
	"github.com/luminagems/shopbackend/services/identity"
)

// getCart returns the cart for the given identity. A missing cart is not an
// error: the caller gets an empty, unpersisted shape.
func (s *service) getCart(c context.Context, ident identity.Identity) (CartView, error) {
	if ident.IsAnonymous() {
		return CartView{}, nil
	}

	cart, found, err := s.cartStore.Get(c, ident.CartKey())
	if err != nil {
		return CartView{}, myerrors.NewUnavailableError(fmt.Errorf("error fetching cart"))
	}
	if !found {
		return CartView{Key: ident.CartKey()}, nil
	}

	return s.hydrate(c, cart)
}

// addItem adds a stone to the cart, creating the cart lazily on first use.
// For a brand-new guest it allocates the anonymous-session token and returns
// it so the web layer can hand it to the client.
func (s *service) addItem(c context.Context, ident identity.Identity, itemUID string, quantity int) (CartView, string, error) {
	if itemUID == "" {
		return CartView{}, "", myerrors.NewInvalidInputError(fmt.Errorf("missing catalog item uid"))
	}
	if quantity < 1 {
		return CartView{}, "", myerrors.NewInvalidInputError(fmt.Errorf("quantity must be at least 1"))
	}

	_, found, err := s.catalog.GetItem(c, itemUID)
	if err != nil {
		return CartView{}, "", err
	}
	if !found {
		return CartView{}, "", myerrors.NewNotFoundError(fmt.Errorf("catalog item with uid %s not found", itemUID))
	}

	ident, newGuestToken := s.ensureCartIdentity(ident)
	now := s.nower.Now()

	var cart Cart
	err = s.cartStore.RunInTransaction(c, func(c context.Context) error {
		var found bool
		var err error
		cart, found, err = s.cartStore.Get(c, ident.CartKey())
		if err != nil {
			return myerrors.NewUnavailableError(fmt.Errorf("error fetching cart"))
		}
		if !found {
			cart = Cart{
				Key:        ident.CartKey(),
				AccountUID: ident.AccountUID(),
				GuestToken: ident.GuestToken(),
				CreatedAt:  now,
			}
		}

		// Same stone twice sums quantities instead of growing a second line
		if idx := cart.lineIndex(itemUID); idx >= 0 {
			cart.Lines[idx].Quantity += quantity
		} else {
			cart.Lines = append(cart.Lines, CartLine{ItemUID: itemUID, Quantity: quantity})
		}
		cart.LastModified = &now

		err = s.cartStore.Put(c, cart.Key, cart)
		if err != nil {
			return myerrors.NewUnavailableError(fmt.Errorf("error storing cart"))
		}

		return nil
	})
	if err != nil {
		return CartView{}, "", err
	}

	s.logger.Log(c, cart.Key, mylog.SeverityInfo, "Added %d x item %s to cart %s", quantity, itemUID, cart.Key)

	view, err := s.hydrate(c, cart)
	return view, newGuestToken, err
}

func (s *service) updateItemQuantity(c context.Context, ident identity.Identity, itemUID string, quantity int) (CartView, error) {
	if quantity < 1 {
		// quantity 0 is not an implicit delete; removal is explicit
		return CartView{}, myerrors.NewInvalidInputError(fmt.Errorf("quantity must be at least 1"))
	}

	return s.mutateLine(c, ident, itemUID, func(cart *Cart, idx int) {
		cart.Lines[idx].Quantity = quantity
	})
}

func (s *service) removeItem(c context.Context, ident identity.Identity, itemUID string) (CartView, error) {
	return s.mutateLine(c, ident, itemUID, func(cart *Cart, idx int) {
		cart.Lines = append(cart.Lines[:idx], cart.Lines[idx+1:]...)
	})
}

func (s *service) mutateLine(c context.Context, ident identity.Identity, itemUID string, mutate func(cart *Cart, idx int)) (CartView, error) {
	if ident.IsAnonymous() {
		return CartView{}, myerrors.NewNotFoundError(fmt.Errorf("no cart for this session"))
	}

	now := s.nower.Now()

	var cart Cart
	err := s.cartStore.RunInTransaction(c, func(c context.Context) error {
		var found bool
		var err error
		cart, found, err = s.cartStore.Get(c, ident.CartKey())
		if err != nil {
			return myerrors.NewUnavailableError(fmt.Errorf("error fetching cart"))
		}
		if !found {
			return myerrors.NewNotFoundError(fmt.Errorf("cart with key %s not found", ident.CartKey()))
		}

		idx := cart.lineIndex(itemUID)
		if idx < 0 {
			return myerrors.NewNotFoundError(fmt.Errorf("item %s not in cart", itemUID))
		}

		mutate(&cart, idx)
		cart.LastModified = &now

		err = s.cartStore.Put(c, cart.Key, cart)
		if err != nil {
			return myerrors.NewUnavailableError(fmt.Errorf("error storing cart"))
		}

		return nil
	})
	if err != nil {
		return CartView{}, err
	}

	return s.hydrate(c, cart)
}

// replaceItems swaps the full line list in one write.
func (s *service) replaceItems(c context.Context, ident identity.Identity, lines []CartLine) (CartView, string, error) {
	deduped := make([]CartLine, 0, len(lines))
	for _, line := range lines {
		if line.ItemUID == "" {
			return CartView{}, "", myerrors.NewInvalidInputError(fmt.Errorf("missing catalog item uid"))
		}
		if line.Quantity < 1 {
			return CartView{}, "", myerrors.NewInvalidInputError(fmt.Errorf("quantity of item %s must be at least 1", line.ItemUID))
		}
		merged := false
		for i := range deduped {
			if deduped[i].ItemUID == line.ItemUID {
				deduped[i].Quantity += line.Quantity
				merged = true
				break
			}
		}
		if !merged {
			deduped = append(deduped, line)
		}
	}

	ident, newGuestToken := s.ensureCartIdentity(ident)
	now := s.nower.Now()

	var cart Cart
	err := s.cartStore.RunInTransaction(c, func(c context.Context) error {
		var found bool
		var err error
		cart, found, err = s.cartStore.Get(c, ident.CartKey())
		if err != nil {
			return myerrors.NewUnavailableError(fmt.Errorf("error fetching cart"))
		}
		if !found {
			cart = Cart{
				Key:        ident.CartKey(),
				AccountUID: ident.AccountUID(),
				GuestToken: ident.GuestToken(),
				CreatedAt:  now,
			}
		}

		cart.Lines = deduped
		cart.LastModified = &now

		err = s.cartStore.Put(c, cart.Key, cart)
		if err != nil {
			return myerrors.NewUnavailableError(fmt.Errorf("error storing cart"))
		}

		return nil
	})
	if err != nil {
		return CartView{}, "", err
	}

	view, err := s.hydrate(c, cart)
	return view, newGuestToken, err
}

func (s *service) clear(c context.Context, ident identity.Identity) error {
	if ident.IsAnonymous() {
		return nil
	}

	err := s.cartStore.Delete(c, ident.CartKey())
	if err != nil {
		return myerrors.NewUnavailableError(fmt.Errorf("error deleting cart"))
	}

	s.logger.Log(c, ident.CartKey(), mylog.SeverityInfo, "Cleared cart %s", ident.CartKey())

	return nil
}

// ensureCartIdentity upgrades an anonymous visitor to a guest with a fresh
// token; the returned token must travel back to the client as a cookie.
func (s *service) ensureCartIdentity(ident identity.Identity) (identity.Identity, string) {
	if !ident.IsAnonymous() {
		return ident, ""
	}

	token := s.uuider.Create()
	return identity.Guest(token), token
}

// hydrate joins current catalog price and availability into the view. This is
// display data only: checkout never trusts it and re-reads the catalog.
func (s *service) hydrate(c context.Context, cart Cart) (CartView, error) {
	view := CartView{
		Key:          cart.Key,
		AccountUID:   cart.AccountUID,
		GuestToken:   cart.GuestToken,
		CreatedAt:    cart.CreatedAt,
		LastModified: cart.LastModified,
	}

	for _, line := range cart.Lines {
		lineView := LineView{
			ItemUID:  line.ItemUID,
			Quantity: line.Quantity,
		}

		diamond, found, err := s.catalog.GetItem(c, line.ItemUID)
		if err != nil {
			return CartView{}, err
		}
		if found {
			lineView.Description = diamond.Description
			lineView.PriceInCents = diamond.PriceInCents
			lineView.LineTotalInCents = diamond.PriceInCents * int64(line.Quantity)
			lineView.Currency = diamond.Currency
			lineView.Available = diamond.Available
			view.TotalInCents += lineView.LineTotalInCents
			if view.Currency == "" {
				view.Currency = diamond.Currency
			}
		}

		view.Lines = append(view.Lines, lineView)
	}

	return view, nil
}
