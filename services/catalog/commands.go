package catalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/luminagems/shopbackend/lib/myerrors"
	"github.com/luminagems/shopbackend/lib/mylog"
)

func (s *service) GetItem(c context.Context, uid string) (Diamond, bool, error) {
	diamond, found, err := s.catalogStore.Get(c, uid)
	if err != nil {
		return Diamond{}, false, myerrors.NewUnavailableError(fmt.Errorf("error fetching catalog item"))
	}

	return diamond, found, nil
}

func (s *service) getItem(c context.Context, uid string) (Diamond, error) {
	diamond, found, err := s.GetItem(c, uid)
	if err != nil {
		return Diamond{}, err
	}
	if !found {
		return Diamond{}, myerrors.NewNotFoundError(fmt.Errorf("catalog item with uid %s not found", uid))
	}

	return diamond, nil
}

func (s *service) listItems(c context.Context) ([]Diamond, error) {
	diamonds, err := s.catalogStore.List(c)
	if err != nil {
		return nil, myerrors.NewUnavailableError(fmt.Errorf("error fetching catalog items"))
	}

	sort.Slice(diamonds, func(i, j int) bool {
		return diamonds[i].UID < diamonds[j].UID
	})

	return diamonds, nil
}

func (s *service) upsertItem(c context.Context, diamond Diamond) (Diamond, error) {
	if diamond.UID == "" {
		return Diamond{}, myerrors.NewInvalidInputError(fmt.Errorf("missing catalog item uid"))
	}
	if diamond.PriceInCents <= 0 {
		return Diamond{}, myerrors.NewInvalidInputError(fmt.Errorf("price of catalog item %s must be positive", diamond.UID))
	}
	if diamond.Currency == "" {
		diamond.Currency = s.defaultCurrency
	}

	now := s.nower.Now()

	err := s.catalogStore.RunInTransaction(c, func(c context.Context) error {
		existing, found, err := s.catalogStore.Get(c, diamond.UID)
		if err != nil {
			return myerrors.NewUnavailableError(fmt.Errorf("error fetching catalog item"))
		}
		if found {
			diamond.CreatedAt = existing.CreatedAt
		} else {
			diamond.CreatedAt = now
		}
		diamond.LastModified = &now

		err = s.catalogStore.Put(c, diamond.UID, diamond)
		if err != nil {
			return myerrors.NewUnavailableError(fmt.Errorf("error storing catalog item"))
		}

		return nil
	})
	if err != nil {
		return Diamond{}, err
	}

	s.logger.Log(c, diamond.UID, mylog.SeverityInfo, "Upserted catalog item %s", diamond.UID)

	return diamond, nil
}

// MarkUnavailable retires a sold stone. The flip is a compare-and-swap inside
// a store transaction: the first buyer wins, a second attempt gets Conflict.
func (s *service) MarkUnavailable(c context.Context, uid string) error {
	now := s.nower.Now()

	return s.catalogStore.RunInTransaction(c, func(c context.Context) error {
		diamond, found, err := s.catalogStore.Get(c, uid)
		if err != nil {
			return myerrors.NewUnavailableError(fmt.Errorf("error fetching catalog item"))
		}
		if !found {
			return myerrors.NewNotFoundError(fmt.Errorf("catalog item with uid %s not found", uid))
		}
		if !diamond.Available {
			return myerrors.NewConflictError(fmt.Errorf("catalog item %s is already unavailable", uid))
		}

		diamond.Available = false
		diamond.LastModified = &now

		err = s.catalogStore.Put(c, uid, diamond)
		if err != nil {
			return myerrors.NewUnavailableError(fmt.Errorf("error storing catalog item"))
		}

		return nil
	})
}
