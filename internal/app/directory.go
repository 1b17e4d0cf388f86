package app

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/nekogravitycat/shareit-backend/internal/booking"
	"github.com/nekogravitycat/shareit-backend/internal/item"
	"github.com/nekogravitycat/shareit-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/shareit-backend/internal/user"
)

// userDirectory exposes the user service to the booking engine.
type userDirectory struct {
	users user.Service
}

func (d userDirectory) FindUser(ctx context.Context, id int64) (*booking.UserRef, error) {
	u, err := d.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &booking.UserRef{ID: u.ID, Name: u.Name}, nil
}

// itemDirectory reads the item repository directly. The item service
// itself depends on the booking engine, so it cannot be used here.
type itemDirectory struct {
	items item.Repository
}

func (d itemDirectory) FindItem(ctx context.Context, id int64) (*booking.ItemRef, error) {
	it, err := d.items.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, item.ErrNotFound) {
			return nil, apperror.Wrap(item.ErrNotFound, apperror.KindNotFound, fmt.Sprintf("item %d not found", id))
		}
		return nil, apperror.Internal(err, "failed to load item")
	}
	return &booking.ItemRef{ID: it.ID, OwnerID: it.OwnerID, Name: it.Name, Available: it.Available}, nil
}

func (d itemDirectory) ExistsItemsOwnedBy(ctx context.Context, userID int64) (bool, error) {
	ok, err := d.items.ExistsByOwner(ctx, userID)
	if err != nil {
		return false, apperror.Internal(err, "failed to check item ownership")
	}
	return ok, nil
}
