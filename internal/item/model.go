package item

import (
	"time"

	"github.com/nekogravitycat/shareit-backend/internal/booking"
	"github.com/nekogravitycat/shareit-backend/internal/pkg/apperror"
)

const (
	maxNameLength        = 255
	maxDescriptionLength = 1000
	maxCommentLength     = 2000
)

var ErrNotFound = apperror.New(apperror.KindNotFound, "item not found")

type Item struct {
	ID          int64
	OwnerID     int64
	Name        string
	Description string
	Available   bool
	RequestID   *int64
	CreatedAt   time.Time
}

type Comment struct {
	ID         int64
	ItemID     int64
	AuthorID   int64
	AuthorName string
	Text       string
	CreatedAt  time.Time
}

type CreateRequest struct {
	Name        string
	Description string
	Available   *bool
	RequestID   *int64
}

// UpdateRequest holds the optional fields of a partial update.
type UpdateRequest struct {
	Name        *string
	Description *string
	Available   *bool
}

// View is an item together with its comments and, for the owner, the
// closest approved bookings on either side of now.
type View struct {
	Item        *Item
	LastBooking *booking.Booking
	NextBooking *booking.Booking
	Comments    []*Comment
}

// Page is an offset-style window. The effective offset is rounded down to
// a multiple of Size.
type Page struct {
	From int
	Size int
}

func (p Page) Validate() error {
	if p.From < 0 {
		return apperror.Newf(apperror.KindValidation, "from must not be negative, got %d", p.From)
	}
	if p.Size <= 0 {
		return apperror.Newf(apperror.KindValidation, "size must be positive, got %d", p.Size)
	}
	return nil
}

func (p Page) Offset() int {
	return (p.From / p.Size) * p.Size
}
