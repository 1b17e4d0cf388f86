package item

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/nekogravitycat/shareit-backend/internal/booking"
	"github.com/nekogravitycat/shareit-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/shareit-backend/internal/user"
)

// UserLookup is the part of the user directory the catalog needs.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*user.User, error)
}

// BookingLookup is the part of the booking engine the catalog needs.
type BookingLookup interface {
	LastBooking(ctx context.Context, itemID int64) (*booking.Booking, error)
	NextBooking(ctx context.Context, itemID int64) (*booking.Booking, error)
	HasFinishedBooking(ctx context.Context, userID, itemID int64) (bool, error)
}

type Service interface {
	Create(ctx context.Context, ownerID int64, req CreateRequest) (*Item, error)
	Update(ctx context.Context, id, ownerID int64, req UpdateRequest) (*Item, error)
	GetByID(ctx context.Context, id int64) (*Item, error)
	GetView(ctx context.Context, itemID, viewerID int64) (*View, error)
	ListByOwner(ctx context.Context, ownerID int64, page Page) ([]*View, error)
	Search(ctx context.Context, text string, page Page) ([]*Item, error)
	Delete(ctx context.Context, id, ownerID int64) error
	ExistsOwnedBy(ctx context.Context, userID int64) (bool, error)
	AddComment(ctx context.Context, userID, itemID int64, text string) (*Comment, error)
}

type service struct {
	repo     Repository
	users    UserLookup
	bookings BookingLookup
	logger   zerolog.Logger
}

func NewService(repo Repository, users UserLookup, bookings BookingLookup, logger zerolog.Logger) Service {
	return &service{
		repo:     repo,
		users:    users,
		bookings: bookings,
		logger:   logger.With().Str("component", "item").Logger(),
	}
}

func (s *service) Create(ctx context.Context, ownerID int64, req CreateRequest) (*Item, error) {
	if _, err := s.users.GetByID(ctx, ownerID); err != nil {
		return nil, err
	}

	name, err := checkText("name", req.Name, maxNameLength)
	if err != nil {
		return nil, err
	}
	description, err := checkText("description", req.Description, maxDescriptionLength)
	if err != nil {
		return nil, err
	}
	if req.Available == nil {
		return nil, apperror.New(apperror.KindValidation, "available is required")
	}

	it := &Item{
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
		Available:   *req.Available,
		RequestID:   req.RequestID,
	}
	if err := s.repo.Create(ctx, it); err != nil {
		return nil, apperror.Internal(err, "failed to create item")
	}

	s.logger.Info().Int64("item_id", it.ID).Int64("owner_id", ownerID).Msg("item created")
	return it, nil
}

func (s *service) Update(ctx context.Context, id, ownerID int64, req UpdateRequest) (*Item, error) {
	it, err := s.owned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if it.Name, err = checkText("name", *req.Name, maxNameLength); err != nil {
			return nil, err
		}
	}
	if req.Description != nil {
		if it.Description, err = checkText("description", *req.Description, maxDescriptionLength); err != nil {
			return nil, err
		}
	}
	if req.Available != nil {
		it.Available = *req.Available
	}

	if err := s.repo.Update(ctx, it); err != nil {
		return nil, s.mapErr(err, id)
	}
	return it, nil
}

func (s *service) GetByID(ctx context.Context, id int64) (*Item, error) {
	it, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapErr(err, id)
	}
	return it, nil
}

func (s *service) GetView(ctx context.Context, itemID, viewerID int64) (*View, error) {
	if _, err := s.users.GetByID(ctx, viewerID); err != nil {
		return nil, err
	}
	it, err := s.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, it, it.OwnerID == viewerID)
}

func (s *service) ListByOwner(ctx context.Context, ownerID int64, page Page) ([]*View, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, ownerID); err != nil {
		return nil, err
	}

	items, err := s.repo.ListByOwner(ctx, ownerID, page.Size, page.Offset())
	if err != nil {
		return nil, apperror.Internal(err, "failed to list items")
	}

	views := make([]*View, 0, len(items))
	for _, it := range items {
		v, err := s.view(ctx, it, true)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *service) Search(ctx context.Context, text string, page Page) ([]*Item, error) {
	if strings.TrimSpace(text) == "" {
		return []*Item{}, nil
	}
	if err := page.Validate(); err != nil {
		return nil, err
	}

	items, err := s.repo.Search(ctx, text, page.Size, page.Offset())
	if err != nil {
		return nil, apperror.Internal(err, "failed to search items")
	}
	return items, nil
}

func (s *service) Delete(ctx context.Context, id, ownerID int64) error {
	if _, err := s.owned(ctx, id, ownerID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.mapErr(err, id)
	}
	s.logger.Info().Int64("item_id", id).Msg("item deleted")
	return nil
}

func (s *service) ExistsOwnedBy(ctx context.Context, userID int64) (bool, error) {
	ok, err := s.repo.ExistsByOwner(ctx, userID)
	if err != nil {
		return false, apperror.Internal(err, "failed to check item ownership")
	}
	return ok, nil
}

func (s *service) AddComment(ctx context.Context, userID, itemID int64, text string) (*Comment, error) {
	author, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetByID(ctx, itemID); err != nil {
		return nil, err
	}

	finished, err := s.bookings.HasFinishedBooking(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if !finished {
		return nil, apperror.Newf(apperror.KindValidation,
			"user %d has no finished booking of item %d", userID, itemID)
	}

	body, err := checkText("text", text, maxCommentLength)
	if err != nil {
		return nil, err
	}

	c := &Comment{
		ItemID:     itemID,
		AuthorID:   author.ID,
		AuthorName: author.Name,
		Text:       body,
	}
	if err := s.repo.CreateComment(ctx, c); err != nil {
		return nil, apperror.Internal(err, "failed to create comment")
	}
	return c, nil
}

// owned loads an item, reporting items of other owners as not found.
func (s *service) owned(ctx context.Context, id, ownerID int64) (*Item, error) {
	it, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if it.OwnerID != ownerID {
		return nil, apperror.Wrap(ErrNotFound, apperror.KindNotFound,
			fmt.Sprintf("item %d not found for owner %d", id, ownerID))
	}
	return it, nil
}

func (s *service) view(ctx context.Context, it *Item, withBookings bool) (*View, error) {
	v := &View{Item: it}

	if withBookings {
		var err error
		if v.LastBooking, err = s.bookings.LastBooking(ctx, it.ID); err != nil {
			return nil, err
		}
		if v.NextBooking, err = s.bookings.NextBooking(ctx, it.ID); err != nil {
			return nil, err
		}
	}

	comments, err := s.repo.ListComments(ctx, it.ID)
	if err != nil {
		return nil, apperror.Internal(err, "failed to list comments")
	}
	v.Comments = comments
	return v, nil
}

func (s *service) mapErr(err error, id int64) error {
	if errors.Is(err, ErrNotFound) {
		return apperror.Wrap(ErrNotFound, apperror.KindNotFound, fmt.Sprintf("item %d not found", id))
	}
	return apperror.Internal(err, "item storage failure")
}

func checkText(field, value string, max int) (string, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return "", apperror.Newf(apperror.KindValidation, "%s must not be blank", field)
	}
	if utf8.RuneCountInString(v) > max {
		return "", apperror.Newf(apperror.KindValidation, "%s must be at most %d characters", field, max)
	}
	return v, nil
}
