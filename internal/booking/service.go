package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/nekogravitycat/shareit-backend/internal/metrics"
	"github.com/nekogravitycat/shareit-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/shareit-backend/internal/pkg/clock"
)

// UserRef is what bookings need to know about a user.
type UserRef struct {
	ID   int64
	Name string
}

// ItemRef is what bookings need to know about an item.
type ItemRef struct {
	ID        int64
	OwnerID   int64
	Name      string
	Available bool
}

// UserDirectory resolves users. FindUser returns a NotFound AppError for unknown ids.
type UserDirectory interface {
	FindUser(ctx context.Context, id int64) (*UserRef, error)
}

// ItemDirectory resolves items. FindItem returns a NotFound AppError for unknown ids.
type ItemDirectory interface {
	FindItem(ctx context.Context, id int64) (*ItemRef, error)
	ExistsItemsOwnedBy(ctx context.Context, userID int64) (bool, error)
}

type CreateRequest struct {
	BookerID int64
	ItemID   int64
	Start    time.Time
	End      time.Time
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Booking, error)
	Respond(ctx context.Context, actingUserID, bookingID int64, approve bool) (*Booking, error)
	GetByID(ctx context.Context, actingUserID, bookingID int64) (*Booking, error)

	ListForRenter(ctx context.Context, userID int64, state string) ([]*Booking, error)
	ListForOwner(ctx context.Context, userID int64, state string) ([]*Booking, error)

	// LastBooking and NextBooking return nil, nil when no approved booking qualifies.
	LastBooking(ctx context.Context, itemID int64) (*Booking, error)
	NextBooking(ctx context.Context, itemID int64) (*Booking, error)

	HasFinishedBooking(ctx context.Context, userID, itemID int64) (bool, error)
}

type service struct {
	repo   Repository
	users  UserDirectory
	items  ItemDirectory
	clock  clock.Clock
	logger zerolog.Logger
}

func NewService(repo Repository, users UserDirectory, items ItemDirectory, clk clock.Clock, logger zerolog.Logger) Service {
	return &service{
		repo:   repo,
		users:  users,
		items:  items,
		clock:  clk,
		logger: logger.With().Str("component", "booking").Logger(),
	}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Booking, error) {
	booker, err := s.users.FindUser(ctx, req.BookerID)
	if err != nil {
		return nil, err
	}

	item, err := s.items.FindItem(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}

	if item.OwnerID == booker.ID {
		return nil, apperror.Newf(apperror.KindAccessDenied, "user %d cannot book own item %d", booker.ID, item.ID)
	}
	if !item.Available {
		return nil, apperror.Newf(apperror.KindAccessDenied, "item %d is not available for booking", item.ID)
	}

	b := &Booking{
		ItemID:      item.ID,
		ItemName:    item.Name,
		ItemOwnerID: item.OwnerID,
		BookerID:    booker.ID,
		BookerName:  booker.Name,
		Start:       req.Start,
		End:         req.End,
		Status:      StatusWaiting,
	}

	if err := s.repo.Create(ctx, b); err != nil {
		return nil, apperror.Internal(err, "failed to create booking")
	}

	metrics.IncBookingCreated()
	s.logger.Info().
		Int64("booking_id", b.ID).
		Int64("item_id", b.ItemID).
		Int64("booker_id", b.BookerID).
		Msg("booking created")

	return b, nil
}

func (s *service) Respond(ctx context.Context, actingUserID, bookingID int64, approve bool) (*Booking, error) {
	if _, err := s.users.FindUser(ctx, actingUserID); err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return nil, apperror.Wrap(err, apperror.KindValidation, err.Error())
		}
		return nil, err
	}

	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if b.ItemOwnerID != actingUserID {
		return nil, apperror.Newf(apperror.KindAccessDenied, "user %d is not the owner of item %d", actingUserID, b.ItemID)
	}

	next := Decision(approve)
	if !b.Status.CanTransitionTo(next) {
		return nil, apperror.Newf(apperror.KindInvalidState, "booking %d has already been decided: %s", b.ID, b.Status)
	}

	if err := s.repo.UpdateStatus(ctx, b.ID, b.Status, next); err != nil {
		switch {
		case errors.Is(err, ErrStatusConflict):
			return nil, apperror.Newf(apperror.KindInvalidState, "booking %d has already been decided", b.ID)
		case errors.Is(err, ErrNotFound):
			return nil, s.notFound(bookingID)
		default:
			return nil, apperror.Internal(err, "failed to update booking")
		}
	}

	metrics.IncBookingDecision(string(next))
	s.logger.Info().
		Int64("booking_id", b.ID).
		Int64("owner_id", actingUserID).
		Str("status", string(next)).
		Msg("booking decided")

	return s.load(ctx, b.ID)
}

func (s *service) GetByID(ctx context.Context, actingUserID, bookingID int64) (*Booking, error) {
	b, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.BookerID != actingUserID && b.ItemOwnerID != actingUserID {
		return nil, apperror.Newf(apperror.KindValidation,
			"user %d is neither the booker nor the item owner of booking %d", actingUserID, bookingID)
	}
	return b, nil
}

func (s *service) ListForRenter(ctx context.Context, userID int64, state string) ([]*Booking, error) {
	st, err := ParseState(state, AudienceRenter)
	if err != nil {
		return nil, err
	}
	// An unknown renter is NotFound rather than an empty list, which also makes
	// HasFinishedBooking fail for unknown users instead of returning false.
	if _, err := s.users.FindUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.list(ctx, st.Query(ScopeBooker, userID, s.clock.Now()))
}

func (s *service) ListForOwner(ctx context.Context, userID int64, state string) ([]*Booking, error) {
	st, err := ParseState(state, AudienceOwner)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.FindUser(ctx, userID); err != nil {
		if apperror.Is(err, apperror.KindNotFound) {
			return nil, apperror.Wrap(err, apperror.KindValidation, err.Error())
		}
		return nil, err
	}

	owns, err := s.items.ExistsItemsOwnedBy(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !owns {
		return nil, apperror.Newf(apperror.KindAccessDenied, "user %d does not own any items", userID)
	}

	return s.list(ctx, st.Query(ScopeOwner, userID, s.clock.Now()))
}

func (s *service) LastBooking(ctx context.Context, itemID int64) (*Booking, error) {
	return s.first(ctx, Query{
		Scope:     ScopeItem,
		SubjectID: itemID,
		Window:    WindowPast,
		Status:    StatusApproved,
		Now:       s.clock.Now(),
		Order:     OrderEndDesc,
		Limit:     1,
	})
}

func (s *service) NextBooking(ctx context.Context, itemID int64) (*Booking, error) {
	return s.first(ctx, Query{
		Scope:     ScopeItem,
		SubjectID: itemID,
		Window:    WindowFuture,
		Status:    StatusApproved,
		Now:       s.clock.Now(),
		Order:     OrderStartAsc,
		Limit:     1,
	})
}

func (s *service) HasFinishedBooking(ctx context.Context, userID, itemID int64) (bool, error) {
	past, err := s.ListForRenter(ctx, userID, string(StatePast))
	if err != nil {
		return false, err
	}
	for _, b := range past {
		if b.ItemID == itemID {
			return true, nil
		}
	}
	return false, nil
}

func (s *service) load(ctx context.Context, id int64) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, s.notFound(id)
		}
		return nil, apperror.Internal(err, "failed to load booking")
	}
	return b, nil
}

func (s *service) list(ctx context.Context, q Query) ([]*Booking, error) {
	bookings, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, apperror.Internal(err, "failed to list bookings")
	}
	return bookings, nil
}

func (s *service) first(ctx context.Context, q Query) (*Booking, error) {
	bookings, err := s.list(ctx, q)
	if err != nil || len(bookings) == 0 {
		return nil, err
	}
	return bookings[0], nil
}

func (s *service) notFound(id int64) error {
	return apperror.Wrap(ErrNotFound, apperror.KindNotFound, fmt.Sprintf("booking %d not found", id))
}
