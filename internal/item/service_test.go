package item

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/shareit-backend/internal/booking"
	"github.com/nekogravitycat/shareit-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/shareit-backend/internal/pkg/clock"
	"github.com/nekogravitycat/shareit-backend/internal/user"
)

type fakeUsers map[int64]*user.User

func (f fakeUsers) GetByID(_ context.Context, id int64) (*user.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, apperror.Newf(apperror.KindNotFound, "user %d not found", id)
	}
	return u, nil
}

type mockBookings struct {
	mock.Mock
}

func (m *mockBookings) LastBooking(ctx context.Context, itemID int64) (*booking.Booking, error) {
	args := m.Called(ctx, itemID)
	b, _ := args.Get(0).(*booking.Booking)
	return b, args.Error(1)
}

func (m *mockBookings) NextBooking(ctx context.Context, itemID int64) (*booking.Booking, error) {
	args := m.Called(ctx, itemID)
	b, _ := args.Get(0).(*booking.Booking)
	return b, args.Error(1)
}

func (m *mockBookings) HasFinishedBooking(ctx context.Context, userID, itemID int64) (bool, error) {
	args := m.Called(ctx, userID, itemID)
	return args.Bool(0), args.Error(1)
}

const (
	ownerID  int64 = 1
	renterID int64 = 2
)

func newTestService(t *testing.T) (Service, *mockBookings) {
	t.Helper()
	users := fakeUsers{
		ownerID:  {ID: ownerID, Name: "owner"},
		renterID: {ID: renterID, Name: "renter"},
	}
	bookings := new(mockBookings)
	repo := NewMemoryRepository(clock.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	return NewService(repo, users, bookings, zerolog.Nop()), bookings
}

func boolPtr(b bool) *bool { return &b }

func createItem(t *testing.T, svc Service, name, description string, available bool) *Item {
	t.Helper()
	it, err := svc.Create(context.Background(), ownerID, CreateRequest{
		Name:        name,
		Description: description,
		Available:   boolPtr(available),
	})
	require.NoError(t, err)
	return it
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	cases := []struct {
		name string
		req  CreateRequest
		user int64
		kind apperror.Kind
	}{
		{"blank name", CreateRequest{Name: " ", Description: "d", Available: boolPtr(true)}, ownerID, apperror.KindValidation},
		{"blank description", CreateRequest{Name: "n", Description: "", Available: boolPtr(true)}, ownerID, apperror.KindValidation},
		{"long name", CreateRequest{Name: strings.Repeat("x", 256), Description: "d", Available: boolPtr(true)}, ownerID, apperror.KindValidation},
		{"long description", CreateRequest{Name: "n", Description: strings.Repeat("x", 1001), Available: boolPtr(true)}, ownerID, apperror.KindValidation},
		{"missing available", CreateRequest{Name: "n", Description: "d"}, ownerID, apperror.KindValidation},
		{"unknown owner", CreateRequest{Name: "n", Description: "d", Available: boolPtr(true)}, 99, apperror.KindNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tc.user, tc.req)
			assert.Equal(t, tc.kind, apperror.KindOf(err))
		})
	}

	requestID := int64(7)
	it, err := svc.Create(ctx, ownerID, CreateRequest{Name: " Drill ", Description: "Cordless", Available: boolPtr(false), RequestID: &requestID})
	require.NoError(t, err)
	assert.Equal(t, "Drill", it.Name)
	assert.False(t, it.Available)
	require.NotNil(t, it.RequestID)
	assert.Equal(t, int64(7), *it.RequestID)
}

func TestUpdateAndDeleteByNonOwnerIsNotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	it := createItem(t, svc, "Drill", "Cordless", true)

	name := "Hammer"
	_, err := svc.Update(ctx, it.ID, renterID, UpdateRequest{Name: &name})
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(svc.Delete(ctx, it.ID, renterID)))

	updated, err := svc.Update(ctx, it.ID, ownerID, UpdateRequest{Name: &name, Available: boolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, "Hammer", updated.Name)
	assert.Equal(t, "Cordless", updated.Description)
	assert.False(t, updated.Available)

	require.NoError(t, svc.Delete(ctx, it.ID, ownerID))
	_, err = svc.GetByID(ctx, it.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	drill := createItem(t, svc, "Power Drill", "cordless", true)
	createItem(t, svc, "Hidden drill", "not for rent", false)
	saw := createItem(t, svc, "Saw", "cuts like a DRILL never could", true)
	createItem(t, svc, "Ladder", "tall", true)

	got, err := svc.Search(ctx, "dRiLl", Page{From: 0, Size: 10})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, drill.ID, got[0].ID)
	assert.Equal(t, saw.ID, got[1].ID)

	got, err = svc.Search(ctx, "   ", Page{From: 0, Size: 10})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	// Blank text short-circuits before the page is looked at.
	got, err = svc.Search(ctx, "", Page{From: -1, Size: 0})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = svc.Search(ctx, "drill", Page{From: 1, Size: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, saw.ID, got[0].ID)
}

func TestPagination(t *testing.T) {
	ctx := context.Background()
	svc, bookings := newTestService(t)
	bookings.On("LastBooking", mock.Anything, mock.Anything).Return(nil, nil)
	bookings.On("NextBooking", mock.Anything, mock.Anything).Return(nil, nil)

	for i := 0; i < 5; i++ {
		createItem(t, svc, "item", "thing", true)
	}

	_, err := svc.ListByOwner(ctx, ownerID, Page{From: -1, Size: 10})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	_, err = svc.ListByOwner(ctx, ownerID, Page{From: 0, Size: 0})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	_, err = svc.Search(ctx, "item", Page{From: 0, Size: -2})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	// from=3,size=2 starts at page 1, i.e. the third item.
	views, err := svc.ListByOwner(ctx, ownerID, Page{From: 3, Size: 2})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, int64(3), views[0].Item.ID)
	assert.Equal(t, int64(4), views[1].Item.ID)
}

func TestViewShowsBookingsOnlyToOwner(t *testing.T) {
	ctx := context.Background()
	svc, bookings := newTestService(t)
	it := createItem(t, svc, "Drill", "Cordless", true)

	last := &booking.Booking{ID: 1, ItemID: it.ID}
	next := &booking.Booking{ID: 2, ItemID: it.ID}
	bookings.On("LastBooking", ctx, it.ID).Return(last, nil)
	bookings.On("NextBooking", ctx, it.ID).Return(next, nil)

	v, err := svc.GetView(ctx, it.ID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, last, v.LastBooking)
	assert.Equal(t, next, v.NextBooking)

	v, err = svc.GetView(ctx, it.ID, renterID)
	require.NoError(t, err)
	assert.Nil(t, v.LastBooking)
	assert.Nil(t, v.NextBooking)
	bookings.AssertNumberOfCalls(t, "LastBooking", 1)

	views, err := svc.ListByOwner(ctx, ownerID, Page{From: 0, Size: 10})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, last, views[0].LastBooking)

	_, err = svc.GetView(ctx, 404, ownerID)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestAddComment(t *testing.T) {
	ctx := context.Background()
	svc, bookings := newTestService(t)
	it := createItem(t, svc, "Drill", "Cordless", true)

	t.Run("unknown user", func(t *testing.T) {
		_, err := svc.AddComment(ctx, 99, it.ID, "great")
		assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	})

	t.Run("unknown item", func(t *testing.T) {
		_, err := svc.AddComment(ctx, renterID, 404, "great")
		assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	})

	t.Run("no finished booking names both ids", func(t *testing.T) {
		bookings.On("HasFinishedBooking", ctx, ownerID, it.ID).Return(false, nil).Once()
		_, err := svc.AddComment(ctx, ownerID, it.ID, "great")
		require.Error(t, err)
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
		assert.Contains(t, err.Error(), "user 1")
		assert.Contains(t, err.Error(), "item 1")
	})

	t.Run("blank text", func(t *testing.T) {
		bookings.On("HasFinishedBooking", ctx, renterID, it.ID).Return(true, nil).Once()
		_, err := svc.AddComment(ctx, renterID, it.ID, "  ")
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	})

	t.Run("eligible renter", func(t *testing.T) {
		bookings.On("HasFinishedBooking", ctx, renterID, it.ID).Return(true, nil).Once()
		c, err := svc.AddComment(ctx, renterID, it.ID, " Worked well ")
		require.NoError(t, err)
		assert.Equal(t, "Worked well", c.Text)
		assert.Equal(t, "renter", c.AuthorName)

		v, err := svc.GetView(ctx, it.ID, renterID)
		require.NoError(t, err)
		require.Len(t, v.Comments, 1)
		assert.Equal(t, c.ID, v.Comments[0].ID)
	})

	bookings.AssertExpectations(t)
}
