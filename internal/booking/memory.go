package booking

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/nekogravitycat/shareit-backend/internal/pkg/clock"
	"github.com/nekogravitycat/shareit-backend/internal/pkg/memstore"
)

// MemoryRepository keeps bookings in process. Item and booker names are
// captured from the record passed to Create and refreshed on read when a
// NameResolver is set.
type MemoryRepository struct {
	table *memstore.Table[Booking]
	clock clock.Clock
	names NameResolver
}

// NameResolver fills in the current item and booker names of a booking.
type NameResolver func(ctx context.Context, b *Booking)

func NewMemoryRepository(clk clock.Clock) *MemoryRepository {
	return &MemoryRepository{
		table: memstore.NewTable[Booking](),
		clock: clk,
	}
}

// SetNameResolver must be called before the repository is shared.
func (r *MemoryRepository) SetNameResolver(fn NameResolver) {
	r.names = fn
}

func (r *MemoryRepository) resolve(ctx context.Context, bookings ...*Booking) {
	if r.names == nil {
		return
	}
	for _, b := range bookings {
		r.names(ctx, b)
	}
}

func (r *MemoryRepository) Create(_ context.Context, b *Booking) error {
	now := r.clock.Now()
	stored := r.table.Insert(func(id int64) Booking {
		row := *b
		row.ID = id
		row.CreatedAt = now
		row.UpdatedAt = now
		return row
	})
	b.ID = stored.ID
	b.CreatedAt = stored.CreatedAt
	b.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id int64) (*Booking, error) {
	row, ok := r.table.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	r.resolve(ctx, &row)
	return &row, nil
}

func (r *MemoryRepository) List(ctx context.Context, q Query) ([]*Booking, error) {
	rows := r.table.Select(func(row Booking) bool {
		return q.Matches(&row)
	})

	bookings := make([]*Booking, len(rows))
	for i := range rows {
		bookings[i] = &rows[i]
	}
	q.Sort(bookings)

	if q.Limit > 0 && len(bookings) > q.Limit {
		bookings = bookings[:q.Limit]
	}
	r.resolve(ctx, bookings...)
	return bookings, nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, id int64, from, to Status) error {
	_, err := r.table.Update(id, func(row Booking) (Booking, error) {
		if row.Status != from {
			return row, ErrStatusConflict
		}
		row.Status = to
		row.UpdatedAt = r.clock.Now()
		return row, nil
	})
	if errors.Is(err, memstore.ErrNoRow) {
		return ErrNotFound
	}
	return err
}

// DeleteByItem removes the bookings of an item.
func (r *MemoryRepository) DeleteByItem(_ context.Context, itemID int64) {
	r.removeWhere(func(b Booking) bool { return b.ItemID == itemID })
}

// DeleteByBooker removes the bookings made by a user.
func (r *MemoryRepository) DeleteByBooker(_ context.Context, bookerID int64) {
	r.removeWhere(func(b Booking) bool { return b.BookerID == bookerID })
}

func (r *MemoryRepository) removeWhere(match func(b Booking) bool) {
	for _, b := range r.table.Select(match) {
		r.table.Remove(b.ID)
	}
}
