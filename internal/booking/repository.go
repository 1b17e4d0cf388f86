package booking

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, booking *Booking) error
	GetByID(ctx context.Context, id int64) (*Booking, error)
	List(ctx context.Context, q Query) ([]*Booking, error)

	// UpdateStatus moves a booking from one status to another in a single
	// conditional write. It returns ErrStatusConflict when the stored status
	// is no longer from, and ErrNotFound when the booking does not exist.
	UpdateStatus(ctx context.Context, id int64, from, to Status) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

func selectBookings() squirrel.SelectBuilder {
	return psql.Select(
		"b.id", "b.item_id", "i.name", "i.owner_id", "b.booker_id", "u.name",
		"b.start_time", "b.end_time", "b.status", "b.created_at", "b.updated_at",
	).
		From("public.bookings b").
		Join("public.items i ON b.item_id = i.id").
		Join("public.users u ON b.booker_id = u.id")
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	err := row.Scan(
		&b.ID, &b.ItemID, &b.ItemName, &b.ItemOwnerID, &b.BookerID, &b.BookerName,
		&b.Start, &b.End, &b.Status, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *pgxRepository) Create(ctx context.Context, b *Booking) error {
	query, args, err := psql.Insert("public.bookings").
		Columns("item_id", "booker_id", "start_time", "end_time", "status").
		Values(b.ItemID, b.BookerID, b.Start, b.End, b.Status).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return errors.Wrap(err, "build create booking query")
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return errors.Wrap(err, "create booking")
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id int64) (*Booking, error) {
	query, args, err := selectBookings().Where(squirrel.Eq{"b.id": id}).ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build get booking query")
	}

	b, err := scanBooking(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "get booking %d", id)
	}
	return b, nil
}

func (r *pgxRepository) List(ctx context.Context, q Query) ([]*Booking, error) {
	sb := selectBookings()

	switch q.Scope {
	case ScopeBooker:
		sb = sb.Where(squirrel.Eq{"b.booker_id": q.SubjectID})
	case ScopeOwner:
		sb = sb.Where(squirrel.Eq{"i.owner_id": q.SubjectID})
	case ScopeItem:
		sb = sb.Where(squirrel.Eq{"b.item_id": q.SubjectID})
	}

	if q.Status != "" {
		sb = sb.Where(squirrel.Eq{"b.status": q.Status})
	}

	switch q.Window {
	case WindowCurrent:
		sb = sb.Where(squirrel.LtOrEq{"b.start_time": q.Now}).Where(squirrel.Gt{"b.end_time": q.Now})
	case WindowPast:
		sb = sb.Where(squirrel.Lt{"b.end_time": q.Now})
	case WindowFuture:
		sb = sb.Where(squirrel.Gt{"b.start_time": q.Now})
	}

	switch q.Order {
	case OrderEndDesc:
		sb = sb.OrderBy("b.end_time DESC", "b.id DESC")
	case OrderStartAsc:
		sb = sb.OrderBy("b.start_time ASC", "b.id ASC")
	default:
		sb = sb.OrderBy("b.start_time DESC", "b.id DESC")
	}

	if q.Limit > 0 {
		sb = sb.Limit(uint64(q.Limit))
	}

	sql, args, err := sb.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build list bookings query")
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list bookings")
	}
	defer rows.Close()

	var bookings []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan booking")
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate bookings")
	}

	return bookings, nil
}

func (r *pgxRepository) UpdateStatus(ctx context.Context, id int64, from, to Status) error {
	query, args, err := psql.Update("public.bookings").
		Set("status", to).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id, "status": from}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "build update booking status query")
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return errors.Wrapf(err, "update booking %d status", id)
	}
	if ct.RowsAffected() == 1 {
		return nil
	}

	// Nothing matched: either the booking is gone or someone decided it first.
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return ErrStatusConflict
}
