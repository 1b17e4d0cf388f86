package user

import (
	"context"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/nekogravitycat/shareit-backend/internal/pkg/clock"
	"github.com/nekogravitycat/shareit-backend/internal/pkg/memstore"
)

// MemoryRepository keeps users in process. Email uniqueness is checked
// under a single lock so that concurrent registrations cannot both win.
type MemoryRepository struct {
	mu       sync.Mutex
	table    *memstore.Table[User]
	clock    clock.Clock
	onDelete []func(ctx context.Context, id int64)
}

func NewMemoryRepository(clk clock.Clock) *MemoryRepository {
	return &MemoryRepository{
		table: memstore.NewTable[User](),
		clock: clk,
	}
}

func (r *MemoryRepository) emailTaken(email string, exceptID int64) bool {
	return r.table.Any(func(u User) bool {
		return u.ID != exceptID && strings.EqualFold(u.Email, email)
	})
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*User, error) {
	found := r.table.Select(func(u User) bool { return strings.EqualFold(u.Email, email) })
	if len(found) == 0 {
		return nil, ErrNotFound
	}
	return &found[0], nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id int64) (*User, error) {
	u, ok := r.table.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *MemoryRepository) Create(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTaken(u.Email, 0) {
		return ErrEmailAlreadyUsed
	}
	now := r.clock.Now()
	stored := r.table.Insert(func(id int64) User {
		row := *u
		row.ID = id
		row.CreatedAt = now
		return row
	})
	u.ID = stored.ID
	u.CreatedAt = stored.CreatedAt
	return nil
}

func (r *MemoryRepository) List(_ context.Context) ([]*User, error) {
	rows := r.table.Select(nil)
	users := make([]*User, len(rows))
	for i := range rows {
		users[i] = &rows[i]
	}
	return users, nil
}

func (r *MemoryRepository) Update(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.emailTaken(u.Email, u.ID) {
		return ErrEmailAlreadyUsed
	}
	_, err := r.table.Update(u.ID, func(row User) (User, error) {
		row.Name = u.Name
		row.Email = u.Email
		return row, nil
	})
	if errors.Is(err, memstore.ErrNoRow) {
		return ErrNotFound
	}
	return err
}

// OnDelete registers fn to run after a user is removed. It stands in for the
// ON DELETE CASCADE foreign keys of the Postgres schema and must be called
// before the repository is shared.
func (r *MemoryRepository) OnDelete(fn func(ctx context.Context, id int64)) {
	r.onDelete = append(r.onDelete, fn)
}

func (r *MemoryRepository) Delete(ctx context.Context, id int64) error {
	if !r.table.Remove(id) {
		return ErrNotFound
	}
	for _, fn := range r.onDelete {
		fn(ctx, id)
	}
	return nil
}
