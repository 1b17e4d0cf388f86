package item

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/nekogravitycat/shareit-backend/internal/pkg/clock"
	"github.com/nekogravitycat/shareit-backend/internal/pkg/memstore"
)

// MemoryRepository keeps items and comments in process.
type MemoryRepository struct {
	items    *memstore.Table[Item]
	comments *memstore.Table[Comment]
	clock    clock.Clock
	onDelete []func(ctx context.Context, id int64)
	authors  AuthorResolver
}

// AuthorResolver returns the current name of a comment author.
type AuthorResolver func(ctx context.Context, userID int64) (string, bool)

func NewMemoryRepository(clk clock.Clock) *MemoryRepository {
	return &MemoryRepository{
		items:    memstore.NewTable[Item](),
		comments: memstore.NewTable[Comment](),
		clock:    clk,
	}
}

func window(rows []Item, limit, offset int) []*Item {
	if offset >= len(rows) {
		return nil
	}
	rows = rows[offset:]
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]*Item, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out
}

func (r *MemoryRepository) Create(_ context.Context, it *Item) error {
	now := r.clock.Now()
	stored := r.items.Insert(func(id int64) Item {
		row := *it
		row.ID = id
		row.CreatedAt = now
		return row
	})
	it.ID = stored.ID
	it.CreatedAt = stored.CreatedAt
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id int64) (*Item, error) {
	row, ok := r.items.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &row, nil
}

func (r *MemoryRepository) Update(_ context.Context, it *Item) error {
	_, err := r.items.Update(it.ID, func(row Item) (Item, error) {
		row.Name = it.Name
		row.Description = it.Description
		row.Available = it.Available
		return row, nil
	})
	if errors.Is(err, memstore.ErrNoRow) {
		return ErrNotFound
	}
	return err
}

// SetAuthorResolver must be called before the repository is shared.
func (r *MemoryRepository) SetAuthorResolver(fn AuthorResolver) {
	r.authors = fn
}

// OnDelete registers fn to run after an item is removed, directly or through
// DeleteByOwner. It must be called before the repository is shared.
func (r *MemoryRepository) OnDelete(fn func(ctx context.Context, id int64)) {
	r.onDelete = append(r.onDelete, fn)
}

func (r *MemoryRepository) Delete(ctx context.Context, id int64) error {
	if !r.remove(ctx, id) {
		return ErrNotFound
	}
	return nil
}

// DeleteByOwner removes every item of the owner along with its comments.
func (r *MemoryRepository) DeleteByOwner(ctx context.Context, ownerID int64) {
	for _, it := range r.items.Select(func(it Item) bool { return it.OwnerID == ownerID }) {
		r.remove(ctx, it.ID)
	}
}

// DeleteCommentsByAuthor removes every comment written by the user.
func (r *MemoryRepository) DeleteCommentsByAuthor(_ context.Context, authorID int64) {
	for _, c := range r.comments.Select(func(c Comment) bool { return c.AuthorID == authorID }) {
		r.comments.Remove(c.ID)
	}
}

func (r *MemoryRepository) remove(ctx context.Context, id int64) bool {
	if !r.items.Remove(id) {
		return false
	}
	for _, c := range r.comments.Select(func(c Comment) bool { return c.ItemID == id }) {
		r.comments.Remove(c.ID)
	}
	for _, fn := range r.onDelete {
		fn(ctx, id)
	}
	return true
}

func (r *MemoryRepository) ListByOwner(_ context.Context, ownerID int64, limit, offset int) ([]*Item, error) {
	rows := r.items.Select(func(it Item) bool { return it.OwnerID == ownerID })
	return window(rows, limit, offset), nil
}

func (r *MemoryRepository) Search(_ context.Context, text string, limit, offset int) ([]*Item, error) {
	needle := strings.ToLower(text)
	rows := r.items.Select(func(it Item) bool {
		return it.Available &&
			(strings.Contains(strings.ToLower(it.Name), needle) ||
				strings.Contains(strings.ToLower(it.Description), needle))
	})
	return window(rows, limit, offset), nil
}

func (r *MemoryRepository) ExistsByOwner(_ context.Context, ownerID int64) (bool, error) {
	return r.items.Any(func(it Item) bool { return it.OwnerID == ownerID }), nil
}

func (r *MemoryRepository) CreateComment(_ context.Context, c *Comment) error {
	now := r.clock.Now()
	stored := r.comments.Insert(func(id int64) Comment {
		row := *c
		row.ID = id
		row.CreatedAt = now
		return row
	})
	c.ID = stored.ID
	c.CreatedAt = stored.CreatedAt
	return nil
}

func (r *MemoryRepository) ListComments(ctx context.Context, itemID int64) ([]*Comment, error) {
	rows := r.comments.Select(func(c Comment) bool { return c.ItemID == itemID })
	out := make([]*Comment, len(rows))
	for i := range rows {
		if r.authors != nil {
			if name, ok := r.authors(ctx, rows[i].AuthorID); ok {
				rows[i].AuthorName = name
			}
		}
		out[i] = &rows[i]
	}
	return out, nil
}
