// Package memstore provides an in-process table of rows keyed by a
// monotonically increasing identifier. Rows are stored by value, so callers
// only ever see copies.
package memstore

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
)

// ErrNoRow is returned when an id is not present in the table.
var ErrNoRow = errors.New("memstore: no row")

type Table[T any] struct {
	mu     sync.RWMutex
	rows   map[int64]T
	nextID int64
}

func NewTable[T any]() *Table[T] {
	return &Table[T]{
		rows:   make(map[int64]T),
		nextID: 1,
	}
}

// Insert assigns the next id and stores the row built by fn.
func (t *Table[T]) Insert(fn func(id int64) T) T {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextID
	t.nextID++
	row := fn(id)
	t.rows[id] = row
	return row
}

// Get returns a copy of the row with the given id.
func (t *Table[T]) Get(id int64) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	row, ok := t.rows[id]
	return row, ok
}

// Update runs fn on the stored row under the write lock and stores its result.
// If fn returns an error the row is left unchanged.
func (t *Table[T]) Update(id int64, fn func(row T) (T, error)) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	row, ok := t.rows[id]
	if !ok {
		var zero T
		return zero, ErrNoRow
	}
	updated, err := fn(row)
	if err != nil {
		return row, err
	}
	t.rows[id] = updated
	return updated, nil
}

// Remove deletes a row and reports whether it existed.
func (t *Table[T]) Remove(id int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	return true
}

// Select returns the rows matching keep, in ascending id order.
func (t *Table[T]) Select(keep func(row T) bool) []T {
	t.mu.RLock()
	ids := make([]int64, 0, len(t.rows))
	for id, row := range t.rows {
		if keep == nil || keep(row) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.rows[id])
	}
	t.mu.RUnlock()
	return out
}

// Any reports whether at least one row matches pred.
func (t *Table[T]) Any(pred func(row T) bool) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, row := range t.rows {
		if pred(row) {
			return true
		}
	}
	return false
}
