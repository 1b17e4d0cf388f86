package booking

import (
	"sort"
	"strings"
	"time"

	"github.com/nekogravitycat/shareit-backend/internal/pkg/apperror"
)

// State is the query-side classification of bookings. It mixes a time
// window relative to now with a persisted status filter.
type State string

const (
	StateAll      State = "ALL"
	StateCurrent  State = "CURRENT"
	StatePast     State = "PAST"
	StateFuture   State = "FUTURE"
	StateWaiting  State = "WAITING"
	StateRejected State = "REJECTED"
	StateApproved State = "APPROVED"
)

// Audience is the party a listing is produced for.
type Audience int

const (
	AudienceRenter Audience = iota
	AudienceOwner
)

type Scope int

const (
	ScopeBooker Scope = iota
	ScopeOwner
	ScopeItem
)

type Window int

const (
	WindowAny Window = iota
	WindowCurrent
	WindowPast
	WindowFuture
)

type Order int

const (
	OrderStartDesc Order = iota
	OrderEndDesc
	OrderStartAsc
)

// Query is the single shape the store answers. An empty Status means any status.
// Limit <= 0 means no limit.
type Query struct {
	Scope     Scope
	SubjectID int64
	Window    Window
	Status    Status
	Now       time.Time
	Order     Order
	Limit     int
}

type stateFilter struct {
	window    Window
	status    Status
	ownerOnly bool
}

var stateFilters = map[State]stateFilter{
	StateAll:      {window: WindowAny},
	StateCurrent:  {window: WindowCurrent},
	StatePast:     {window: WindowPast, status: StatusApproved},
	StateFuture:   {window: WindowFuture},
	StateWaiting:  {window: WindowAny, status: StatusWaiting},
	StateRejected: {window: WindowAny, status: StatusRejected},
	StateApproved: {window: WindowAny, status: StatusApproved, ownerOnly: true},
}

// ParseState resolves a raw state parameter for the given audience.
// An empty value means ALL.
func ParseState(raw string, audience Audience) (State, error) {
	if strings.TrimSpace(raw) == "" {
		return StateAll, nil
	}
	s := State(strings.ToUpper(strings.TrimSpace(raw)))
	f, ok := stateFilters[s]
	if !ok || (f.ownerOnly && audience != AudienceOwner) {
		return "", apperror.Newf(apperror.KindValidation, "Unknown state: %s", raw)
	}
	return s, nil
}

// Query builds the store query for listing bookings of subjectID in state s.
func (s State) Query(scope Scope, subjectID int64, now time.Time) Query {
	f := stateFilters[s]
	return Query{
		Scope:     scope,
		SubjectID: subjectID,
		Window:    f.window,
		Status:    f.status,
		Now:       now,
		Order:     OrderStartDesc,
	}
}

// Matches evaluates q against a single booking.
func (q Query) Matches(b *Booking) bool {
	switch q.Scope {
	case ScopeBooker:
		if b.BookerID != q.SubjectID {
			return false
		}
	case ScopeOwner:
		if b.ItemOwnerID != q.SubjectID {
			return false
		}
	case ScopeItem:
		if b.ItemID != q.SubjectID {
			return false
		}
	}

	if q.Status != "" && b.Status != q.Status {
		return false
	}

	switch q.Window {
	case WindowCurrent:
		return !b.Start.After(q.Now) && q.Now.Before(b.End)
	case WindowPast:
		return b.End.Before(q.Now)
	case WindowFuture:
		return b.Start.After(q.Now)
	}
	return true
}

// Sort orders bookings in place according to q.Order, breaking ties by id descending.
func (q Query) Sort(bookings []*Booking) {
	sort.SliceStable(bookings, func(i, j int) bool {
		a, b := bookings[i], bookings[j]
		switch q.Order {
		case OrderEndDesc:
			if !a.End.Equal(b.End) {
				return a.End.After(b.End)
			}
		case OrderStartAsc:
			if !a.Start.Equal(b.Start) {
				return a.Start.Before(b.Start)
			}
			return a.ID < b.ID
		default:
			if !a.Start.Equal(b.Start) {
				return a.Start.After(b.Start)
			}
		}
		return a.ID > b.ID
	})
}
