package booking

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/nekogravitycat/shareit-backend/internal/pkg/apperror"
)

var (
	ErrNotFound = apperror.New(apperror.KindNotFound, "booking not found")

	// ErrStatusConflict is returned by Repository.UpdateStatus when the stored
	// status no longer matches the expected one.
	ErrStatusConflict = errors.New("booking status changed concurrently")
)

type Status string

const (
	StatusWaiting  Status = "WAITING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// transitions lists the statuses reachable from each status.
// Decided bookings have no entry and are therefore final.
var transitions = map[Status][]Status{
	StatusWaiting: {StatusApproved, StatusRejected},
}

func (s Status) IsValid() bool {
	switch s {
	case StatusWaiting, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// CanTransitionTo reports whether a booking in status s may move to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Decision maps an owner's answer to the resulting status.
func Decision(approve bool) Status {
	if approve {
		return StatusApproved
	}
	return StatusRejected
}

type Booking struct {
	ID          int64
	ItemID      int64
	ItemName    string
	ItemOwnerID int64
	BookerID    int64
	BookerName  string
	Start       time.Time
	End         time.Time
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
