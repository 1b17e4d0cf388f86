package user

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/nekogravitycat/shareit-backend/internal/pkg/apperror"
)

var (
	ErrNotFound         = apperror.New(apperror.KindNotFound, "user not found")
	ErrEmailAlreadyUsed = apperror.New(apperror.KindConflict, "email already used")
	ErrEmailRequired    = apperror.New(apperror.KindValidation, "email is required")
	ErrNameRequired     = apperror.New(apperror.KindValidation, "name is required")

	// ErrInvalidCredentials is reported as 401 by the transport and never carries detail.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// User represents a user in the system.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// UpdateRequest holds the optional fields of a partial update.
type UpdateRequest struct {
	Name  *string
	Email *string
}
