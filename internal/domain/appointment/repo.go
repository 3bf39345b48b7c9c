package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/clinic/internal/platform/scope"
)

var (
	ErrNotFound = errors.New("appointment not found")

	// ErrDoubleBooked is returned when the doctor already has a
	// non-cancelled appointment at the requested time.
	ErrDoubleBooked = errors.New("doctor already booked at this time")
)

// Filter narrows a listing beyond the caller's scope. Nil fields match
// everything.
type Filter struct {
	Statuses []Status
	From     *time.Time // date_time >= From
	Until    *time.Time // date_time < Until
}

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// Transition commits from one of the given source statuses to the
	// target in a single conditional update and returns the updated
	// row. ErrNotFound means no row matched: either the id does not
	// exist or a concurrent request moved the status first.
	Transition(ctx context.Context, id uuid.UUID, to Status, from []Status) (*Appointment, error)

	List(ctx context.Context, sc scope.Scope, f Filter, limit, offset int) ([]*Appointment, int, error)
}
