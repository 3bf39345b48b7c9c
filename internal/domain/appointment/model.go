// Package appointment implements the scheduling engine: a booking per
// (doctor, slot) with a strict status lifecycle and store-level
// double-booking protection.
package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an appointment. Transitions are
// confined to the transitions table; completed and cancelled are
// terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is permitted from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether from -> to is a legal lifecycle step.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// sources returns the statuses from which to is reachable, used to
// build the conditional UPDATE that commits a transition.
func sources(to Status) []Status {
	var from []Status
	for s, nexts := range transitions {
		for _, next := range nexts {
			if next == to {
				from = append(from, s)
			}
		}
	}
	return from
}

type Appointment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	DateTime  time.Time `db:"date_time" json:"date_time"`
	Status    Status    `db:"status" json:"status"`
	Reason    string    `db:"reason" json:"reason"`
	Notes     string    `db:"notes" json:"notes"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
