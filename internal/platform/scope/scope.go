// Package scope computes the visible subset of a resource collection for
// a caller. Every listing and every action-specific check in the domain
// services narrows by scope first, so visibility rules live in exactly
// one place.
package scope

import (
	"github.com/google/uuid"

	"github.com/ehr/clinic/internal/platform/auth"
)

// Scope is a query predicate over a resource collection. Repositories
// translate it into WHERE clauses; in-memory implementations apply
// Allows.
//
// Exactly one of the following holds: All is true, or one of PatientID /
// DoctorID is set. A zero Scope matches nothing.
type Scope struct {
	All       bool
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
}

// Appointments returns the appointment visibility predicate for p:
// admins see all, doctors their own schedule, patients their own
// bookings.
func Appointments(p auth.Principal) Scope {
	switch p.Role {
	case auth.RoleAdmin:
		return Scope{All: true}
	case auth.RoleDoctor:
		id := p.UserID
		return Scope{DoctorID: &id}
	case auth.RolePatient:
		id := p.UserID
		return Scope{PatientID: &id}
	}
	return Scope{}
}

// Records returns the medical-record visibility predicate for p. It
// follows the appointment table exactly.
func Records(p auth.Principal) Scope {
	return Appointments(p)
}

// Profiles returns the patient-profile visibility predicate for p.
// Doctors see profiles of patients who have an appointment with them;
// repositories express the DoctorID arm as an EXISTS over appointments.
func Profiles(p auth.Principal) Scope {
	switch p.Role {
	case auth.RoleAdmin:
		return Scope{All: true}
	case auth.RoleDoctor:
		id := p.UserID
		return Scope{DoctorID: &id}
	case auth.RolePatient:
		id := p.UserID
		return Scope{PatientID: &id}
	}
	return Scope{}
}

// Allows reports whether a resource owned by (patientID, doctorID) falls
// inside the scope.
func (s Scope) Allows(patientID, doctorID uuid.UUID) bool {
	if s.All {
		return true
	}
	if s.PatientID != nil {
		return *s.PatientID == patientID
	}
	if s.DoctorID != nil {
		return *s.DoctorID == doctorID
	}
	return false
}
