package profile

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ehr/clinic/internal/platform/scope"
)

var (
	ErrNotFound = errors.New("patient profile not found")

	// ErrExists is returned when the patient already has a profile.
	ErrExists = errors.New("patient profile already exists")
)

type Repository interface {
	Create(ctx context.Context, p *PatientProfile) error
	GetByID(ctx context.Context, id uuid.UUID) (*PatientProfile, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*PatientProfile, error)
	Update(ctx context.Context, p *PatientProfile) error
	List(ctx context.Context, sc scope.Scope, limit, offset int) ([]*PatientProfile, int, error)

	// HasAppointmentWith reports whether the patient has any
	// appointment with the doctor, which grants the doctor read access
	// to the profile.
	HasAppointmentWith(ctx context.Context, patientID, doctorID uuid.UUID) (bool, error)
}
