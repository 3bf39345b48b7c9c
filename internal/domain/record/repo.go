package record

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ehr/clinic/internal/platform/scope"
)

var ErrNotFound = errors.New("medical record not found")

type Repository interface {
	Create(ctx context.Context, rec *MedicalRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*MedicalRecord, error)
	Update(ctx context.Context, rec *MedicalRecord) error
	List(ctx context.Context, sc scope.Scope, limit, offset int) ([]*MedicalRecord, int, error)

	// ListByPatient returns a patient's records newest first. A non-nil
	// doctorID narrows to records authored by that doctor.
	ListByPatient(ctx context.Context, patientID uuid.UUID, doctorID *uuid.UUID) ([]*MedicalRecord, error)
}
