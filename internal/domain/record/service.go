package record

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ehr/clinic/internal/platform/apperr"
	"github.com/ehr/clinic/internal/platform/auth"
	"github.com/ehr/clinic/internal/platform/scope"
)

// Directory resolves user references. Satisfied by the identity service.
type Directory interface {
	VerifyRole(ctx context.Context, id uuid.UUID, role auth.Role) error
}

// AppointmentSource exposes the reference triple of an appointment.
// Satisfied by the appointment service.
type AppointmentSource interface {
	Refs(ctx context.Context, id uuid.UUID) (patientID, doctorID uuid.UUID, err error)
}

// TxRunner runs fn inside a storage transaction. Repository calls made
// with the ctx passed to fn join that transaction.
type TxRunner func(ctx context.Context, fn func(context.Context) error) error

type Service struct {
	repo  Repository
	dir   Directory
	appts AppointmentSource
	tx    TxRunner
}

func NewService(repo Repository, dir Directory, appts AppointmentSource, tx TxRunner) *Service {
	return &Service{repo: repo, dir: dir, appts: appts, tx: tx}
}

type CreateInput struct {
	PatientID     uuid.UUID `json:"patient_id"`
	DoctorID      uuid.UUID `json:"doctor_id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	Symptoms      string    `json:"symptoms"`
	Diagnosis     string    `json:"diagnosis"`
	Prescription  string    `json:"prescription"`
	Notes         string    `json:"notes"`
	Vitals
}

type UpdateInput struct {
	Symptoms      *string  `json:"symptoms"`
	Diagnosis     *string  `json:"diagnosis"`
	Prescription  *string  `json:"prescription"`
	Notes         *string  `json:"notes"`
	BloodPressure *string  `json:"blood_pressure"`
	Temperature   *float64 `json:"temperature"`
	Weight        *float64 `json:"weight"`
}

// Create files a consultation record. Doctors file records for their own
// consultations; admins may file for any doctor. The referenced
// appointment must carry exactly the supplied patient and doctor, and
// the check runs in the same transaction as the insert.
func (s *Service) Create(ctx context.Context, actor auth.Principal, in CreateInput) (*MedicalRecord, error) {
	switch actor.Role {
	case auth.RoleDoctor:
		if in.DoctorID != uuid.Nil && in.DoctorID != actor.UserID {
			return nil, apperr.Forbidden("doctors can only file records for their own consultations")
		}
		in.DoctorID = actor.UserID
	case auth.RoleAdmin:
	default:
		return nil, apperr.Forbidden("only doctors and admins can create medical records")
	}
	if in.PatientID == uuid.Nil {
		return nil, apperr.Validation("patient_id is required")
	}
	if in.DoctorID == uuid.Nil {
		return nil, apperr.Validation("doctor_id is required")
	}
	if in.AppointmentID == uuid.Nil {
		return nil, apperr.Validation("appointment_id is required")
	}
	if in.Symptoms == "" {
		return nil, apperr.Validation("symptoms is required")
	}
	if in.Diagnosis == "" {
		return nil, apperr.Validation("diagnosis is required")
	}
	if err := s.verifyRef(ctx, in.PatientID, auth.RolePatient); err != nil {
		return nil, err
	}
	if err := s.verifyRef(ctx, in.DoctorID, auth.RoleDoctor); err != nil {
		return nil, err
	}

	rec := &MedicalRecord{
		PatientID:     in.PatientID,
		DoctorID:      in.DoctorID,
		AppointmentID: in.AppointmentID,
		Symptoms:      in.Symptoms,
		Diagnosis:     in.Diagnosis,
		Prescription:  in.Prescription,
		Notes:         in.Notes,
		Vitals:        in.Vitals,
	}
	err := s.tx(ctx, func(ctx context.Context) error {
		patientID, doctorID, err := s.appts.Refs(ctx, in.AppointmentID)
		if err != nil {
			if ae := apperr.From(err); ae != nil && ae.Code == apperr.CodeNotFound {
				return apperr.Validation("appointment %s not found", in.AppointmentID)
			}
			return err
		}
		if patientID != in.PatientID || doctorID != in.DoctorID {
			return apperr.Validation("appointment %s belongs to a different patient/doctor pair", in.AppointmentID)
		}
		return s.repo.Create(ctx, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) verifyRef(ctx context.Context, id uuid.UUID, role auth.Role) error {
	err := s.dir.VerifyRole(ctx, id, role)
	if ae := apperr.From(err); ae != nil && ae.Code == apperr.CodeNotFound {
		return apperr.Validation("%s", ae.Message)
	}
	return err
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, actor auth.Principal) (*MedicalRecord, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("medical record %s not found", id)
		}
		return nil, err
	}
	if !scope.Records(actor).Allows(rec.PatientID, rec.DoctorID) {
		return nil, apperr.Forbidden("medical record is outside your scope")
	}
	return rec, nil
}

func (s *Service) List(ctx context.Context, actor auth.Principal, limit, offset int) ([]*MedicalRecord, int, error) {
	return s.repo.List(ctx, scope.Records(actor), limit, offset)
}

// PatientHistory returns a patient's records for the requester: the
// patient sees all of their own, a doctor sees only the records from
// their consultations with that patient, an admin sees everything.
func (s *Service) PatientHistory(ctx context.Context, actor auth.Principal, patientID uuid.UUID) ([]*MedicalRecord, error) {
	switch actor.Role {
	case auth.RolePatient:
		if patientID != actor.UserID {
			return nil, apperr.Forbidden("patients can only view their own history")
		}
		return s.repo.ListByPatient(ctx, patientID, nil)
	case auth.RoleDoctor:
		id := actor.UserID
		return s.repo.ListByPatient(ctx, patientID, &id)
	case auth.RoleAdmin:
		return s.repo.ListByPatient(ctx, patientID, nil)
	}
	return nil, apperr.Forbidden("history is not available for this role")
}

// Update edits the clinical fields of a record. Only the authoring
// doctor or an admin may edit; the patient/doctor/appointment triple is
// immutable.
func (s *Service) Update(ctx context.Context, id uuid.UUID, actor auth.Principal, in UpdateInput) (*MedicalRecord, error) {
	rec, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !(actor.IsDoctor() && actor.UserID == rec.DoctorID) {
		return nil, apperr.Forbidden("only the authoring doctor or an admin may edit a record")
	}
	if in.Symptoms != nil {
		if *in.Symptoms == "" {
			return nil, apperr.Validation("symptoms cannot be empty")
		}
		rec.Symptoms = *in.Symptoms
	}
	if in.Diagnosis != nil {
		if *in.Diagnosis == "" {
			return nil, apperr.Validation("diagnosis cannot be empty")
		}
		rec.Diagnosis = *in.Diagnosis
	}
	if in.Prescription != nil {
		rec.Prescription = *in.Prescription
	}
	if in.Notes != nil {
		rec.Notes = *in.Notes
	}
	if in.BloodPressure != nil {
		rec.BloodPressure = in.BloodPressure
	}
	if in.Temperature != nil {
		rec.Temperature = in.Temperature
	}
	if in.Weight != nil {
		rec.Weight = in.Weight
	}
	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}
