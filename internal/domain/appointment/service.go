package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/clinic/internal/platform/apperr"
	"github.com/ehr/clinic/internal/platform/auth"
	"github.com/ehr/clinic/internal/platform/scope"
)

// Directory resolves user references. Satisfied by the identity service.
type Directory interface {
	VerifyRole(ctx context.Context, id uuid.UUID, role auth.Role) error
}

type Service struct {
	repo Repository
	dir  Directory
	now  func() time.Time
}

func NewService(repo Repository, dir Directory) *Service {
	return &Service{repo: repo, dir: dir, now: time.Now}
}

type CreateInput struct {
	PatientID uuid.UUID `json:"patient_id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	DateTime  time.Time `json:"date_time"`
	Reason    string    `json:"reason"`
	Notes     string    `json:"notes"`
}

// Create books a pending appointment. Patients book for themselves;
// doctors book patients into their own schedule; admins book anyone.
func (s *Service) Create(ctx context.Context, actor auth.Principal, in CreateInput) (*Appointment, error) {
	switch actor.Role {
	case auth.RolePatient:
		if in.PatientID != uuid.Nil && in.PatientID != actor.UserID {
			return nil, apperr.Forbidden("patients can only book for themselves")
		}
		in.PatientID = actor.UserID
	case auth.RoleDoctor:
		if in.DoctorID != uuid.Nil && in.DoctorID != actor.UserID {
			return nil, apperr.Forbidden("doctors can only book into their own schedule")
		}
		in.DoctorID = actor.UserID
	}
	if in.PatientID == uuid.Nil {
		return nil, apperr.Validation("patient_id is required")
	}
	if in.DoctorID == uuid.Nil {
		return nil, apperr.Validation("doctor_id is required")
	}
	if in.DateTime.IsZero() {
		return nil, apperr.Validation("date_time is required")
	}
	if !in.DateTime.After(s.now()) {
		return nil, apperr.Validation("date_time must be in the future")
	}
	if err := s.verifyRef(ctx, in.PatientID, auth.RolePatient); err != nil {
		return nil, err
	}
	if err := s.verifyRef(ctx, in.DoctorID, auth.RoleDoctor); err != nil {
		return nil, err
	}

	a := &Appointment{
		PatientID: in.PatientID,
		DoctorID:  in.DoctorID,
		DateTime:  in.DateTime,
		Status:    StatusPending,
		Reason:    in.Reason,
		Notes:     in.Notes,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		if errors.Is(err, ErrDoubleBooked) {
			return nil, apperr.DoubleBooked("doctor already has an appointment at %s", in.DateTime.Format(time.RFC3339))
		}
		return nil, err
	}
	return a, nil
}

// verifyRef checks a user reference and downgrades a missing user to a
// validation failure: the reference is part of the request body.
func (s *Service) verifyRef(ctx context.Context, id uuid.UUID, role auth.Role) error {
	err := s.dir.VerifyRole(ctx, id, role)
	if ae := apperr.From(err); ae != nil && ae.Code == apperr.CodeNotFound {
		return apperr.Validation("%s", ae.Message)
	}
	return err
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, actor auth.Principal) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("appointment %s not found", id)
		}
		return nil, err
	}
	if !scope.Appointments(actor).Allows(a.PatientID, a.DoctorID) {
		return nil, apperr.Forbidden("appointment is outside your scope")
	}
	return a, nil
}

// Confirm moves pending -> confirmed. Only the assigned doctor may
// confirm.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID, actor auth.Principal) (*Appointment, error) {
	return s.transition(ctx, id, actor, StatusConfirmed, s.assignedDoctorOnly)
}

// Complete moves confirmed -> completed. Only the assigned doctor may
// complete.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, actor auth.Principal) (*Appointment, error) {
	return s.transition(ctx, id, actor, StatusCompleted, s.assignedDoctorOnly)
}

// Cancel moves pending or confirmed -> cancelled. The patient, the
// assigned doctor, or an admin may cancel, and only while the slot is
// still in the future.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actor auth.Principal) (*Appointment, error) {
	return s.transition(ctx, id, actor, StatusCancelled, func(a *Appointment, actor auth.Principal) error {
		if !a.DateTime.After(s.now()) {
			return apperr.InvalidTransition("cannot cancel an appointment that has already started")
		}
		return nil
	})
}

func (s *Service) assignedDoctorOnly(a *Appointment, actor auth.Principal) error {
	if !actor.IsDoctor() || actor.UserID != a.DoctorID {
		return apperr.Forbidden("only the assigned doctor may perform this action")
	}
	return nil
}

// transition runs the fixed check order: scope, action permission,
// state machine, then the conditional update that closes the race
// window.
func (s *Service) transition(ctx context.Context, id uuid.UUID, actor auth.Principal, to Status, permitted func(*Appointment, auth.Principal) error) (*Appointment, error) {
	a, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if err := permitted(a, actor); err != nil {
		return nil, err
	}
	if !CanTransition(a.Status, to) {
		return nil, apperr.InvalidTransition("cannot move appointment from %s to %s", a.Status, to)
	}
	updated, err := s.repo.Transition(ctx, id, to, sources(to))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// A concurrent request won the status change.
			return nil, apperr.InvalidTransition("appointment status changed concurrently")
		}
		return nil, err
	}
	return updated, nil
}

func (s *Service) List(ctx context.Context, actor auth.Principal, f Filter, limit, offset int) ([]*Appointment, int, error) {
	for _, st := range f.Statuses {
		if !st.Valid() {
			return nil, 0, apperr.Validation("unknown status %q", st)
		}
	}
	return s.repo.List(ctx, scope.Appointments(actor), f, limit, offset)
}

// ListUpcoming returns future pending or confirmed appointments within
// the caller's scope, soonest first.
func (s *Service) ListUpcoming(ctx context.Context, actor auth.Principal, limit, offset int) ([]*Appointment, int, error) {
	now := s.now()
	f := Filter{
		Statuses: []Status{StatusPending, StatusConfirmed},
		From:     &now,
	}
	return s.repo.List(ctx, scope.Appointments(actor), f, limit, offset)
}

// ListToday returns pending or confirmed appointments falling on the
// current calendar date within the caller's scope.
func (s *Service) ListToday(ctx context.Context, actor auth.Principal, limit, offset int) ([]*Appointment, int, error) {
	now := s.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 0, 1)
	f := Filter{
		Statuses: []Status{StatusPending, StatusConfirmed},
		From:     &start,
		Until:    &end,
	}
	return s.repo.List(ctx, scope.Appointments(actor), f, limit, offset)
}

// Refs exposes the reference triple of an appointment for integrity
// checks by the medical-record service.
func (s *Service) Refs(ctx context.Context, id uuid.UUID) (patientID, doctorID uuid.UUID, err error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return uuid.Nil, uuid.Nil, apperr.NotFound("appointment %s not found", id)
		}
		return uuid.Nil, uuid.Nil, err
	}
	return a.PatientID, a.DoctorID, nil
}
