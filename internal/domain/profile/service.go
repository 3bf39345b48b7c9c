package profile

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
	UserID         uuid.UUID `json:"user_id"`
	DateOfBirth    time.Time `json:"date_of_birth"`
	Gender         string    `json:"gender"`
	BloodType      string    `json:"blood_type"`
	Allergies      string    `json:"allergies"`
	MedicalHistory string    `json:"medical_history"`

	EmergencyContactName         string `json:"emergency_contact_name"`
	EmergencyContactPhone        string `json:"emergency_contact_phone"`
	EmergencyContactRelationship string `json:"emergency_contact_relationship"`
}

type UpdateInput struct {
	DateOfBirth    *time.Time `json:"date_of_birth"`
	Gender         *string    `json:"gender"`
	BloodType      *string    `json:"blood_type"`
	Allergies      *string    `json:"allergies"`
	MedicalHistory *string    `json:"medical_history"`

	EmergencyContactName         *string `json:"emergency_contact_name"`
	EmergencyContactPhone        *string `json:"emergency_contact_phone"`
	EmergencyContactRelationship *string `json:"emergency_contact_relationship"`
}

// Create links a profile to a patient user, one per patient. Patients
// create their own; admins may create for any patient.
func (s *Service) Create(ctx context.Context, actor auth.Principal, in CreateInput) (*PatientProfile, error) {
	switch actor.Role {
	case auth.RolePatient:
		if in.UserID != uuid.Nil && in.UserID != actor.UserID {
			return nil, apperr.Forbidden("patients can only create their own profile")
		}
		in.UserID = actor.UserID
	case auth.RoleAdmin:
		if in.UserID == uuid.Nil {
			return nil, apperr.Validation("user_id is required")
		}
	default:
		return nil, apperr.Forbidden("only patients and admins can create profiles")
	}
	if in.DateOfBirth.IsZero() {
		return nil, apperr.Validation("date_of_birth is required")
	}
	if !in.DateOfBirth.Before(s.now()) {
		return nil, apperr.Validation("date_of_birth must be in the past")
	}
	if err := s.dir.VerifyRole(ctx, in.UserID, auth.RolePatient); err != nil {
		if ae := apperr.From(err); ae != nil && ae.Code == apperr.CodeNotFound {
			return nil, apperr.Validation("%s", ae.Message)
		}
		return nil, err
	}

	p := &PatientProfile{
		UserID:                       in.UserID,
		DateOfBirth:                  in.DateOfBirth,
		Gender:                       in.Gender,
		BloodType:                    in.BloodType,
		Allergies:                    in.Allergies,
		MedicalHistory:               in.MedicalHistory,
		EmergencyContactName:         in.EmergencyContactName,
		EmergencyContactPhone:        in.EmergencyContactPhone,
		EmergencyContactRelationship: in.EmergencyContactRelationship,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, ErrExists) {
			return nil, apperr.Conflict("patient already has a profile")
		}
		return nil, err
	}
	p.Age = p.AgeAt(s.now())
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, actor auth.Principal) (*PatientProfile, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("patient profile %s not found", id)
		}
		return nil, err
	}
	if err := s.checkRead(ctx, p, actor); err != nil {
		return nil, err
	}
	p.Age = p.AgeAt(s.now())
	return p, nil
}

// checkRead applies the profile visibility rule: owner, admin, or a
// doctor with at least one appointment with the patient.
func (s *Service) checkRead(ctx context.Context, p *PatientProfile, actor auth.Principal) error {
	sc := scope.Profiles(actor)
	if sc.All || (sc.PatientID != nil && *sc.PatientID == p.UserID) {
		return nil
	}
	if sc.DoctorID != nil {
		seen, err := s.repo.HasAppointmentWith(ctx, p.UserID, *sc.DoctorID)
		if err != nil {
			return err
		}
		if seen {
			return nil
		}
	}
	return apperr.Forbidden("profile is outside your scope")
}

func (s *Service) List(ctx context.Context, actor auth.Principal, limit, offset int) ([]*PatientProfile, int, error) {
	profiles, total, err := s.repo.List(ctx, scope.Profiles(actor), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	now := s.now()
	for _, p := range profiles {
		p.Age = p.AgeAt(now)
	}
	return profiles, total, nil
}

// Update edits profile fields. Only the owning patient or an admin may
// edit; the user link is immutable.
func (s *Service) Update(ctx context.Context, id uuid.UUID, actor auth.Principal, in UpdateInput) (*PatientProfile, error) {
	p, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.UserID != p.UserID {
		return nil, apperr.Forbidden("only the owning patient or an admin may edit a profile")
	}
	if in.DateOfBirth != nil {
		if !in.DateOfBirth.Before(s.now()) {
			return nil, apperr.Validation("date_of_birth must be in the past")
		}
		p.DateOfBirth = *in.DateOfBirth
	}
	if in.Gender != nil {
		p.Gender = *in.Gender
	}
	if in.BloodType != nil {
		p.BloodType = *in.BloodType
	}
	if in.Allergies != nil {
		p.Allergies = *in.Allergies
	}
	if in.MedicalHistory != nil {
		p.MedicalHistory = *in.MedicalHistory
	}
	if in.EmergencyContactName != nil {
		p.EmergencyContactName = *in.EmergencyContactName
	}
	if in.EmergencyContactPhone != nil {
		p.EmergencyContactPhone = *in.EmergencyContactPhone
	}
	if in.EmergencyContactRelationship != nil {
		p.EmergencyContactRelationship = *in.EmergencyContactRelationship
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	p.Age = p.AgeAt(s.now())
	return p, nil
}
