package profile

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/clinic/internal/platform/apperr"
	"github.com/ehr/clinic/internal/platform/auth"
	"github.com/ehr/clinic/internal/platform/scope"
)

type mockRepo struct {
	profiles map[uuid.UUID]*PatientProfile // keyed by profile id
	visits   map[[2]uuid.UUID]bool         // {patient, doctor} pairs with an appointment
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		profiles: map[uuid.UUID]*PatientProfile{},
		visits:   map[[2]uuid.UUID]bool{},
	}
}

func (m *mockRepo) Create(ctx context.Context, p *PatientProfile) error {
	for _, existing := range m.profiles {
		if existing.UserID == p.UserID {
			return ErrExists
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.profiles[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*PatientProfile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*PatientProfile, error) {
	for _, p := range m.profiles {
		if p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Update(ctx context.Context, p *PatientProfile) error {
	if _, ok := m.profiles[p.ID]; !ok {
		return ErrNotFound
	}
	cp := *p
	m.profiles[p.ID] = &cp
	return nil
}

func (m *mockRepo) List(ctx context.Context, sc scope.Scope, limit, offset int) ([]*PatientProfile, int, error) {
	out := []*PatientProfile{}
	for _, p := range m.profiles {
		visible := sc.All ||
			(sc.PatientID != nil && *sc.PatientID == p.UserID) ||
			(sc.DoctorID != nil && m.visits[[2]uuid.UUID{p.UserID, *sc.DoctorID}])
		if visible {
			cp := *p
			out = append(out, &cp)
		}
	}
	total := len(out)
	if offset >= total {
		return []*PatientProfile{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

func (m *mockRepo) HasAppointmentWith(ctx context.Context, patientID, doctorID uuid.UUID) (bool, error) {
	return m.visits[[2]uuid.UUID{patientID, doctorID}], nil
}

type mockDirectory struct {
	roles map[uuid.UUID]auth.Role
}

func (m *mockDirectory) VerifyRole(ctx context.Context, id uuid.UUID, role auth.Role) error {
	if m.roles[id] != role {
		return apperr.NotFound("no %s with id %s", role, id)
	}
	return nil
}

var testNow = time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc     *Service
	repo    *mockRepo
	dir     *mockDirectory
	patient auth.Principal
	doctor  auth.Principal
	admin   auth.Principal
}

func newFixture() *fixture {
	f := &fixture{
		repo:    newMockRepo(),
		patient: auth.Principal{UserID: uuid.New(), Role: auth.RolePatient},
		doctor:  auth.Principal{UserID: uuid.New(), Role: auth.RoleDoctor},
		admin:   auth.Principal{UserID: uuid.New(), Role: auth.RoleAdmin},
	}
	f.dir = &mockDirectory{roles: map[uuid.UUID]auth.Role{
		f.patient.UserID: auth.RolePatient,
		f.doctor.UserID:  auth.RoleDoctor,
		f.admin.UserID:   auth.RoleAdmin,
	}}
	f.svc = NewService(f.repo, f.dir)
	f.svc.now = func() time.Time { return testNow }
	return f
}

func (f *fixture) createProfile(t *testing.T) *PatientProfile {
	t.Helper()
	p, err := f.svc.Create(context.Background(), f.patient, CreateInput{
		DateOfBirth: time.Date(1990, time.August, 20, 0, 0, 0, 0, time.UTC),
		Gender:      "female",
		BloodType:   "O+",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return p
}

func wantCode(t *testing.T, err error, code string) {
	t.Helper()
	ae := apperr.From(err)
	if ae == nil || ae.Code != code {
		t.Errorf("err = %v, want code %s", err, code)
	}
}

func TestCreate(t *testing.T) {
	f := newFixture()
	p := f.createProfile(t)

	if p.UserID != f.patient.UserID {
		t.Errorf("user link not defaulted to actor")
	}
	// Birthday (Aug 20) has not passed yet at the fixed clock (Jun 15).
	if p.Age != 35 {
		t.Errorf("age = %d, want 35", p.Age)
	}
}

func TestCreateOnePerPatient(t *testing.T) {
	f := newFixture()
	f.createProfile(t)

	_, err := f.svc.Create(context.Background(), f.patient, CreateInput{
		DateOfBirth: time.Date(1990, time.August, 20, 0, 0, 0, 0, time.UTC),
	})
	wantCode(t, err, apperr.CodeConflict)
}

func TestCreatePermissions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	dob := time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

	_, err := f.svc.Create(ctx, f.doctor, CreateInput{UserID: f.patient.UserID, DateOfBirth: dob})
	wantCode(t, err, apperr.CodeForbidden)

	_, err = f.svc.Create(ctx, f.patient, CreateInput{UserID: uuid.New(), DateOfBirth: dob})
	wantCode(t, err, apperr.CodeForbidden)

	if _, err := f.svc.Create(ctx, f.admin, CreateInput{UserID: f.patient.UserID, DateOfBirth: dob}); err != nil {
		t.Errorf("admin create: %v", err)
	}

	// linking a profile to a doctor account must fail
	_, err = f.svc.Create(ctx, f.admin, CreateInput{UserID: f.doctor.UserID, DateOfBirth: dob})
	wantCode(t, err, apperr.CodeValidation)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.patient, CreateInput{})
	wantCode(t, err, apperr.CodeValidation)

	_, err = f.svc.Create(ctx, f.patient, CreateInput{DateOfBirth: testNow.AddDate(1, 0, 0)})
	wantCode(t, err, apperr.CodeValidation)
}

func TestGetVisibility(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.createProfile(t)

	if _, err := f.svc.Get(ctx, p.ID, f.patient); err != nil {
		t.Errorf("owner read: %v", err)
	}
	if _, err := f.svc.Get(ctx, p.ID, f.admin); err != nil {
		t.Errorf("admin read: %v", err)
	}

	// doctor without an appointment with the patient
	_, err := f.svc.Get(ctx, p.ID, f.doctor)
	wantCode(t, err, apperr.CodeForbidden)

	// doctor after an appointment exists
	f.repo.visits[[2]uuid.UUID{f.patient.UserID, f.doctor.UserID}] = true
	if _, err := f.svc.Get(ctx, p.ID, f.doctor); err != nil {
		t.Errorf("treating doctor read: %v", err)
	}

	otherPatient := auth.Principal{UserID: uuid.New(), Role: auth.RolePatient}
	_, err = f.svc.Get(ctx, p.ID, otherPatient)
	wantCode(t, err, apperr.CodeForbidden)
}

func TestUpdate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	p := f.createProfile(t)

	allergies := "penicillin"
	got, err := f.svc.Update(ctx, p.ID, f.patient, UpdateInput{Allergies: &allergies})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Allergies != "penicillin" {
		t.Errorf("update not applied: %+v", got)
	}
	if got.UserID != p.UserID {
		t.Errorf("user link changed")
	}

	// a treating doctor can read but not edit
	f.repo.visits[[2]uuid.UUID{f.patient.UserID, f.doctor.UserID}] = true
	_, err = f.svc.Update(ctx, p.ID, f.doctor, UpdateInput{Allergies: &allergies})
	wantCode(t, err, apperr.CodeForbidden)
}

func TestListScoped(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.createProfile(t)

	otherUser := uuid.New()
	f.repo.profiles[uuid.New()] = &PatientProfile{
		ID: uuid.New(), UserID: otherUser,
		DateOfBirth: time.Date(1985, time.March, 2, 0, 0, 0, 0, time.UTC),
	}

	_, total, err := f.svc.List(ctx, f.patient, 20, 0)
	if err != nil || total != 1 {
		t.Errorf("patient list: total = %d, err = %v, want 1", total, err)
	}

	_, total, err = f.svc.List(ctx, f.doctor, 20, 0)
	if err != nil || total != 0 {
		t.Errorf("doctor without visits: total = %d, err = %v, want 0", total, err)
	}
	f.repo.visits[[2]uuid.UUID{f.patient.UserID, f.doctor.UserID}] = true
	_, total, err = f.svc.List(ctx, f.doctor, 20, 0)
	if err != nil || total != 1 {
		t.Errorf("doctor with visit: total = %d, err = %v, want 1", total, err)
	}

	profiles, total, err := f.svc.List(ctx, f.admin, 20, 0)
	if err != nil || total != 2 {
		t.Errorf("admin list: total = %d, err = %v, want 2", total, err)
	}
	for _, p := range profiles {
		if p.Age == 0 {
			t.Errorf("age not derived for %s", p.ID)
		}
	}
}
