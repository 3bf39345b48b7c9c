package appointment

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/clinic/internal/platform/apperr"
	"github.com/ehr/clinic/internal/platform/auth"
	"github.com/ehr/clinic/internal/platform/scope"
)

type mockRepo struct {
	appts map[uuid.UUID]*Appointment
}

func newMockRepo() *mockRepo {
	return &mockRepo{appts: map[uuid.UUID]*Appointment{}}
}

func (m *mockRepo) Create(ctx context.Context, a *Appointment) error {
	for _, existing := range m.appts {
		if existing.DoctorID == a.DoctorID && existing.DateTime.Equal(a.DateTime) &&
			existing.Status != StatusCancelled {
			return ErrDoubleBooked
		}
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	m.appts[a.ID] = a
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) Transition(ctx context.Context, id uuid.UUID, to Status, from []Status) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	matched := false
	for _, s := range from {
		if a.Status == s {
			matched = true
		}
	}
	if !matched {
		return nil, ErrNotFound
	}
	a.Status = to
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (m *mockRepo) List(ctx context.Context, sc scope.Scope, f Filter, limit, offset int) ([]*Appointment, int, error) {
	out := []*Appointment{}
	for _, a := range m.appts {
		if !sc.Allows(a.PatientID, a.DoctorID) {
			continue
		}
		if len(f.Statuses) > 0 {
			ok := false
			for _, s := range f.Statuses {
				if a.Status == s {
					ok = true
				}
			}
			if !ok {
				continue
			}
		}
		if f.From != nil && a.DateTime.Before(*f.From) {
			continue
		}
		if f.Until != nil && !a.DateTime.Before(*f.Until) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateTime.Before(out[j].DateTime) })
	total := len(out)
	if offset >= total {
		return []*Appointment{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
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

var testNow = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc     *Service
	repo    *mockRepo
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
	dir := &mockDirectory{roles: map[uuid.UUID]auth.Role{
		f.patient.UserID: auth.RolePatient,
		f.doctor.UserID:  auth.RoleDoctor,
		f.admin.UserID:   auth.RoleAdmin,
	}}
	f.svc = NewService(f.repo, dir)
	f.svc.now = func() time.Time { return testNow }
	return f
}

func (f *fixture) book(t *testing.T, at time.Time) *Appointment {
	t.Helper()
	a, err := f.svc.Create(context.Background(), f.patient, CreateInput{
		DoctorID: f.doctor.UserID,
		DateTime: at,
		Reason:   "checkup",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return a
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
	a := f.book(t, testNow.Add(24*time.Hour))

	if a.Status != StatusPending {
		t.Errorf("status = %s, want pending", a.Status)
	}
	if a.PatientID != f.patient.UserID {
		t.Errorf("patient not defaulted to actor")
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	future := testNow.Add(time.Hour)

	_, err := f.svc.Create(ctx, f.patient, CreateInput{DoctorID: f.doctor.UserID, DateTime: testNow.Add(-time.Hour)})
	wantCode(t, err, apperr.CodeValidation)

	_, err = f.svc.Create(ctx, f.patient, CreateInput{DoctorID: f.doctor.UserID, DateTime: testNow})
	wantCode(t, err, apperr.CodeValidation)

	_, err = f.svc.Create(ctx, f.patient, CreateInput{DoctorID: uuid.New(), DateTime: future})
	wantCode(t, err, apperr.CodeValidation)

	// Referencing a patient id as the doctor must fail the role check.
	_, err = f.svc.Create(ctx, f.admin, CreateInput{
		PatientID: f.patient.UserID, DoctorID: f.patient.UserID, DateTime: future,
	})
	wantCode(t, err, apperr.CodeValidation)

	_, err = f.svc.Create(ctx, f.patient, CreateInput{
		PatientID: uuid.New(), DoctorID: f.doctor.UserID, DateTime: future,
	})
	wantCode(t, err, apperr.CodeForbidden)
}

func TestCreateDoubleBooked(t *testing.T) {
	f := newFixture()
	slot := testNow.Add(48 * time.Hour)
	f.book(t, slot)

	_, err := f.svc.Create(context.Background(), f.admin, CreateInput{
		PatientID: f.patient.UserID,
		DoctorID:  f.doctor.UserID,
		DateTime:  slot,
	})
	wantCode(t, err, apperr.CodeDoubleBooked)
}

func TestCreateCancelledSlotReusable(t *testing.T) {
	f := newFixture()
	slot := testNow.Add(48 * time.Hour)
	a := f.book(t, slot)

	if _, err := f.svc.Cancel(context.Background(), a.ID, f.patient); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := f.svc.Create(context.Background(), f.patient, CreateInput{
		DoctorID: f.doctor.UserID, DateTime: slot,
	}); err != nil {
		t.Errorf("rebooking a cancelled slot: %v", err)
	}
}

func TestConfirmAndComplete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.book(t, testNow.Add(time.Hour))

	got, err := f.svc.Confirm(ctx, a.ID, f.doctor)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if got.Status != StatusConfirmed {
		t.Errorf("status = %s, want confirmed", got.Status)
	}

	got, err = f.svc.Complete(ctx, a.ID, f.doctor)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Errorf("status = %s, want completed", got.Status)
	}
}

func TestTransitionPermissions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.book(t, testNow.Add(time.Hour))

	// Neither the patient nor an admin is the assigned doctor.
	_, err := f.svc.Confirm(ctx, a.ID, f.patient)
	wantCode(t, err, apperr.CodeForbidden)
	_, err = f.svc.Confirm(ctx, a.ID, f.admin)
	wantCode(t, err, apperr.CodeForbidden)

	// Another doctor is outside scope entirely.
	stranger := auth.Principal{UserID: uuid.New(), Role: auth.RoleDoctor}
	_, err = f.svc.Confirm(ctx, a.ID, stranger)
	wantCode(t, err, apperr.CodeForbidden)

	_, err = f.svc.Complete(ctx, a.ID, f.patient)
	wantCode(t, err, apperr.CodeForbidden)
}

func TestIllegalTransitions(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// complete requires confirmed
	a := f.book(t, testNow.Add(time.Hour))
	_, err := f.svc.Complete(ctx, a.ID, f.doctor)
	wantCode(t, err, apperr.CodeInvalidTransition)

	// confirm is not idempotent
	if _, err := f.svc.Confirm(ctx, a.ID, f.doctor); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	_, err = f.svc.Confirm(ctx, a.ID, f.doctor)
	wantCode(t, err, apperr.CodeInvalidTransition)

	// terminal states stay terminal
	if _, err := f.svc.Complete(ctx, a.ID, f.doctor); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	_, err = f.svc.Cancel(ctx, a.ID, f.admin)
	wantCode(t, err, apperr.CodeInvalidTransition)
	_, err = f.svc.Confirm(ctx, a.ID, f.doctor)
	wantCode(t, err, apperr.CodeInvalidTransition)
}

func TestCancel(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for _, actor := range []auth.Principal{f.patient, f.doctor, f.admin} {
		a := f.book(t, testNow.Add(time.Duration(1+len(f.repo.appts))*time.Hour))
		got, err := f.svc.Cancel(ctx, a.ID, actor)
		if err != nil {
			t.Fatalf("Cancel as %s: %v", actor.Role, err)
		}
		if got.Status != StatusCancelled {
			t.Errorf("status = %s, want cancelled", got.Status)
		}
	}
}

func TestCancelPastAppointment(t *testing.T) {
	f := newFixture()
	a := f.book(t, testNow.Add(time.Hour))

	// The slot time arrives before anyone cancels.
	f.svc.now = func() time.Time { return testNow.Add(2 * time.Hour) }
	_, err := f.svc.Cancel(context.Background(), a.ID, f.patient)
	wantCode(t, err, apperr.CodeInvalidTransition)
}

func TestGetScoped(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a := f.book(t, testNow.Add(time.Hour))

	for _, actor := range []auth.Principal{f.patient, f.doctor, f.admin} {
		if _, err := f.svc.Get(ctx, a.ID, actor); err != nil {
			t.Errorf("Get as %s: %v", actor.Role, err)
		}
	}

	other := auth.Principal{UserID: uuid.New(), Role: auth.RolePatient}
	_, err := f.svc.Get(ctx, a.ID, other)
	wantCode(t, err, apperr.CodeForbidden)

	_, err = f.svc.Get(ctx, uuid.New(), f.admin)
	wantCode(t, err, apperr.CodeNotFound)
}

func TestListUpcoming(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	past := &Appointment{PatientID: f.patient.UserID, DoctorID: f.doctor.UserID,
		DateTime: testNow.Add(-time.Hour), Status: StatusConfirmed}
	f.repo.appts[uuid.New()] = past

	later := f.book(t, testNow.Add(48*time.Hour))
	soon := f.book(t, testNow.Add(2*time.Hour))
	cancelled := f.book(t, testNow.Add(3*time.Hour))
	if _, err := f.svc.Cancel(ctx, cancelled.ID, f.patient); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	got, total, err := f.svc.ListUpcoming(ctx, f.patient, 20, 0)
	if err != nil {
		t.Fatalf("ListUpcoming: %v", err)
	}
	if total != 2 || len(got) != 2 {
		t.Fatalf("total = %d, len = %d, want 2", total, len(got))
	}
	if got[0].ID != soon.ID || got[1].ID != later.ID {
		t.Errorf("expected ascending date_time order")
	}
}

func TestListToday(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	today := f.book(t, testNow.Add(5*time.Hour)) // same calendar day
	f.book(t, testNow.Add(30*time.Hour))         // tomorrow

	got, total, err := f.svc.ListToday(ctx, f.doctor, 20, 0)
	if err != nil {
		t.Fatalf("ListToday: %v", err)
	}
	if total != 1 || len(got) != 1 || got[0].ID != today.ID {
		t.Errorf("got %d appointments, want only today's", total)
	}
}

func TestListScopedByRole(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.book(t, testNow.Add(time.Hour))

	other := &Appointment{PatientID: uuid.New(), DoctorID: uuid.New(),
		DateTime: testNow.Add(time.Hour), Status: StatusPending}
	f.repo.appts[uuid.New()] = other

	_, total, err := f.svc.List(ctx, f.patient, Filter{}, 20, 0)
	if err != nil || total != 1 {
		t.Errorf("patient list: total = %d, err = %v, want 1", total, err)
	}
	_, total, err = f.svc.List(ctx, f.doctor, Filter{}, 20, 0)
	if err != nil || total != 1 {
		t.Errorf("doctor list: total = %d, err = %v, want 1", total, err)
	}
	_, total, err = f.svc.List(ctx, f.admin, Filter{}, 20, 0)
	if err != nil || total != 2 {
		t.Errorf("admin list: total = %d, err = %v, want 2", total, err)
	}

	_, _, err = f.svc.List(ctx, f.admin, Filter{Statuses: []Status{"nonsense"}}, 20, 0)
	wantCode(t, err, apperr.CodeValidation)
}

func TestStateMachineTable(t *testing.T) {
	legal := map[[2]Status]bool{
		{StatusPending, StatusConfirmed}:   true,
		{StatusPending, StatusCancelled}:   true,
		{StatusConfirmed, StatusCompleted}: true,
		{StatusConfirmed, StatusCancelled}: true,
	}
	all := []Status{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled}
	for _, from := range all {
		for _, to := range all {
			want := legal[[2]Status{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}
