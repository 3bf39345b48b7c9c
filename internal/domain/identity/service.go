package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/ehr/clinic/internal/platform/apperr"
	"github.com/ehr/clinic/internal/platform/auth"
)

type Service struct {
	repo   Repository
	hasher *auth.Hasher
}

func NewService(repo Repository, hasher *auth.Hasher) *Service {
	return &Service{repo: repo, hasher: hasher}
}

type RegisterInput struct {
	Email       string            `json:"email"`
	Password    string            `json:"password"`
	Name        string            `json:"name"`
	Role        auth.Role         `json:"role"`
	ContactInfo map[string]string `json:"contact_info"`
}

type UpdateInput struct {
	Name        *string            `json:"name"`
	ContactInfo *map[string]string `json:"contact_info"`
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	email := NormalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.Validation("a valid email is required")
	}
	if in.Name == "" {
		return nil, apperr.Validation("name is required")
	}
	if !in.Role.Valid() {
		return nil, apperr.Validation("role must be patient, doctor, or admin")
	}
	if err := auth.CheckStrength(in.Password); err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Email:        email,
		Name:         in.Name,
		Role:         in.Role,
		ContactInfo:  in.ContactInfo,
		Active:       true,
		PasswordHash: hash,
	}
	if u.ContactInfo == nil {
		u.ContactInfo = map[string]string{}
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, apperr.Conflict("email already registered")
		}
		return nil, err
	}
	return u, nil
}

// Authenticate verifies credentials. Lookup misses and password
// mismatches report the same error so the response does not reveal which
// emails exist.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.Unauthorized("invalid credentials")
		}
		return nil, err
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	if !u.Active {
		return nil, apperr.Unauthorized("account is inactive")
	}
	return u, nil
}

func (s *Service) GetByIDAndRole(ctx context.Context, id uuid.UUID, role auth.Role) (*User, error) {
	u, err := s.repo.GetByIDAndRole(ctx, id, role)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("no %s with id %s", role, id)
		}
		return nil, err
	}
	return u, nil
}

// VerifyRole confirms that id resolves to an active user with the given
// role. The appointment and record services use it to validate
// references.
func (s *Service) VerifyRole(ctx context.Context, id uuid.UUID, role auth.Role) error {
	u, err := s.GetByIDAndRole(ctx, id, role)
	if err != nil {
		return err
	}
	if !u.Active {
		return apperr.Validation("%s account %s is inactive", role, id)
	}
	return nil
}

// Get returns a user profile. Callers may read their own profile; admins
// may read any.
func (s *Service) Get(ctx context.Context, id uuid.UUID, actor auth.Principal) (*User, error) {
	if id != actor.UserID && !actor.IsAdmin() {
		return nil, apperr.Forbidden("you can only view your own profile")
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("user %s not found", id)
		}
		return nil, err
	}
	return u, nil
}

// Update modifies name and contact info. The role and email are
// immutable after creation; there is no endpoint to change them.
func (s *Service) Update(ctx context.Context, id uuid.UUID, actor auth.Principal, in UpdateInput) (*User, error) {
	u, err := s.Get(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		if *in.Name == "" {
			return nil, apperr.Validation("name cannot be empty")
		}
		u.Name = *in.Name
	}
	if in.ContactInfo != nil {
		u.ContactInfo = *in.ContactInfo
		if u.ContactInfo == nil {
			u.ContactInfo = map[string]string{}
		}
	}
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) List(ctx context.Context, actor auth.Principal, limit, offset int) ([]*User, int, error) {
	if !actor.IsAdmin() {
		return nil, 0, apperr.Forbidden("only admins can list users")
	}
	return s.repo.List(ctx, limit, offset)
}
