package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/clinic/internal/platform/auth"
)

// User maps to the users table. The email is the sole username field;
// the role is fixed at creation.
type User struct {
	ID           uuid.UUID         `db:"id" json:"id"`
	Email        string            `db:"email" json:"email"`
	Name         string            `db:"name" json:"name"`
	Role         auth.Role         `db:"role" json:"role"`
	ContactInfo  map[string]string `db:"contact_info" json:"contact_info"`
	Active       bool              `db:"active" json:"active"`
	PasswordHash string            `db:"password_hash" json:"-"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time         `db:"updated_at" json:"updated_at"`
}

func (u *User) Principal() auth.Principal {
	return auth.Principal{UserID: u.ID, Role: u.Role}
}

// NormalizeEmail case-folds the domain part of an email address before
// the uniqueness check. The local part is preserved as given.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at+1] + strings.ToLower(email[at+1:])
}
