// Package profile implements patient profiles, a one-to-one extension
// of a patient user with demographic and clinical background fields.
package profile

import (
	"time"

	"github.com/google/uuid"
)

type PatientProfile struct {
	ID             uuid.UUID `db:"id" json:"id"`
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
	DateOfBirth    time.Time `db:"date_of_birth" json:"date_of_birth"`
	Gender         string    `db:"gender" json:"gender"`
	BloodType      string    `db:"blood_type" json:"blood_type"`
	Allergies      string    `db:"allergies" json:"allergies"`
	MedicalHistory string    `db:"medical_history" json:"medical_history"`

	EmergencyContactName         string `db:"emergency_contact_name" json:"emergency_contact_name"`
	EmergencyContactPhone        string `db:"emergency_contact_phone" json:"emergency_contact_phone"`
	EmergencyContactRelationship string `db:"emergency_contact_relationship" json:"emergency_contact_relationship"`

	// Age is derived from DateOfBirth at read time, never stored.
	Age int `db:"-" json:"age"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AgeAt computes full years elapsed between the date of birth and now.
func (p *PatientProfile) AgeAt(now time.Time) int {
	years := now.Year() - p.DateOfBirth.Year()
	anniversary := p.DateOfBirth.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
