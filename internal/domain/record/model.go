// Package record implements consultation records tied to an
// appointment. The patient/doctor/appointment triple is fixed at
// creation; only the clinical fields can change afterwards.
package record

import (
	"time"

	"github.com/google/uuid"
)

// Vitals are optional point-in-time measurements taken during the
// consultation.
type Vitals struct {
	BloodPressure *string  `db:"blood_pressure" json:"blood_pressure,omitempty"`
	Temperature   *float64 `db:"temperature" json:"temperature,omitempty"`
	Weight        *float64 `db:"weight" json:"weight,omitempty"`
}

type MedicalRecord struct {
	ID            uuid.UUID `db:"id" json:"id"`
	PatientID     uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID      uuid.UUID `db:"doctor_id" json:"doctor_id"`
	AppointmentID uuid.UUID `db:"appointment_id" json:"appointment_id"`
	Symptoms      string    `db:"symptoms" json:"symptoms"`
	Diagnosis     string    `db:"diagnosis" json:"diagnosis"`
	Prescription  string    `db:"prescription" json:"prescription"`
	Notes         string    `db:"notes" json:"notes"`
	Vitals
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
