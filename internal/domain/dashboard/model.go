// Package dashboard computes the admin aggregates: platform-wide counts,
// the most frequent diagnoses, and the latest activity.
package dashboard

import (
	"github.com/ehr/clinic/internal/domain/appointment"
	"github.com/ehr/clinic/internal/domain/record"
)

// DiagnosisCount is one entry of the top-diagnoses ranking.
type DiagnosisCount struct {
	Diagnosis string `json:"diagnosis"`
	Count     int    `json:"count"`
}

type Stats struct {
	TotalPatients     int              `json:"total_patients"`
	TotalDoctors      int              `json:"total_doctors"`
	TotalAppointments int              `json:"total_appointments"`
	PendingCount      int              `json:"pending_count"`
	CompletedCount    int              `json:"completed_count"`
	TotalRecords      int              `json:"total_records"`
	TopDiagnoses      []DiagnosisCount `json:"top5_diagnoses"`
}

type RecentActivity struct {
	Appointments []*appointment.Appointment `json:"appointments"`
	Records      []*record.MedicalRecord    `json:"records"`
}
