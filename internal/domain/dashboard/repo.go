package dashboard

import (
	"context"

	"github.com/ehr/clinic/internal/domain/appointment"
	"github.com/ehr/clinic/internal/domain/record"
)

// Counts are the raw tallies behind Stats.
type Counts struct {
	Patients     int
	Doctors      int
	Appointments int
	Pending      int
	Completed    int
	Records      int
}

type Repository interface {
	Counts(ctx context.Context) (Counts, error)

	// Diagnoses returns every record's diagnosis text in record
	// creation order. The ranking is computed in the service so the
	// tie-break (first seen wins) is deterministic.
	Diagnoses(ctx context.Context) ([]string, error)

	RecentAppointments(ctx context.Context, n int) ([]*appointment.Appointment, error)
	RecentRecords(ctx context.Context, n int) ([]*record.MedicalRecord, error)
}
