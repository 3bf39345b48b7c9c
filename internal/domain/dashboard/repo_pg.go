package dashboard

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/clinic/internal/domain/appointment"
	"github.com/ehr/clinic/internal/domain/record"
	"github.com/ehr/clinic/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *repoPG) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users WHERE role = 'patient'),
			(SELECT COUNT(*) FROM users WHERE role = 'doctor'),
			(SELECT COUNT(*) FROM appointments),
			(SELECT COUNT(*) FROM appointments WHERE status = 'pending'),
			(SELECT COUNT(*) FROM appointments WHERE status = 'completed'),
			(SELECT COUNT(*) FROM medical_records)`,
	).Scan(&c.Patients, &c.Doctors, &c.Appointments, &c.Pending, &c.Completed, &c.Records)
	return c, err
}

func (r *repoPG) Diagnoses(ctx context.Context) ([]string, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT diagnosis FROM medical_records ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *repoPG) RecentAppointments(ctx context.Context, n int) ([]*appointment.Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, doctor_id, date_time, status, reason, notes, created_at, updated_at
		FROM appointments ORDER BY created_at DESC LIMIT $1`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	appts := []*appointment.Appointment{}
	for rows.Next() {
		var a appointment.Appointment
		if err := rows.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.DateTime, &a.Status,
			&a.Reason, &a.Notes, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		appts = append(appts, &a)
	}
	return appts, rows.Err()
}

func (r *repoPG) RecentRecords(ctx context.Context, n int) ([]*record.MedicalRecord, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, doctor_id, appointment_id, symptoms, diagnosis, prescription, notes,
			blood_pressure, temperature, weight, created_at, updated_at
		FROM medical_records ORDER BY created_at DESC LIMIT $1`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recs := []*record.MedicalRecord{}
	for rows.Next() {
		var rec record.MedicalRecord
		if err := rows.Scan(&rec.ID, &rec.PatientID, &rec.DoctorID, &rec.AppointmentID,
			&rec.Symptoms, &rec.Diagnosis, &rec.Prescription, &rec.Notes,
			&rec.BloodPressure, &rec.Temperature, &rec.Weight, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}
