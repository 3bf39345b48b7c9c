package record

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/clinic/internal/platform/db"
	"github.com/ehr/clinic/internal/platform/scope"
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

const recordCols = `id, patient_id, doctor_id, appointment_id, symptoms, diagnosis, prescription, notes,
	blood_pressure, temperature, weight, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, rec *MedicalRecord) error {
	rec.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medical_records
			(id, patient_id, doctor_id, appointment_id, symptoms, diagnosis, prescription, notes,
			 blood_pressure, temperature, weight)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at`,
		rec.ID, rec.PatientID, rec.DoctorID, rec.AppointmentID, rec.Symptoms, rec.Diagnosis,
		rec.Prescription, rec.Notes, rec.BloodPressure, rec.Temperature, rec.Weight,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*MedicalRecord, error) {
	return scanRecord(r.conn(ctx).QueryRow(ctx,
		`SELECT `+recordCols+` FROM medical_records WHERE id = $1`, id))
}

// Update writes the clinical fields only. The reference triple never
// changes after creation.
func (r *repoPG) Update(ctx context.Context, rec *MedicalRecord) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE medical_records
		SET symptoms=$2, diagnosis=$3, prescription=$4, notes=$5,
		    blood_pressure=$6, temperature=$7, weight=$8, updated_at=NOW()
		WHERE id = $1`,
		rec.ID, rec.Symptoms, rec.Diagnosis, rec.Prescription, rec.Notes,
		rec.BloodPressure, rec.Temperature, rec.Weight,
	)
	return err
}

func (r *repoPG) List(ctx context.Context, sc scope.Scope, limit, offset int) ([]*MedicalRecord, int, error) {
	where := ""
	args := []any{}
	switch {
	case sc.All:
	case sc.PatientID != nil:
		where, args = " WHERE patient_id = $1", []any{*sc.PatientID}
	case sc.DoctorID != nil:
		where, args = " WHERE doctor_id = $1", []any{*sc.DoctorID}
	default:
		where = " WHERE FALSE"
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM medical_records`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM medical_records%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		recordCols, where, n+1, n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	return collectRecords(rows, total)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, doctorID *uuid.UUID) ([]*MedicalRecord, error) {
	query := `SELECT ` + recordCols + ` FROM medical_records WHERE patient_id = $1`
	args := []any{patientID}
	if doctorID != nil {
		query += ` AND doctor_id = $2`
		args = append(args, *doctorID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	recs, _, err := collectRecords(rows, 0)
	return recs, err
}

func collectRecords(rows pgx.Rows, total int) ([]*MedicalRecord, int, error) {
	recs := []*MedicalRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		recs = append(recs, rec)
	}
	return recs, total, rows.Err()
}

func scanRecord(row pgx.Row) (*MedicalRecord, error) {
	var rec MedicalRecord
	err := row.Scan(&rec.ID, &rec.PatientID, &rec.DoctorID, &rec.AppointmentID,
		&rec.Symptoms, &rec.Diagnosis, &rec.Prescription, &rec.Notes,
		&rec.BloodPressure, &rec.Temperature, &rec.Weight, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}
