package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
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

const profileCols = `id, user_id, date_of_birth, gender, blood_type, allergies, medical_history,
	emergency_contact_name, emergency_contact_phone, emergency_contact_relationship,
	created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, p *PatientProfile) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient_profiles
			(id, user_id, date_of_birth, gender, blood_type, allergies, medical_history,
			 emergency_contact_name, emergency_contact_phone, emergency_contact_relationship)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at`,
		p.ID, p.UserID, p.DateOfBirth, p.Gender, p.BloodType, p.Allergies, p.MedicalHistory,
		p.EmergencyContactName, p.EmergencyContactPhone, p.EmergencyContactRelationship,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrExists
		}
		return err
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*PatientProfile, error) {
	return scanProfile(r.conn(ctx).QueryRow(ctx,
		`SELECT `+profileCols+` FROM patient_profiles WHERE id = $1`, id))
}

func (r *repoPG) GetByUserID(ctx context.Context, userID uuid.UUID) (*PatientProfile, error) {
	return scanProfile(r.conn(ctx).QueryRow(ctx,
		`SELECT `+profileCols+` FROM patient_profiles WHERE user_id = $1`, userID))
}

func (r *repoPG) Update(ctx context.Context, p *PatientProfile) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient_profiles
		SET date_of_birth=$2, gender=$3, blood_type=$4, allergies=$5, medical_history=$6,
		    emergency_contact_name=$7, emergency_contact_phone=$8, emergency_contact_relationship=$9,
		    updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.DateOfBirth, p.Gender, p.BloodType, p.Allergies, p.MedicalHistory,
		p.EmergencyContactName, p.EmergencyContactPhone, p.EmergencyContactRelationship,
	)
	return err
}

func (r *repoPG) List(ctx context.Context, sc scope.Scope, limit, offset int) ([]*PatientProfile, int, error) {
	where := ""
	args := []any{}
	switch {
	case sc.All:
	case sc.PatientID != nil:
		where, args = " WHERE user_id = $1", []any{*sc.PatientID}
	case sc.DoctorID != nil:
		// Doctors see profiles of patients who have an appointment
		// with them.
		where = ` WHERE EXISTS (
			SELECT 1 FROM appointments a
			WHERE a.patient_id = patient_profiles.user_id AND a.doctor_id = $1)`
		args = []any{*sc.DoctorID}
	default:
		where = " WHERE FALSE"
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM patient_profiles`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM patient_profiles%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		profileCols, where, n+1, n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	profiles := []*PatientProfile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, 0, err
		}
		profiles = append(profiles, p)
	}
	return profiles, total, rows.Err()
}

func (r *repoPG) HasAppointmentWith(ctx context.Context, patientID, doctorID uuid.UUID) (bool, error) {
	var yes bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM appointments WHERE patient_id = $1 AND doctor_id = $2)`,
		patientID, doctorID).Scan(&yes)
	return yes, err
}

func scanProfile(row pgx.Row) (*PatientProfile, error) {
	var p PatientProfile
	err := row.Scan(&p.ID, &p.UserID, &p.DateOfBirth, &p.Gender, &p.BloodType,
		&p.Allergies, &p.MedicalHistory, &p.EmergencyContactName, &p.EmergencyContactPhone,
		&p.EmergencyContactRelationship, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
