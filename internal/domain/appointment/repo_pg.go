package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"

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

const apptCols = `id, patient_id, doctor_id, date_time, status, reason, notes, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (id, patient_id, doctor_id, date_time, status, reason, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		a.ID, a.PatientID, a.DoctorID, a.DateTime, a.Status, a.Reason, a.Notes,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "ux_appointments_doctor_slot" {
			return ErrDoubleBooked
		}
		return err
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointments WHERE id = $1`, id))
}

func (r *repoPG) Transition(ctx context.Context, id uuid.UUID, to Status, from []Status) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx, `
		UPDATE appointments SET status=$2, updated_at=NOW()
		WHERE id = $1 AND status = ANY($3)
		RETURNING `+apptCols,
		id, to, statusStrings(from)))
}

func (r *repoPG) List(ctx context.Context, sc scope.Scope, f Filter, limit, offset int) ([]*Appointment, int, error) {
	where, args := buildWhere(sc, f)

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM appointments`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(
		`SELECT %s FROM appointments%s ORDER BY date_time ASC LIMIT $%d OFFSET $%d`,
		apptCols, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	appts := []*Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		appts = append(appts, a)
	}
	return appts, total, rows.Err()
}

// buildWhere translates the scope predicate and filter into a WHERE
// clause. An empty scope matches nothing.
func buildWhere(sc scope.Scope, f Filter) (string, []any) {
	conds := []string{}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	switch {
	case sc.All:
	case sc.PatientID != nil:
		conds = append(conds, "patient_id = "+arg(*sc.PatientID))
	case sc.DoctorID != nil:
		conds = append(conds, "doctor_id = "+arg(*sc.DoctorID))
	default:
		conds = append(conds, "FALSE")
	}

	if len(f.Statuses) > 0 {
		conds = append(conds, "status = ANY("+arg(statusStrings(f.Statuses))+")")
	}
	if f.From != nil {
		conds = append(conds, "date_time >= "+arg(*f.From))
	}
	if f.Until != nil {
		conds = append(conds, "date_time < "+arg(*f.Until))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.DateTime, &a.Status,
		&a.Reason, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}
