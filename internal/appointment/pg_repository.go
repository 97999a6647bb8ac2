package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Dates and times travel as DD/MM/YYYY and HH24:MI text so the row maps
// straight onto Appointment.
const appointmentColumns = `
	a.id,
	a.patient_id,
	COALESCE(p.name, ''),
	a.psychologist_id,
	COALESCE(ps.name, ''),
	to_char(a.date, 'DD/MM/YYYY'),
	to_char(a.start_time, 'HH24:MI'),
	a.duration_minutes,
	a.appointment_type,
	a.status,
	a.priority,
	a.room_id,
	a.virtual_link,
	a.notes,
	a.reminder_sent,
	a.created_at,
	a.updated_at`

const appointmentFrom = `
	FROM appointments a
	LEFT JOIN patients p ON p.id = a.patient_id
	LEFT JOIN psychologists ps ON ps.id = a.psychologist_id`

// Helpers

func scanPerson(row pgx.Row, notFound error) (*Person, error) {
	var p Person
	if err := row.Scan(&p.ID, &p.Name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound
		}
		return nil, err
	}
	return &p, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.PatientName,
		&a.PsychologistID,
		&a.PsychologistName,
		&a.Date,
		&a.Time,
		&a.Duration,
		&a.Type,
		&a.Status,
		&a.Priority,
		&a.RoomID,
		&a.VirtualLink,
		&a.Notes,
		&a.ReminderSent,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// getByID re-reads a row after a write so joined names are filled.
func getByID(ctx context.Context, q rowQuerier, id string) (*Appointment, error) {
	row := q.QueryRow(ctx, `SELECT `+appointmentColumns+appointmentFrom+` WHERE a.id = $1`, id)
	return scanAppointment(row)
}

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id string) (*Person, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, name FROM patients WHERE id = $1`, id)
	return scanPerson(row, ErrPatientNotFound)
}

func (r *PgRepository) GetPsychologistByID(ctx context.Context, id string) (*Person, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, name FROM psychologists WHERE id = $1`, id)
	return scanPerson(row, ErrPsychologistNotFound)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id string) (*Appointment, error) {
	return getByID(ctx, r.pool, id)
}

func (r *PgRepository) ListByDate(ctx context.Context, day time.Time) ([]Appointment, error) {
	return r.queryAppointments(ctx, `SELECT `+appointmentColumns+appointmentFrom+`
		WHERE a.date = $1::date
		ORDER BY a.start_time, a.id
	`, day)
}

func (r *PgRepository) ListRange(ctx context.Context, from, to time.Time) ([]Appointment, error) {
	return r.queryAppointments(ctx, `SELECT `+appointmentColumns+appointmentFrom+`
		WHERE a.date BETWEEN $1::date AND $2::date
		ORDER BY a.date, a.start_time, a.id
	`, from, to)
}

// ListUpcoming compares wall-clock date and time, which is how they are
// stored, so after must already be in the clinic's zone.
func (r *PgRepository) ListUpcoming(ctx context.Context, after time.Time, limit int) ([]Appointment, error) {
	return r.queryAppointments(ctx, `SELECT `+appointmentColumns+appointmentFrom+`
		WHERE a.status IN ('scheduled', 'confirmed', 'in_progress')
		  AND (a.date > $1::date OR (a.date = $1::date AND a.start_time >= $2::text::time))
		ORDER BY a.date, a.start_time, a.id
		LIMIT $3
	`, after, after.Format("15:04"), limit)
}

func (r *PgRepository) queryAppointments(ctx context.Context, query string, args ...any) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) Statistics(ctx context.Context, p Periods) (*Statistics, error) {
	st := newStatistics()
	err := r.pool.QueryRow(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE date = $1::date),
		       count(*) FILTER (WHERE date > $1::date),
		       count(*) FILTER (WHERE date BETWEEN $2::date AND $3::date),
		       count(*) FILTER (WHERE date BETWEEN $4::date AND $5::date)
		FROM appointments
	`, p.Today, p.WeekStart, p.WeekEnd, p.MonthStart, p.MonthEnd).
		Scan(&st.Total, &st.Today, &st.Upcoming, &st.ThisWeek, &st.ThisMonth)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT status, appointment_type, count(*)
		FROM appointments
		GROUP BY status, appointment_type
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status Status
			typ    Type
			n      int
		)
		if err := rows.Scan(&status, &typ, &n); err != nil {
			return nil, err
		}
		st.ByStatus[status] += n
		st.ByType[typ] += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return st, nil
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO appointments (
			id, patient_id, psychologist_id, date, start_time, duration_minutes,
			appointment_type, status, priority, room_id, virtual_link, notes,
			reminder_sent, created_at, updated_at
		)
		VALUES ($1, $2, $3, to_date($4, 'DD/MM/YYYY'), $5::text::time, $6,
			$7, $8, $9, $10, $11, $12, false, now(), now())
	`, a.ID, a.PatientID, a.PsychologistID, a.Date, a.Time, a.Duration,
		a.Type, a.Status, a.Priority, a.RoomID, a.VirtualLink, a.Notes)
	if err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	created, err := getByID(ctx, tx, a.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id string, from, to Status) (*Appointment, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
	`, id, to, from)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrAppointmentNotFound
	}
	return r.GetAppointmentByID(ctx, id)
}

func (r *PgRepository) RescheduleAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET date = to_date($2, 'DD/MM/YYYY'),
		    start_time = $3::text::time,
		    duration_minutes = $4,
		    room_id = $5,
		    reminder_sent = false,
		    reminder_sent_at = NULL,
		    updated_at = now()
		WHERE id = $1
		  AND status IN ('scheduled', 'confirmed')
	`, a.ID, a.Date, a.Time, a.Duration, a.RoomID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrAppointmentNotFound
	}
	return r.GetAppointmentByID(ctx, a.ID)
}

func (r *PgRepository) MarkReminderSent(ctx context.Context, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET reminder_sent = true,
		    reminder_sent_at = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointment_events (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert appointment event: %w", err)
	}

	return nil
}

func (r *PgRepository) ListEvents(ctx context.Context, appointmentID string) ([]EventLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, event_type, appointment_id, payload, created_at
		FROM appointment_events
		WHERE appointment_id = $1
		ORDER BY created_at DESC, id DESC
	`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []EventLog
	for rows.Next() {
		var ev EventLog
		if err := rows.Scan(&ev.ID, &ev.EventType, &ev.AppointmentID, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, ev)
	}
	return result, rows.Err()
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
