package agenda

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

const taskColumns = `
	id,
	description,
	task_type,
	priority,
	COALESCE(to_char(due_time, 'HH24:MI'), ''),
	completed,
	assigned_to,
	related_patient,
	estimated_minutes`

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	err := row.Scan(
		&t.ID,
		&t.Description,
		&t.Type,
		&t.Priority,
		&t.DueTime,
		&t.Completed,
		&t.AssignedTo,
		&t.RelatedPatient,
		&t.EstimatedDuration,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *PgStore) TasksForDate(ctx context.Context, day time.Time) ([]Task, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+taskColumns+`
		FROM agenda_tasks
		WHERE day = $1::date
		ORDER BY due_time NULLS LAST, id
	`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	return result, rows.Err()
}

func (s *PgStore) CreateTask(ctx context.Context, day time.Time, t Task) (*Task, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO agenda_tasks (
			id, day, description, task_type, priority, due_time, completed,
			assigned_to, related_patient, estimated_minutes
		)
		VALUES ($1, $2::date, $3, $4, $5, NULLIF($6, '')::time, $7, $8, $9, $10)
		RETURNING `+taskColumns,
		t.ID, day, t.Description, t.Type, t.Priority, t.DueTime, t.Completed,
		t.AssignedTo, t.RelatedPatient, t.EstimatedDuration)

	created, err := scanTask(row)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return created, nil
}

func (s *PgStore) CompleteTask(ctx context.Context, id string) (*Task, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE agenda_tasks
		SET completed = true,
		    completed_at = COALESCE(completed_at, now())
		WHERE id = $1
		RETURNING `+taskColumns, id)
	return scanTask(row)
}

func (s *PgStore) StoredAlerts(ctx context.Context, day time.Time) ([]Alert, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, alert_type, message, severity, raised_at, action_required,
		       related_appointment, suggestions
		FROM agenda_alerts
		WHERE day = $1::date
		ORDER BY raised_at, id
	`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Alert
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.ID, &a.Type, &a.Message, &a.Severity, &a.Timestamp,
			&a.ActionRequired, &a.RelatedAppointment, &a.Suggestions); err != nil {
			return nil, err
		}
		if a.RelatedAppointment != "" {
			a.Appointments = []string{a.RelatedAppointment}
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (s *PgStore) InsertAlert(ctx context.Context, day time.Time, a Alert) error {
	suggestions := a.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO agenda_alerts (
			id, day, alert_type, message, severity, raised_at, action_required,
			related_appointment, suggestions
		)
		VALUES ($1, $2::date, $3, $4, $5, $6, $7, $8, $9)
	`, a.ID, day, a.Type, a.Message, a.Severity, a.Timestamp, a.ActionRequired,
		a.RelatedAppointment, suggestions)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (s *PgStore) ResolvedAlerts(ctx context.Context, day time.Time) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT alert_id FROM alert_resolutions WHERE day = $1::date
	`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		result[id] = true
	}
	return result, rows.Err()
}

// ResolveAlert is idempotent: resolving twice keeps the first timestamp.
func (s *PgStore) ResolveAlert(ctx context.Context, day time.Time, id string, at time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO alert_resolutions (alert_id, day, resolved_at)
		VALUES ($1, $2::date, $3)
		ON CONFLICT (alert_id, day) DO NOTHING
	`, id, day, at)
	if err != nil {
		return fmt.Errorf("resolve alert: %w", err)
	}
	return nil
}
