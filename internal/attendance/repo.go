package attendance

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Repository persists attendance data in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// UpsertTerminal ensures a terminal record exists.
func (r *Repository) UpsertTerminal(ctx context.Context, terminalID string) error {
	if terminalID == "" {
		return errors.New("terminal id required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO terminals (terminal_id)
		VALUES ($1)
		ON CONFLICT (terminal_id) DO NOTHING
	`, terminalID)
	return err
}

// SaveRefreshToken stores a refresh token for rotation checks.
func (r *Repository) SaveRefreshToken(ctx context.Context, terminalID, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (terminal_id, token, expires_at)
		VALUES ($1, $2, $3)
	`, terminalID, token, expiresAt)
	return err
}

// AppendEvent writes a new event.
func (r *Repository) AppendEvent(ctx context.Context, evt Event) (Event, error) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if evt.Kind == "" {
		evt.Kind = KindCheckIn
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_events (id, employee_id, employee_name, occurred_at, confidence, kind)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, evt.ID, evt.EmployeeID, evt.EmployeeName, evt.Timestamp, evt.Confidence, string(evt.Kind))
	if err != nil {
		return Event{}, err
	}
	return evt, nil
}

// ListEvents returns events, newest first, with basic filters.
func (r *Repository) ListEvents(ctx context.Context, f EventFilter) ([]Event, error) {
	f = normalizeFilter(f)
	query := `SELECT id, employee_id, employee_name, occurred_at, confidence, kind FROM attendance_events`
	args := []any{}
	clauses := []string{}
	if f.EmployeeID != "" {
		args = append(args, f.EmployeeID)
		clauses = append(clauses, "employee_id = $"+strconv.Itoa(len(args)))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		clauses = append(clauses, "occurred_at >= $"+strconv.Itoa(len(args)))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		clauses = append(clauses, "occurred_at < $"+strconv.Itoa(len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY occurred_at DESC LIMIT $" + strconv.Itoa(len(args)+1) + " OFFSET $" + strconv.Itoa(len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Event
	for rows.Next() {
		var evt Event
		var kind string
		if err := rows.Scan(&evt.ID, &evt.EmployeeID, &evt.EmployeeName, &evt.Timestamp, &evt.Confidence, &kind); err != nil {
			return nil, err
		}
		evt.Kind = Kind(kind)
		res = append(res, evt)
	}
	return res, rows.Err()
}

// ListEmployees returns all employees, most recently registered first.
func (r *Repository) ListEmployees(ctx context.Context) ([]Employee, error) {
	return r.RecentEmployees(ctx, 0)
}

// RecentEmployees returns the n most recently registered employees. The
// limit is applied in the query so large rosters are not loaded in full.
func (r *Repository) RecentEmployees(ctx context.Context, n int) ([]Employee, error) {
	query := `
		SELECT id, name, reference_image, reference_mime, photo_url, created_at
		FROM employees
		ORDER BY created_at DESC`
	var args []any
	if n > 0 {
		query += ` LIMIT $1`
		args = append(args, n)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []Employee
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.ReferenceImage, &e.ReferenceMIME, &e.PhotoURL, &e.CreatedAt); err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

// AppendEmployee inserts a new employee.
func (r *Repository) AppendEmployee(ctx context.Context, e Employee) (Employee, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO employees (id, name, reference_image, reference_mime, photo_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID, e.Name, e.ReferenceImage, e.ReferenceMIME, e.PhotoURL, e.CreatedAt)
	if err != nil {
		return Employee{}, err
	}
	return e, nil
}

// RemoveEmployee deletes an employee. Past events keep the recorded name.
func (r *Repository) RemoveEmployee(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
