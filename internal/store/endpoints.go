package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const endpointColumns = `id, url, header_name, header_value, interval_minutes,
       category, notification_target, is_active, last_checked_at, last_status`

// CreateEndpoint inserts a new endpoint and fills in its assigned ID.
// Returns ErrDuplicateURL when the URL is already monitored, leaving the
// store untouched.
func (s *Store) CreateEndpoint(ctx context.Context, e *Endpoint) error {
	if e.URL == "" {
		return fmt.Errorf("endpoint url is required")
	}
	if e.IntervalMinutes <= 0 {
		return fmt.Errorf("endpoint interval must be positive, got %d", e.IntervalMinutes)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning create tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM endpoints WHERE url = ?`, e.URL,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking url %q: %w", e.URL, err)
	}
	if exists > 0 {
		return ErrDuplicateURL
	}

	if e.LastStatus == "" {
		e.LastStatus = StatusPending
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO endpoints
		    (url, header_name, header_value, interval_minutes, category,
		     notification_target, is_active, last_checked_at, last_status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.URL, e.HeaderName, e.HeaderValue, e.IntervalMinutes, e.Category,
		e.NotificationTarget, e.IsActive, formatNullableTime(e.LastCheckedAt), string(e.LastStatus),
	)
	if err != nil {
		return fmt.Errorf("inserting endpoint %q: %w", e.URL, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading endpoint id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing create: %w", err)
	}
	e.ID = id
	return nil
}

// GetEndpoint returns the endpoint with the given id, or ErrNotFound.
func (s *Store) GetEndpoint(ctx context.Context, id int64) (*Endpoint, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+endpointColumns+` FROM endpoints WHERE id = ?`, id)
	e, err := scanEndpoint(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying endpoint %d: %w", id, err)
	}
	return e, nil
}

// ListEndpoints returns every endpoint, active or not, ordered by id.
func (s *Store) ListEndpoints(ctx context.Context) ([]Endpoint, error) {
	return s.listEndpoints(ctx, `SELECT `+endpointColumns+` FROM endpoints ORDER BY id`)
}

// ListActive returns the endpoints the scheduler should consider.
func (s *Store) ListActive(ctx context.Context) ([]Endpoint, error) {
	return s.listEndpoints(ctx, `SELECT `+endpointColumns+` FROM endpoints WHERE is_active = 1 ORDER BY id`)
}

func (s *Store) listEndpoints(ctx context.Context, query string) ([]Endpoint, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing endpoints: %w", err)
	}
	defer rows.Close()

	var out []Endpoint
	for rows.Next() {
		e, err := scanEndpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning endpoint row: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating endpoint rows: %w", err)
	}
	return out, nil
}

// UpdateEndpoint rewrites the configurable fields of an endpoint. The
// scheduler-owned fields (last_checked_at, last_status) are not touched.
func (s *Store) UpdateEndpoint(ctx context.Context, e *Endpoint) error {
	if e.IntervalMinutes <= 0 {
		return fmt.Errorf("endpoint interval must be positive, got %d", e.IntervalMinutes)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE endpoints
		   SET url = ?, header_name = ?, header_value = ?, interval_minutes = ?,
		       category = ?, notification_target = ?, is_active = ?
		 WHERE id = ?`,
		e.URL, e.HeaderName, e.HeaderValue, e.IntervalMinutes,
		e.Category, e.NotificationTarget, e.IsActive, e.ID,
	)
	if err != nil {
		return fmt.Errorf("updating endpoint %d: %w", e.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating endpoint %d: %w", e.ID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteEndpoint removes an endpoint; its log rows go with it via the
// foreign key cascade.
func (s *Store) DeleteEndpoint(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM endpoints WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting endpoint %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting endpoint %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus persists the outcome of a check onto the endpoint.
func (s *Store) UpdateStatus(ctx context.Context, id int64, at time.Time, status Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE endpoints SET last_checked_at = ?, last_status = ? WHERE id = ?`,
		at.UTC().Format(time.RFC3339Nano), string(status), id,
	)
	if err != nil {
		return fmt.Errorf("updating status for endpoint %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating status for endpoint %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanEndpoint(row scanner) (*Endpoint, error) {
	var (
		e           Endpoint
		lastChecked sql.NullString
		status      string
	)
	err := row.Scan(&e.ID, &e.URL, &e.HeaderName, &e.HeaderValue, &e.IntervalMinutes,
		&e.Category, &e.NotificationTarget, &e.IsActive, &lastChecked, &status)
	if err != nil {
		return nil, err
	}
	e.LastStatus = Status(status)
	if lastChecked.Valid && lastChecked.String != "" {
		t, err := parseTimestamp(lastChecked.String)
		if err != nil {
			return nil, err
		}
		e.LastCheckedAt = &t
	}
	return &e, nil
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
