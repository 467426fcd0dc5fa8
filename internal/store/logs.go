package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const logColumns = `id, endpoint_id, timestamp, status_code, is_up, total_latency_ms,
       dns_ms, tcp_ms, tls_ms, server_ms, download_ms, error_message`

// AppendLog persists one check result and fills in its assigned ID.
// Log rows are immutable once written.
func (s *Store) AppendLog(ctx context.Context, l *CheckLog) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO check_log
		    (endpoint_id, timestamp, status_code, is_up, total_latency_ms,
		     dns_ms, tcp_ms, tls_ms, server_ms, download_ms, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.EndpointID, l.Timestamp.UTC().Format(time.RFC3339Nano),
		nullableInt(l.StatusCode), l.IsUp, l.TotalMS,
		l.DNSMs, l.TCPMs, l.TLSMs, l.ServerMS, l.DownloadMS,
		nullableString(l.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("inserting check log for endpoint %d: %w", l.EndpointID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading check log id: %w", err)
	}
	l.ID = id
	return nil
}

// History returns paginated check history for an endpoint, newest first,
// plus the total row count.
func (s *Store) History(ctx context.Context, endpointID int64, limit, offset int) ([]CheckLog, int, error) {
	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM check_log WHERE endpoint_id = ?`, endpointID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting check logs for endpoint %d: %w", endpointID, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+logColumns+` FROM check_log
		  WHERE endpoint_id = ? ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?`,
		endpointID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("querying history for endpoint %d: %w", endpointID, err)
	}
	defer rows.Close()

	logs, err := scanLogs(rows)
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// DailySummary returns the log rows for an endpoint since the given
// time, oldest first, for uptime/latency charts.
func (s *Store) DailySummary(ctx context.Context, endpointID int64, since time.Time) ([]CheckLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+logColumns+` FROM check_log
		  WHERE endpoint_id = ? AND timestamp >= ? ORDER BY timestamp ASC, id ASC`,
		endpointID, since.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("querying summary for endpoint %d: %w", endpointID, err)
	}
	defer rows.Close()
	return scanLogs(rows)
}

// LogDetail returns a single log row by id, or ErrNotFound.
func (s *Store) LogDetail(ctx context.Context, id int64) (*CheckLog, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+logColumns+` FROM check_log WHERE id = ?`, id)
	l, err := scanLog(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying check log %d: %w", id, err)
	}
	return l, nil
}

// LogsSince returns up to limit log rows with an id greater than
// lastSeenID, in id order. Readers keep their own cursor instead of
// re-reading the whole table.
func (s *Store) LogsSince(ctx context.Context, lastSeenID int64, limit int) ([]CheckLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+logColumns+` FROM check_log WHERE id > ? ORDER BY id ASC LIMIT ?`,
		lastSeenID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying logs since %d: %w", lastSeenID, err)
	}
	defer rows.Close()
	return scanLogs(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLog(row scanner) (*CheckLog, error) {
	var (
		l      CheckLog
		ts     string
		code   sql.NullInt64
		errMsg sql.NullString
	)
	err := row.Scan(&l.ID, &l.EndpointID, &ts, &code, &l.IsUp, &l.TotalMS,
		&l.DNSMs, &l.TCPMs, &l.TLSMs, &l.ServerMS, &l.DownloadMS, &errMsg)
	if err != nil {
		return nil, err
	}
	t, err := parseTimestamp(ts)
	if err != nil {
		return nil, err
	}
	l.Timestamp = t
	if code.Valid {
		v := int(code.Int64)
		l.StatusCode = &v
	}
	l.ErrorMessage = errMsg.String
	return &l, nil
}

func scanLogs(rows *sql.Rows) ([]CheckLog, error) {
	var logs []CheckLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning check log row: %w", err)
		}
		logs = append(logs, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating check log rows: %w", err)
	}
	return logs, nil
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
