// Package store is the durable record of monitored endpoints and the
// append-only log of their check results, backed by SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

var (
	// ErrDuplicateURL is returned by CreateEndpoint when the URL is
	// already monitored. The store is not mutated.
	ErrDuplicateURL = errors.New("url is already monitored")
	// ErrNotFound is returned when an endpoint or log row does not exist.
	ErrNotFound = errors.New("not found")
)

// Status is the last-known state of an endpoint.
type Status string

const (
	StatusPending Status = "Pending"
	StatusUp      Status = "Up"
	StatusDown    Status = "Down"
	StatusError   Status = "Error"
)

// Endpoint is a monitored URL and its schedule.
type Endpoint struct {
	ID                 int64      `json:"id"`
	URL                string     `json:"url"`
	HeaderName         string     `json:"header_name,omitempty"`
	HeaderValue        string     `json:"header_value,omitempty"`
	IntervalMinutes    int        `json:"interval_minutes"`
	Category           string     `json:"category,omitempty"`
	NotificationTarget string     `json:"notification_target,omitempty"`
	IsActive           bool       `json:"is_active"`
	LastCheckedAt      *time.Time `json:"last_checked_at"`
	LastStatus         Status     `json:"last_status"`
}

// Due reports whether the endpoint's interval has elapsed since its last
// check. A never-checked endpoint is immediately due.
func (e *Endpoint) Due(now time.Time) bool {
	if e.LastCheckedAt == nil {
		return true
	}
	return now.Sub(*e.LastCheckedAt) >= time.Duration(e.IntervalMinutes)*time.Minute
}

// Header returns the configured request header as a map for the prober,
// or nil when none is set.
func (e *Endpoint) Header() map[string]string {
	if e.HeaderName == "" {
		return nil
	}
	return map[string]string{e.HeaderName: e.HeaderValue}
}

// CheckLog is one persisted check result. StatusCode is nil on transport
// failures, which carry ErrorMessage instead.
type CheckLog struct {
	ID           int64     `json:"id"`
	EndpointID   int64     `json:"endpoint_id"`
	Timestamp    time.Time `json:"timestamp"`
	StatusCode   *int      `json:"status_code"`
	IsUp         bool      `json:"is_up"`
	TotalMS      float64   `json:"total_latency_ms"`
	DNSMs        float64   `json:"dns_ms"`
	TCPMs        float64   `json:"tcp_ms"`
	TLSMs        float64   `json:"tls_ms"`
	ServerMS     float64   `json:"server_ms"`
	DownloadMS   float64   `json:"download_ms"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

const schema = `
CREATE TABLE IF NOT EXISTS endpoints (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    url                 TEXT    NOT NULL UNIQUE,
    header_name         TEXT    NOT NULL DEFAULT '',
    header_value        TEXT    NOT NULL DEFAULT '',
    interval_minutes    INTEGER NOT NULL CHECK(interval_minutes > 0),
    category            TEXT    NOT NULL DEFAULT '',
    notification_target TEXT    NOT NULL DEFAULT '',
    is_active           INTEGER NOT NULL DEFAULT 1,
    last_checked_at     TEXT,
    last_status         TEXT    NOT NULL DEFAULT 'Pending'
                        CHECK(last_status IN ('Pending', 'Up', 'Down', 'Error'))
);

CREATE TABLE IF NOT EXISTS check_log (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    endpoint_id      INTEGER NOT NULL REFERENCES endpoints(id) ON DELETE CASCADE,
    timestamp        TEXT    NOT NULL,
    status_code      INTEGER,
    is_up            INTEGER NOT NULL,
    total_latency_ms REAL    NOT NULL DEFAULT 0,
    dns_ms           REAL    NOT NULL DEFAULT 0,
    tcp_ms           REAL    NOT NULL DEFAULT 0,
    tls_ms           REAL    NOT NULL DEFAULT 0,
    server_ms        REAL    NOT NULL DEFAULT 0,
    download_ms      REAL    NOT NULL DEFAULT 0,
    error_message    TEXT
);

CREATE INDEX IF NOT EXISTS idx_check_log_endpoint ON check_log(endpoint_id);
CREATE INDEX IF NOT EXISTS idx_check_log_endpoint_ts ON check_log(endpoint_id, timestamp DESC);
`

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and applies the
// schema. Foreign keys are enabled so deleting an endpoint cascades to
// its log rows.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite at %q: %w", path, err)
	}
	// Pragmas are per-connection; a single connection keeps foreign_keys
	// in force for every statement.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func parseTimestamp(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		// Fallback without sub-second precision.
		t, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", raw, err)
		}
	}
	return t, nil
}
