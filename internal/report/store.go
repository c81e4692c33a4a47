// Package report provides PostgreSQL-backed archival of abuse reports for
// moderator review. The archive is optional and strictly best-effort: the
// in-memory abuse scoring drives ejection on its own, and a write failure
// here never blocks or delays a kick.
package report

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// validReasons is the set of allowed reason values, matching the CHECK
// constraint on the abuse_reports table.
var validReasons = map[string]bool{
	"harassment": true,
	"spam":       true,
	"explicit":   true,
	"abuse":      true,
	"other":      true,
}

// Store manages abuse reports in PostgreSQL.
type Store struct {
	db *sql.DB
}

// Report represents a single abuse report to be persisted. Socket ids are
// connection-scoped and anonymous; the archive records who reported whom
// within which session, not stable identities.
type Report struct {
	ReporterSocketID string
	ReportedSocketID string
	SessionID        string
	Reason           string
}

// NewStore creates a new report store backed by the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts an abuse report into PostgreSQL. The reason is validated
// against the allowed set before insertion; unknown reasons are stored as
// "other" rather than rejected, since reports are best-effort.
func (s *Store) Create(ctx context.Context, report *Report) error {
	reason := report.Reason
	if !validReasons[reason] {
		reason = "other"
	}

	const query = `
		INSERT INTO abuse_reports (reporter_socket_id, reported_socket_id, session_id, reason)
		VALUES ($1, $2, $3, $4)`

	_, err := s.db.ExecContext(ctx, query,
		report.ReporterSocketID,
		report.ReportedSocketID,
		report.SessionID,
		reason,
	)
	if err != nil {
		return fmt.Errorf("report: insert: %w", err)
	}
	return nil
}

// CountRecent returns the number of reports filed against a socket id within
// the given time window. Moderator tooling uses this to spot repeat
// offenders across the archive.
func (s *Store) CountRecent(ctx context.Context, reportedSocketID string, window time.Duration) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM abuse_reports
		WHERE reported_socket_id = $1
		  AND created_at >= NOW() - make_interval(secs => $2)`

	var count int
	err := s.db.QueryRowContext(ctx, query, reportedSocketID, window.Seconds()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("report: count recent: %w", err)
	}
	return count, nil
}
