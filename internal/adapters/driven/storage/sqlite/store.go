package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/riskpilot/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/riskpilot/internal/core/domain"
	"github.com/custodia-labs/riskpilot/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.AuditStore = (*Store)(nil)

// Store is an append-only audit log in a SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the audit database at dbPath.
// If dbPath is empty, defaults to ~/.riskpilot/audit.db.
func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".riskpilot", domain.DefaultAuditFile)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	// Open database with WAL mode so readers never block the request path.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate applies pending up migrations in version order, each in its own
// transaction together with its schema_migrations row.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_audit.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) applyMigration(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// Record appends an audit record.
func (s *Store) Record(ctx context.Context, r domain.AuditRecord) error {
	types := r.ViolationTypes
	if types == nil {
		types = []string{}
	}
	typesJSON, err := json.Marshal(types)
	if err != nil {
		return fmt.Errorf("marshalling violation types: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_records (
			id, session_id, message_id, timestamp_ns, input_length, output_length,
			violations_count, violation_types, risk_level, pii_detected,
			injection_attempted, timed_out, processing_time_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.SessionID, r.MessageID, r.Timestamp.UnixNano(), r.InputLength, r.OutputLength,
		r.ViolationsCount, string(typesJSON), int(r.RiskLevel), boolInt(r.PIIDetected),
		boolInt(r.InjectionAttempted), boolInt(r.TimedOut), int64(r.ProcessingTime))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrAuditFailed, err)
	}
	return nil
}

// List returns records matching filter, newest first.
func (s *Store) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditRecord, error) {
	filter = filter.Normalize()
	where, args := whereClause(filter)
	args = append(args, filter.Limit)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, message_id, timestamp_ns, input_length, output_length,
			violations_count, violation_types, risk_level, pii_detected,
			injection_attempted, timed_out, processing_time_ns
		FROM audit_records`+where+`
		ORDER BY timestamp_ns DESC, rowid DESC
		LIMIT ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit records: %w", err)
	}
	defer rows.Close()

	records := []domain.AuditRecord{}
	for rows.Next() {
		var (
			r                     domain.AuditRecord
			tsNanos, durNanos     int64
			typesJSON             string
			risk                  int
			pii, injection, timed int
		)
		if err := rows.Scan(&r.ID, &r.SessionID, &r.MessageID, &tsNanos, &r.InputLength, &r.OutputLength,
			&r.ViolationsCount, &typesJSON, &risk, &pii, &injection, &timed, &durNanos); err != nil {
			return nil, fmt.Errorf("scanning audit record: %w", err)
		}
		if err := json.Unmarshal([]byte(typesJSON), &r.ViolationTypes); err != nil {
			return nil, fmt.Errorf("unmarshalling violation types: %w", err)
		}
		r.Timestamp = time.Unix(0, tsNanos).UTC()
		r.ProcessingTime = time.Duration(durNanos)
		r.RiskLevel = domain.RiskLevel(risk)
		r.PIIDetected = pii != 0
		r.InjectionAttempted = injection != 0
		r.TimedOut = timed != 0
		records = append(records, r)
	}
	return records, rows.Err()
}

// Stats aggregates records matching filter.
func (s *Store) Stats(ctx context.Context, filter domain.AuditFilter) (domain.AuditStats, error) {
	stats := domain.NewAuditStats()
	where, args := whereClause(filter)

	rows, err := s.db.QueryContext(ctx, `
		SELECT risk_level, COUNT(*), SUM(violations_count), SUM(pii_detected),
			SUM(injection_attempted), SUM(timed_out)
		FROM audit_records`+where+`
		GROUP BY risk_level
	`, args...)
	if err != nil {
		return stats, fmt.Errorf("aggregating audit records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var risk, count, violations, pii, injection, timed int
		if err := rows.Scan(&risk, &count, &violations, &pii, &injection, &timed); err != nil {
			return stats, fmt.Errorf("scanning audit stats: %w", err)
		}
		stats.ByRiskLevel[domain.RiskLevel(risk)] += count
		stats.TotalRequests += count
		stats.TotalViolations += violations
		stats.PIIDetected += pii
		stats.InjectionAttempted += injection
		stats.TimedOut += timed
	}
	return stats, rows.Err()
}

func whereClause(f domain.AuditFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.SessionID != "" {
		conds = append(conds, "session_id = ?")
		args = append(args, f.SessionID)
	}
	if f.MinRisk != nil {
		conds = append(conds, "risk_level >= ?")
		args = append(args, int(*f.MinRisk))
	}
	if !f.Since.IsZero() {
		conds = append(conds, "timestamp_ns >= ?")
		args = append(args, f.Since.UnixNano())
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
