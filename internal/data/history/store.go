package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

var ErrRunNotFound = errors.New("run not found")

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

const defaultBusyTimeout = 2 * time.Second

// tsLayout is fixed width so that ts_utc sorts chronologically as text.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

func Open(path string) (*Store, error) {
	return OpenWithTimeout(path, defaultBusyTimeout)
}

// OpenWithTimeout opens the store with the given SQLite busy timeout.
// Non-positive timeouts use the default.
func OpenWithTimeout(path string, busyTimeout time.Duration) (*Store, error) {
	if busyTimeout <= 0 {
		busyTimeout = defaultBusyTimeout
	}
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func normalizeProject(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "default"
	}
	return key
}

// SaveSnapshot records a run with its rule counts and findings in a single
// transaction and returns the run ID (generated when empty).
func (s *Store) SaveSnapshot(projectKey string, snapshot Snapshot) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	projectKey = normalizeProject(projectKey)
	if snapshot.RunID == "" {
		snapshot.RunID = uuid.NewString()
	}
	if snapshot.Timestamp.IsZero() {
		snapshot.Timestamp = time.Now().UTC()
	}
	if snapshot.SchemaVersion == 0 {
		snapshot.SchemaVersion = SchemaVersion
	}
	if snapshot.SchemaVersion != SchemaVersion {
		return "", fmt.Errorf("unsupported snapshot schema version %d", snapshot.SchemaVersion)
	}
	if snapshot.FindingCount == 0 {
		snapshot.FindingCount = len(snapshot.Findings)
	}

	err := s.withRetry("save snapshot", func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.Exec(`
INSERT INTO runs (run_id, project_key, schema_version, ts_utc, commit_hash, duration_ms, file_count, failed_count, finding_count)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			snapshot.RunID,
			projectKey,
			snapshot.SchemaVersion,
			snapshot.Timestamp.UTC().Format(tsLayout),
			snapshot.CommitHash,
			snapshot.Duration.Milliseconds(),
			snapshot.FileCount,
			snapshot.FailedCount,
			snapshot.FindingCount,
		); err != nil {
			return err
		}

		for rule, count := range snapshot.RuleCounts {
			if _, err := tx.Exec(`INSERT INTO run_rule_counts (run_id, rule_id, count) VALUES (?, ?, ?)`,
				snapshot.RunID, rule, count); err != nil {
				return err
			}
		}

		if len(snapshot.Findings) > 0 {
			stmt, err := tx.Prepare(`
INSERT INTO findings (run_id, seq, rule_id, severity, file, line, col, message)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
			if err != nil {
				return err
			}
			defer stmt.Close()
			for i, f := range snapshot.Findings {
				if _, err := stmt.Exec(snapshot.RunID, i, f.RuleID, f.Severity, f.File, f.Line, f.Column, f.Message); err != nil {
					return err
				}
			}
		}

		return tx.Commit()
	})
	if err != nil {
		return "", err
	}
	return snapshot.RunID, nil
}

// LoadSnapshots returns the runs of a project since the given time, oldest
// first, with rule counts but without individual findings.
func (s *Store) LoadSnapshots(projectKey string, since time.Time) ([]Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
SELECT run_id, project_key, schema_version, ts_utc, commit_hash, duration_ms, file_count, failed_count, finding_count
FROM runs
WHERE project_key = ?`
	args := []any{normalizeProject(projectKey)}
	if !since.IsZero() {
		query += " AND ts_utc >= ?"
		args = append(args, since.UTC().Format(tsLayout))
	}
	query += " ORDER BY ts_utc ASC, run_id ASC"

	var snapshots []Snapshot
	err := s.withRetry("load snapshots", func() error {
		rows, err := s.db.Query(query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		snapshots = snapshots[:0]
		for rows.Next() {
			snapshot, err := scanRun(rows)
			if err != nil {
				return err
			}
			snapshots = append(snapshots, snapshot)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	for i := range snapshots {
		counts, err := s.ruleCounts(snapshots[i].RunID)
		if err != nil {
			return nil, err
		}
		snapshots[i].RuleCounts = counts
	}
	return snapshots, nil
}

// LoadRun returns a single run including its findings.
func (s *Store) LoadRun(runID string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var snapshot Snapshot
	err := s.withRetry("load run", func() error {
		row := s.db.QueryRow(`
SELECT run_id, project_key, schema_version, ts_utc, commit_hash, duration_ms, file_count, failed_count, finding_count
FROM runs WHERE run_id = ?`, runID)
		var err error
		snapshot, err = scanRun(row)
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return Snapshot{}, err
	}

	if snapshot.RuleCounts, err = s.ruleCounts(runID); err != nil {
		return Snapshot{}, err
	}
	if snapshot.Findings, err = s.findings(runID); err != nil {
		return Snapshot{}, err
	}
	return snapshot, nil
}

// Prune deletes all but the newest keep runs of a project and returns the
// number of runs removed. keep <= 0 keeps everything.
func (s *Store) Prune(projectKey string, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	err := s.withRetry("prune runs", func() error {
		res, err := s.db.Exec(`
DELETE FROM runs WHERE project_key = ? AND run_id NOT IN (
  SELECT run_id FROM runs WHERE project_key = ? ORDER BY ts_utc DESC, run_id DESC LIMIT ?
)`, normalizeProject(projectKey), normalizeProject(projectKey), keep)
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	return int(removed), err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Snapshot, error) {
	var (
		snapshot   Snapshot
		tsRaw      string
		durationMS int64
	)
	if err := row.Scan(
		&snapshot.RunID,
		&snapshot.ProjectKey,
		&snapshot.SchemaVersion,
		&tsRaw,
		&snapshot.CommitHash,
		&durationMS,
		&snapshot.FileCount,
		&snapshot.FailedCount,
		&snapshot.FindingCount,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, err
		}
		return Snapshot{}, fmt.Errorf("scan run row: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, tsRaw)
	if err != nil {
		return Snapshot{}, fmt.Errorf("parse run timestamp %q: %w", tsRaw, err)
	}
	snapshot.Timestamp = ts.UTC()
	snapshot.Duration = time.Duration(durationMS) * time.Millisecond
	return snapshot, nil
}

func (s *Store) ruleCounts(runID string) (map[string]int, error) {
	counts := make(map[string]int)
	err := s.withRetry("load rule counts", func() error {
		rows, err := s.db.Query(`SELECT rule_id, count FROM run_rule_counts WHERE run_id = ?`, runID)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				rule  string
				count int
			)
			if err := rows.Scan(&rule, &count); err != nil {
				return fmt.Errorf("scan rule count: %w", err)
			}
			counts[rule] = count
		}
		return rows.Err()
	})
	return counts, err
}

func (s *Store) findings(runID string) ([]FindingRecord, error) {
	var out []FindingRecord
	err := s.withRetry("load findings", func() error {
		rows, err := s.db.Query(`
SELECT rule_id, severity, file, line, col, message FROM findings WHERE run_id = ? ORDER BY seq`, runID)
		if err != nil {
			return err
		}
		defer rows.Close()
		out = out[:0]
		for rows.Next() {
			var f FindingRecord
			if err := rows.Scan(&f.RuleID, &f.Severity, &f.File, &f.Line, &f.Column, &f.Message); err != nil {
				return fmt.Errorf("scan finding: %w", err)
			}
			out = append(out, f)
		}
		return rows.Err()
	})
	return out, err
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	if errors.Is(lastErr, sql.ErrNoRows) {
		return lastErr
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// SortedRules returns the rule IDs of counts in order.
func SortedRules(counts map[string]int) []string {
	rules := make([]string, 0, len(counts))
	for r := range counts {
		rules = append(rules, r)
	}
	sort.Strings(rules)
	return rules
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}
