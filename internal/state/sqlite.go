package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/gridsight-labs/gridsight/internal/project"
	"github.com/gridsight-labs/gridsight/internal/validate"
)

// SQLiteStore implements Store on a SQLite database file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the store at path and runs pending migrations.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping state store: %w", err)
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing connection, used by tests that stub the
// database.
func NewWithDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveDashboard inserts or updates a document. A document without an ID
// gets one assigned; the returned record carries it.
func (s *SQLiteStore) SaveDashboard(doc *project.Document) (*Dashboard, error) {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}

	payload, err := project.MarshalDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize dashboard: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.Exec(`
		INSERT INTO dashboards (id, name, document, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			document = excluded.document,
			updated_at = excluded.updated_at`,
		doc.ID, doc.Name, string(payload), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save dashboard: %w", err)
	}
	return s.GetDashboard(doc.ID)
}

// GetDashboard retrieves one dashboard by id.
func (s *SQLiteStore) GetDashboard(id string) (*Dashboard, error) {
	row := s.db.QueryRow(
		`SELECT id, name, document, created_at, updated_at FROM dashboards WHERE id = ?`, id)

	d, err := scanDashboard(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("dashboard not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dashboard: %w", err)
	}
	return d, nil
}

// ListDashboards returns all dashboards ordered by name.
func (s *SQLiteStore) ListDashboards() ([]*Dashboard, error) {
	rows, err := s.db.Query(
		`SELECT id, name, document, created_at, updated_at FROM dashboards ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list dashboards: %w", err)
	}
	defer rows.Close()

	var out []*Dashboard
	for rows.Next() {
		d, err := scanDashboard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dashboard: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeleteDashboard removes a dashboard and, via cascade, its validation
// history.
func (s *SQLiteStore) DeleteDashboard(id string) error {
	res, err := s.db.Exec(`DELETE FROM dashboards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dashboard: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("dashboard not found: %s", id)
	}
	return nil
}

// RecordValidation appends a validation outcome to the dashboard's
// history.
func (s *SQLiteStore) RecordValidation(dashboardID string, result *validate.Result) (*ValidationRun, error) {
	errJSON, err := json.Marshal(result.Errors)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize validation errors: %w", err)
	}

	run := &ValidationRun{
		ID:          uuid.New().String(),
		DashboardID: dashboardID,
		Valid:       result.Valid,
		Errors:      result.Errors,
		CreatedAt:   time.Now().UTC(),
	}
	_, err = s.db.Exec(`
		INSERT INTO validation_runs (id, dashboard_id, valid, errors, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.DashboardID, run.Valid, string(errJSON), run.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record validation: %w", err)
	}
	return run, nil
}

// ListValidations returns a dashboard's validation history, newest first.
// A non-positive limit returns the whole history.
func (s *SQLiteStore) ListValidations(dashboardID string, limit int) ([]*ValidationRun, error) {
	query := `SELECT id, dashboard_id, valid, errors, created_at
		FROM validation_runs WHERE dashboard_id = ? ORDER BY created_at DESC, id`
	args := []any{dashboardID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list validations: %w", err)
	}
	defer rows.Close()

	var out []*ValidationRun
	for rows.Next() {
		run := &ValidationRun{}
		var errJSON string
		if err := rows.Scan(&run.ID, &run.DashboardID, &run.Valid, &errJSON, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan validation run: %w", err)
		}
		if err := json.Unmarshal([]byte(errJSON), &run.Errors); err != nil {
			return nil, fmt.Errorf("failed to parse stored validation errors: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanDashboard(row scannable) (*Dashboard, error) {
	d := &Dashboard{}
	var payload string
	if err := row.Scan(&d.ID, &d.Name, &payload, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	doc, err := project.UnmarshalDocument([]byte(payload))
	if err != nil {
		return nil, err
	}
	d.Document = doc
	return d, nil
}
