package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"

	"github.com/machshop/machshop/pkg/eco"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore persists change orders, document master versions, and the
// append-only ECO history in SQLite. It implements eco.Repository and
// eco.DocumentStore.
type SQLiteStore struct {
	db   *sql.DB
	path string
	cfg  Config
}

// Config holds SQLite store configuration.
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance.
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	return &SQLiteStore{path: cfg.Path, cfg: cfg}, nil
}

// Init opens the database connection and enables WAL mode and foreign keys.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations from the embedded filesystem.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// HealthCheck verifies the database connection is alive.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.db.PingContext(ctx)
}

// CreateECO inserts a change order with its parts, documents, and tasks in
// a single transaction.
func (s *SQLiteStore) CreateECO(ctx context.Context, e *eco.ECO) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eco.NewInternalError("failed to begin transaction", err).WithCode(eco.ErrCodeStoreFailure)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	var kind, value interface{}
	if e.Effectivity != nil {
		kind = string(e.Effectivity.Kind())
		value = e.Effectivity.Value()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ecos (id, eco_number, title, description, status, priority,
			effectivity_kind, effectivity_value, is_interchangeable,
			planned_effective_date, actual_effective_date, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Number, e.Title, e.Description, string(e.Status), string(e.Priority),
		kind, value, e.IsInterchangeable,
		e.PlannedEffectiveDate, e.ActualEffectiveDate, e.CreatedBy, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return eco.NewInternalError("failed to insert ECO", err).
			WithCode(eco.ErrCodeStoreFailure).WithResource(e.ID)
	}

	for i, part := range e.AffectedParts {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO eco_affected_parts (eco_id, part_number, old_revision, new_revision, position)
			VALUES (?, ?, ?, ?, ?)`,
			e.ID, part.PartNumber, part.OldRevision, part.NewRevision, i,
		)
		if err != nil {
			return eco.NewInternalError("failed to insert affected part", err).
				WithCode(eco.ErrCodeStoreFailure).WithResource(e.ID)
		}
	}

	for i, doc := range e.AffectedDocuments {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO eco_affected_documents (eco_id, document_type, document_id, target_version, position)
			VALUES (?, ?, ?, ?, ?)`,
			e.ID, doc.DocumentType, doc.DocumentID, doc.TargetVersion, i,
		)
		if err != nil {
			return eco.NewInternalError("failed to insert affected document", err).
				WithCode(eco.ErrCodeStoreFailure).WithResource(e.ID)
		}
	}

	for _, task := range e.Tasks {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO eco_tasks (id, eco_id, description, status, assignee, sequence)
			VALUES (?, ?, ?, ?, ?, ?)`,
			task.ID, e.ID, task.Description, string(task.Status), task.Assignee, task.Sequence,
		)
		if err != nil {
			return eco.NewInternalError("failed to insert task", err).
				WithCode(eco.ErrCodeStoreFailure).WithResource(e.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return eco.NewInternalError("failed to commit ECO", err).
			WithCode(eco.ErrCodeStoreFailure).WithResource(e.ID)
	}

	return nil
}

// GetECO fetches a change order with its parts, documents, and tasks.
func (s *SQLiteStore) GetECO(ctx context.Context, id string) (*eco.ECO, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, eco_number, title, description, status, priority,
			effectivity_kind, effectivity_value, is_interchangeable,
			planned_effective_date, actual_effective_date, created_by, created_at, updated_at
		FROM ecos WHERE id = ?`, id)

	e, err := scanECO(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eco.NewNotFoundError("ECO not found", id).WithCode(eco.ErrCodeECONotFound)
	}
	if err != nil {
		return nil, eco.NewInternalError("failed to get ECO", err).
			WithCode(eco.ErrCodeStoreFailure).WithResource(id)
	}

	if err := s.loadChildren(ctx, e); err != nil {
		return nil, err
	}

	return e, nil
}

// ListCandidates fetches change orders in one of the given statuses whose
// affected documents reference (entityType, entityID).
func (s *SQLiteStore) ListCandidates(ctx context.Context, entityType, entityID string, statuses []eco.Status) ([]*eco.ECO, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(statuses)), ",")
	args := []interface{}{entityType, entityID}
	for _, st := range statuses {
		args = append(args, string(st))
	}

	query := fmt.Sprintf(`
		SELECT DISTINCT e.id
		FROM ecos e
		JOIN eco_affected_documents d ON d.eco_id = e.id
		WHERE d.document_type = ? AND d.document_id = ? AND e.status IN (%s)
		ORDER BY e.created_at ASC`, placeholders)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eco.NewInternalError("failed to list candidate ECOs", err).
			WithCode(eco.ErrCodeStoreFailure)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eco.NewInternalError("failed to scan candidate row", err).
				WithCode(eco.ErrCodeStoreFailure)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, eco.NewInternalError("failed to iterate candidate rows", err).
			WithCode(eco.ErrCodeStoreFailure)
	}

	candidates := make([]*eco.ECO, 0, len(ids))
	for _, id := range ids {
		e, err := s.GetECO(ctx, id)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, e)
	}

	return candidates, nil
}

// querier is satisfied by both *sql.DB and *sql.Tx so guard checks and
// history inserts can run inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// UpdateEffectivity applies the effectivity fields as a single conditional
// update guarded by the status the caller read. A lost guard surfaces as a
// state error, never a silent success. The history entry commits in the same
// transaction as the update, so the row never changes without an audit trail.
func (s *SQLiteStore) UpdateEffectivity(ctx context.Context, id string, expected eco.Status, update eco.EffectivityUpdate, entry *eco.HistoryEntry) error {
	sets := []string{"effectivity_kind = ?", "effectivity_value = ?", "updated_at = ?"}
	args := []interface{}{
		string(update.Effectivity.Kind()),
		update.Effectivity.Value(),
		time.Now(),
	}
	if update.PlannedEffectiveDate != nil {
		sets = append(sets, "planned_effective_date = ?")
		args = append(args, *update.PlannedEffectiveDate)
	}
	if update.IsInterchangeable != nil {
		sets = append(sets, "is_interchangeable = ?")
		args = append(args, *update.IsInterchangeable)
	}
	args = append(args, id, string(expected))

	query := fmt.Sprintf("UPDATE ecos SET %s WHERE id = ? AND status = ?", strings.Join(sets, ", "))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eco.NewInternalError("failed to begin transaction", err).WithCode(eco.ErrCodeStoreFailure)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return eco.NewInternalError("failed to update effectivity", err).
			WithCode(eco.ErrCodeStoreFailure).WithResource(id)
	}
	if err := checkGuard(ctx, tx, result, id, expected); err != nil {
		return err
	}
	if entry != nil {
		if err := insertHistory(ctx, tx, entry); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return eco.NewInternalError("failed to commit effectivity update", err).
			WithCode(eco.ErrCodeStoreFailure).WithResource(id)
	}
	return nil
}

// UpdateStatus moves the ECO along a status edge as a single conditional
// update guarded by the from status. The history entry commits in the same
// transaction as the update.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, from, to eco.Status, actualEffective *time.Time, entry *eco.HistoryEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eco.NewInternalError("failed to begin transaction", err).WithCode(eco.ErrCodeStoreFailure)
	}
	defer func() { _ = tx.Rollback() }()

	var result sql.Result
	if actualEffective != nil {
		result, err = tx.ExecContext(ctx, `
			UPDATE ecos SET status = ?, actual_effective_date = ?, updated_at = ?
			WHERE id = ? AND status = ?`,
			string(to), *actualEffective, time.Now(), id, string(from))
	} else {
		result, err = tx.ExecContext(ctx, `
			UPDATE ecos SET status = ?, updated_at = ?
			WHERE id = ? AND status = ?`,
			string(to), time.Now(), id, string(from))
	}
	if err != nil {
		return eco.NewInternalError("failed to update status", err).
			WithCode(eco.ErrCodeStoreFailure).WithResource(id)
	}
	if err := checkGuard(ctx, tx, result, id, from); err != nil {
		return err
	}
	if entry != nil {
		if err := insertHistory(ctx, tx, entry); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return eco.NewInternalError("failed to commit status update", err).
			WithCode(eco.ErrCodeStoreFailure).WithResource(id)
	}
	return nil
}

// checkGuard distinguishes a missing row from a lost optimistic guard when a
// conditional update touched nothing.
func checkGuard(ctx context.Context, q querier, result sql.Result, id string, expected eco.Status) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return eco.NewInternalError("failed to get rows affected", err).
			WithCode(eco.ErrCodeStoreFailure).WithResource(id)
	}
	if rows > 0 {
		return nil
	}

	var current string
	err = q.QueryRowContext(ctx, "SELECT status FROM ecos WHERE id = ?", id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return eco.NewNotFoundError("ECO not found", id).WithCode(eco.ErrCodeECONotFound)
	}
	if err != nil {
		return eco.NewInternalError("failed to read current status", err).
			WithCode(eco.ErrCodeStoreFailure).WithResource(id)
	}

	return eco.NewStateError(
		fmt.Sprintf("ECO status changed concurrently (expected %s, now %s)", expected, current),
		eco.Status(current)).
		WithCode(eco.ErrCodeConcurrentUpdate).
		WithResource(id)
}

// AppendHistory appends an immutable history entry. There is no update or
// delete path for eco_history rows.
func (s *SQLiteStore) AppendHistory(ctx context.Context, entry *eco.HistoryEntry) error {
	return insertHistory(ctx, s.db, entry)
}

func insertHistory(ctx context.Context, q querier, entry *eco.HistoryEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	result, err := q.ExecContext(ctx, `
		INSERT INTO eco_history (eco_id, event_type, from_status, to_status, detail, actor, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ECOID, entry.EventType, string(entry.FromStatus), string(entry.ToStatus),
		entry.Detail, entry.Actor, entry.Timestamp,
	)
	if err != nil {
		return eco.NewInternalError("failed to append history entry", err).
			WithCode(eco.ErrCodeStoreFailure).WithResource(entry.ECOID)
	}

	if id, err := result.LastInsertId(); err == nil {
		entry.ID = id
	}

	return nil
}

// ListHistory returns the history entries for an ECO, oldest first.
func (s *SQLiteStore) ListHistory(ctx context.Context, ecoID string) ([]eco.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, eco_id, event_type, from_status, to_status, detail, actor, created_at
		FROM eco_history WHERE eco_id = ? ORDER BY id ASC`, ecoID)
	if err != nil {
		return nil, eco.NewInternalError("failed to list history", err).
			WithCode(eco.ErrCodeStoreFailure).WithResource(ecoID)
	}
	defer rows.Close()

	var entries []eco.HistoryEntry
	for rows.Next() {
		var (
			entry    eco.HistoryEntry
			from, to string
		)
		if err := rows.Scan(&entry.ID, &entry.ECOID, &entry.EventType, &from, &to,
			&entry.Detail, &entry.Actor, &entry.Timestamp); err != nil {
			return nil, eco.NewInternalError("failed to scan history row", err).
				WithCode(eco.ErrCodeStoreFailure).WithResource(ecoID)
		}
		entry.FromStatus = eco.Status(from)
		entry.ToStatus = eco.Status(to)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, eco.NewInternalError("failed to iterate history rows", err).
			WithCode(eco.ErrCodeStoreFailure).WithResource(ecoID)
	}

	return entries, nil
}

// UpsertDocument records or updates a document's stored version.
func (s *SQLiteStore) UpsertDocument(ctx context.Context, documentType, documentID, title, version string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (document_type, document_id, title, version, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(document_type, document_id)
		DO UPDATE SET title = excluded.title, version = excluded.version, updated_at = excluded.updated_at`,
		documentType, documentID, title, version, time.Now(),
	)
	if err != nil {
		return eco.NewInternalError("failed to upsert document", err).
			WithCode(eco.ErrCodeStoreFailure).WithResource(documentID)
	}
	return nil
}

// CurrentVersion fetches a document's stored version. Implements
// eco.DocumentStore.
func (s *SQLiteStore) CurrentVersion(ctx context.Context, documentType, documentID string) (string, error) {
	var version string
	err := s.db.QueryRowContext(ctx,
		"SELECT version FROM documents WHERE document_type = ? AND document_id = ?",
		documentType, documentID).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return "", eco.NewNotFoundError("document not found", documentID).
			WithCode(eco.ErrCodeDocumentNotFound).
			WithDetail("document_type", documentType)
	}
	if err != nil {
		return "", eco.NewInternalError("failed to get document version", err).
			WithCode(eco.ErrCodeStoreFailure).WithResource(documentID)
	}
	return version, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanECO.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanECO scans the ecos columns into a typed change order, re-parsing the
// persisted effectivity through the grammar so a corrupted row cannot
// produce an untyped configuration.
func scanECO(row rowScanner) (*eco.ECO, error) {
	var (
		e                eco.ECO
		status, priority string
		kind, value      sql.NullString
		planned, actual  sql.NullTime
		interchangeable  bool
	)

	err := row.Scan(&e.ID, &e.Number, &e.Title, &e.Description, &status, &priority,
		&kind, &value, &interchangeable, &planned, &actual,
		&e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}

	e.Status = eco.Status(status)
	e.Priority = eco.Priority(priority)
	e.IsInterchangeable = interchangeable
	if planned.Valid {
		t := planned.Time
		e.PlannedEffectiveDate = &t
	}
	if actual.Valid {
		t := actual.Time
		e.ActualEffectiveDate = &t
	}

	if kind.Valid && kind.String != "" {
		eff, err := eco.ParseEffectivity(eco.EffectivityKind(kind.String), value.String)
		if err != nil {
			return nil, fmt.Errorf("stored effectivity is invalid: %w", err)
		}
		e.Effectivity = eff
	}

	return &e, nil
}

// loadChildren populates parts, documents, and tasks for a fetched ECO.
func (s *SQLiteStore) loadChildren(ctx context.Context, e *eco.ECO) error {
	partRows, err := s.db.QueryContext(ctx, `
		SELECT part_number, old_revision, new_revision
		FROM eco_affected_parts WHERE eco_id = ? ORDER BY position ASC`, e.ID)
	if err != nil {
		return eco.NewInternalError("failed to load affected parts", err).
			WithCode(eco.ErrCodeStoreFailure).WithResource(e.ID)
	}
	defer partRows.Close()
	for partRows.Next() {
		var p eco.AffectedPart
		if err := partRows.Scan(&p.PartNumber, &p.OldRevision, &p.NewRevision); err != nil {
			return eco.NewInternalError("failed to scan affected part", err).
				WithCode(eco.ErrCodeStoreFailure).WithResource(e.ID)
		}
		e.AffectedParts = append(e.AffectedParts, p)
	}
	if err := partRows.Err(); err != nil {
		return eco.NewInternalError("failed to iterate affected parts", err).
			WithCode(eco.ErrCodeStoreFailure).WithResource(e.ID)
	}

	docRows, err := s.db.QueryContext(ctx, `
		SELECT document_type, document_id, target_version
		FROM eco_affected_documents WHERE eco_id = ? ORDER BY position ASC`, e.ID)
	if err != nil {
		return eco.NewInternalError("failed to load affected documents", err).
			WithCode(eco.ErrCodeStoreFailure).WithResource(e.ID)
	}
	defer docRows.Close()
	for docRows.Next() {
		var d eco.AffectedDocument
		if err := docRows.Scan(&d.DocumentType, &d.DocumentID, &d.TargetVersion); err != nil {
			return eco.NewInternalError("failed to scan affected document", err).
				WithCode(eco.ErrCodeStoreFailure).WithResource(e.ID)
		}
		e.AffectedDocuments = append(e.AffectedDocuments, d)
	}
	if err := docRows.Err(); err != nil {
		return eco.NewInternalError("failed to iterate affected documents", err).
			WithCode(eco.ErrCodeStoreFailure).WithResource(e.ID)
	}

	taskRows, err := s.db.QueryContext(ctx, `
		SELECT id, description, status, assignee, sequence
		FROM eco_tasks WHERE eco_id = ? ORDER BY sequence ASC`, e.ID)
	if err != nil {
		return eco.NewInternalError("failed to load tasks", err).
			WithCode(eco.ErrCodeStoreFailure).WithResource(e.ID)
	}
	defer taskRows.Close()
	for taskRows.Next() {
		var (
			t      eco.Task
			status string
		)
		if err := taskRows.Scan(&t.ID, &t.Description, &status, &t.Assignee, &t.Sequence); err != nil {
			return eco.NewInternalError("failed to scan task", err).
				WithCode(eco.ErrCodeStoreFailure).WithResource(e.ID)
		}
		t.Status = eco.TaskStatus(status)
		e.Tasks = append(e.Tasks, t)
	}
	if err := taskRows.Err(); err != nil {
		return eco.NewInternalError("failed to iterate tasks", err).
			WithCode(eco.ErrCodeStoreFailure).WithResource(e.ID)
	}

	return nil
}
