package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/domain"
	"github.com/pipeshub-ai/pipeshub-ai-sub008/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to the
// record and sync point store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store in the specified data directory.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory required")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "syncgraph.db")

	// WAL mode for concurrent readers across scopes
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
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

// RecordStore returns a RecordStore interface backed by this store.
func (s *Store) RecordStore() driven.RecordStore {
	return &recordStore{store: s}
}

// SyncPointStore returns a SyncPointStore interface backed by this store.
func (s *Store) SyncPointStore() driven.SyncPointStore {
	return &syncPointStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
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
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Record Store ====================

// recordStore implements driven.RecordStore.
type recordStore struct {
	store *Store
}

var _ driven.RecordStore = (*recordStore)(nil)

// GetByExternalID retrieves a record by its provider identity.
func (r *recordStore) GetByExternalID(ctx context.Context, instanceID, externalID string) (*domain.Record, error) {
	row := r.store.db.QueryRowContext(ctx, `
		SELECT id, instance_id, external_id, revision, kind, name,
		       group_external_id, parent_external_id, version, status, deleted,
		       source_created_at, source_updated_at, created_at, updated_at
		FROM records WHERE instance_id = ? AND external_id = ?
	`, instanceID, externalID)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning record: %w", err)
	}
	return rec, nil
}

// scanner abstracts sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*domain.Record, error) {
	var rec domain.Record
	var deleted int
	var sourceCreated, sourceUpdated, createdAt, updatedAt sql.NullTime

	if err := row.Scan(&rec.ID, &rec.InstanceID, &rec.ExternalID, &rec.ExternalRevision,
		&rec.Kind, &rec.Name, &rec.GroupExternalID, &rec.ParentExternalID,
		&rec.Version, &rec.Status, &deleted,
		&sourceCreated, &sourceUpdated, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	rec.Deleted = deleted != 0
	if sourceCreated.Valid {
		rec.SourceCreatedAt = sourceCreated.Time
	}
	if sourceUpdated.Valid {
		rec.SourceUpdatedAt = sourceUpdated.Time
	}
	if createdAt.Valid {
		rec.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		rec.UpdatedAt = updatedAt.Time
	}

	return &rec, nil
}

// GetPermissions returns the stored permission set for a record.
func (r *recordStore) GetPermissions(ctx context.Context, instanceID, externalID string) ([]domain.Permission, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT subject, subject_kind, role, target_external_id, target_is_group
		FROM permissions WHERE instance_id = ? AND target_external_id = ?
	`, instanceID, externalID)
	if err != nil {
		return nil, fmt.Errorf("querying permissions: %w", err)
	}
	defer rows.Close()

	var perms []domain.Permission
	for rows.Next() {
		var p domain.Permission
		var kind string
		var role, isGroup int
		if err := rows.Scan(&p.Subject, &kind, &role, &p.TargetExternalID, &isGroup); err != nil {
			return nil, fmt.Errorf("scanning permission: %w", err)
		}
		p.Kind = domain.SubjectKind(kind)
		p.Role = domain.Role(role)
		p.TargetIsGroup = isGroup != 0
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// UpsertRecords stores a batch of records with their permissions in a
// single transaction. The internal id and creation time of an existing
// record are preserved; everything else updates in place.
func (r *recordStore) UpsertRecords(ctx context.Context, items []driven.RecordWithPermissions) error {
	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	for _, item := range items {
		rec := item.Record

		_, err := tx.ExecContext(ctx, `
			INSERT INTO records (id, instance_id, external_id, revision, kind, name,
				group_external_id, parent_external_id, version, status, deleted,
				source_created_at, source_updated_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(instance_id, external_id) DO UPDATE SET
				revision = excluded.revision,
				kind = excluded.kind,
				name = excluded.name,
				group_external_id = excluded.group_external_id,
				parent_external_id = excluded.parent_external_id,
				version = excluded.version,
				status = excluded.status,
				deleted = excluded.deleted,
				source_created_at = excluded.source_created_at,
				source_updated_at = excluded.source_updated_at,
				updated_at = excluded.updated_at
		`, rec.ID, rec.InstanceID, rec.ExternalID, rec.ExternalRevision, rec.Kind, rec.Name,
			rec.GroupExternalID, rec.ParentExternalID, rec.Version, string(rec.Status), boolInt(rec.Deleted),
			nullTime(rec.SourceCreatedAt), nullTime(rec.SourceUpdatedAt), rec.CreatedAt, rec.UpdatedAt)
		if err != nil {
			return fmt.Errorf("upserting record %s: %w", rec.ExternalID, err)
		}

		if item.Permissions == nil && !item.MergePermissions {
			continue
		}

		if !item.MergePermissions {
			// Authoritative set: replace.
			_, err = tx.ExecContext(ctx, `
				DELETE FROM permissions
				WHERE instance_id = ? AND target_external_id = ? AND target_is_group = 0
			`, rec.InstanceID, rec.ExternalID)
			if err != nil {
				return fmt.Errorf("clearing permissions for %s: %w", rec.ExternalID, err)
			}
		}

		for _, p := range item.Permissions {
			// Provisional sets merge additively: an existing grant for
			// the same subject is kept, never downgraded.
			_, err = tx.ExecContext(ctx, `
				INSERT INTO permissions (instance_id, target_external_id, target_is_group, subject, subject_kind, role)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT DO NOTHING
			`, rec.InstanceID, rec.ExternalID, boolInt(p.TargetIsGroup), p.Subject, string(p.Kind), int(p.Role))
			if err != nil {
				return fmt.Errorf("inserting permission for %s: %w", rec.ExternalID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	return nil
}

// RetractRecord soft-deletes a record. Unknown records are ignored.
func (r *recordStore) RetractRecord(ctx context.Context, instanceID, externalID string) error {
	_, err := r.store.db.ExecContext(ctx, `
		UPDATE records SET deleted = 1, updated_at = ?
		WHERE instance_id = ? AND external_id = ?
	`, time.Now().UTC(), instanceID, externalID)
	if err != nil {
		return fmt.Errorf("retracting record: %w", err)
	}
	return nil
}

// UpsertGroups stores container nodes. Parent linkage is only written by
// SaveGroupEdges, after every node of the batch exists.
func (r *recordStore) UpsertGroups(ctx context.Context, groups []domain.RecordGroup) error {
	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, g := range groups {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO record_groups (instance_id, external_id, name, kind, parent_external_id, description)
			VALUES (?, ?, ?, ?, '', ?)
			ON CONFLICT(instance_id, external_id) DO UPDATE SET
				name = excluded.name,
				kind = excluded.kind,
				description = excluded.description
		`, g.InstanceID, g.ExternalID, g.Name, g.Kind, g.Description)
		if err != nil {
			return fmt.Errorf("upserting group %s: %w", g.ExternalID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing groups: %w", err)
	}
	return nil
}

// SaveGroupEdges creates parent-child edges between existing groups.
// An edge referencing a missing endpoint is an error.
func (r *recordStore) SaveGroupEdges(ctx context.Context, instanceID string, edges []driven.GroupEdge) error {
	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, e := range edges {
		res, err := tx.ExecContext(ctx, `
			UPDATE record_groups SET parent_external_id = ?
			WHERE instance_id = ? AND external_id = ?
			  AND EXISTS (
				SELECT 1 FROM record_groups
				WHERE instance_id = ? AND external_id = ?
			  )
		`, e.ParentExternalID, instanceID, e.ChildExternalID, instanceID, e.ParentExternalID)
		if err != nil {
			return fmt.Errorf("saving edge %s -> %s: %w", e.ChildExternalID, e.ParentExternalID, err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking edge %s: %w", e.ChildExternalID, err)
		}
		if n == 0 {
			return fmt.Errorf("edge %s -> %s: %w", e.ChildExternalID, e.ParentExternalID, domain.ErrNotFound)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing edges: %w", err)
	}
	return nil
}

// ListRecords returns all live records for an instance.
func (r *recordStore) ListRecords(ctx context.Context, instanceID string) ([]domain.Record, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT id, instance_id, external_id, revision, kind, name,
		       group_external_id, parent_external_id, version, status, deleted,
		       source_created_at, source_updated_at, created_at, updated_at
		FROM records WHERE instance_id = ? AND deleted = 0
		ORDER BY external_id
	`, instanceID)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// ==================== Sync Point Store ====================

// syncPointStore implements driven.SyncPointStore.
type syncPointStore struct {
	store *Store
}

var _ driven.SyncPointStore = (*syncPointStore)(nil)

// Save stores or updates a sync point. Last write wins per key.
func (s *syncPointStore) Save(ctx context.Context, point domain.SyncPoint) error {
	if point.UpdatedAt.IsZero() {
		point.UpdatedAt = time.Now().UTC()
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sync_points (key, cursor, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			cursor = excluded.cursor,
			updated_at = excluded.updated_at
	`, point.Key, point.Cursor, point.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving sync point: %w", err)
	}
	return nil
}

// Get retrieves the sync point for a scope key.
func (s *syncPointStore) Get(ctx context.Context, key string) (*domain.SyncPoint, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT key, cursor, updated_at FROM sync_points WHERE key = ?
	`, key)

	var point domain.SyncPoint
	var updatedAt sql.NullTime
	if err := row.Scan(&point.Key, &point.Cursor, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning sync point: %w", err)
	}
	if updatedAt.Valid {
		point.UpdatedAt = updatedAt.Time
	}

	return &point, nil
}

// Delete removes the sync point for a scope key.
func (s *syncPointStore) Delete(ctx context.Context, key string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM sync_points WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("deleting sync point: %w", err)
	}
	return nil
}

// ==================== helpers ====================

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
