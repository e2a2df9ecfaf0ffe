package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/abramin/compatlens/internal/catalog"
	"github.com/abramin/compatlens/internal/entity"
)

// DefaultPath is the store location relative to a project directory.
var DefaultPath = filepath.Join(".compatlens", "lists.db")

// Store persists imported incompatibility lists in SQLite.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open creates or opens the list store of a project, at .compatlens/lists.db
// relative to projectDir.
func Open(projectDir string) (*Store, error) {
	return OpenFile(filepath.Join(projectDir, DefaultPath))
}

// OpenFile creates or opens a list store at dbPath.
func OpenFile(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys and WAL mode for better performance
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DBPath returns the path to the database file.
func (s *Store) DBPath() string {
	return s.dbPath
}

// Clear removes all stored lists.
func (s *Store) Clear() error {
	tables := []string{"entities", "sources", "metadata"}
	for _, table := range tables {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clearing table %s: %w", table, err)
		}
	}
	return nil
}

// Import stores entries under the given source name. An existing row is only
// replaced when it is deprecated and the incoming entry is not, so the store
// applies the same supersede rule as catalog.Build.
func (s *Store) Import(ctx context.Context, entries []entity.Identifier, source string) (*ImportResult, error) {
	batch, err := s.BeginBatch(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting batch: %w", err)
	}
	defer batch.Rollback()

	if err := batch.UpsertSource(source, len(entries), time.Now()); err != nil {
		return nil, fmt.Errorf("recording source %s: %w", source, err)
	}

	res := &ImportResult{Source: source}
	for i, e := range entries {
		if i%512 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		written, err := batch.InsertEntity(e, source)
		if err != nil {
			return nil, fmt.Errorf("inserting %s: %w", e.ID(), err)
		}
		if written {
			res.Written++
		} else {
			res.Kept++
		}
	}

	if err := batch.Commit(); err != nil {
		return nil, fmt.Errorf("committing import: %w", err)
	}
	return res, nil
}

// Entries returns every stored entry, parsed back from its raw form and
// ordered by kind and ID. A corrupt row is reported as a *catalog.ParseError
// whose Source names the row's ID.
func (s *Store) Entries(ctx context.Context) ([]entity.Identifier, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, raw FROM entities ORDER BY kind, id")
	if err != nil {
		return nil, fmt.Errorf("querying entities: %w", err)
	}
	defer rows.Close()

	var out []entity.Identifier
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("scanning entity: %w", err)
		}
		id, err := entity.Parse(raw)
		if err != nil {
			return nil, &catalog.ParseError{Source: s.source() + "#" + key, Err: err}
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading entities: %w", err)
	}
	return out, nil
}

// Lookup returns the stored row for (kind, id).
func (s *Store) Lookup(ctx context.Context, kind entity.Kind, id string) (*Entity, error) {
	e := &Entity{}
	var deprecated int
	err := s.db.QueryRowContext(ctx,
		"SELECT kind, id, raw, deprecated, source FROM entities WHERE kind = ? AND id = ?",
		kind.String(), id,
	).Scan(&e.Kind, &e.ID, &e.Raw, &deprecated, &e.Source)
	if err != nil {
		return nil, err
	}
	e.Deprecated = deprecated != 0
	return e, nil
}

// Sources lists imported sources by name.
func (s *Store) Sources() ([]Source, error) {
	rows, err := s.db.Query("SELECT name, entry_count, imported_at FROM sources ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	var out []Source
	for rows.Next() {
		var src Source
		var ts string
		if err := rows.Scan(&src.Name, &src.EntryCount, &ts); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		src.ImportedAt, _ = time.Parse(time.RFC3339, ts)
		out = append(out, src)
	}
	return out, rows.Err()
}

// SetMetadata stores a key-value pair in the metadata table.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO metadata (key, value)
		VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// GetMetadata retrieves a value from the metadata table.
func (s *Store) GetMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	return value, err
}

// GetStats returns statistics about the stored lists.
func (s *Store) GetStats() (*Stats, error) {
	stats := &Stats{ByKind: make(map[string]int)}

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM entities", &stats.EntityCount},
		{"SELECT COUNT(*) FROM entities WHERE deprecated = 1", &stats.DeprecatedCount},
		{"SELECT COUNT(*) FROM sources", &stats.SourceCount},
	}
	for _, c := range counts {
		if err := s.db.QueryRow(c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("counting: %w", err)
		}
	}

	rows, err := s.db.Query("SELECT kind, COUNT(*) FROM entities GROUP BY kind")
	if err != nil {
		return nil, fmt.Errorf("counting kinds: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("scanning kind count: %w", err)
		}
		stats.ByKind[kind] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if ts, err := s.GetMetadata("imported_at"); err == nil {
		stats.ImportedAt, _ = time.Parse(time.RFC3339, ts)
	}
	return stats, nil
}

// DB returns the underlying database for advanced queries.
// Use with caution - prefer adding methods to Store instead.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) source() string {
	return "sqlite:" + s.dbPath
}

// BeginBatch starts a transaction for batch inserts.
// Call Commit() when done, or Rollback() on error.
func (s *Store) BeginBatch(ctx context.Context) (*BatchTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &BatchTx{tx: tx}, nil
}

// BatchTx wraps a transaction for batch operations.
type BatchTx struct {
	tx *sql.Tx
}

// Commit commits the batch transaction.
func (b *BatchTx) Commit() error {
	return b.tx.Commit()
}

// Rollback rolls back the batch transaction.
func (b *BatchTx) Rollback() error {
	return b.tx.Rollback()
}

// UpsertSource records an imported list within the batch.
func (b *BatchTx) UpsertSource(name string, entries int, at time.Time) error {
	ts := at.UTC().Format(time.RFC3339)
	if _, err := b.tx.Exec(`
		INSERT INTO sources (name, entry_count, imported_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			entry_count = excluded.entry_count,
			imported_at = excluded.imported_at
	`, name, entries, ts); err != nil {
		return err
	}
	_, err := b.tx.Exec(`
		INSERT INTO metadata (key, value)
		VALUES ('imported_at', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, ts)
	return err
}

// InsertEntity writes one entry within the batch and reports whether a row
// was written.
func (b *BatchTx) InsertEntity(e entity.Identifier, source string) (bool, error) {
	result, err := b.tx.Exec(`
		INSERT INTO entities (kind, id, raw, deprecated, source)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(kind, id) DO UPDATE SET
			raw = excluded.raw,
			deprecated = excluded.deprecated,
			source = excluded.source
		WHERE entities.deprecated = 1 AND excluded.deprecated = 0
	`, e.Kind().String(), e.ID(), entity.Encode(e), boolToInt(e.IsDeprecated()), source)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Provider returns a catalog.Provider over the stored lists.
func (s *Store) Provider() catalog.Provider {
	return provider{s: s}
}

type provider struct {
	s *Store
}

func (p provider) Available() bool {
	var n int
	if err := p.s.db.QueryRow("SELECT COUNT(*) FROM entities").Scan(&n); err != nil {
		return false
	}
	return n > 0
}

func (p provider) Source() string { return p.s.source() }

func (p provider) Entries(ctx context.Context) ([]entity.Identifier, error) {
	if !p.Available() {
		return nil, fmt.Errorf("%s: %w", p.Source(), catalog.ErrUnavailable)
	}
	return p.s.Entries(ctx)
}
