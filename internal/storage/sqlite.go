package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vectralab/codelens/pkg/types"
)

// SQLiteGateway implements Gateway on a SQLite database. Vectors are stored
// as little-endian float32 BLOBs, one row per (collection, id).
type SQLiteGateway struct {
	db  *sql.DB
	log *zap.Logger

	// dims caches collection dimensions so per-item validation doesn't hit
	// the database on every write.
	mu   sync.Mutex
	dims map[string]int
}

// openDatabase opens SQLite with the settings the gateway relies on.
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// WAL for concurrent readers alongside the single writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Single writer per database. Collections share the file, so exclusive
	// access is per-gateway rather than per-collection; SQLite serializes
	// the writes either way.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// NewSQLiteGateway opens (or creates) the database at dbPath and applies the
// schema. Pass ":memory:" for an ephemeral store.
func NewSQLiteGateway(dbPath string, log *zap.Logger) (*SQLiteGateway, error) {
	if log == nil {
		log = zap.NewNop()
	}

	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	g := &SQLiteGateway{db: db, log: log, dims: make(map[string]int)}
	if err := g.applySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return g, nil
}

func (g *SQLiteGateway) applySchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS collections (
		name       TEXT PRIMARY KEY,
		dimension  INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS vectors (
		collection  TEXT NOT NULL,
		id          TEXT NOT NULL,
		path        TEXT NOT NULL,
		name        TEXT NOT NULL DEFAULT '',
		file_type   TEXT NOT NULL DEFAULT '',
		size        INTEGER NOT NULL DEFAULT 0,
		snippet     TEXT NOT NULL DEFAULT '',
		author      TEXT NOT NULL DEFAULT '',
		modified_at INTEGER NOT NULL DEFAULT 0,
		indexed_at  INTEGER NOT NULL DEFAULT 0,
		dimension   INTEGER NOT NULL,
		vector      BLOB NOT NULL,
		PRIMARY KEY (collection, id)
	);
	CREATE INDEX IF NOT EXISTS idx_vectors_path ON vectors(collection, path);
	`
	if _, err := g.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// EnsureCollection implements Gateway.
func (g *SQLiteGateway) EnsureCollection(ctx context.Context, name string, dimension int, autoFix bool) (string, error) {
	if dimension <= 0 {
		return "", fmt.Errorf("%w: dimension %d", ErrDimensionMismatch, dimension)
	}

	existing, err := g.collectionDimension(ctx, name)
	if err == ErrUnknownCollection {
		if err := g.createCollection(ctx, name, dimension); err != nil {
			return "", err
		}
		return name, nil
	}
	if err != nil {
		return "", err
	}
	if existing == dimension {
		return name, nil
	}

	if !autoFix {
		return "", fmt.Errorf("%w: collection %s has dimension %d, configured %d",
			ErrDimensionMismatch, name, existing, dimension)
	}

	// Never destroy the existing collection: route writes to a
	// dimension-suffixed sibling instead.
	fixed := fmt.Sprintf("%s_d%d", name, dimension)
	g.log.Warn("collection dimension mismatch, using suffixed collection",
		zap.String("collection", name),
		zap.Int("existing", existing),
		zap.Int("configured", dimension),
		zap.String("fixed", fixed))

	fixedDim, err := g.collectionDimension(ctx, fixed)
	if err == ErrUnknownCollection {
		if err := g.createCollection(ctx, fixed, dimension); err != nil {
			return "", err
		}
		return fixed, nil
	}
	if err != nil {
		return "", err
	}
	if fixedDim != dimension {
		return "", fmt.Errorf("%w: suffixed collection %s has dimension %d", ErrDimensionMismatch, fixed, fixedDim)
	}
	return fixed, nil
}

func (g *SQLiteGateway) createCollection(ctx context.Context, name string, dimension int) error {
	_, err := g.db.ExecContext(ctx,
		"INSERT INTO collections (name, dimension, created_at) VALUES (?, ?, ?)",
		name, dimension, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	g.mu.Lock()
	g.dims[name] = dimension
	g.mu.Unlock()
	return nil
}

// collectionDimension returns the registered dimension for a collection.
func (g *SQLiteGateway) collectionDimension(ctx context.Context, name string) (int, error) {
	g.mu.Lock()
	if dim, ok := g.dims[name]; ok {
		g.mu.Unlock()
		return dim, nil
	}
	g.mu.Unlock()

	var dim int
	err := g.db.QueryRowContext(ctx, "SELECT dimension FROM collections WHERE name = ?", name).Scan(&dim)
	if err == sql.ErrNoRows {
		return 0, ErrUnknownCollection
	}
	if err != nil {
		return 0, err
	}

	g.mu.Lock()
	g.dims[name] = dim
	g.mu.Unlock()
	return dim, nil
}

// validate checks a record's vector against the collection dimension.
func (g *SQLiteGateway) validate(ctx context.Context, collection string, rec Record) error {
	dim, err := g.collectionDimension(ctx, collection)
	if err != nil {
		return err
	}
	if len(rec.Vector) != dim {
		return fmt.Errorf("%w: vector for %s has %d dimensions, collection %s expects %d",
			ErrDimensionMismatch, rec.Path, len(rec.Vector), collection, dim)
	}
	return nil
}

// Upsert implements Gateway.
func (g *SQLiteGateway) Upsert(ctx context.Context, collection string, rec Record) error {
	if err := g.validate(ctx, collection, rec); err != nil {
		return err
	}
	return g.upsertRow(ctx, g.db, collection, rec)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (g *SQLiteGateway) upsertRow(ctx context.Context, ex execer, collection string, rec Record) error {
	p := rec.Payload
	_, err := ex.ExecContext(ctx, `
		INSERT INTO vectors
			(collection, id, path, name, file_type, size, snippet, author, modified_at, indexed_at, dimension, vector)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			path=excluded.path, name=excluded.name, file_type=excluded.file_type,
			size=excluded.size, snippet=excluded.snippet, author=excluded.author,
			modified_at=excluded.modified_at, indexed_at=excluded.indexed_at,
			dimension=excluded.dimension, vector=excluded.vector`,
		collection, DeterministicID(rec.Path), p.Path, p.Name, p.FileType, p.Size,
		p.Snippet, p.Author, p.ModifiedAt.Unix(), p.IndexedAt.Unix(),
		len(rec.Vector), serializeVector(rec.Vector))
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", rec.Path, err)
	}
	return nil
}

// UpsertBatch implements Gateway. Invalid records are rejected individually;
// the remaining records are written in one transaction.
func (g *SQLiteGateway) UpsertBatch(ctx context.Context, collection string, recs []Record) (BatchResult, error) {
	var res BatchResult

	valid := make([]Record, 0, len(recs))
	for _, rec := range recs {
		if err := g.validate(ctx, collection, rec); err != nil {
			res.Rejected = append(res.Rejected, RejectedRecord{Path: rec.Path, Reason: err.Error()})
			continue
		}
		valid = append(valid, rec)
	}

	if len(valid) == 0 {
		return res, nil
	}

	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, rec := range valid {
		if err := g.upsertRow(ctx, tx, collection, rec); err != nil {
			return res, err
		}
	}
	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("failed to commit batch: %w", err)
	}

	res.Upserted = len(valid)
	return res, nil
}

// Search implements Gateway.
func (g *SQLiteGateway) Search(ctx context.Context, collection string, vector []float32, limit int, scoreThreshold float64) ([]ScoredRecord, error) {
	if limit <= 0 {
		return []ScoredRecord{}, nil
	}
	dim, err := g.collectionDimension(ctx, collection)
	if err != nil {
		return nil, err
	}
	if len(vector) != dim {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, collection %s expects %d",
			ErrDimensionMismatch, len(vector), collection, dim)
	}

	if VectorExtensionAvailable {
		return g.searchOptimized(ctx, collection, vector, limit, scoreThreshold)
	}
	return g.searchFallback(ctx, collection, vector, limit, scoreThreshold)
}

// Delete implements Gateway.
func (g *SQLiteGateway) Delete(ctx context.Context, collection string, path string) error {
	_, err := g.db.ExecContext(ctx,
		"DELETE FROM vectors WHERE collection = ? AND id = ?",
		collection, DeterministicID(path))
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

// Count implements Gateway.
func (g *SQLiteGateway) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := g.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM vectors WHERE collection = ?", collection).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Close implements Gateway.
func (g *SQLiteGateway) Close() error {
	return g.db.Close()
}

// scanPayload builds a VectorPayload from a vectors row.
func scanPayload(path, name, fileType string, size int64, snippet, author string, modifiedAt, indexedAt int64) types.VectorPayload {
	return types.VectorPayload{
		Path:       path,
		Name:       name,
		FileType:   fileType,
		Size:       size,
		Snippet:    snippet,
		Author:     author,
		ModifiedAt: time.Unix(modifiedAt, 0),
		IndexedAt:  time.Unix(indexedAt, 0),
	}
}
