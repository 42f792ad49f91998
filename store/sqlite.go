package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jacentio/incargo/tree"
)

// SQLite stores the tree in a single SQLite file, one row per object node
// that carries fields.
type SQLite struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &SQLite{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// initialize creates the node table.
func (s *SQLite) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS nodes (
		path TEXT PRIMARY KEY,
		doc TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (s *SQLite) Path() string {
	return s.dbPath
}

// Close closes the database. Later calls fail with ErrUnavailable.
func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// subtree selects the node at ?1 and every node below it. "0" sorts right after "/".
const subtreeWhere = `(?1 = '' OR path = ?1 OR (path > ?1 || '/' AND path < ?1 || '0'))`

// ReadSubtree implements RecordStore.
func (s *SQLite) ReadSubtree(ctx context.Context, path string) (Snapshot, error) {
	p, err := ValidatePath(path)
	if err != nil {
		return Snapshot{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return Snapshot{}, ErrUnavailable
	}

	rows, err := s.db.QueryContext(ctx, `SELECT path, doc FROM nodes WHERE `+subtreeWhere+` ORDER BY path`, p)
	if err != nil {
		return Snapshot{}, unavailable("query subtree", err)
	}
	defer rows.Close()

	var docs []tree.Doc
	for rows.Next() {
		var (
			doc tree.Doc
			raw string
		)
		if err := rows.Scan(&doc.Path, &raw); err != nil {
			return Snapshot{}, unavailable("scan node", err)
		}
		if err := json.Unmarshal([]byte(raw), &doc.Fields); err != nil {
			return Snapshot{}, fmt.Errorf("decode %q: %w", doc.Path, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, unavailable("query subtree", err)
	}
	return Snapshot{Path: p, Value: tree.Assemble(p, docs)}, nil
}

// WriteAt implements RecordStore. The replacement is one transaction.
func (s *SQLite) WriteAt(ctx context.Context, path string, value map[string]any) error {
	p, err := ValidatePath(path)
	if err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE `+subtreeWhere, p); err != nil {
			return unavailable("delete subtree", err)
		}
		return insertDocs(ctx, tx, tree.Flatten(p, value))
	})
}

// CreateAt implements Creator.
func (s *SQLite) CreateAt(ctx context.Context, path string, value map[string]any) error {
	p, err := ValidatePath(path)
	if err != nil {
		return err
	}
	docs := tree.Flatten(p, value)
	if len(docs) == 0 {
		return ErrEmptyValue
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes WHERE `+subtreeWhere, p).Scan(&n); err != nil {
			return unavailable("check subtree", err)
		}
		if n > 0 {
			return ErrAlreadyExists
		}
		return insertDocs(ctx, tx, docs)
	})
}

func (s *SQLite) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrUnavailable
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return unavailable("commit", err)
	}
	return nil
}

func insertDocs(ctx context.Context, tx *sql.Tx, docs []tree.Doc) error {
	if len(docs) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO nodes (path, doc, updated_at) VALUES (?, ?, ?)`)
	if err != nil {
		return unavailable("prepare insert", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, doc := range docs {
		raw, err := json.Marshal(doc.Fields)
		if err != nil {
			return fmt.Errorf("encode %q: %w", doc.Path, err)
		}
		if _, err := stmt.ExecContext(ctx, doc.Path, string(raw), now); err != nil {
			return unavailable("insert node", err)
		}
	}
	return nil
}
