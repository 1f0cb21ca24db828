package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/chazu/lox/pkg/bytecode"
)

// ErrNotFound indicates the requested chunk is not in the database.
var ErrNotFound = errors.New("chunk not found")

// Persistence stores CBOR-encoded chunks in SQLite.
type Persistence struct {
	db *sql.DB
}

// OpenPersistence opens (creating if needed) the chunk database at dbPath.
func OpenPersistence(dbPath string) (*Persistence, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS chunks (
		key        TEXT PRIMARY KEY,
		version    INTEGER NOT NULL,
		data       BLOB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Persistence{db: db}, nil
}

// Get loads and decodes the chunk stored under k.
func (p *Persistence) Get(ctx context.Context, k Key) (*bytecode.Chunk, error) {
	var data []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT data FROM chunks WHERE key = ? AND version = ?`,
		k.String(), bytecode.BytecodeVersion,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading chunk %s: %w", k, err)
	}

	c, err := bytecode.UnmarshalChunk(data)
	if err != nil {
		return nil, fmt.Errorf("decoding chunk %s: %w", k, err)
	}
	return c, nil
}

// Put encodes c and stores it under k, replacing any existing row.
func (p *Persistence) Put(ctx context.Context, k Key, c *bytecode.Chunk) error {
	data, err := bytecode.MarshalChunk(c)
	if err != nil {
		return fmt.Errorf("encoding chunk %s: %w", k, err)
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO chunks (key, version, data) VALUES (?, ?, ?)`,
		k.String(), bytecode.BytecodeVersion, data,
	)
	if err != nil {
		return fmt.Errorf("storing chunk %s: %w", k, err)
	}
	return nil
}

// Count returns the number of stored chunks.
func (p *Persistence) Count(ctx context.Context) (int, error) {
	var n int
	if err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (p *Persistence) Close() error {
	return p.db.Close()
}
