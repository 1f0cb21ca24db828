package store

import (
	"context"
	"errors"

	"github.com/tliron/commonlog"

	"github.com/chazu/lox/pkg/bytecode"
)

var log = commonlog.GetLogger("lox.store")

// CompileFunc compiles source into a chunk. It is injected so the store does
// not depend on the compiler package.
type CompileFunc func(source string) (*bytecode.Chunk, error)

// Cache fronts a CompileFunc with the in-memory store and, optionally, the
// SQLite persistence layer. Only successful compilations are cached.
type Cache struct {
	mem     *ContentStore
	db      *Persistence // may be nil
	compile CompileFunc
}

// NewCache creates a cache. db may be nil for a memory-only cache.
func NewCache(compile CompileFunc, db *Persistence) *Cache {
	return &Cache{
		mem:     NewContentStore(),
		db:      db,
		compile: compile,
	}
}

// Compile returns the cached chunk for source, compiling and storing it on a
// miss. Persistence failures are logged and otherwise ignored; compile errors
// are returned unchanged along with the (unusable) chunk.
func (c *Cache) Compile(ctx context.Context, source string) (*bytecode.Chunk, error) {
	k := KeyOf(source)

	if chunk := c.mem.Lookup(k); chunk != nil {
		log.Debugf("memory hit %s", k)
		return chunk, nil
	}

	if c.db != nil {
		chunk, err := c.db.Get(ctx, k)
		switch {
		case err == nil:
			log.Debugf("database hit %s", k)
			c.mem.Put(k, chunk)
			return chunk, nil
		case !errors.Is(err, ErrNotFound):
			log.Warningf("chunk cache read failed: %s", err)
		}
	}

	chunk, err := c.compile(source)
	if err != nil {
		return chunk, err
	}

	c.mem.Put(k, chunk)
	if c.db != nil {
		if err := c.db.Put(ctx, k, chunk); err != nil {
			log.Warningf("chunk cache write failed: %s", err)
		}
	}
	log.Debugf("compiled and cached %s", k)
	return chunk, nil
}

// Len returns the number of chunks held in memory.
func (c *Cache) Len() int {
	return c.mem.Len()
}
