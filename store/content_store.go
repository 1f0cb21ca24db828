// Package store caches compiled chunks by the content hash of their source.
package store

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sync"

	"github.com/chazu/lox/pkg/bytecode"
)

// Key identifies a compiled chunk: the SHA-256 of the bytecode version
// followed by the source text.
type Key [32]byte

// KeyOf computes the cache key for source.
func KeyOf(source string) Key {
	h := sha256.New()
	var ver [2]byte
	binary.BigEndian.PutUint16(ver[:], bytecode.BytecodeVersion)
	h.Write(ver[:])
	h.Write([]byte(source))
	var k Key
	copy(k[:], h.Sum(nil))
	return k
}

func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// ---------------------------------------------------------------------------
// ContentStore: in-memory content-addressed index of chunks
// ---------------------------------------------------------------------------

// ContentStore indexes compiled chunks by Key. It is safe for concurrent use.
// Stored chunks are treated as immutable.
type ContentStore struct {
	mu     sync.RWMutex
	chunks map[Key]*bytecode.Chunk
}

// NewContentStore creates an empty content store.
func NewContentStore() *ContentStore {
	return &ContentStore{chunks: make(map[Key]*bytecode.Chunk)}
}

// Put adds a chunk under k, replacing any previous entry.
func (cs *ContentStore) Put(k Key, c *bytecode.Chunk) {
	cs.mu.Lock()
	cs.chunks[k] = c
	cs.mu.Unlock()
}

// Lookup returns the chunk for k, or nil.
func (cs *ContentStore) Lookup(k Key) *bytecode.Chunk {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.chunks[k]
}

// Len returns the number of stored chunks.
func (cs *ContentStore) Len() int {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return len(cs.chunks)
}
