package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/chazu/lox/compiler"
	"github.com/chazu/lox/pkg/bytecode"
	"github.com/chazu/lox/vm"
)

func TestKeyOf(t *testing.T) {
	a, b := KeyOf("1 + 2"), KeyOf("1 + 2")
	if a != b {
		t.Error("same source should give the same key")
	}
	if KeyOf("1 + 3") == a {
		t.Error("different sources should give different keys")
	}
	if len(a.String()) != 64 {
		t.Errorf("String() length = %d, want 64", len(a.String()))
	}
}

func TestContentStore(t *testing.T) {
	cs := NewContentStore()
	k := KeyOf("1")
	if cs.Lookup(k) != nil {
		t.Fatal("empty store returned a chunk")
	}
	c, _ := compiler.Compile("1")
	cs.Put(k, c)
	if cs.Lookup(k) != c {
		t.Error("Lookup did not return stored chunk")
	}
	if cs.Len() != 1 {
		t.Errorf("Len() = %d, want 1", cs.Len())
	}
}

func openTestDB(t *testing.T) *Persistence {
	t.Helper()
	p, err := OpenPersistence(filepath.Join(t.TempDir(), "sub", "chunks.db"))
	if err != nil {
		t.Fatalf("OpenPersistence: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

func TestPersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := openTestDB(t)

	k := KeyOf("(1 + 2) * 3")
	if _, err := p.Get(ctx, k); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get on empty db = %v, want ErrNotFound", err)
	}

	c, err := compiler.Compile("(1 + 2) * 3")
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Put(ctx, k, c); err != nil {
		t.Fatalf("Put: %v", err)
	}
	// Replacing is allowed.
	if err := p.Put(ctx, k, c); err != nil {
		t.Fatalf("second Put: %v", err)
	}
	if n, err := p.Count(ctx); err != nil || n != 1 {
		t.Errorf("Count() = %d, %v; want 1", n, err)
	}

	got, err := p.Get(ctx, k)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	v, err := vm.NewVM().Run(got)
	if err != nil || v.AsNumber() != 9 {
		t.Errorf("running stored chunk = %v, %v; want 9", v, err)
	}
}

func TestCacheCompilesOnce(t *testing.T) {
	calls := 0
	compile := func(src string) (*bytecode.Chunk, error) {
		calls++
		return compiler.Compile(src)
	}
	c := NewCache(compile, nil)
	ctx := context.Background()

	first, err := c.Compile(ctx, "1 + 1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Compile(ctx, "1 + 1")
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("compile called %d times, want 1", calls)
	}
	if first != second {
		t.Error("second lookup should return the cached chunk")
	}
}

func TestCacheDoesNotStoreFailures(t *testing.T) {
	calls := 0
	compile := func(src string) (*bytecode.Chunk, error) {
		calls++
		return compiler.Compile(src)
	}
	c := NewCache(compile, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		chunk, err := c.Compile(ctx, "(1")
		if err == nil {
			t.Fatal("expected compile error")
		}
		if chunk == nil {
			t.Fatal("failed compile should still return its chunk")
		}
	}
	if calls != 2 {
		t.Errorf("compile called %d times, want 2", calls)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestCacheReadsThroughDatabase(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	warm := NewCache(compiler.Compile, db)
	if _, err := warm.Compile(ctx, "6 / 2"); err != nil {
		t.Fatal(err)
	}

	// A fresh cache over the same database must not need the compiler.
	cold := NewCache(func(string) (*bytecode.Chunk, error) {
		t.Fatal("compiler should not be called on a database hit")
		return nil, nil
	}, db)
	chunk, err := cold.Compile(ctx, "6 / 2")
	if err != nil {
		t.Fatal(err)
	}
	v, err := vm.NewVM().Run(chunk)
	if err != nil || v.AsNumber() != 3 {
		t.Errorf("result = %v, %v; want 3", v, err)
	}
}
