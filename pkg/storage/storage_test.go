package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	if _, err := kv.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) error = %v, want ErrNotFound", err)
	}

	if err := kv.Put(ctx, BoardKey("p1"), []byte(`{"nodes":[]}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := kv.Put(ctx, BoardKey("p1"), []byte(`{"nodes":[1]}`)); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}
	if err := kv.Put(ctx, "patients", []byte(`[]`)); err != nil {
		t.Fatalf("Put(patients) failed: %v", err)
	}

	got, err := kv.Get(ctx, BoardKey("p1"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != `{"nodes":[1]}` {
		t.Errorf("Get returned %q, want last written value", got)
	}

	keys, err := kv.Keys(ctx, "sluzki:")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != "sluzki:p1" {
		t.Errorf("Keys(sluzki:) = %v", keys)
	}

	if err := kv.Delete(ctx, BoardKey("p1")); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := kv.Get(ctx, BoardKey("p1")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Delete error = %v, want ErrNotFound", err)
	}
	if err := kv.Delete(ctx, "never-written"); err != nil {
		t.Errorf("Delete of missing key failed: %v", err)
	}
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	exerciseKV(t, m)
	if m.Writes() != 3 {
		t.Errorf("Writes() = %d, want 3", m.Writes())
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	value := []byte("abc")
	if err := m.Put(ctx, "k", value); err != nil {
		t.Fatal(err)
	}
	value[0] = 'z'

	got, _ := m.Get(ctx, "k")
	if string(got) != "abc" {
		t.Errorf("stored value aliased caller slice: %q", got)
	}
}

func TestSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terio.db")
	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	defer db.Close()

	exerciseKV(t, db)
}

func TestSQLitePersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terio.db")
	ctx := context.Background()

	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	if err := db.Put(ctx, "patients", []byte(`["x"]`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	db.Close()

	db, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db.Close()

	got, err := db.Get(ctx, "patients")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if string(got) != `["x"]` {
		t.Errorf("Get after reopen = %q", got)
	}
}
