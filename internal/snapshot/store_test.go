package snapshot

import (
	"path/filepath"
	"testing"

	"github.com/minimact/minimact-sub000/internal/vnode"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.sqlite")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutAndGet(t *testing.T) {
	s := openTestStore(t)

	tm := &vnode.TemplateMap{ComponentName: "counter", Version: "1.0.0", GeneratedAt: 1700000000}
	if err := s.Put("counter", tm); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := s.Get("counter")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatalf("expected a stored snapshot for counter")
	}
	if got.ComponentName != "counter" || got.Version != "1.0.0" {
		t.Fatalf("unexpected template map: %+v", got)
	}
}

func TestGetMissingReturnsFalse(t *testing.T) {
	s := openTestStore(t)

	_, ok, err := s.Get("missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatalf("expected no snapshot for an unregistered type")
	}
}

func TestPutOverwritesExisting(t *testing.T) {
	s := openTestStore(t)

	_ = s.Put("counter", &vnode.TemplateMap{ComponentName: "counter", Version: "1.0.0", GeneratedAt: 1})
	if err := s.Put("counter", &vnode.TemplateMap{ComponentName: "counter", Version: "2.0.0", GeneratedAt: 2}); err != nil {
		t.Fatalf("put overwrite: %v", err)
	}

	got, ok, err := s.Get("counter")
	if err != nil || !ok {
		t.Fatalf("get after overwrite: ok=%v err=%v", ok, err)
	}
	if got.Version != "2.0.0" {
		t.Fatalf("expected overwritten version 2.0.0, got %q", got.Version)
	}
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)

	_ = s.Put("counter", &vnode.TemplateMap{ComponentName: "counter", Version: "1.0.0", GeneratedAt: 1})
	if err := s.Delete("counter"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	_, ok, err := s.Get("counter")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatalf("expected snapshot to be gone after delete")
	}
}

func TestComponentTypes(t *testing.T) {
	s := openTestStore(t)

	_ = s.Put("counter", &vnode.TemplateMap{ComponentName: "counter", Version: "1.0.0", GeneratedAt: 1})
	_ = s.Put("timer", &vnode.TemplateMap{ComponentName: "timer", Version: "1.0.0", GeneratedAt: 1})

	types, err := s.ComponentTypes()
	if err != nil {
		t.Fatalf("component types: %v", err)
	}
	if len(types) != 2 || types[0] != "counter" || types[1] != "timer" {
		t.Fatalf("expected [counter timer], got %v", types)
	}
}
