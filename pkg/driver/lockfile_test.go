package driver

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLockfileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, LockFileName)

	lock := NewLockfile("expr-labs", "xaitest 0.0.1-dev")
	lock.Upsert(&LockedPack{
		Name:     "extra",
		Version:  "v1.0.0@abcdef",
		Source:   "git+https://example.com/fixtures.git@abcdef",
		Checksum: "deadbeef",
	})
	lock.Upsert(&LockedPack{
		Name:     "base",
		Version:  "0123456789ab",
		Source:   "path:/tmp/base",
		Checksum: "0123456789ab",
	})

	if err := WriteLockfile(lock, path); err != nil {
		t.Fatalf("WriteLockfile: %v", err)
	}

	loaded, err := LoadLockfile(path)
	if err != nil {
		t.Fatalf("LoadLockfile: %v", err)
	}
	if loaded.Root != "expr_labs" {
		t.Fatalf("Root = %q, want expr_labs", loaded.Root)
	}
	if loaded.Tool != "xaitest 0.0.1-dev" {
		t.Fatalf("Tool = %q", loaded.Tool)
	}
	if loaded.Generated == "" {
		t.Fatalf("Generated timestamp missing")
	}
	if len(loaded.Packs) != 2 {
		t.Fatalf("Packs = %#v", loaded.Packs)
	}
	// normalize keeps entries sorted by name.
	if loaded.Packs[0].Name != "base" || loaded.Packs[1].Name != "extra" {
		t.Fatalf("packs not sorted: %#v", loaded.Packs)
	}
	if loaded.Packs[1].Source != "git+https://example.com/fixtures.git@abcdef" {
		t.Fatalf("source lost: %#v", loaded.Packs[1])
	}
}

func TestLockfileUpsertReportsChanges(t *testing.T) {
	lock := NewLockfile("demo", "xaitest")
	entry := &LockedPack{Name: "extra", Version: "1", Source: "path:/a", Checksum: "x"}

	if !lock.Upsert(entry) {
		t.Fatalf("first upsert should report a change")
	}
	same := &LockedPack{Name: "extra", Version: "1", Source: "path:/a", Checksum: "x"}
	if lock.Upsert(same) {
		t.Fatalf("identical upsert should be a no-op")
	}
	bumped := &LockedPack{Name: "extra", Version: "2", Source: "path:/a", Checksum: "y"}
	if !lock.Upsert(bumped) {
		t.Fatalf("changed entry should report a change")
	}
	if got := lock.FindPack("extra"); got == nil || got.Version != "2" {
		t.Fatalf("upsert did not replace entry: %#v", got)
	}
}

func TestLoadLockfileMissingFile(t *testing.T) {
	_, err := LoadLockfile(filepath.Join(t.TempDir(), LockFileName))
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestLoadLockfileRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, LockFileName)
	contents := strings.TrimSpace(`
root: demo
generated: "2026-01-01T00:00:00Z"
tool: xaitest
surprise: true
packs: []
`)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write lockfile: %v", err)
	}
	if _, err := LoadLockfile(path); err == nil {
		t.Fatalf("expected unknown-field error")
	}
}
