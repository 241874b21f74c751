package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wavemaker-labs/wmx/internal/wmx"
)

func record(id, version string) wmx.InstallRecord {
	return wmx.InstallRecord{
		ComponentID: id,
		Version:     version,
		Revision:    "v" + version,
		InstalledAt: time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC),
		Files:       []string{id + "/wmconfig.json", id + "/index.ts"},
	}
}

func TestOpenMissingFile(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := s.List(); len(got) != 0 {
		t.Errorf("List = %v, want empty", got)
	}
}

func TestUpsertGetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	want := record("chart-widget", "2.1.0")
	if err := s.Upsert(want); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, ok := s.Get("chart-widget")
	if !ok {
		t.Fatal("Get: record missing")
	}
	if got.Version != want.Version || got.Revision != want.Revision {
		t.Errorf("Get = %+v, want %+v", got, want)
	}

	// Reload from disk and verify durability.
	reloaded, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, ok = reloaded.Get("chart-widget")
	if !ok || got.Version != "2.1.0" {
		t.Errorf("reloaded Get = %+v, ok=%v", got, ok)
	}
	if len(got.Files) != 2 {
		t.Errorf("reloaded Files = %v", got.Files)
	}
}

func TestListInsertionOrderStableAcrossUpsert(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Upsert(record("alpha", "1.0.0")); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(record("beta", "1.0.0")); err != nil {
		t.Fatal(err)
	}
	// Re-install alpha at a newer version: position must not change.
	if err := s.Upsert(record("alpha", "2.0.0")); err != nil {
		t.Fatal(err)
	}

	assertOrder := func(s *Store) {
		t.Helper()
		got := s.List()
		if len(got) != 2 {
			t.Fatalf("List = %v, want 2 records", got)
		}
		if got[0].ComponentID != "alpha" || got[1].ComponentID != "beta" {
			t.Errorf("order = [%s, %s], want [alpha, beta]", got[0].ComponentID, got[1].ComponentID)
		}
		if got[0].Version != "2.0.0" {
			t.Errorf("alpha version = %s, want 2.0.0", got[0].Version)
		}
	}

	assertOrder(s)

	reloaded, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	assertOrder(reloaded)
}

func TestOpenCorruptState(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("{{not yaml"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Open(path)
	var se *wmx.StoreError
	if !errors.As(err, &se) || se.Kind != wmx.KindCorruptState {
		t.Fatalf("err = %v, want StoreError{CorruptState}", err)
	}
}

func TestOpenRejectsNonMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("- a\n- b\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Open(path)
	var se *wmx.StoreError
	if !errors.As(err, &se) || se.Kind != wmx.KindCorruptState {
		t.Fatalf("err = %v, want StoreError{CorruptState}", err)
	}
}

func TestUpsertFailurePreservesPreviousContents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(record("alpha", "1.0.0")); err != nil {
		t.Fatal(err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	// Make the directory unwritable so the temp file cannot be created.
	if os.Geteuid() == 0 {
		t.Skip("running as root, permission failure cannot be simulated")
	}
	if err := os.Chmod(dir, 0555); err != nil {
		t.Fatal(err)
	}
	defer os.Chmod(dir, 0755)

	err = s.Upsert(record("beta", "1.0.0"))
	var se *wmx.StoreError
	if !errors.As(err, &se) || se.Kind != wmx.KindWriteFailure {
		t.Fatalf("err = %v, want StoreError{WriteFailure}", err)
	}

	// In-memory state rolled back.
	if _, ok := s.Get("beta"); ok {
		t.Error("beta should not be present after failed upsert")
	}

	// File contents unchanged.
	os.Chmod(dir, 0755)
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("store file changed despite failed upsert")
	}
}
