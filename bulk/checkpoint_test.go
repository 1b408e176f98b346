package bulk

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCheckpoint_MissingFileReturnsEmpty(t *testing.T) {
	c, err := LoadCheckpoint(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("LoadCheckpoint: %v", err)
	}
	if len(c.Entities) != 0 {
		t.Fatalf("expected empty checkpoint, got %+v", c.Entities)
	}
}

func TestCheckpoint_SaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoint.yaml")

	c := NewCheckpoint()
	c.Entities["account"] = EntityCheckpoint{
		LastBatch:  2,
		RemapDelta: []RemapEntry{{SourceID: "src-1", TargetID: "tgt-1"}},
	}
	if err := c.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := LoadCheckpoint(path)
	if err != nil {
		t.Fatalf("LoadCheckpoint: %v", err)
	}
	ec, ok := got.Entities["account"]
	if !ok || ec.LastBatch != 2 || len(ec.RemapDelta) != 1 || ec.RemapDelta[0].TargetID != "tgt-1" {
		t.Fatalf("unexpected round-tripped checkpoint: %+v", got.Entities)
	}
}

func TestCheckpoint_SaveLeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoint.yaml")
	c := NewCheckpoint()
	if err := c.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "checkpoint.yaml" {
		t.Fatalf("expected only checkpoint.yaml in dir, got %v", entries)
	}
}

func TestDelete_MissingFileIsNotAnError(t *testing.T) {
	if err := Delete(filepath.Join(t.TempDir(), "nonexistent.yaml")); err != nil {
		t.Fatalf("expected nil error for missing file, got %v", err)
	}
}

func TestCheckpoint_EntityNamesSorted(t *testing.T) {
	c := NewCheckpoint()
	c.Entities["opportunity"] = EntityCheckpoint{}
	c.Entities["account"] = EntityCheckpoint{}
	c.Entities["contact"] = EntityCheckpoint{}

	names := c.EntityNames()
	want := []string{"account", "contact", "opportunity"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected sorted entity names %v, got %v", want, names)
		}
	}
}
