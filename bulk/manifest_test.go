package bulk

import (
	"path/filepath"
	"testing"
)

func TestChecksumBytes_IsDeterministic(t *testing.T) {
	a := ChecksumBytes([]byte("hello"))
	b := ChecksumBytes([]byte("hello"))
	if a != b {
		t.Fatalf("expected stable checksum, got %q then %q", a, b)
	}
	if a == ChecksumBytes([]byte("world")) {
		t.Fatalf("expected different content to produce different checksums")
	}
}

func TestManifest_AddEntityKeepsEntitiesSortedByName(t *testing.T) {
	m := &Manifest{}
	m.AddEntity("contact", 3, []byte("c"))
	m.AddEntity("account", 5, []byte("a"))
	m.AddEntity("opportunity", 1, []byte("o"))

	if len(m.Entities) != 3 {
		t.Fatalf("expected 3 entities, got %d", len(m.Entities))
	}
	names := []string{m.Entities[0].Name, m.Entities[1].Name, m.Entities[2].Name}
	want := []string{"account", "contact", "opportunity"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected sorted names %v, got %v", want, names)
		}
	}
}

func TestWriteManifestThenReadManifest_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.yaml")

	m := &Manifest{}
	m.AddEntity("account", 5, []byte("account-data"))
	if err := WriteManifest(path, m); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}

	got, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if len(got.Entities) != 1 || got.Entities[0].Name != "account" || got.Entities[0].RowCount != 5 {
		t.Fatalf("unexpected round-tripped manifest: %+v", got.Entities)
	}
	if got.Entities[0].Checksum != ChecksumBytes([]byte("account-data")) {
		t.Fatalf("checksum did not round-trip")
	}
}
