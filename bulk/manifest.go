// Package bulk holds the portable on-disk formats shared by the exporter
// (bulk/export) and importer (bulk/importer): the transfer manifest, the
// plan-config overrides, and the resume checkpoint. Grounded on the
// teacher's database/database.go GeneratorConfig + gopkg.in/yaml.v2 pattern
// for structured config/state persisted to disk.
package bulk

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"sort"

	"gopkg.in/yaml.v2"
)

// ManifestEntity is one entity's row count and content checksum within a
// transfer manifest (§6).
type ManifestEntity struct {
	Name     string `yaml:"name"`
	RowCount int    `yaml:"rowCount"`
	Checksum string `yaml:"checksum"` // hex SHA-256 of the entity's canonical-ordered data file bytes
}

// Manifest lists every entity transferred in one bulk run, per §6's "a
// manifest listing entities with row counts and checksums" rule. Entities
// are kept in deterministic (ASCII) order so the manifest itself hashes
// identically across repeated runs of the same data.
type Manifest struct {
	Entities []ManifestEntity `yaml:"entities"`
}

// ChecksumBytes computes the manifest's checksum algorithm (SHA-256, hex
// encoded) over canonical-ordered bytes, per §6.
func ChecksumBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// AddEntity appends one entity's manifest record, keeping Entities sorted
// by name for determinism.
func (m *Manifest) AddEntity(name string, rowCount int, data []byte) {
	m.Entities = append(m.Entities, ManifestEntity{Name: name, RowCount: rowCount, Checksum: ChecksumBytes(data)})
	sortManifestEntities(m.Entities)
}

func sortManifestEntities(es []ManifestEntity) {
	sort.Slice(es, func(i, j int) bool { return es[i].Name < es[j].Name })
}

// WriteManifest serializes m as YAML to path.
func WriteManifest(path string, m *Manifest) error {
	b, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// ReadManifest loads a Manifest previously written by WriteManifest.
func ReadManifest(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
