package bulk

import (
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v2"
)

// RemapEntry is one sourceID -> targetID id-remap delta persisted alongside
// an entity's checkpoint, so a resumed run can rebuild the in-memory id
// remap table without re-upserting already-applied records.
type RemapEntry struct {
	SourceID string `yaml:"sourceId"`
	TargetID string `yaml:"targetId"`
}

// EntityCheckpoint is one entity's resume position within an import run:
// the count of batches fully applied (the index of the next batch to
// attempt), and the id-remap delta produced by those batches.
type EntityCheckpoint struct {
	LastBatch  int          `yaml:"lastBatch"`
	RemapDelta []RemapEntry `yaml:"remapDelta,omitempty"`
	Completed  bool         `yaml:"completed,omitempty"`
}

// Checkpoint is the importer's persisted resume state (§6's "Persisted
// state"): a sorted map entity -> {lastBatch, dedupedRemapIds[]}.
type Checkpoint struct {
	Entities map[string]EntityCheckpoint `yaml:"entities"`
}

// NewCheckpoint constructs an empty Checkpoint.
func NewCheckpoint() *Checkpoint {
	return &Checkpoint{Entities: map[string]EntityCheckpoint{}}
}

// LoadCheckpoint reads a previously-written checkpoint, or returns an empty
// one if path doesn't exist yet (a fresh run has no prior checkpoint).
func LoadCheckpoint(path string) (*Checkpoint, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewCheckpoint(), nil
	}
	if err != nil {
		return nil, err
	}
	var c Checkpoint
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	if c.Entities == nil {
		c.Entities = map[string]EntityCheckpoint{}
	}
	return &c, nil
}

// Save rewrites the checkpoint file atomically: write to a temp file in the
// same directory, then rename over the target, so a crash mid-write never
// leaves a truncated checkpoint (§5's "crash-safe: write-temp-then-rename").
func (c *Checkpoint) Save(path string) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".checkpoint-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// Delete removes the checkpoint file, called on all-tier import success
// (§4.8's Completion rule). Missing file is not an error.
func Delete(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// EntityNames returns the checkpoint's entity keys in sorted order.
func (c *Checkpoint) EntityNames() []string {
	out := make([]string, 0, len(c.Entities))
	for name := range c.Entities {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
