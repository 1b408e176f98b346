package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dvsuite/queryexec/bulk"
	"github.com/dvsuite/queryexec/bulk/export"
	"github.com/dvsuite/queryexec/value"
)

// fileSink is export.Sink backed by one JSON file per entity batch under
// dir; writeManifest folds every written batch into a bulk.Manifest once
// the export completes. This is the harness's on-disk transfer format
// between a bulk-export and a later bulk-import run.
type fileSink struct {
	dir string

	mu       sync.Mutex
	batchIdx map[string]int
	rowCount map[string]int
	content  map[string]*bytes.Buffer // accumulated bytes per entity, for the manifest checksum
}

func newFileSink(dir string) (*fileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &fileSink{
		dir:      dir,
		batchIdx: map[string]int{},
		rowCount: map[string]int{},
		content:  map[string]*bytes.Buffer{},
	}, nil
}

func (s *fileSink) Write(ctx context.Context, b export.Batch) error {
	rows := make([]map[string]any, len(b.Records))
	for i, rec := range b.Records {
		rows[i] = recordToMap(rec)
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return err
	}

	entityDir := filepath.Join(s.dir, b.Entity)
	if err := os.MkdirAll(entityDir, 0o755); err != nil {
		return err
	}

	s.mu.Lock()
	idx := s.batchIdx[b.Entity]
	s.batchIdx[b.Entity] = idx + 1
	s.rowCount[b.Entity] += len(b.Records)
	if s.content[b.Entity] == nil {
		s.content[b.Entity] = &bytes.Buffer{}
	}
	s.content[b.Entity].Write(data)
	s.mu.Unlock()

	path := filepath.Join(entityDir, fmt.Sprintf("batch-%05d.json", idx))
	return os.WriteFile(path, data, 0o644)
}

// writeManifest is called once export.Export returns, folding the
// accumulated per-entity byte streams and row counts into a bulk.Manifest.
func (s *fileSink) writeManifest() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := &bulk.Manifest{}
	for entity, rows := range s.rowCount {
		m.AddEntity(entity, rows, s.content[entity].Bytes())
	}
	return bulk.WriteManifest(filepath.Join(s.dir, "manifest.yaml"), m)
}

// fileSource is importer.Source reading back what fileSink wrote.
type fileSource struct {
	dir string
}

func (s *fileSource) NextBatch(ctx context.Context, entity string, idx int) ([]*value.Record, bool, error) {
	path := filepath.Join(s.dir, entity, fmt.Sprintf("batch-%05d.json", idx))
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, false, err
	}
	out := make([]*value.Record, len(rows))
	for i, row := range rows {
		out[i] = mapToRecord(row)
	}
	return out, true, nil
}

// recordToMap/mapToRecord round-trip a *value.Record through JSON-friendly
// primitives. This necessarily collapses Value's richer Lookup/Money/
// OptionSet variants to their Raw() payload -- acceptable for a
// library-proving harness moving data between two Dataverse environments of
// the same schema, where the importer re-derives any needed Kind from the
// target schema rather than from the wire format.
func recordToMap(rec *value.Record) map[string]any {
	out := map[string]any{}
	for _, k := range rec.Keys() {
		v, _ := rec.Get(k)
		if v.IsNull() {
			continue
		}
		out[k] = v.Raw()
	}
	return out
}

func mapToRecord(row map[string]any) *value.Record {
	rec := value.NewRecord()
	for k, v := range row {
		rec.Set(k, value.NewSimple(v))
	}
	return rec
}
