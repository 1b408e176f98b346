package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/dvsuite/queryexec/errs"
	"github.com/dvsuite/queryexec/fetchxml"
	"github.com/dvsuite/queryexec/graph"
)

// entitySchemaDoc is the YAML shape a --schema file carries: the set of
// entities participating in a bulk transfer, their primary key, and their
// lookup fields, which graph.Build needs to construct the dependency DAG.
// This file is ambient CLI input, not a core concern -- the core only knows
// about graph.Entity, never YAML.
type entitySchemaDoc struct {
	Entities []schemaEntity `yaml:"entities"`
}

type schemaEntity struct {
	Name              string         `yaml:"name"`
	PrimaryKey        string         `yaml:"primaryKey"`
	IsSelfReferential bool           `yaml:"isSelfReferential,omitempty"`
	Lookups           []schemaLookup `yaml:"lookups,omitempty"`
}

type schemaLookup struct {
	Field  string `yaml:"field"`
	Target string `yaml:"target"`
}

func loadSchema(path string) ([]graph.Entity, map[string]graph.Entity, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var doc entitySchemaDoc
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, nil, err
	}

	entities := make([]graph.Entity, len(doc.Entities))
	universe := make(map[string]graph.Entity, len(doc.Entities))
	for i, se := range doc.Entities {
		lookups := make([]graph.Lookup, len(se.Lookups))
		for j, l := range se.Lookups {
			lookups[j] = graph.Lookup{FieldName: l.Field, TargetEntity: l.Target}
		}
		e := graph.Entity{
			Name:              se.Name,
			PrimaryKey:        se.PrimaryKey,
			Lookups:           lookups,
			IsSelfReferential: se.IsSelfReferential,
		}
		entities[i] = e
		universe[e.Name] = e
	}
	return entities, universe, nil
}

// schemaFetchSource implements export.EntitySource over the loaded
// --schema file: since the harness has no metadata endpoint to discover an
// entity's attributes, it synthesizes the simplest FetchXML document that
// selects every attribute, the way a hand-written fetch would for a
// full-table export.
type schemaFetchSource struct {
	entities map[string]graph.Entity
}

func (s *schemaFetchSource) FetchDoc(entity string) (*fetchxml.Document, string, error) {
	e, ok := s.entities[entity]
	if !ok {
		return nil, "", errs.New(errs.NotFound, "unknown entity in schema: "+entity)
	}
	xmlStr := fmt.Sprintf(`<fetch><entity name="%s"><all-attributes/></entity></fetch>`, e.Name)
	doc, err := fetchxml.Parse(xmlStr)
	if err != nil {
		return nil, "", err
	}
	primaryIDField := e.PrimaryKey
	if primaryIDField == "" {
		primaryIDField = e.Name + "id"
	}
	return doc, primaryIDField, nil
}
