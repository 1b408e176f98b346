package bulk

import (
	"os"

	"gopkg.in/yaml.v2"
)

// EntityOverride carries per-entity knob overrides for a bulk run.
type EntityOverride struct {
	PageSize  int `yaml:"pageSize,omitempty"`
	BatchSize int `yaml:"batchSize,omitempty"`
	RetryCap  int `yaml:"retryCap,omitempty"`
}

// PlanConfig is the YAML document collaborators may supply to override the
// ambient pageSize/batchSize/retryCap knobs (§6) per entity, mirroring the
// teacher's database.GeneratorConfig shape.
type PlanConfig struct {
	PageSize  int                       `yaml:"pageSize,omitempty"`
	BatchSize int                       `yaml:"batchSize,omitempty"`
	RetryCap  int                       `yaml:"retryCap,omitempty"`
	Entities  map[string]EntityOverride `yaml:"entities,omitempty"`
}

// LoadPlanConfig parses a PlanConfig from path, mirroring
// database.ParseGeneratorConfig's load-and-unmarshal shape.
func LoadPlanConfig(path string) (*PlanConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg PlanConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ForEntity resolves the effective overrides for name, falling back to the
// document-level defaults for any zero field.
func (c *PlanConfig) ForEntity(name string) EntityOverride {
	if c == nil {
		return EntityOverride{}
	}
	eo := c.Entities[name]
	if eo.PageSize == 0 {
		eo.PageSize = c.PageSize
	}
	if eo.BatchSize == 0 {
		eo.BatchSize = c.BatchSize
	}
	if eo.RetryCap == 0 {
		eo.RetryCap = c.RetryCap
	}
	return eo
}
