package graph

import (
	"github.com/dvsuite/queryexec/errs"
)

// ExternalRef is a lookup whose target lies outside the set selected for
// this transfer. Its value is preserved verbatim at import time and has no
// effect on tiering (§4.6).
type ExternalRef struct {
	Entity    string
	FieldName string
	Target    string
}

// Node is one entity as classified for a specific transfer run: its
// intra-set dependency edges (excluding self), whether any lookup targets
// itself, and the lookups that point outside the selected set.
type Node struct {
	Entity   Entity
	Edges    []string // intra-set dependency targets
	SelfRef  bool
	External []ExternalRef
}

// Graph is the dependency graph built over one selected entity set.
type Graph struct {
	Nodes map[string]*Node // keyed by entity name
}

// Build classifies every selected entity's lookups against the selected set
// and the wider universe (used only to distinguish a genuinely unknown
// target, which faults, from a known-but-unselected one, which is
// classified External per §4.6). Self-references never produce an edge;
// they're recorded on the node instead, since self-reference never blocks
// tier assignment.
func Build(selected []Entity, universe map[string]Entity) (*Graph, error) {
	g := &Graph{Nodes: make(map[string]*Node, len(selected))}

	selectedSet := make(map[string]bool, len(selected))
	for _, e := range selected {
		selectedSet[e.Name] = true
	}

	for _, e := range selected {
		n := &Node{Entity: e}
		for _, l := range e.Lookups {
			switch {
			case l.TargetEntity == e.Name:
				n.SelfRef = true
			case selectedSet[l.TargetEntity]:
				n.Edges = append(n.Edges, l.TargetEntity)
			default:
				if universe != nil {
					if _, known := universe[l.TargetEntity]; !known {
						return nil, errs.New(errs.NotFound, "lookup target not present in schema universe: "+l.TargetEntity).
							WithTarget(e.Name + "." + l.FieldName)
					}
				}
				n.External = append(n.External, ExternalRef{Entity: e.Name, FieldName: l.FieldName, Target: l.TargetEntity})
			}
		}
		if e.IsSelfReferential {
			n.SelfRef = true
		}
		g.Nodes[e.Name] = n
	}
	return g, nil
}

// Externals returns every cross-plan-boundary lookup recorded during Build,
// sorted by entity then field, for manifest/diagnostic reporting.
func (g *Graph) Externals() []ExternalRef {
	var out []ExternalRef
	for _, name := range sortedNames(g.Nodes) {
		out = append(out, g.Nodes[name].External...)
	}
	return out
}
