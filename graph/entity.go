// Package graph implements the dependency graph and planner (C7): building
// a DAG over entity schemas selected for bulk transfer, Tarjan cycle
// detection, and Kahn tiering, generalized from the teacher's
// schema/ddl_ordering.go / schema/tsort.go topologicalSort (see DESIGN.md
// for why Tarjan+Kahn replace the teacher's three-color DFS).
package graph

// Policies captures an entity's audit and cascade-delete flags as the schema
// source supplies them. The importer's (C9) side-effect suppression does not
// read them.
type Policies struct {
	AuditEnabled  bool
	CascadeDelete bool
}

// Lookup is one outgoing reference from an entity to another, named by
// field and target entity logical name.
type Lookup struct {
	FieldName    string
	TargetEntity string
}

// Entity is one schema node as spec.md §3 describes it: name, primary key,
// the lookups it carries, and the policies governing its side effects.
// IsSelfReferential is an input hint (some schema sources mark it up front).
// Build sets SelfRef on the resulting Node when any lookup targets the
// entity itself, per §4.6's "mark selfRef=true if t=e" rule, and also when
// this hint is set.
type Entity struct {
	Name              string
	PrimaryKey        string
	Lookups           []Lookup
	IsSelfReferential bool
	Policies          Policies
}
