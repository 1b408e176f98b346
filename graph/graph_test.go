package graph

import (
	"testing"

	"github.com/dvsuite/queryexec/errs"
)

func TestBuild_ClassifiesSelfExternalAndIntraSetEdges(t *testing.T) {
	universe := map[string]Entity{
		"account": {Name: "account"},
		"contact": {Name: "contact"},
		"systemuser": {Name: "systemuser"},
	}
	selected := []Entity{
		{Name: "account", Lookups: []Lookup{{FieldName: "ownerid", TargetEntity: "systemuser"}}},
		{Name: "contact", Lookups: []Lookup{
			{FieldName: "parentcustomerid", TargetEntity: "account"},
			{FieldName: "managerid", TargetEntity: "contact"},
		}},
	}

	g, err := Build(selected, universe)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if !g.Nodes["contact"].SelfRef {
		t.Fatalf("expected contact.managerid to mark SelfRef")
	}
	if len(g.Nodes["contact"].Edges) != 1 || g.Nodes["contact"].Edges[0] != "account" {
		t.Fatalf("expected contact -> account edge, got %v", g.Nodes["contact"].Edges)
	}
	if len(g.Nodes["account"].External) != 1 || g.Nodes["account"].External[0].Target != "systemuser" {
		t.Fatalf("expected account.ownerid classified external, got %v", g.Nodes["account"].External)
	}
}

func TestBuild_UnknownTargetFaultsNotFound(t *testing.T) {
	selected := []Entity{
		{Name: "account", Lookups: []Lookup{{FieldName: "custom_lookup", TargetEntity: "nope"}}},
	}
	_, err := Build(selected, map[string]Entity{"account": {Name: "account"}})
	if !errs.Is(err, errs.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestPlan_CycleFaultsWithMembers(t *testing.T) {
	selected := []Entity{
		{Name: "A", Lookups: []Lookup{{FieldName: "b", TargetEntity: "B"}}},
		{Name: "B", Lookups: []Lookup{{FieldName: "a", TargetEntity: "A"}}},
	}
	g, err := Build(selected, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	_, err = Plan(g)
	if !errs.Is(err, errs.CyclicSchema) {
		t.Fatalf("expected CyclicSchema, got %v", err)
	}
}

func TestPlan_SelfReferenceOnlyIsSingleTier(t *testing.T) {
	selected := []Entity{
		{Name: "A", Lookups: []Lookup{{FieldName: "parent", TargetEntity: "A"}}},
	}
	g, err := Build(selected, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	plan, err := Plan(g)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan.Tiers) != 1 || len(plan.Tiers[0].Entities) != 1 || plan.Tiers[0].Entities[0] != "A" {
		t.Fatalf("expected single tier [A], got %+v", plan.Tiers)
	}
	if !g.SelfRef("A") {
		t.Fatalf("expected A to be recorded SelfRef")
	}
}

func TestPlan_TiersAreDependencyOrderedAndStable(t *testing.T) {
	selected := []Entity{
		{Name: "contact", Lookups: []Lookup{{FieldName: "parentcustomerid", TargetEntity: "account"}}},
		{Name: "account", Lookups: []Lookup{{FieldName: "ownerid", TargetEntity: "systemuser"}}},
		{Name: "systemuser"},
		{Name: "opportunity", Lookups: []Lookup{
			{FieldName: "customerid", TargetEntity: "account"},
			{FieldName: "contactid", TargetEntity: "contact"},
		}},
	}
	g, err := Build(selected, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	plan, err := Plan(g)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	// opportunity depends on contact, so it lands one tier after contact.
	if len(plan.Tiers) != 4 {
		t.Fatalf("expected 4 tiers, got %d: %+v", len(plan.Tiers), plan.Tiers)
	}
	if plan.Tiers[0].Entities[0] != "systemuser" {
		t.Fatalf("expected tier 0 = [systemuser], got %v", plan.Tiers[0].Entities)
	}
	if plan.Tiers[1].Entities[0] != "account" {
		t.Fatalf("expected tier 1 = [account], got %v", plan.Tiers[1].Entities)
	}
	if len(plan.Tiers[2].Entities) != 1 || plan.Tiers[2].Entities[0] != "contact" {
		t.Fatalf("expected tier 2 = [contact], got %v", plan.Tiers[2].Entities)
	}
	if plan.Tiers[3].Entities[0] != "opportunity" {
		t.Fatalf("expected tier 3 = [opportunity], got %v", plan.Tiers[3].Entities)
	}
}
