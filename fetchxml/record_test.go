package fetchxml

import (
	"testing"

	"github.com/dvsuite/queryexec/value"
	"github.com/google/uuid"
)

func TestMapRecord_AbsentKeyIsNull(t *testing.T) {
	cols := []value.Column{{LogicalName: "name"}}
	rec := MapRecord("account", "accountid", RawRow{}, cols)
	if _, ok := rec.Get("name"); ok {
		t.Fatalf("expected absent key to stay unmapped")
	}
	if !rec.GetOrNull("name").IsNull() {
		t.Fatalf("expected GetOrNull to surface Null for absent key")
	}
}

func TestMapRecord_EntityReferenceBecomesLookup(t *testing.T) {
	id := uuid.New()
	cols := []value.Column{{LogicalName: "primarycontactid"}}
	rec := MapRecord("account", "accountid", RawRow{
		"primarycontactid": RawEntityReference{ID: id, EntityName: "contact", DisplayName: "Jane"},
	}, cols)
	v := rec.GetOrNull("primarycontactid")
	l, ok := v.AsLookup()
	if !ok || l.ID != id || l.EntityName != "contact" {
		t.Fatalf("expected Lookup, got %+v", v)
	}
}

func TestMapRecord_AliasedValueUnwraps(t *testing.T) {
	cols := []value.Column{{LogicalName: "name", LinkedEntityAlias: "parent"}}
	rec := MapRecord("account", "accountid", RawRow{
		"parent.name": RawAliasedValue{Value: "Contoso"},
	}, cols)
	v := rec.GetOrNull("parent.name")
	if v.Raw().(string) != "Contoso" {
		t.Fatalf("expected unwrapped Contoso, got %v", v.Raw())
	}
}

func TestMapRecord_PrimaryIDInjectedWhenAbsentFromCols(t *testing.T) {
	cols := []value.Column{{LogicalName: "name"}}
	id := uuid.New()
	rec := MapRecord("account", "accountid", RawRow{
		"name":      "Contoso",
		"accountid": id.String(),
	}, cols)
	if _, ok := rec.Get("accountid"); !ok {
		t.Fatalf("expected primary id to be auto-injected")
	}
}
