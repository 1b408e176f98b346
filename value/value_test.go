package value

import (
	"testing"

	"github.com/google/uuid"
)

func TestColumnQualifiedKey(t *testing.T) {
	cases := []struct {
		name string
		col  Column
		want string
	}{
		{"alias wins", Column{LogicalName: "name", Alias: "n", LinkedEntityAlias: "c"}, "n"},
		{"linked alias", Column{LogicalName: "name", LinkedEntityAlias: "c"}, "c.name"},
		{"bare logical", Column{LogicalName: "name"}, "name"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.col.QualifiedKey(); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRecordAbsentKeyIsNull(t *testing.T) {
	r := NewRecord()
	r.Set("name", NewSimple("acme"))

	if v := r.GetOrNull("name"); v.Raw() != "acme" {
		t.Fatalf("expected acme, got %v", v.Raw())
	}
	if v := r.GetOrNull("missing"); !v.IsNull() {
		t.Fatalf("expected Null for absent key, got %v", v)
	}
	if _, ok := r.Get("missing"); ok {
		t.Fatalf("expected ok=false for absent key")
	}
}

func TestRecordCaseInsensitive(t *testing.T) {
	r := NewRecord()
	r.Set("AccountId", NewSimple("1"))
	if _, ok := r.Get("accountid"); !ok {
		t.Fatalf("expected case-insensitive lookup to find key")
	}
}

func TestFormattedNeverEmpty(t *testing.T) {
	v := NewFormatted("raw", "")
	if v.Kind() != KindSimple {
		t.Fatalf("expected NewFormatted with empty formatted string to degrade to Simple, got kind %v", v.Kind())
	}
}

func TestValueEqualByRawPayload(t *testing.T) {
	id := uuid.New()
	a := NewLookup(Lookup{ID: id, EntityName: "account"})
	b := NewLookup(Lookup{ID: id, EntityName: "account", DisplayName: "Acme"})
	if !a.Equal(b) {
		t.Fatalf("expected lookups with same id to be equal regardless of display name")
	}

	if !Null.Equal(Value{}) {
		t.Fatalf("zero Value should equal Null")
	}
}

func TestOptionSetRawIsCode(t *testing.T) {
	v := NewOptionSet(OptionSet{Code: 2, Formatted: "Active"})
	if v.Raw() != 2 {
		t.Fatalf("expected raw payload to be the code, got %v", v.Raw())
	}
}
