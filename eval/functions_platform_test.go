package eval

import (
	"testing"

	"github.com/dvsuite/queryexec/value"
)

func TestCreateElasticLookup(t *testing.T) {
	v := invoke(t, "CREATEELASTICLOOKUP",
		value.NewSimple("contact"), value.NewSimple("contact"),
		value.NewSimple("00000000-0000-0000-0000-000000000001"), value.NewSimple("pK1"))
	want := "contact:contact:00000000-0000-0000-0000-000000000001:pK1"
	if v.Raw().(string) != want {
		t.Fatalf("expected %s, got %v", want, v.Raw())
	}
}

func TestCreateElasticLookup_AnyNullYieldsNull(t *testing.T) {
	v, err := Invoke("CREATEELASTICLOOKUP",
		[]value.Value{value.NewSimple("contact"), value.Null, value.NewSimple("id"), value.NewSimple("pK1")},
		&Context{})
	if err != nil {
		t.Fatal(err)
	}
	if !v.IsNull() {
		t.Fatalf("expected Null result")
	}
}
