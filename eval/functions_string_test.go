package eval

import (
	"testing"

	"github.com/dvsuite/queryexec/value"
)

func invoke(t *testing.T, name string, args ...value.Value) value.Value {
	t.Helper()
	v, err := Invoke(name, args, &Context{})
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return v
}

func TestSubstring_BoundaryClipping(t *testing.T) {
	v := invoke(t, "SUBSTRING", value.NewSimple("abc"), value.NewSimple(int64(0)), value.NewSimple(int64(2)))
	if v.Raw().(string) != "ab" {
		t.Fatalf("SUBSTRING(abc,0,2): expected ab, got %v", v.Raw())
	}

	v = invoke(t, "SUBSTRING", value.NewSimple("abc"), value.NewSimple(int64(5)), value.NewSimple(int64(1)))
	if v.Raw().(string) != "" {
		t.Fatalf("SUBSTRING(abc,5,1): expected empty, got %v", v.Raw())
	}
}

func TestLenTrimsTrailingSpace(t *testing.T) {
	v := invoke(t, "LEN", value.NewSimple("abc  "))
	if v.Raw().(int64) != 3 {
		t.Fatalf("expected 3, got %v", v.Raw())
	}
}

func TestConcat_NullArgsTreatedAsEmpty(t *testing.T) {
	v := invoke(t, "CONCAT", value.NewSimple("a"), value.Null, value.NewSimple("b"))
	if v.Raw().(string) != "ab" {
		t.Fatalf("expected ab, got %v", v.Raw())
	}
}

func TestNullPropagation_NonTolerantFunction(t *testing.T) {
	v, err := Invoke("UPPER", []value.Value{value.Null}, &Context{})
	if err != nil {
		t.Fatal(err)
	}
	if !v.IsNull() {
		t.Fatalf("expected Null result from Null argument")
	}
}

func TestUnknownFunction_Faults(t *testing.T) {
	_, err := Invoke("NOT_A_REAL_FUNCTION", nil, &Context{})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestArgArity_Faults(t *testing.T) {
	_, err := Invoke("LEN", []value.Value{value.NewSimple("a"), value.NewSimple("b")}, &Context{})
	if err == nil {
		t.Fatalf("expected arity error")
	}
}
