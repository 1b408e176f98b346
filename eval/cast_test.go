package eval

import (
	"testing"
	"time"

	"github.com/dvsuite/queryexec/errs"
	"github.com/dvsuite/queryexec/value"
)

func TestCastToInt_TruncatesTowardZero(t *testing.T) {
	v, err := castValue(value.NewSimple(3.9), TypeSpec{Base: "int"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v.Raw().(int64) != 3 {
		t.Fatalf("expected 3, got %v", v.Raw())
	}

	v, err = castValue(value.NewSimple(-3.9), TypeSpec{Base: "int"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v.Raw().(int64) != -3 {
		t.Fatalf("expected -3, got %v", v.Raw())
	}
}

func TestCastToDecimal_RoundsHalfAwayFromZero(t *testing.T) {
	v, err := castValue(value.NewSimple(2.5), TypeSpec{Base: "decimal", Precision: 18, Scale: 0, HasPrecScale: true}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v.Raw().(float64) != 3 {
		t.Fatalf("expected 3, got %v", v.Raw())
	}
}

func TestCastToMoney_RoundsToFourDigits(t *testing.T) {
	v, err := castValue(value.NewSimple(1.23456), TypeSpec{Base: "money"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	m, ok := v.AsMoney()
	if !ok {
		t.Fatalf("expected Money-kind value")
	}
	if m.Amount != 1.2346 {
		t.Fatalf("expected 1.2346, got %v", m.Amount)
	}
}

func TestCastToBit_AcceptsCanonicalStrings(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want bool
	}{{"1", true}, {"true", true}, {"0", false}, {"false", false}} {
		v, err := castValue(value.NewSimple(tc.in), TypeSpec{Base: "bit"}, nil)
		if err != nil {
			t.Fatalf("%s: %v", tc.in, err)
		}
		got := v.Raw().(int64) != 0
		if got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.in, tc.want, got)
		}
	}

	if _, err := castValue(value.NewSimple("maybe"), TypeSpec{Base: "bit"}, nil); !errs.Is(err, errs.InvalidCast) {
		t.Fatalf("expected InvalidCast, got %v", err)
	}
}

func TestCastToString_DatetimeDefaultFormat(t *testing.T) {
	tm := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	v, err := castValue(value.NewSimple(tm), TypeSpec{Base: "nvarchar"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v.Raw().(string) != "2024-03-15T09:30:00.000" {
		t.Fatalf("unexpected format: %v", v.Raw())
	}
}

func TestConvert_Style101(t *testing.T) {
	tm := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	style := 101
	v, err := castValue(value.NewSimple(tm), TypeSpec{Base: "nvarchar"}, &style)
	if err != nil {
		t.Fatal(err)
	}
	if v.Raw().(string) != "03/15/2024" {
		t.Fatalf("unexpected format: %v", v.Raw())
	}
}

func TestCastToString_TruncatesToMaxLength(t *testing.T) {
	v, err := castValue(value.NewSimple("hello world"), TypeSpec{Base: "varchar", MaxLength: 5, HasLength: true}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v.Raw().(string) != "hello" {
		t.Fatalf("expected truncation to 'hello', got %v", v.Raw())
	}
}

func TestCastNull_StaysNull(t *testing.T) {
	v, err := castValue(value.Null, TypeSpec{Base: "int"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !v.IsNull() {
		t.Fatalf("expected Null")
	}
}

func TestCastGuid_Uppercase(t *testing.T) {
	v, err := castValue(value.NewSimple("ab12cd34-0000-0000-0000-000000000001"), TypeSpec{Base: "uniqueidentifier"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if v.Raw().(string) != "AB12CD34-0000-0000-0000-000000000001" {
		t.Fatalf("unexpected: %v", v.Raw())
	}
}
