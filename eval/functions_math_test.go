package eval

import (
	"testing"

	"github.com/dvsuite/queryexec/value"
)

func TestRound_DefaultIsBankers(t *testing.T) {
	v := invoke(t, "ROUND", value.NewSimple(2.5), value.NewSimple(int64(0)))
	if v.Raw().(float64) != 2 {
		t.Fatalf("ROUND(2.5,0): expected 2 (banker's), got %v", v.Raw())
	}
}

func TestRound_NonZeroModeIsHalfAwayFromZero(t *testing.T) {
	v := invoke(t, "ROUND", value.NewSimple(2.5), value.NewSimple(int64(0)), value.NewSimple(int64(1)))
	if v.Raw().(float64) != 3 {
		t.Fatalf("ROUND(2.5,0,1): expected 3, got %v", v.Raw())
	}
}

func TestAbsSignFloorCeiling(t *testing.T) {
	if invoke(t, "ABS", value.NewSimple(-4.0)).Raw().(float64) != 4 {
		t.Fatal("ABS failed")
	}
	if invoke(t, "SIGN", value.NewSimple(-4.0)).Raw().(int64) != -1 {
		t.Fatal("SIGN failed")
	}
	if invoke(t, "FLOOR", value.NewSimple(1.9)).Raw().(float64) != 1 {
		t.Fatal("FLOOR failed")
	}
	if invoke(t, "CEILING", value.NewSimple(1.1)).Raw().(float64) != 2 {
		t.Fatal("CEILING failed")
	}
}
