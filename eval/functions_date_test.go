package eval

import (
	"testing"
	"time"

	"github.com/dvsuite/queryexec/value"
)

func fixedDate(t *testing.T) value.Value {
	t.Helper()
	return value.NewSimple(time.Date(2026, time.March, 15, 13, 45, 30, 250_000_000, time.UTC))
}

func TestDatePart_IsCaseInsensitive(t *testing.T) {
	d := fixedDate(t)
	lower := invoke(t, "DATEPART", value.NewSimple("year"), d)
	upper := invoke(t, "DATEPART", value.NewSimple("YEAR"), d)
	mixed := invoke(t, "DATEPART", value.NewSimple("YeAr"), d)
	if lower.Raw().(int64) != 2026 || upper.Raw().(int64) != 2026 || mixed.Raw().(int64) != 2026 {
		t.Fatalf("expected YEAR to be case-insensitive, got lower=%v upper=%v mixed=%v", lower.Raw(), upper.Raw(), mixed.Raw())
	}
}

func TestDatePart_AllPartNames(t *testing.T) {
	d := fixedDate(t)
	cases := map[string]int64{
		"year":        2026,
		"quarter":     1,
		"month":       3,
		"day":         15,
		"hour":        13,
		"minute":      45,
		"second":      30,
		"millisecond": 250,
	}
	for part, want := range cases {
		got := invoke(t, "DATEPART", value.NewSimple(part), d).Raw().(int64)
		if got != want {
			t.Fatalf("DATEPART(%s,...): expected %d, got %d", part, want, got)
		}
	}

	_, wantWeek := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC).ISOWeek()
	if got := invoke(t, "DATEPART", value.NewSimple("week"), d).Raw().(int64); got != int64(wantWeek) {
		t.Fatalf("DATEPART(week,...): expected %d, got %d", wantWeek, got)
	}
}

func TestDateAdd_IsCaseInsensitiveAndHandlesAllParts(t *testing.T) {
	d := value.NewSimple(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))

	got := invoke(t, "DATEADD", value.NewSimple("YEAR"), value.NewSimple(int64(1)), d).Raw().(time.Time)
	if got.Year() != 2027 {
		t.Fatalf("DATEADD(YEAR,1,...): expected year 2027, got %v", got)
	}

	got = invoke(t, "DATEADD", value.NewSimple("quarter"), value.NewSimple(int64(1)), d).Raw().(time.Time)
	if got.Month() != time.April {
		t.Fatalf("DATEADD(quarter,1,...): expected April, got %v", got)
	}

	got = invoke(t, "DATEADD", value.NewSimple("week"), value.NewSimple(int64(1)), d).Raw().(time.Time)
	if got.Day() != 8 {
		t.Fatalf("DATEADD(week,1,...): expected day 8, got %v", got)
	}

	got = invoke(t, "DATEADD", value.NewSimple("millisecond"), value.NewSimple(int64(250)), d).Raw().(time.Time)
	if got.Nanosecond() != 250_000_000 {
		t.Fatalf("DATEADD(millisecond,250,...): expected 250ms, got %v", got)
	}
}

func TestDateDiff_IsCaseInsensitiveAndHandlesAllParts(t *testing.T) {
	start := value.NewSimple(time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC))
	end := value.NewSimple(time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC))

	if got := invoke(t, "DATEDIFF", value.NewSimple("YEAR"), start, end).Raw().(int64); got != 1 {
		t.Fatalf("DATEDIFF(YEAR,...): expected 1, got %d", got)
	}
	if got := invoke(t, "DATEDIFF", value.NewSimple("quarter"), start, end).Raw().(int64); got != 5 {
		t.Fatalf("DATEDIFF(quarter,...): expected 5, got %d", got)
	}
	if got := invoke(t, "DATEDIFF", value.NewSimple("week"), start, end).Raw().(int64); got <= 0 {
		t.Fatalf("DATEDIFF(week,...): expected positive week count, got %d", got)
	}

	msStart := value.NewSimple(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC))
	msEnd := value.NewSimple(time.Date(2026, time.January, 1, 0, 0, 0, 500_000_000, time.UTC))
	if got := invoke(t, "DATEDIFF", value.NewSimple("millisecond"), msStart, msEnd).Raw().(int64); got != 500 {
		t.Fatalf("DATEDIFF(millisecond,...): expected 500, got %d", got)
	}
}

func TestDateFromParts(t *testing.T) {
	got := invoke(t, "DATEFROMPARTS", value.NewSimple(int64(2026)), value.NewSimple(int64(3)), value.NewSimple(int64(15))).Raw().(time.Time)
	if got.Year() != 2026 || got.Month() != time.March || got.Day() != 15 {
		t.Fatalf("DATEFROMPARTS: expected 2026-03-15, got %v", got)
	}
}

func TestDateTimeFromParts(t *testing.T) {
	got := invoke(t, "DATETIMEFROMPARTS",
		value.NewSimple(int64(2026)), value.NewSimple(int64(3)), value.NewSimple(int64(15)),
		value.NewSimple(int64(13)), value.NewSimple(int64(45)), value.NewSimple(int64(30)), value.NewSimple(int64(250)),
	).Raw().(time.Time)
	if got.Hour() != 13 || got.Minute() != 45 || got.Second() != 30 || got.Nanosecond() != 250_000_000 {
		t.Fatalf("DATETIMEFROMPARTS: expected 13:45:30.250, got %v", got)
	}
}
