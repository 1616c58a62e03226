package krt

import "testing"

func TestDateRoundTrip(t *testing.T) {
	cases := []struct{ y, m, d int32 }{
		{2000, 1, 1},
		{1970, 1, 1},
		{2026, 7, 30},
		{1582, 10, 15}, // Gregorian reform date
	}
	for _, c := range cases {
		jd := BuildDate(c.y, c.m, c.d)
		y, m, d := SplitDate(jd)
		if y != c.y || m != c.m || d != c.d {
			t.Fatalf("round trip (%d-%d-%d) -> jd %d -> (%d-%d-%d)", c.y, c.m, c.d, jd, y, m, d)
		}
		if yr := ExtractYear(jd); yr != c.y {
			t.Fatalf("ExtractYear(%d) = %d, want %d", jd, yr, c.y)
		}
	}
}

func TestSQLLike(t *testing.T) {
	cases := []struct {
		s, pattern string
		want       bool
	}{
		{"hello", "h%", true},
		{"hello", "%llo", true},
		{"hello", "h_llo", true},
		{"hello", "h_lo", false},
		{"hello", "world", false},
		{"", "%", true},
	}
	for _, c := range cases {
		if got := sqlLike(c.s, c.pattern); got != c.want {
			t.Fatalf("sqlLike(%q, %q) = %v, want %v", c.s, c.pattern, got, c.want)
		}
	}
}
