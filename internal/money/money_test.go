package money

import "testing"

func TestParseAndString(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0.50000000", "0.5"},
		{"1", "1"},
		{"12.3", "12.3"},
		{"0.00000001", "0.00000001"},
		{"0", "0"},
		{"-1.5", "-1.5"},
	}
	for _, c := range cases {
		a, err := Parse(c.in)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", c.in, err)
		}
		if got := a.String(); got != c.want {
			t.Errorf("Parse(%q).String() = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseRejectsExcessPrecision(t *testing.T) {
	if _, err := Parse("0.123456789"); err == nil {
		t.Fatal("expected error for more than 8 fractional digits")
	}
	if _, err := Parse("0.000000010"); err != nil {
		t.Fatalf("trailing zero beyond scale should be tolerated: %v", err)
	}
}

func TestAddSub(t *testing.T) {
	a := MustParse("0.3")
	b := MustParse("0.4")
	sum := a.Add(b)
	if sum.String() != "0.7" {
		t.Fatalf("0.3+0.4 = %s, want 0.7", sum.String())
	}
	if a.Sub(b).String() != "-0.1" {
		t.Fatalf("0.3-0.4 = %s, want -0.1", a.Sub(b).String())
	}
}

func TestCmpAndThresholds(t *testing.T) {
	if _, err := Parse("0.000000001"); err == nil {
		t.Fatal("expected a sub-unit dust amount to be rejected")
	}
	min := MustParse("0.00000001")
	if !MustParse("0.00000000").IsZero() {
		t.Fatal("expected zero amount to report IsZero")
	}
	if MustParse("0.00000001").Cmp(min) != 0 {
		t.Fatal("expected equal amounts to compare equal")
	}
}

func TestSum(t *testing.T) {
	total := Sum([]Amount{MustParse("0.3"), MustParse("0.4")})
	if total.String() != "0.7" {
		t.Fatalf("Sum = %s, want 0.7", total.String())
	}
}

func TestMulProRata(t *testing.T) {
	fees := MustParse("0.001")
	// 1/3 of a fee, rounded to nearest unit.
	share := fees.Mul(1, 3)
	if share.Units() != 33333 {
		t.Fatalf("Mul(1,3) units = %d, want 33333", share.Units())
	}
}
