package validate

import "testing"

func TestAddress(t *testing.T) {
	cases := []struct {
		name string
		in   string
		ok   bool
	}{
		{"valid", "0x0000000000000000000000000000000000000001", true},
		{"missing prefix", "0000000000000000000000000000000000000001", false},
		{"too short", "0x01", false},
		{"too long", "0x00000000000000000000000000000000000000011234", false},
		{"non-hex", "0x000000000000000000000000000000000000zzzz", false},
		{"empty", "", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, ok := Address(c.in)
			if ok != c.ok {
				t.Fatalf("Address(%q) ok = %v, want %v", c.in, ok, c.ok)
			}
		})
	}
}

func TestInt(t *testing.T) {
	cases := []struct {
		name string
		in   string
		ok   bool
		want int64
	}{
		{"decimal", "100", true, 100},
		{"hex", "0x64", true, 100},
		{"zero decimal", "0", true, 0},
		{"zero hex", "0x0", true, 0},
		{"negative", "-1", false, 0},
		{"not a number", "abc", false, 0},
		{"empty", "", false, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			n, ok := Int(c.in)
			if ok != c.ok {
				t.Fatalf("Int(%q) ok = %v, want %v", c.in, ok, c.ok)
			}
			if ok && n.Int64() != c.want {
				t.Fatalf("Int(%q) = %v, want %v", c.in, n, c.want)
			}
		})
	}
}

func TestIntRejectsOverflow(t *testing.T) {
	// 2^256, one past the maximum representable 256-bit value.
	tooBig := "0x10000000000000000000000000000000000000000000000000000000000000000"
	if _, ok := Int(tooBig); ok {
		t.Fatalf("expected overflow to be rejected")
	}
}

func TestPositiveIntRejectsZero(t *testing.T) {
	if _, ok := PositiveInt("0x0"); ok {
		t.Fatalf("expected zero to be rejected")
	}
	if _, ok := PositiveInt("0x1"); !ok {
		t.Fatalf("expected positive value to be accepted")
	}
}

func TestSignature(t *testing.T) {
	valid := "0x" + repeat("ab", 65)
	if _, ok := Signature(valid); !ok {
		t.Fatalf("expected valid 65-byte signature to be accepted")
	}
	if _, ok := Signature("0x" + repeat("ab", 64)); ok {
		t.Fatalf("expected 64-byte signature to be rejected")
	}
	if _, ok := Signature(repeat("ab", 65)); ok {
		t.Fatalf("expected missing 0x prefix to be rejected")
	}
}

func repeat(s string, n int) string {
	out := make([]byte, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}
