package hashkey

import (
	"strings"
	"testing"
)

func TestSumKnownValues(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"", 0},
		{"a", 97},
		{"ab", 3105},   // 97*31 + 98
		{"abc", 96354}, // 3105*31 + 99
	}
	for _, tt := range tests {
		if got := Sum(tt.input); got != tt.want {
			t.Errorf("Sum(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestSumDeterministic(t *testing.T) {
	inputs := []string{
		"Hello",
		"hello world",
		"你好，世界",
		strings.Repeat("long input ", 500),
	}
	for _, in := range inputs {
		first := Sum(in)
		if second := Sum(in); second != first {
			t.Errorf("Sum(%q) not stable: %d then %d", in, first, second)
		}
		if first < 0 {
			t.Errorf("Sum(%q) = %d, want non-negative", in, first)
		}
	}
}

func TestSumDistinguishesTypicalInputs(t *testing.T) {
	seen := map[int64]string{}
	inputs := []string{"Hello", "hello", "Hello ", "World", "bonjour", "词典", "quick", "trans"}
	for _, in := range inputs {
		h := Sum(in)
		if prev, dup := seen[h]; dup {
			t.Errorf("collision between %q and %q (hash %d)", prev, in, h)
		}
		seen[h] = in
	}
}

func TestStringBase36(t *testing.T) {
	if got := String("a"); got != "2p" {
		t.Errorf("String(\"a\") = %q, want %q", got, "2p")
	}
	if got := String("ab"); got != "2e9" {
		t.Errorf("String(\"ab\") = %q, want %q", got, "2e9")
	}
	for _, r := range String("some longer cache key input") {
		if !strings.ContainsRune("0123456789abcdefghijklmnopqrstuvwxyz", r) {
			t.Fatalf("unexpected rune %q in base-36 output", r)
		}
	}
}

func TestSumSurrogatePairs(t *testing.T) {
	// U+1D11E hashes as two UTF-16 code units (0xD834, 0xDD1E), matching
	// the legacy charCodeAt iteration: 0xD834*31 + 0xDD1E = 1772394.
	if got := Sum("𝄞"); got != 1772394 {
		t.Errorf("Sum(U+1D11E) = %d, want 1772394", got)
	}
}
