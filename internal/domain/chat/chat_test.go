package chat

import (
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	cases := map[string]int{
		"":                       0,
		"   ":                    0,
		"Hello, how are you?":    4,
		"a\tb\nc  d":             4,
		" leading and trailing ": 3,
	}
	for in, want := range cases {
		if got := EstimateTokens(in); got != want {
			t.Fatalf("EstimateTokens(%q)=%d want %d", in, got, want)
		}
	}
}

func TestDeriveTitle(t *testing.T) {
	short := "Hello, how are you?"
	if got := DeriveTitle(short); got != short {
		t.Fatalf("short title changed: %q", got)
	}
	exact := strings.Repeat("x", TitleMaxChars)
	if got := DeriveTitle(exact); got != exact {
		t.Fatalf("exact-length title should not get ellipsis: %q", got)
	}
	long := "Explain quicksort in great detail please, with examples and complexity"
	want := long[:50] + "..."
	if got := DeriveTitle(long); got != want {
		t.Fatalf("DeriveTitle=%q want %q", got, want)
	}
	padded := "   " + strings.Repeat("y", 60)
	if got := DeriveTitle(padded); !strings.HasPrefix(got, "   y") {
		t.Fatalf("title should keep raw leading whitespace: %q", got)
	}
}

func TestSamplingOverridesResolveAndValidate(t *testing.T) {
	temp := 1.5
	topK := 0
	o := SamplingOverrides{Temperature: &temp}
	got := o.Resolve(DefaultSampling)
	if got.Temperature != 1.5 || got.TopP != DefaultSampling.TopP || got.TopK != DefaultSampling.TopK {
		t.Fatalf("unexpected resolve: %+v", got)
	}
	if DefaultSampling.Temperature != 0.7 {
		t.Fatalf("defaults mutated")
	}
	if err := o.Validate(); err != nil {
		t.Fatalf("valid override rejected: %v", err)
	}
	bad := SamplingOverrides{TopK: &topK}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected top_k validation error")
	}
}
