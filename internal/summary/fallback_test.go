package summary

import (
	"strings"
	"testing"
)

func TestFallbackSummary(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "short first sentence joins second",
			in:   "The council approved the budget. Spending rises next year! Critics object?",
			want: "The council approved the budget. Spending rises next year.",
		},
		{
			name: "strips tags",
			in:   "<p>The <b>council</b> approved the budget.</p><p>Spending rises next year.</p>",
			want: "The council approved the budget. Spending rises next year.",
		},
		{
			name: "skips short fragments",
			in:   "Hi. Ok. Markets rallied strongly on Monday morning",
			want: "Markets rallied strongly on Monday morning.",
		},
		{
			name: "no usable sentence",
			in:   "Short. Tiny!",
			want: "Short. Tiny!...",
		},
		{
			name: "long first sentence stands alone",
			in:   strings.Repeat("word ", 25) + "end. Second sentence is here.",
			want: strings.Repeat("word ", 25) + "end.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FallbackSummary(tt.in); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFallbackSummary_LengthAndPeriod(t *testing.T) {
	inputs := []string{
		"",
		"one",
		strings.Repeat("a", 500),
		strings.Repeat("Sentence number one goes on ", 20) + ".",
		strings.Repeat("x", 60) + ". " + strings.Repeat("y", 300) + ".",
		strings.Repeat("é", 99) + "! " + strings.Repeat("ü", 99) + "?",
		"<div>" + strings.Repeat("Nested <i>markup</i> everywhere ", 30) + "</div>",
		strings.Repeat("z", 198),
		strings.Repeat("z", 199),
		strings.Repeat("z", 200),
	}

	for _, in := range inputs {
		got := FallbackSummary(in)
		if n := len([]rune(got)); n > 200 {
			t.Errorf("Summary of %d chars input is %d chars: %q", len(in), n, got)
		}
		if !strings.HasSuffix(got, ".") {
			t.Errorf("Summary does not end with a period: %q", got)
		}
	}
}

func TestCleanText(t *testing.T) {
	in := "  <p>Hello\n\n  <em>world</em></p>\t again  "
	if got := CleanText(in); got != "Hello world again" {
		t.Errorf("Expected %q, got %q", "Hello world again", got)
	}
}
