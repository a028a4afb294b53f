package usecase

import (
	"math"
	"strings"
	"testing"
	"time"
)

func TestEstimateTokens(t *testing.T) {
	cases := []struct {
		text string
		want int
	}{
		{"", 1},
		{"abc", 1},
		{"abcd", 1},
		{"abcdefgh", 2},
		{strings.Repeat("x", 400), 100},
	}
	for _, tc := range cases {
		if got := estimateTokens(tc.text); got != tc.want {
			t.Fatalf("estimateTokens(%d chars) = %d, want %d", len(tc.text), got, tc.want)
		}
	}
}

func TestEstimateTokensCountsRunesNotBytes(t *testing.T) {
	// 8 runes, 16 bytes.
	if got := estimateTokens("пппппппп"); got != 2 {
		t.Fatalf("expected 2 tokens for 8 runes, got %d", got)
	}
}

func TestAccountantCost(t *testing.T) {
	accountant := NewAccountant(0.000002)
	report := accountant.Cost(strings.Repeat("c", 400), strings.Repeat("a", 100))

	if report.PromptTokens != 100 {
		t.Fatalf("prompt tokens = %d, want 100", report.PromptTokens)
	}
	if report.CompletionTokens != 25 {
		t.Fatalf("completion tokens = %d, want 25", report.CompletionTokens)
	}
	if report.TotalTokens != 125 {
		t.Fatalf("total tokens = %d, want 125", report.TotalTokens)
	}
	if math.Abs(report.EstimatedCostUSD-0.00025) > 1e-12 {
		t.Fatalf("estimated cost = %v, want 0.00025", report.EstimatedCostUSD)
	}
}

func TestAccountantDefaultsUnitCost(t *testing.T) {
	accountant := NewAccountant(0)
	report := accountant.Cost("abcd", "abcd")
	want := roundTo(2*DefaultTokenCostUSD, 6)
	if report.EstimatedCostUSD != want {
		t.Fatalf("estimated cost = %v, want %v", report.EstimatedCostUSD, want)
	}
}

func TestRoundSecondsMillisecondPrecision(t *testing.T) {
	if got := roundSeconds(1234567 * time.Microsecond); got != 1.235 {
		t.Fatalf("roundSeconds() = %v, want 1.235", got)
	}
}
