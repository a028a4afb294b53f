package usecase

import (
	"math"
	"time"
	"unicode/utf8"

	"github.com/kirillkom/ragqa/internal/core/domain"
)

// DefaultTokenCostUSD is the flat per-token rate used for cost estimates.
// Overridable via config.
const DefaultTokenCostUSD = 0.000002

// Accountant estimates token usage and monetary cost from text lengths.
type Accountant struct {
	unitCostUSD float64
}

func NewAccountant(unitCostUSD float64) *Accountant {
	if unitCostUSD <= 0 {
		unitCostUSD = DefaultTokenCostUSD
	}
	return &Accountant{unitCostUSD: unitCostUSD}
}

func (a *Accountant) Cost(promptContext, answer string) domain.CostReport {
	promptTokens := estimateTokens(promptContext)
	completionTokens := estimateTokens(answer)
	total := promptTokens + completionTokens
	return domain.CostReport{
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      total,
		EstimatedCostUSD: roundTo(float64(total)*a.unitCostUSD, 6),
	}
}

// estimateTokens uses the coarse 4-characters-per-token heuristic, with a
// floor of one token.
func estimateTokens(text string) int {
	tokens := utf8.RuneCountInString(text) / 4
	if tokens < 1 {
		return 1
	}
	return tokens
}

// roundSeconds reports a duration as seconds at millisecond precision.
func roundSeconds(d time.Duration) float64 {
	return roundTo(d.Seconds(), 3)
}

func roundTo(v float64, digits int) float64 {
	scale := math.Pow(10, float64(digits))
	return math.Round(v*scale) / scale
}
