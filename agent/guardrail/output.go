package guardrail

import (
	"fmt"
	"sort"
	"strings"
)

// Output kinds understood by SanitizeOutput. Price transparency takes two
// inputs and is exposed directly as EnsurePriceTransparency instead.
const (
	OutputText          = "text"
	OutputReturnReasons = "return_reasons"
	OutputColors        = "colors"
)

const consultProfessionalText = "For skin or health concerns, please consult a qualified professional."

const fitOptionsText = "consider fit options"

// PriceComponent is one itemized part of a transparent price.
type PriceComponent struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// PriceBreakdown itemizes every component contributing to the total.
type PriceBreakdown struct {
	BasePrice float64          `json:"base_price"`
	Total     float64          `json:"total"`
	Breakdown []PriceComponent `json:"breakdown"`
}

// SanitizeOutput applies the output pipeline for the given kind. Sanitizers
// are pure transforms: they rewrite, never reject.
func (e *Engine) SanitizeOutput(kind string, value any) any {
	switch kind {
	case OutputText:
		if s, ok := value.(string); ok {
			return e.SanitizeText(s)
		}
	case OutputReturnReasons:
		if rs, ok := value.([]string); ok {
			return e.AnonymizeReturnReasons(rs)
		}
	case OutputColors:
		if cs, ok := value.([]string); ok {
			return e.EnsureColorblindAccessibility(cs)
		}
	}
	return value
}

// SanitizeText runs all text rewrites: medical-advice language first, then
// body-negative phrasing.
func (e *Engine) SanitizeText(text string) string {
	return e.FilterBodyNegativeLanguage(e.sanitizeMedicalAdvice(text))
}

func (e *Engine) sanitizeMedicalAdvice(text string) string {
	for _, p := range medicalAdvicePatterns {
		if p.MatchString(text) {
			return consultProfessionalText
		}
	}
	return text
}

// EnsurePriceTransparency itemizes the full cost of a price plus fees.
// Total is always base price plus every fee, each named in the breakdown.
func (e *Engine) EnsurePriceTransparency(price float64, fees map[string]float64) PriceBreakdown {
	breakdown := PriceBreakdown{
		BasePrice: price,
		Total:     price,
		Breakdown: []PriceComponent{{Label: "base", Amount: price}},
	}

	labels := make([]string, 0, len(fees))
	for label := range fees {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		breakdown.Breakdown = append(breakdown.Breakdown, PriceComponent{Label: label, Amount: fees[label]})
		breakdown.Total += fees[label]
	}
	return breakdown
}

// EnsureColorblindAccessibility flags confusable color pairs present in the
// set as warnings. The color list itself is never altered.
func (e *Engine) EnsureColorblindAccessibility(colors []string) []string {
	present := make(map[string]bool, len(colors))
	for _, c := range colors {
		present[strings.ToLower(strings.TrimSpace(c))] = true
	}

	var warnings []string
	for _, pair := range colorblindConfusablePairs {
		if present[pair[0]] && present[pair[1]] {
			warnings = append(warnings, fmt.Sprintf("colors %s and %s may be hard to distinguish for colorblind users", pair[0], pair[1]))
		}
	}
	return warnings
}

// AnonymizeReturnReasons redacts PII-shaped substrings in free-text return
// reasons with a fixed token.
func (e *Engine) AnonymizeReturnReasons(reasons []string) []string {
	if len(reasons) == 0 {
		return reasons
	}
	out := make([]string, len(reasons))
	for i, reason := range reasons {
		out[i] = e.redactPII(reason)
	}
	return out
}

func (e *Engine) redactPII(text string) string {
	for _, p := range piiPatterns {
		text = p.pattern.ReplaceAllString(text, redactedToken)
	}
	return text
}

// FilterBodyNegativeLanguage rewrites weight-loss-pressure phrasing to a
// neutral fit suggestion.
func (e *Engine) FilterBodyNegativeLanguage(text string) string {
	for _, p := range bodyNegativePatterns {
		text = p.ReplaceAllString(text, fitOptionsText)
	}
	return text
}
