package rerank

import (
	"fmt"
	"strings"
	"time"

	catalogx "github.com/stylora/concierge/agent/catalog"
	profilex "github.com/stylora/concierge/agent/profile"
	vectorsearchx "github.com/stylora/concierge/pkg/vectorsearch"
)

// Preference bonuses are additive only, then capped at 1.0, so a score never
// decreases as more positive matches are found.
const (
	brandBonus       = 0.4
	colorBonus       = 0.3
	sizeBonus        = 0.3
	budgetBonus      = 0.2
	nearBudgetBonus  = 0.1
	nearBudgetFactor = 1.2

	recencyBonus   = 0.1
	recencyMaxDays = 365

	trendBonus = 0.15
)

type candidate struct {
	id        string
	brand     string
	category  string
	colors    []string
	sizes     []string
	price     float64
	rating    float64
	createdAt time.Time

	base float64
	meta map[string]any
}

func fromProduct(p catalogx.Product) candidate {
	return candidate{
		id:        p.ID,
		brand:     p.Brand,
		category:  p.Category,
		colors:    p.Colors,
		sizes:     p.Sizes,
		price:     p.Price,
		rating:    p.Rating,
		createdAt: p.CreatedAt,
		meta: map[string]any{
			"name":     p.Name,
			"brand":    p.Brand,
			"category": p.Category,
			"price":    p.Price,
			"rating":   p.Rating,
		},
	}
}

func fromMatch(m vectorsearchx.Match) candidate {
	c := candidate{
		id:   m.ID,
		base: clampScore(m.Score),
		meta: m.Metadata,
	}
	if m.Metadata == nil {
		return c
	}

	if s, ok := m.Metadata["brand"].(string); ok {
		c.brand = s
	}
	if s, ok := m.Metadata["category"].(string); ok {
		c.category = s
	}
	c.colors = metaStrings(m.Metadata["colors"])
	c.sizes = metaStrings(m.Metadata["sizes"])
	if f, ok := metaFloat(m.Metadata["price"]); ok {
		c.price = f
	}
	if f, ok := metaFloat(m.Metadata["rating"]); ok {
		c.rating = f
	}
	if s, ok := m.Metadata["created_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			c.createdAt = t
		}
	}
	return c
}

func (r *Ranker) score(c candidate, prof *profilex.UserProfile, trends map[string]float64, now time.Time) (float64, []string) {
	score := c.base
	var reasons []string

	if c.brand != "" && containsFold(prof.Preferences.Brands, c.brand) {
		score += brandBonus
		reasons = append(reasons, fmt.Sprintf("matches your preferred brand %s", c.brand))
	}

	if color, ok := firstCommonFold(prof.Preferences.Colors, c.colors); ok {
		score += colorBonus
		reasons = append(reasons, fmt.Sprintf("available in %s", color))
	}

	if size, ok := firstCommonFold(prof.Preferences.Sizes, c.sizes); ok {
		score += sizeBonus
		reasons = append(reasons, fmt.Sprintf("available in your size %s", size))
	}

	if budget := prof.Preferences.Budget; budget > 0 && c.price > 0 {
		switch {
		case c.price <= budget:
			score += budgetBonus
			reasons = append(reasons, "within your budget")
		case c.price <= budget*nearBudgetFactor:
			score += nearBudgetBonus
			reasons = append(reasons, "slightly above your budget")
		}
	}

	if bonus, reason := ratingBonus(c.rating); bonus > 0 {
		score += bonus
		reasons = append(reasons, reason)
	}

	if bonus := recencyDecay(c.createdAt, now); bonus > 0 {
		score += bonus
		reasons = append(reasons, "new arrival")
	}

	if v, ok := trends[strings.ToLower(strings.TrimSpace(c.category))]; ok && v > 0 {
		score += trendBonus * v
		reasons = append(reasons, "trending now")
	}

	return clampScore(score), reasons
}

func ratingBonus(rating float64) (float64, string) {
	switch {
	case rating >= 4.5:
		return 0.15, "top rated"
	case rating >= 4.0:
		return 0.10, "highly rated"
	case rating >= 3.5:
		return 0.05, "well rated"
	default:
		return 0, ""
	}
}

// recencyDecay returns a bonus falling linearly from recencyBonus at age 0 to
// zero at recencyMaxDays.
func recencyDecay(createdAt time.Time, now time.Time) float64 {
	if createdAt.IsZero() || createdAt.After(now) {
		return 0
	}
	ageDays := now.Sub(createdAt).Hours() / 24
	if ageDays >= recencyMaxDays {
		return 0
	}
	return recencyBonus * (1 - ageDays/recencyMaxDays)
}

func explain(reasons []string) string {
	if len(reasons) == 0 {
		return "Recommended for you"
	}
	return strings.Join(reasons, "; ")
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(needle)) {
			return true
		}
	}
	return false
}

func firstCommonFold(preferred []string, available []string) (string, bool) {
	for _, p := range preferred {
		if containsFold(available, p) {
			return p, true
		}
	}
	return "", false
}

func metaStrings(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func metaFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	default:
		return 0, false
	}
}
