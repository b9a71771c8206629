package guardrail

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	contractx "github.com/stylora/concierge/agent/contract"
)

// Input kinds understood by ValidateInput.
const (
	InputSelfie       = "selfie"
	InputBudget       = "budget"
	InputMeasurements = "measurements"
	InputQuery        = "query"
	InputAge          = "age"
)

const (
	minBudget = 10
	maxBudget = 2000

	minHeightCm = 100
	maxHeightCm = 250
	minWeightKg = 30
	maxWeightKg = 300
	minBMI      = 14
	maxBMI      = 40

	maxQueryLen = 500

	maxAge = 120
)

// Measurements is the sanitized result of a measurements validation,
// including the computed BMI whether the input passed or not.
type Measurements struct {
	HeightCm float64 `json:"height_cm"`
	WeightKg float64 `json:"weight_kg"`
	BMI      float64 `json:"bmi,omitempty"`
}

// ValidateInput checks one user-supplied value before any agent runs.
// It is a pure function: no lookups, no side effects.
func (e *Engine) ValidateInput(kind string, value any) contractx.InputValidation {
	switch kind {
	case InputSelfie:
		return validateSelfie(value)
	case InputBudget:
		return validateBudget(value)
	case InputMeasurements:
		return validateMeasurements(value)
	case InputQuery:
		return validateQuery(value)
	case InputAge:
		return validateAge(value)
	default:
		return contractx.InputValidation{Valid: false, Reason: fmt.Sprintf("unknown input kind %q", kind)}
	}
}

func validateSelfie(value any) contractx.InputValidation {
	raw, ok := value.(string)
	if !ok {
		return contractx.InputValidation{Valid: false, Reason: "selfie must be a URL string"}
	}
	raw = strings.TrimSpace(raw)

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return contractx.InputValidation{Valid: false, Reason: "selfie must be a well-formed URL"}
	}
	return contractx.InputValidation{Valid: true, Sanitized: u.String()}
}

func validateBudget(value any) contractx.InputValidation {
	budget, ok := toFloat(value)
	if !ok {
		return contractx.InputValidation{Valid: false, Reason: "budget must be numeric"}
	}
	if budget < minBudget {
		return contractx.InputValidation{Valid: false, Reason: fmt.Sprintf("budget must be at least %d", minBudget)}
	}
	if budget > maxBudget {
		return contractx.InputValidation{Valid: false, Reason: fmt.Sprintf("budget must not exceed %d", maxBudget)}
	}
	return contractx.InputValidation{Valid: true, Sanitized: budget}
}

func validateMeasurements(value any) contractx.InputValidation {
	m, ok := toMeasurements(value)
	if !ok {
		return contractx.InputValidation{Valid: false, Reason: "measurements must contain numeric height_cm/weight_kg"}
	}

	if m.HeightCm != 0 && (m.HeightCm < minHeightCm || m.HeightCm > maxHeightCm) {
		return contractx.InputValidation{Valid: false, Reason: fmt.Sprintf("height must be between %d and %d cm", minHeightCm, maxHeightCm)}
	}
	if m.WeightKg != 0 && (m.WeightKg < minWeightKg || m.WeightKg > maxWeightKg) {
		return contractx.InputValidation{Valid: false, Reason: fmt.Sprintf("weight must be between %d and %d kg", minWeightKg, maxWeightKg)}
	}

	if m.HeightCm > 0 && m.WeightKg > 0 {
		heightM := m.HeightCm / 100
		m.BMI = round1(m.WeightKg / (heightM * heightM))
		if m.BMI < minBMI || m.BMI > maxBMI {
			return contractx.InputValidation{
				Valid:     false,
				Reason:    fmt.Sprintf("computed BMI %.1f is outside the supported range [%d, %d]", m.BMI, minBMI, maxBMI),
				Sanitized: m,
			}
		}
	}

	return contractx.InputValidation{Valid: true, Sanitized: m}
}

func validateQuery(value any) contractx.InputValidation {
	raw, ok := value.(string)
	if !ok {
		return contractx.InputValidation{Valid: false, Reason: "query must be a string"}
	}

	for _, p := range prohibitedContentPatterns {
		if p.MatchString(raw) {
			return contractx.InputValidation{Valid: false, Reason: "query contains prohibited content"}
		}
	}

	sanitized := strings.TrimSpace(raw)
	if len(sanitized) > maxQueryLen {
		// Cut on a rune boundary so a multibyte character straddling the
		// limit never leaves invalid UTF-8 behind.
		cut := maxQueryLen
		for cut > 0 && !utf8.RuneStart(sanitized[cut]) {
			cut--
		}
		sanitized = sanitized[:cut]
	}
	return contractx.InputValidation{Valid: true, Sanitized: sanitized}
}

func validateAge(value any) contractx.InputValidation {
	if value == nil {
		return contractx.InputValidation{Valid: true}
	}
	f, ok := toFloat(value)
	if !ok || f != math.Trunc(f) {
		return contractx.InputValidation{Valid: false, Reason: "age must be an integer"}
	}
	age := int(f)
	if age < 0 || age > maxAge {
		return contractx.InputValidation{Valid: false, Reason: fmt.Sprintf("age must be between 0 and %d", maxAge)}
	}
	return contractx.InputValidation{Valid: true, Sanitized: age}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toMeasurements(value any) (Measurements, bool) {
	switch v := value.(type) {
	case Measurements:
		return v, true
	case map[string]any:
		var m Measurements
		if raw, ok := v["height_cm"]; ok {
			f, ok := toFloat(raw)
			if !ok {
				return Measurements{}, false
			}
			m.HeightCm = f
		}
		if raw, ok := v["weight_kg"]; ok {
			f, ok := toFloat(raw)
			if !ok {
				return Measurements{}, false
			}
			m.WeightKg = f
		}
		return m, true
	default:
		return Measurements{}, false
	}
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
