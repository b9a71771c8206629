package guardrail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnonymizeReturnReasons(t *testing.T) {
	t.Parallel()

	e := NewEngine(Config{})

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "email redacted",
			in:   "contact me at john@example.com about the refund",
			want: "contact me at [REDACTED] about the refund",
		},
		{
			name: "ssn redacted",
			in:   "my ssn is 123-45-6789",
			want: "my ssn is [REDACTED]",
		},
		{
			name: "phone redacted",
			in:   "call 555-123-4567 after 5pm",
			want: "call [REDACTED] after 5pm",
		},
		{
			name: "card number redacted",
			in:   "charged to 4111 1111 1111 1111 twice",
			want: "charged to [REDACTED] twice",
		},
		{
			name: "clean reason untouched",
			in:   "sleeves were too short",
			want: "sleeves were too short",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := e.AnonymizeReturnReasons([]string{tc.in})
			require.Len(t, got, 1)
			assert.Equal(t, tc.want, got[0])
		})
	}
}

func TestSanitizeTextMedicalAdvice(t *testing.T) {
	t.Parallel()

	e := NewEngine(Config{})

	got := e.SanitizeText("This serum cures acne in two weeks")
	assert.Equal(t, consultProfessionalText, got)

	got = e.SanitizeText("Lightweight serum with niacinamide")
	assert.Equal(t, "Lightweight serum with niacinamide", got)
}

func TestFilterBodyNegativeLanguage(t *testing.T) {
	t.Parallel()

	e := NewEngine(Config{})

	got := e.FilterBodyNegativeLanguage("This dress helps you lose weight visually")
	assert.NotContains(t, got, "lose weight")
	assert.Contains(t, got, fitOptionsText)

	got = e.FilterBodyNegativeLanguage("A relaxed fit for warm days")
	assert.Equal(t, "A relaxed fit for warm days", got)
}

func TestEnsurePriceTransparency(t *testing.T) {
	t.Parallel()

	e := NewEngine(Config{})

	got := e.EnsurePriceTransparency(100, map[string]float64{
		"shipping": 12.5,
		"tax":      8.25,
	})

	assert.Equal(t, 100.0, got.BasePrice)
	assert.InDelta(t, 120.75, got.Total, 0.001)

	require.Len(t, got.Breakdown, 3)
	assert.Equal(t, "base", got.Breakdown[0].Label)
	assert.Equal(t, "shipping", got.Breakdown[1].Label)
	assert.Equal(t, "tax", got.Breakdown[2].Label)

	sum := 0.0
	for _, c := range got.Breakdown {
		sum += c.Amount
	}
	assert.InDelta(t, got.Total, sum, 0.001)
}

func TestEnsurePriceTransparencyNoFees(t *testing.T) {
	t.Parallel()

	e := NewEngine(Config{})
	got := e.EnsurePriceTransparency(49.99, nil)

	assert.InDelta(t, 49.99, got.Total, 0.001)
	require.Len(t, got.Breakdown, 1)
	assert.Equal(t, "base", got.Breakdown[0].Label)
}

func TestEnsureColorblindAccessibility(t *testing.T) {
	t.Parallel()

	e := NewEngine(Config{})

	warnings := e.EnsureColorblindAccessibility([]string{"Red", "green", "black"})
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "red")
	assert.Contains(t, warnings[0], "green")

	assert.Empty(t, e.EnsureColorblindAccessibility([]string{"black", "white"}))
	assert.Empty(t, e.EnsureColorblindAccessibility(nil))
}

func TestSanitizeOutputDispatch(t *testing.T) {
	t.Parallel()

	e := NewEngine(Config{})

	got := e.SanitizeOutput(OutputText, "doctor-approved foundation")
	assert.Equal(t, consultProfessionalText, got)

	got = e.SanitizeOutput(OutputReturnReasons, []string{"email me: a@b.co"})
	reasons, ok := got.([]string)
	require.True(t, ok)
	assert.Equal(t, "email me: [REDACTED]", reasons[0])

	// Unknown kinds and mismatched types pass through untouched.
	assert.Equal(t, 42, e.SanitizeOutput(OutputText, 42))
	assert.Equal(t, "x", e.SanitizeOutput("unknown", "x"))
}
