package source

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuleClassifier_AntiBlackCase(t *testing.T) {
	c := NewRuleClassifier()
	text := `The applicant, a Black employee of African descent, alleges racial
	discrimination in employment. The tribunal found evidence of racial profiling
	and systemic racism, including racist remarks about her race and colour.`

	result := c.Classify(text)

	assert.Equal(t, CategoryAntiBlackRacism, result.Category)
	assert.Greater(t, result.Confidence, 0.5)
	assert.Contains(t, result.Grounds, "race")
	assert.Contains(t, result.Grounds, "colour")
	assert.NotEmpty(t, result.Keywords)
	assert.NotEmpty(t, result.Reasoning)
}

func TestRuleClassifier_OtherDiscrimination(t *testing.T) {
	c := NewRuleClassifier()
	text := `The applicant alleges discrimination on the basis of disability.
	The respondent failed to provide accommodation for her mental health condition.`

	result := c.Classify(text)

	assert.Equal(t, CategoryOtherDiscrimination, result.Category)
	assert.Contains(t, result.Grounds, "disability")
	assert.NotContains(t, result.Grounds, "race")
}

func TestRuleClassifier_NonDiscrimination(t *testing.T) {
	c := NewRuleClassifier()
	result := c.Classify("The tenant complained about noise from the unit above.")

	assert.Equal(t, CategoryNonDiscrimination, result.Category)
	assert.Equal(t, 0.0, result.Confidence)
	assert.Empty(t, result.Keywords)
	assert.Empty(t, result.Grounds)
}

func TestRuleClassifier_EmptyText(t *testing.T) {
	c := NewRuleClassifier()
	result := c.Classify("")

	assert.Equal(t, CategoryNonDiscrimination, result.Category)
	assert.Equal(t, 0.0, result.Confidence)
}

func TestRuleClassifier_WholeWordMatching(t *testing.T) {
	c := NewRuleClassifier()
	// "trace" and "grace" must not match "race".
	result := c.Classify("No trace of grace was found in the embrace.")

	assert.Empty(t, result.Keywords)
	assert.Equal(t, 0.0, result.Confidence)
}

func TestScoreConfidence(t *testing.T) {
	tests := []struct {
		name           string
		textLength     int
		race           []string
		black          []string
		discrimination []string
		grounds        []string
		want           float64
	}{
		{
			name: "no matches", textLength: 1000,
			want: 0,
		},
		{
			// presence 10 + discrimination 10 + race ground 10 + density 10 + co-occurrence 5
			name: "single race and discrimination keyword", textLength: 1000,
			race: []string{"race"}, discrimination: []string{"discrimination"},
			grounds: []string{"race"},
			want:    0.45,
		},
		{
			name: "everything maxed caps at one", textLength: 1000,
			race:           []string{"race", "racial", "racism", "racist"},
			black:          []string{"black", "african", "caribbean", "anti-black", "afro-canadian"},
			discrimination: []string{"discrimination", "discriminatory", "discriminate", "racial profiling", "systemic racism"},
			grounds:        []string{"race", "colour"},
			want:           1.0,
		},
		{
			// presence 10 + discrimination 10 + ground (non-primary) 5 + density 10
			name: "ground without race keywords", textLength: 500,
			discrimination: []string{"discrimination"},
			grounds:        []string{"disability"},
			want:           0.35,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scoreConfidence(tt.textLength, tt.race, tt.black, tt.discrimination, tt.grounds)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestRuleClassifier_LongTextLowDensity(t *testing.T) {
	c := NewRuleClassifier()
	// One keyword buried in a long document scores lower than the same
	// keyword in a short one.
	short := c.Classify("discrimination was alleged")
	long := c.Classify("discrimination was alleged. " + strings.Repeat("The hearing continued at length. ", 500))

	assert.Greater(t, short.Confidence, long.Confidence)
}
