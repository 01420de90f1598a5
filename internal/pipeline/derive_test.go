package pipeline

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tribunalwatch/ingest-cli/internal/model"
)

func TestQualityForText(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		quality model.ExtractionQuality
	}{
		{"empty text", 0, model.QualityLow},
		{"very short", 100, model.QualityLow},
		{"exactly medium boundary", 2000, model.QualityLow},
		{"just above medium boundary", 2001, model.QualityMedium},
		{"exactly high boundary", 5000, model.QualityMedium},
		{"just above high boundary", 5001, model.QualityHigh},
		{"long decision", 40000, model.QualityHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := strings.Repeat("a", tt.length)
			assert.Equal(t, tt.quality, QualityForText(text))
		})
	}
}

func TestProvinceForSource(t *testing.T) {
	tests := []struct {
		source   string
		province string
	}{
		{"hrto", "ON"},
		{"hrto-decisions", "ON"},
		{"chrt", "Federal"},
		{"bchrt", "BC"}, // more specific match wins over "chrt"
		{"qctdp", "QC"},
		{"abqb", "AB"},
		{"skqb", "SK"},
		{"mbqb", "MB"},
		{"nssc", "NS"},
		{"nbqb", "NB"},
		{"HRTO", "ON"},
		{"unknown-source", ""},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			assert.Equal(t, tt.province, ProvinceForSource(tt.source))
		})
	}
}

func TestExtractRemedies(t *testing.T) {
	text := `The Tribunal orders the respondent to pay $15,000 as monetary
	compensation, to complete human rights training within six months, and to
	provide a written apology to the applicant.`

	remedies := ExtractRemedies(text)
	assert.Equal(t, []string{"monetary", "training", "apology"}, remedies)
}

func TestExtractRemedies_NoMatches(t *testing.T) {
	assert.Empty(t, ExtractRemedies("The application is dismissed."))
}

func TestExtractRemedies_BareMentions(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		remedies []string
	}{
		{"amount and bare training", "ordered to pay $5,000 and shall provide training", []string{"monetary", "training"}},
		{"education", "the respondent shall complete an education program", []string{"training"}},
		{"awareness", "an awareness campaign for all staff", []string{"training"}},
		{"procedure", "shall revise its complaint procedure", []string{"policy_change"}},
		{"bare apology", "the respondent shall apologize to the applicant", []string{"apology"}},
		{"reinstatement", "the applicant shall be reinstated... order of reinstatement", []string{"reinstatement"}},
		{"reference letter", "shall provide a letter of reference", []string{"reference_letter"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.remedies, ExtractRemedies(tt.text))
		})
	}
}

func TestExtractRemedies_NoDuplicates(t *testing.T) {
	text := "Ordered to pay $5,000 in damages and a further $2,500 in damages."
	assert.Equal(t, []string{"monetary"}, ExtractRemedies(text))
}

func TestBuildCase(t *testing.T) {
	decision := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	doc := &model.Document{
		SourceID:     "2024-HRTO-101",
		Title:        "Doe v. Acme Widgets",
		CaseNumber:   "2024-12345-I",
		Tribunal:     "Human Rights Tribunal of Ontario",
		DecisionDate: decision,
		Applicant:    "J. Doe",
		Respondent:   "Acme Widgets Ltd.",
		FullText:     strings.Repeat("The applicant alleges discrimination. ", 200),
		Language:     model.LanguageEnglish,
	}
	cls := &model.Classification{
		RuleBased: model.RuleBasedResult{
			Category:   "employment",
			Grounds:    []string{"disability"},
			Confidence: 0.7,
		},
		AI: &model.AIResult{
			Category:   "employment",
			Confidence: 0.9,
			Grounds:    []string{"disability", "sex"},
			KeyIssues:  []string{"failure to accommodate"},
		},
		FinalConfidence: 0.84,
	}

	c, d := BuildCase("job-1", "hrto", "https://example.org/decisions/101", doc, cls)

	assert.Equal(t, "job-1", c.JobID)
	assert.Equal(t, "hrto", c.SourceSystem)
	assert.Equal(t, "https://example.org/decisions/101", c.SourceURL)
	assert.Equal(t, "ON", c.TribunalProvince)
	assert.Equal(t, len(doc.FullText), c.TextLength)
	assert.Equal(t, model.QualityHigh, c.ExtractionQuality)

	// Grounds merged without duplicates, rule-based first.
	assert.Equal(t, []string{"disability", "sex"}, c.DiscriminationGrounds)
	assert.Equal(t, []string{"failure to accommodate"}, c.KeyIssues)

	require.NotNil(t, c.DecisionDate)
	assert.True(t, decision.Equal(*c.DecisionDate))
	assert.Nil(t, c.FilingDate)

	assert.Equal(t, model.BucketHigh, d.Bucket)
	assert.InDelta(t, 0.84, c.CombinedConfidence, 1e-9)
	assert.False(t, c.NeedsReview)
	assert.Equal(t, model.PromotionApproved, c.PromotionStatus)
}

func TestBuildCase_LowQualityRecordsExtractionError(t *testing.T) {
	doc := &model.Document{
		Title:    "Short v. Fetch",
		FullText: "truncated",
	}
	cls := &model.Classification{
		RuleBased:       model.RuleBasedResult{Category: "other", Confidence: 0.9},
		FinalConfidence: 0.9,
	}

	c, _ := BuildCase("job-1", "hrto", "https://example.org/decisions/x", doc, cls)

	assert.Equal(t, model.QualityLow, c.ExtractionQuality)
	assert.NotEmpty(t, c.ExtractionErrors)
	// Review and routing stay confidence-driven: a confident case with a
	// short text is neither flagged nor demoted.
	assert.False(t, c.NeedsReview)
	assert.Equal(t, model.PromotionApproved, c.PromotionStatus)
}

func TestBuildCase_ReviewFlagIndependentOfQuality(t *testing.T) {
	doc := &model.Document{
		Title:    "Short v. Fetch",
		FullText: "truncated",
	}
	cls := &model.Classification{
		RuleBased:       model.RuleBasedResult{Category: "other", Confidence: 0.75},
		FinalConfidence: 0.75,
	}

	c, _ := BuildCase("job-1", "hrto", "https://example.org/decisions/x", doc, cls)

	// 0.75 clears the review threshold even though the extraction is short.
	assert.False(t, c.NeedsReview)
	assert.Equal(t, model.PromotionPending, c.PromotionStatus)
}

func TestBuildCase_AIRemediesWin(t *testing.T) {
	doc := &model.Document{
		Title:    "Doe v. Acme",
		FullText: "the applicant shall be awarded reinstatement " + strings.Repeat("and costs ", 300),
	}
	cls := &model.Classification{
		RuleBased:       model.RuleBasedResult{Category: "employment", Confidence: 0.6},
		AI:              &model.AIResult{Category: "employment", Confidence: 0.8, Remedies: []string{"monetary"}},
		FinalConfidence: 0.74,
	}

	c, _ := BuildCase("job-1", "hrto", "https://example.org/decisions/r", doc, cls)

	// The text mentions reinstatement, but the classifier already supplied
	// remedies, so no text scan happens.
	assert.Equal(t, []string{"monetary"}, c.Remedies)
}

func TestBuildCase_RemedyScanFallback(t *testing.T) {
	doc := &model.Document{
		Title:    "Doe v. Acme",
		FullText: "ordered to pay $5,000 and shall provide training " + strings.Repeat("to staff ", 300),
	}
	cls := &model.Classification{
		RuleBased:       model.RuleBasedResult{Category: "employment", Confidence: 0.6},
		FinalConfidence: 0.6,
	}

	c, _ := BuildCase("job-1", "hrto", "https://example.org/decisions/s", doc, cls)

	assert.Equal(t, []string{"monetary", "training"}, c.Remedies)
}

func TestBuildCase_DefaultsLanguageAndTribunal(t *testing.T) {
	doc := &model.Document{Title: "X v. Y", FullText: strings.Repeat("t", 3000)}
	cls := &model.Classification{FinalConfidence: 0.6}

	c, _ := BuildCase("job-1", "bchrt", "https://example.org/decisions/y", doc, cls)

	assert.Equal(t, model.LanguageEnglish, c.Language)
	assert.Equal(t, "bchrt", c.TribunalName)
	assert.Equal(t, "BC", c.TribunalProvince)
}

func TestMergeLists(t *testing.T) {
	merged := mergeLists([]string{"a", "b"}, []string{"b", "c", ""}, nil)
	assert.Equal(t, []string{"a", "b", "c"}, merged)
	assert.Nil(t, mergeLists(nil, nil))
}
