package pipeline

import (
	"regexp"
	"strings"

	"github.com/tribunalwatch/ingest-cli/internal/model"
)

// Text-length thresholds for grading extraction quality. Tribunal decisions
// shorter than ~2000 characters are almost always truncated fetches.
const (
	highQualityMinLength   = 5000
	mediumQualityMinLength = 2000
)

// QualityForText grades the fetched full text by length alone. QualityFailed
// is reserved for upstream fetch failures and is never produced here.
func QualityForText(text string) model.ExtractionQuality {
	n := len(text)
	switch {
	case n > highQualityMinLength:
		return model.QualityHigh
	case n > mediumQualityMinLength:
		return model.QualityMedium
	default:
		return model.QualityLow
	}
}

// provinceBySource maps source-system identifiers to jurisdictions by
// substring match. Identifiers vary by crawler ("hrto", "hrto-decisions") so
// exact matching is too brittle.
var provinceBySource = []struct {
	substr   string
	province string
}{
	{"hrto", "ON"},
	{"chrt", "Federal"},
	{"bchrt", "BC"},
	{"qctdp", "QC"},
	{"abqb", "AB"},
	{"skqb", "SK"},
	{"mbqb", "MB"},
	{"nssc", "NS"},
	{"nbqb", "NB"},
}

// ProvinceForSource derives the tribunal's jurisdiction from the source
// system identifier. Returns "" when no known tribunal matches.
func ProvinceForSource(sourceSystem string) string {
	s := strings.ToLower(sourceSystem)
	// More specific identifiers first: "bchrt" contains "chrt".
	best := ""
	bestLen := 0
	for _, m := range provinceBySource {
		if strings.Contains(s, m.substr) && len(m.substr) > bestLen {
			best = m.province
			bestLen = len(m.substr)
		}
	}
	return best
}

// remedyPatterns detects remedy types awarded in a decision's text. The word
// patterns are deliberately broad; a bare "training" or "procedure" mention
// counts.
var remedyPatterns = []struct {
	remedy string
	re     *regexp.Regexp
}{
	{"monetary", regexp.MustCompile(`\$[\d,]+`)},
	{"training", regexp.MustCompile(`(?i)\b(training|education|awareness)\b`)},
	{"policy_change", regexp.MustCompile(`(?i)\b(policy|policies|procedure)\b`)},
	{"reinstatement", regexp.MustCompile(`(?i)\breinstat(e|ement)\b`)},
	{"apology", regexp.MustCompile(`(?i)\bapolog(y|ize)\b`)},
	{"reference_letter", regexp.MustCompile(`(?i)\b(reference|letter)\b`)},
}

// ExtractRemedies scans the decision text for awarded remedy types. The
// result preserves pattern order and contains no duplicates.
func ExtractRemedies(fullText string) []string {
	var remedies []string
	for _, p := range remedyPatterns {
		if p.re.MatchString(fullText) {
			remedies = append(remedies, p.remedy)
		}
	}
	return remedies
}

// mergeLists combines AI-derived and rule-derived string lists, dropping
// duplicates while keeping first-seen order.
func mergeLists(lists ...[]string) []string {
	var merged []string
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, v := range list {
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			merged = append(merged, v)
		}
	}
	return merged
}

// BuildCase assembles a storable case from a fetched document and its
// classification. Routing (bucket, review flag, initial promotion status) is
// applied here so every case enters the store already triaged.
func BuildCase(jobID, sourceSystem, sourceURL string, doc *model.Document, cls *model.Classification) (*model.TribunalCase, Decision) {
	decision := Route(cls.FinalConfidence)

	lang := doc.Language
	if lang == "" {
		lang = model.LanguageEnglish
	}

	tribunal := doc.Tribunal
	if tribunal == "" {
		tribunal = sourceSystem
	}

	c := &model.TribunalCase{
		SourceURL:    sourceURL,
		SourceSystem: sourceSystem,
		SourceID:     doc.SourceID,
		JobID:        jobID,

		Title:      doc.Title,
		CaseNumber: doc.CaseNumber,
		Citation:   doc.Citation,

		TribunalName:     tribunal,
		TribunalProvince: ProvinceForSource(sourceSystem),

		Applicant:  doc.Applicant,
		Respondent: doc.Respondent,

		FullText:     doc.FullText,
		TextLength:   len(doc.FullText),
		DocumentType: doc.DocumentType,
		Language:     lang,
		PDFURL:       doc.PDFURL,

		RuleBased:          cls.RuleBased,
		AI:                 cls.AI,
		CombinedConfidence: decision.Confidence,

		ExtractionQuality: QualityForText(doc.FullText),
		NeedsReview:       decision.NeedsReview,
		PromotionStatus:   decision.InitialStatus,
	}

	if !doc.DecisionDate.IsZero() {
		d := doc.DecisionDate
		c.DecisionDate = &d
	}
	if !doc.FilingDate.IsZero() {
		d := doc.FilingDate
		c.FilingDate = &d
	}

	grounds := cls.RuleBased.Grounds
	var aiGrounds, aiIssues, aiRemedies []string
	if cls.AI != nil {
		aiGrounds = cls.AI.Grounds
		aiIssues = cls.AI.KeyIssues
		aiRemedies = cls.AI.Remedies
	}
	c.DiscriminationGrounds = mergeLists(grounds, aiGrounds)
	c.KeyIssues = aiIssues
	// Text-scan remedies are a fallback for when the classifier supplied none.
	if len(aiRemedies) > 0 {
		c.Remedies = mergeLists(aiRemedies)
	} else {
		c.Remedies = ExtractRemedies(doc.FullText)
	}

	// A short extraction is recorded as a quality signal. The review flag
	// stays confidence-driven.
	if c.ExtractionQuality == model.QualityLow {
		c.ExtractionErrors = append(c.ExtractionErrors, "extracted text is unusually short")
	}

	return c, decision
}
