package model

import "time"

// PromotionStatus is the case's position in the review/publication workflow.
// The pipeline only ever sets the initial value; later transitions belong to
// the human review workflow.
type PromotionStatus string

const (
	PromotionPending   PromotionStatus = "pending"
	PromotionApproved  PromotionStatus = "approved"
	PromotionRejected  PromotionStatus = "rejected"
	PromotionPromoted  PromotionStatus = "promoted"
	PromotionDuplicate PromotionStatus = "duplicate"
)

// ExtractionQuality grades the fetched full text.
type ExtractionQuality string

const (
	QualityHigh   ExtractionQuality = "high"
	QualityMedium ExtractionQuality = "medium"
	QualityLow    ExtractionQuality = "low"
	QualityFailed ExtractionQuality = "failed"
)

// ConfidenceBucket is the coarse confidence tier used for reporting and triage.
type ConfidenceBucket string

const (
	BucketHigh   ConfidenceBucket = "high"
	BucketMedium ConfidenceBucket = "medium"
	BucketLow    ConfidenceBucket = "low"
)

// Language of a decision document.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageFrench  Language = "fr"
	LanguageUnknown Language = "unknown"
)

// Document is a raw decision produced by the discovery/fetch layer. Consumed
// as a black box; the pipeline never re-derives its fields.
type Document struct {
	SourceID     string    `json:"source_id,omitempty"`
	Title        string    `json:"title"`
	CaseNumber   string    `json:"case_number,omitempty"`
	Citation     string    `json:"citation,omitempty"`
	Tribunal     string    `json:"tribunal,omitempty"`
	DecisionDate time.Time `json:"decision_date,omitzero"`
	FilingDate   time.Time `json:"filing_date,omitzero"`
	Applicant    string    `json:"applicant,omitempty"`
	Respondent   string    `json:"respondent,omitempty"`
	FullText     string    `json:"full_text"`
	DocumentType string    `json:"document_type,omitempty"`
	Language     Language  `json:"language,omitempty"`
	PDFURL       string    `json:"pdf_url,omitempty"`
}

// RuleBasedResult is the keyword/ground classifier output.
type RuleBasedResult struct {
	Category   string   `json:"category"`
	Keywords   []string `json:"keywords,omitempty"`
	Grounds    []string `json:"grounds,omitempty"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning,omitempty"`
}

// AIResult is the optional AI-assisted classifier output.
type AIResult struct {
	Category   string   `json:"category"`
	Reasoning  string   `json:"reasoning,omitempty"`
	Confidence float64  `json:"confidence"`
	KeyPhrases []string `json:"key_phrases,omitempty"`
	Grounds    []string `json:"grounds,omitempty"`
	KeyIssues  []string `json:"key_issues,omitempty"`
	Remedies   []string `json:"remedies,omitempty"`
}

// Classification is the combined output of the classification engine. The
// engine precomputes FinalConfidence; the pipeline treats it as opaque.
type Classification struct {
	RuleBased       RuleBasedResult `json:"rule_based"`
	AI              *AIResult       `json:"ai,omitempty"`
	FinalConfidence float64         `json:"final_confidence"`
}

// TribunalCase is one stored record per uniquely-sourced document.
// source_url is the natural key: a second store attempt for the same URL
// resolves to the existing row without mutation.
type TribunalCase struct {
	ID string `json:"id"`

	// Provenance.
	SourceURL    string `json:"source_url"`
	SourceSystem string `json:"source_system"`
	SourceID     string `json:"source_id,omitempty"`
	JobID        string `json:"ingestion_job_id,omitempty"`

	// Identification.
	Title      string `json:"case_title"`
	CaseNumber string `json:"case_number,omitempty"`
	Citation   string `json:"citation,omitempty"`

	// Tribunal.
	TribunalName     string     `json:"tribunal_name"`
	TribunalProvince string     `json:"tribunal_province,omitempty"`
	DecisionDate     *time.Time `json:"decision_date,omitempty"`
	FilingDate       *time.Time `json:"filing_date,omitempty"`

	// Parties.
	Applicant  string `json:"applicant,omitempty"`
	Respondent string `json:"respondent,omitempty"`

	// Content.
	FullText     string   `json:"full_text"`
	TextLength   int      `json:"text_length"`
	DocumentType string   `json:"document_type,omitempty"`
	Language     Language `json:"language"`
	PDFURL       string   `json:"pdf_url,omitempty"`

	// Classification.
	RuleBased          RuleBasedResult `json:"rule_based_classification"`
	AI                 *AIResult       `json:"ai_classification,omitempty"`
	CombinedConfidence float64         `json:"combined_confidence"`

	// Derived attributes.
	DiscriminationGrounds []string `json:"discrimination_grounds,omitempty"`
	KeyIssues             []string `json:"key_issues,omitempty"`
	Remedies              []string `json:"remedies,omitempty"`

	// Quality flags.
	ExtractionQuality ExtractionQuality `json:"extraction_quality"`
	ExtractionErrors  []string          `json:"extraction_errors,omitempty"`
	NeedsReview       bool              `json:"needs_review"`
	ReviewNotes       string            `json:"review_notes,omitempty"`

	// Workflow. Only the initial value is set here; promotion metadata is
	// populated by the external review workflow.
	PromotionStatus PromotionStatus `json:"promotion_status"`
	PromotedCaseID  string          `json:"promoted_case_id,omitempty"`
	PromotedAt      *time.Time      `json:"promoted_at,omitempty"`
	PromotedBy      string          `json:"promoted_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CaseSummary is the stats read-side projection of a stored case.
type CaseSummary struct {
	ID                 string  `json:"id"`
	AICategory         string  `json:"ai_category,omitempty"`
	CombinedConfidence float64 `json:"combined_confidence"`
}
