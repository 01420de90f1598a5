package source

import (
	"context"

	"go.uber.org/zap"

	"github.com/tribunalwatch/ingest-cli/internal/model"
	"github.com/tribunalwatch/ingest-cli/internal/pipeline"
)

// Weights for blending rule-based and AI confidence scores. The AI score
// dominates when present; the rules act as a sanity anchor.
const (
	ruleWeight = 0.3
	aiWeight   = 0.7
)

// aiSkipThreshold is the rule confidence at which the AI pass is skipped
// entirely: a strong rule match does not need a second opinion.
const aiSkipThreshold = 0.8

// AIClassifier is the optional second-pass classifier. Implementations call
// an external model; a nil AIClassifier disables the pass.
type AIClassifier interface {
	Classify(ctx context.Context, doc *model.Document) (*model.AIResult, error)
}

// CombinedClassifier runs the rule-based filter first and escalates
// low-confidence results to the AI pass.
type CombinedClassifier struct {
	rules *RuleClassifier
	ai    AIClassifier
}

var _ pipeline.Classifier = (*CombinedClassifier)(nil)

// NewCombinedClassifier creates the two-stage classifier. Pass nil for ai to
// run rule-based only.
func NewCombinedClassifier(ai AIClassifier) *CombinedClassifier {
	return &CombinedClassifier{rules: NewRuleClassifier(), ai: ai}
}

// Classify produces the blended classification for one document. An AI
// failure falls back to the rule-based result rather than failing the case.
func (c *CombinedClassifier) Classify(ctx context.Context, doc *model.Document) (*model.Classification, error) {
	ruleResult := c.rules.Classify(doc.FullText)

	cls := &model.Classification{
		RuleBased:       ruleResult,
		FinalConfidence: ruleResult.Confidence,
	}

	if c.ai == nil || ruleResult.Confidence >= aiSkipThreshold {
		return cls, nil
	}

	aiResult, err := c.ai.Classify(ctx, doc)
	if err != nil {
		zap.L().Warn("classifier: ai pass failed, using rule-based only",
			zap.String("title", doc.Title),
			zap.Error(err),
		)
		return cls, nil
	}

	cls.AI = aiResult
	cls.FinalConfidence = ruleResult.Confidence*ruleWeight + aiResult.Confidence*aiWeight
	return cls, nil
}
