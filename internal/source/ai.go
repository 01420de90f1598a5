package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/tribunalwatch/ingest-cli/internal/model"
	"github.com/tribunalwatch/ingest-cli/pkg/anthropic"
)

// maxClassifyChars is the truncation limit for decision text sent to Claude.
const maxClassifyChars = 16000 // ~4K tokens

// classifyPrompt is the system prompt for the AI classification pass.
const classifyPrompt = `You are a legal analyst reviewing Canadian human rights tribunal decisions. Classify the decision below into exactly one category:
- "anti_black_racism": the case centrally involves discrimination against Black people
- "other_discrimination": a discrimination case on other grounds
- "non_discrimination": not a discrimination case

Also extract the protected grounds at issue, the key legal issues, and any remedies ordered.

Respond with ONLY valid JSON, no other text:
{"category": "", "confidence": 0.0, "reasoning": "brief explanation", "grounds": [], "key_issues": [], "remedies": []}`

// claudeClassification mirrors the JSON shape the prompt asks for.
type claudeClassification struct {
	Category   string   `json:"category"`
	Confidence float64  `json:"confidence"`
	Reasoning  string   `json:"reasoning"`
	Grounds    []string `json:"grounds"`
	KeyIssues  []string `json:"key_issues"`
	Remedies   []string `json:"remedies"`
}

// ClaudeClassifier is the AI second pass, backed by the Anthropic API.
type ClaudeClassifier struct {
	ai    anthropic.Client
	model string
}

var _ AIClassifier = (*ClaudeClassifier)(nil)

// NewClaudeClassifier creates the AI pass using the given model id.
func NewClaudeClassifier(ai anthropic.Client, modelID string) *ClaudeClassifier {
	return &ClaudeClassifier{ai: ai, model: modelID}
}

// Classify sends the decision text to Claude and parses the structured result.
func (c *ClaudeClassifier) Classify(ctx context.Context, doc *model.Document) (*model.AIResult, error) {
	text := doc.FullText
	if len(text) > maxClassifyChars {
		text = text[:maxClassifyChars]
	}
	userMsg := fmt.Sprintf("Case: %s\nCitation: %s\n\nDecision text:\n%s", doc.Title, doc.Citation, text)

	resp, err := c.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     c.model,
		MaxTokens: 1024,
		System:    anthropic.BuildCachedSystemBlocks(classifyPrompt),
		Messages:  []anthropic.Message{{Role: "user", Content: userMsg}},
	})
	if err != nil {
		return nil, eris.Wrap(err, "classifier: claude request")
	}
	resp.Usage.LogCost(c.model, "classify")

	var raw string
	for _, block := range resp.Content {
		if block.Type == "text" {
			raw = block.Text
			break
		}
	}
	if raw == "" {
		return nil, eris.New("classifier: empty claude response")
	}

	// Find JSON in the response (it may have surrounding text).
	jsonStart := strings.Index(raw, "{")
	jsonEnd := strings.LastIndex(raw, "}")
	if jsonStart < 0 || jsonEnd <= jsonStart {
		return nil, eris.Errorf("classifier: no JSON in response: %s", raw)
	}

	var parsed claudeClassification
	if err := json.Unmarshal([]byte(raw[jsonStart:jsonEnd+1]), &parsed); err != nil {
		return nil, eris.Wrap(err, "classifier: parse response JSON")
	}

	switch parsed.Category {
	case CategoryAntiBlackRacism, CategoryOtherDiscrimination, CategoryNonDiscrimination:
	default:
		return nil, eris.Errorf("classifier: unknown category %q", parsed.Category)
	}

	if parsed.Confidence < 0 {
		parsed.Confidence = 0
	}
	if parsed.Confidence > 1 {
		parsed.Confidence = 1
	}

	return &model.AIResult{
		Category:   parsed.Category,
		Confidence: parsed.Confidence,
		Reasoning:  parsed.Reasoning,
		Grounds:    parsed.Grounds,
		KeyIssues:  parsed.KeyIssues,
		Remedies:   parsed.Remedies,
	}, nil
}
