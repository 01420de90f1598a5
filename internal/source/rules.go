// Package source provides concrete discovery, fetch, and classification
// implementations for tribunal decision ingestion.
package source

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/tribunalwatch/ingest-cli/internal/model"
)

// Classification categories produced by the classifiers.
const (
	CategoryAntiBlackRacism     = "anti_black_racism"
	CategoryOtherDiscrimination = "other_discrimination"
	CategoryNonDiscrimination   = "non_discrimination"
)

// Keyword sets for the first-pass filter. Matching is whole-word and
// case-insensitive.
var (
	raceKeywords = []string{
		"race", "racial", "racism", "racist", "racialized",
		"colour", "color", "ancestry", "ethnic origin", "ethnicity",
		"place of origin", "racialized person", "person of colour",
		"person of color", "racial minority", "visible minority", "non-white",
	}

	blackKeywords = []string{
		"black", "anti-black", "african", "caribbean",
		"afro-canadian", "afro-caribbean", "african canadian", "african-canadian",
		"black canadian", "black person", "black individual", "black employee",
		"african descent", "of african descent", "african origin", "anti-blackness",
	}

	discriminationKeywords = []string{
		"discrimination", "discriminatory", "discriminate",
		"discriminate against", "racial profiling", "racial slur",
		"racial comment", "racist remark", "racial stereotype",
		"systemic discrimination", "systemic racism", "differential treatment",
		"adverse treatment", "hostile environment",
	}

	groundKeywords = map[string][]string{
		"race":            {"race", "racial", "racism"},
		"colour":          {"colour", "color", "skin color", "skin colour", "complexion"},
		"ancestry":        {"ancestry", "ancestral", "lineage", "heritage"},
		"place_of_origin": {"place of origin", "country of origin", "national origin", "birthplace"},
		"ethnic_origin":   {"ethnic", "ethnicity", "ethnic origin", "ethnic background"},
		"citizenship":     {"citizenship", "citizen", "immigration status"},
		"creed":           {"creed", "religion", "religious", "faith"},
		"sex":             {"sex", "gender", "woman", "women", "man", "men"},
		"disability":      {"disability", "disabled", "accommodation", "mental health"},
		"age":             {"age", "ageism", "elderly", "senior", "youth"},
	}

	// Grounds listed in canonical order so output is deterministic.
	groundOrder = []string{
		"race", "colour", "ancestry", "place_of_origin", "ethnic_origin",
		"citizenship", "creed", "sex", "disability", "age",
	}
)

// RuleClassifier is a fast keyword-based first-pass filter for decisions
// alleging race-based discrimination. Pure text analysis, no API calls.
type RuleClassifier struct {
	patterns map[string]*regexp.Regexp
}

// NewRuleClassifier compiles the keyword patterns once up front.
func NewRuleClassifier() *RuleClassifier {
	c := &RuleClassifier{patterns: make(map[string]*regexp.Regexp)}
	for _, set := range [][]string{raceKeywords, blackKeywords, discriminationKeywords} {
		for _, kw := range set {
			c.compile(kw)
		}
	}
	for _, kws := range groundKeywords {
		for _, kw := range kws {
			c.compile(kw)
		}
	}
	return c
}

func (c *RuleClassifier) compile(keyword string) {
	if _, ok := c.patterns[keyword]; ok {
		return
	}
	c.patterns[keyword] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(keyword) + `\b`)
}

func (c *RuleClassifier) findMatches(text string, keywords []string) []string {
	var matches []string
	for _, kw := range keywords {
		if c.patterns[kw].MatchString(text) {
			matches = append(matches, kw)
		}
	}
	return matches
}

// Classify scores a decision's text by keyword presence, density, and
// co-occurrence. The score is built from weighted factors and normalized to
// [0, 1], rounded to two decimals.
func (c *RuleClassifier) Classify(fullText string) model.RuleBasedResult {
	text := strings.TrimSpace(strings.Join(strings.Fields(strings.ToLower(fullText)), " "))

	race := c.findMatches(text, raceKeywords)
	black := c.findMatches(text, blackKeywords)
	discrimination := c.findMatches(text, discriminationKeywords)

	var grounds []string
	for _, g := range groundOrder {
		if len(c.findMatches(text, groundKeywords[g])) > 0 {
			grounds = append(grounds, g)
		}
	}

	confidence := scoreConfidence(len(text), race, black, discrimination, grounds)

	raceRelated := len(race) > 0 && len(discrimination) > 0
	antiBlackLikely := len(black) > 0 && raceRelated

	category := CategoryNonDiscrimination
	switch {
	case antiBlackLikely:
		category = CategoryAntiBlackRacism
	case raceRelated || len(grounds) > 0 && len(discrimination) > 0:
		category = CategoryOtherDiscrimination
	}

	var keywords []string
	keywords = append(keywords, race...)
	keywords = append(keywords, black...)
	keywords = append(keywords, discrimination...)

	return model.RuleBasedResult{
		Category:   category,
		Keywords:   keywords,
		Grounds:    grounds,
		Confidence: confidence,
		Reasoning:  reasoning(category, confidence, len(keywords), grounds),
	}
}

// scoreConfidence implements the weighted scoring rubric: keyword presence
// (40), target-group keywords (30), discrimination keywords (20), ground
// detection (10), plus density and co-occurrence bonuses (10 each), capped
// at 1.0.
func scoreConfidence(textLength int, race, black, discrimination, grounds []string) float64 {
	score := 0
	total := len(race) + len(black) + len(discrimination)

	switch {
	case total >= 10:
		score += 40
	case total >= 5:
		score += 30
	case total >= 3:
		score += 20
	case total >= 1:
		score += 10
	}

	switch {
	case len(black) >= 5:
		score += 30
	case len(black) >= 3:
		score += 20
	case len(black) >= 1:
		score += 10
	}

	switch {
	case len(discrimination) >= 5:
		score += 20
	case len(discrimination) >= 3:
		score += 15
	case len(discrimination) >= 1:
		score += 10
	}

	hasPrimaryGround := false
	for _, g := range grounds {
		if g == "race" || g == "colour" || g == "ancestry" {
			hasPrimaryGround = true
			break
		}
	}
	if hasPrimaryGround {
		score += 10
	} else if len(grounds) > 0 {
		score += 5
	}

	if textLength > 0 {
		density := float64(total) / (float64(textLength) / 1000)
		switch {
		case density >= 2:
			score += 10
		case density >= 1:
			score += 5
		case density >= 0.5:
			score += 3
		}
	}

	raceAndDiscrimination := len(race) > 0 && len(discrimination) > 0
	blackAndRace := len(black) > 0 && len(race) > 0
	if blackAndRace && raceAndDiscrimination {
		score += 10
	} else if raceAndDiscrimination {
		score += 5
	}

	normalized := math.Min(float64(score)/100, 1.0)
	return math.Round(normalized*100) / 100
}

func reasoning(category string, confidence float64, keywordCount int, grounds []string) string {
	var b strings.Builder
	switch category {
	case CategoryAntiBlackRacism:
		b.WriteString("Likely anti-Black racism case. ")
	case CategoryOtherDiscrimination:
		b.WriteString("Discrimination case on other grounds. ")
	default:
		b.WriteString("Not identified as a discrimination case. ")
	}
	fmt.Fprintf(&b, "Confidence %.2f from %d keyword matches", confidence, keywordCount)
	if len(grounds) > 0 {
		fmt.Fprintf(&b, "; grounds: %s", strings.Join(grounds, ", "))
	}
	b.WriteString(".")
	return b.String()
}
