package tools

import (
	"strings"

	"github.com/atelierforma/formabot/internal/store"
)

// ScoringWeights drives the search relevance formula. The defaults are
// product-tuned values carried over from the marketing site; they are
// deliberately configurable rather than hard-coded.
type ScoringWeights struct {
	Label       int
	Description int
	Skill       int
	Module      int
}

func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{Label: 10, Description: 5, Skill: 3, Module: 2}
}

// Score computes the relevance of a course for a query: +Label if the
// course label contains the query, +Description for the description,
// +Skill per matching skill name, +Module per module whose title or
// description matches. Matching is case-insensitive substring.
func (w ScoringWeights) Score(c *store.Course, query string) int {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return 0
	}

	score := 0
	if strings.Contains(strings.ToLower(c.Label), q) {
		score += w.Label
	}
	if strings.Contains(strings.ToLower(c.Description), q) {
		score += w.Description
	}
	for _, skill := range c.Skills {
		if strings.Contains(strings.ToLower(skill), q) {
			score += w.Skill
		}
	}
	for _, m := range c.Modules {
		if strings.Contains(strings.ToLower(m.Title), q) || strings.Contains(strings.ToLower(m.Description), q) {
			score += w.Module
		}
	}
	return score
}
