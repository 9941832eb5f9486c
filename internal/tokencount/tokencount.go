// Package tokencount estimates the token footprint of knowledge records so
// callers can budget how much retrieved context fits in a model prompt.
package tokencount

import (
	"strings"

	"github.com/knowdhq/knowd/internal/knowledge"
)

// Estimator estimates the token count of a string.
type Estimator interface {
	Estimate(text string) int
}

// CharEstimator estimates tokens using a simple characters-per-token ratio.
// A ratio of ~4 works well for English; ~3 for French or other Latin languages.
type CharEstimator struct {
	CharsPerToken float64
}

// NewCharEstimator creates a CharEstimator with the given ratio.
// If charsPerToken is <= 0, defaults to 4.0 (English approximation).
func NewCharEstimator(charsPerToken float64) *CharEstimator {
	if charsPerToken <= 0 {
		charsPerToken = 4.0
	}
	return &CharEstimator{CharsPerToken: charsPerToken}
}

// Estimate returns the estimated token count for the given text.
func (e *CharEstimator) Estimate(text string) int {
	if len(text) == 0 {
		return 0
	}
	tokens := float64(len(text)) / e.CharsPerToken
	// Always round up to avoid underestimation.
	return int(tokens) + 1
}

// recordOverhead approximates the structural tokens a record costs when
// rendered into a prompt (labels, separators, punctuation).
const recordOverhead = 4

// EstimateEntity returns the estimated tokens for an entity rendered as
// prompt context: name, type, and every property key and value.
func EstimateEntity(est Estimator, e *knowledge.Entity) int {
	if e == nil {
		return 0
	}
	var sb strings.Builder
	sb.WriteString(e.Name)
	sb.WriteString(e.Type)
	for k, v := range e.Properties {
		sb.WriteString(k)
		sb.WriteString(v.Text())
	}
	return recordOverhead + est.Estimate(sb.String())
}

// EstimateFact returns the estimated tokens for a fact triple.
func EstimateFact(est Estimator, f *knowledge.Fact) int {
	if f == nil {
		return 0
	}
	return recordOverhead + est.Estimate(f.Subject+f.Predicate+f.Object+f.Source)
}

// EstimateNote returns the estimated tokens for a note with its tags.
func EstimateNote(est Estimator, n *knowledge.Note) int {
	if n == nil {
		return 0
	}
	var sb strings.Builder
	sb.WriteString(n.Content)
	for _, tag := range n.Tags {
		sb.WriteString(tag)
	}
	for k, v := range n.Metadata {
		sb.WriteString(k)
		sb.WriteString(v.Text())
	}
	return recordOverhead + est.Estimate(sb.String())
}

// EstimateSummary returns the estimated tokens for a conversation summary.
func EstimateSummary(est Estimator, s *knowledge.ConversationSummary) int {
	if s == nil {
		return 0
	}
	var sb strings.Builder
	sb.WriteString(s.Summary)
	for _, p := range s.KeyPoints {
		sb.WriteString(p)
	}
	for _, e := range s.Entities {
		sb.WriteString(e)
	}
	return recordOverhead + est.Estimate(sb.String())
}

// EstimateResult returns the estimated tokens for a search result's record.
func EstimateResult(est Estimator, r knowledge.SearchResult) int {
	switch r.Kind {
	case knowledge.KindEntity:
		return EstimateEntity(est, r.Entity)
	case knowledge.KindFact:
		return EstimateFact(est, r.Fact)
	case knowledge.KindNote:
		return EstimateNote(est, r.Note)
	}
	return 0
}

// EstimateResults returns the total estimated tokens across search results.
func EstimateResults(est Estimator, results []knowledge.SearchResult) int {
	total := 0
	for _, r := range results {
		total += EstimateResult(est, r)
	}
	return total
}
