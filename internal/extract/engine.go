// Package extract turns normalized alert text into a partial event using an
// ordered catalog of patterns.
package extract

import (
	"regexp"
	"sort"

	"github.com/ppiankov/airwatch/internal/model"
)

// Rule is one entry of the pattern catalog
type Rule struct {
	Name     string
	Priority int // Lower values are tried first
	Pattern  *regexp.Regexp

	// Extract builds the partial event from the pattern's submatches
	// (index 0 is the whole match).
	Extract func(groups []string) model.Extraction
}

// Engine evaluates rules in ascending priority; the first matching rule wins
type Engine struct {
	rules []Rule
}

// NewEngine creates an engine over rules. Rules with equal priority keep
// their declaration order.
func NewEngine(rules []Rule) *Engine {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})
	return &Engine{rules: sorted}
}

// NewDefaultEngine creates an engine over the built-in catalog
func NewDefaultEngine() *Engine {
	return NewEngine(DefaultRules())
}

// Extract runs the catalog against text. The first rule whose pattern
// matches decides the result; no further rules are tried. The second return
// value is false when no rule matches.
func (e *Engine) Extract(text string) (model.Extraction, bool) {
	for _, rule := range e.rules {
		groups := rule.Pattern.FindStringSubmatch(text)
		if groups == nil {
			continue
		}
		x := rule.Extract(groups)
		x.Confidence = model.ConfidenceRule
		x.Rule = rule.Name
		return x, true
	}
	return model.Extraction{}, false
}

// Rules returns the catalog in evaluation order
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}
