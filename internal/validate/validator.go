// Package validate decides whether an extracted event is worth dispatching.
package validate

import (
	"strings"
	"unicode"

	"github.com/ppiankov/airwatch/internal/model"
	"github.com/ppiankov/airwatch/internal/normalize"
)

// Reason explains why an event was rejected
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonNoLocation    Reason = "no_location"
	ReasonSkipWord      Reason = "skip_word"
	ReasonUnknownThreat Reason = "unknown_threat"
)

// Validator rejects events without a usable location or category
type Validator struct {
	skipWords []string // Normalized word sequences
}

// NewValidator creates a validator with the given skip words.
// Skip words match whole words inside a city or region, case-insensitively.
func NewValidator(skipWords []string) *Validator {
	v := &Validator{}
	for _, w := range skipWords {
		if key := wordKey(w); key != "" {
			v.skipWords = append(v.skipWords, key)
		}
	}
	return v
}

// IsValid reports whether e should be dispatched
func (v *Validator) IsValid(e model.Event) bool {
	_, ok := v.Check(e)
	return ok
}

// Check returns the rejection reason for e, or ReasonNone and true when valid
func (v *Validator) Check(e model.Event) (Reason, bool) {
	if !e.Threat.Valid() {
		return ReasonUnknownThreat, false
	}
	if !e.HasLocation() {
		return ReasonNoLocation, false
	}
	if v.isSkipWord(e.City) || v.isSkipWord(e.Region) {
		return ReasonSkipWord, false
	}
	return ReasonNone, true
}

func (v *Validator) isSkipWord(place string) bool {
	key := wordKey(place)
	if key == "" {
		return false
	}
	padded := " " + key + " "
	for _, w := range v.skipWords {
		if strings.Contains(padded, " "+w+" ") {
			return true
		}
	}
	return false
}

// wordKey reduces s to its lowercase words separated by single spaces
func wordKey(s string) string {
	words := strings.FieldsFunc(normalize.Key(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\'' && r != '-'
	})
	return strings.Join(words, " ")
}
