package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/ppiankov/airwatch/internal/model"
	"github.com/ppiankov/airwatch/internal/normalize"
)

const (
	fallbackSystem = "Ти витягуєш структуровані дані з коротких повідомлень про повітряні загрози в Україні. Відповідай лише JSON."

	// maxPromptRunes bounds the message excerpt sent to the model
	maxPromptRunes = 500
)

var errNoJSON = errors.New("no JSON object in response")

// fallbackAnswer is the only accepted response shape
type fallbackAnswer struct {
	Threat string `json:"threat"`
	City   string `json:"city"`
	Region string `json:"region"`
}

// Fallback resolves messages the rule engine could not parse. Every failure
// is reported as unresolved; Resolve never returns an error.
type Fallback struct {
	provider      Provider
	minTextLength int
	log           zerolog.Logger
}

// NewFallback wraps provider. A nil provider yields a fallback that never
// resolves and makes no calls.
func NewFallback(provider Provider, minTextLength int, log zerolog.Logger) *Fallback {
	return &Fallback{
		provider:      provider,
		minTextLength: minTextLength,
		log:           log.With().Str("component", "llm").Logger(),
	}
}

// Enabled reports whether a provider is configured
func (f *Fallback) Enabled() bool {
	return f != nil && f.provider != nil
}

// Resolve asks the model for an extraction of normalized text. The result is
// tagged with the ai-fallback confidence.
func (f *Fallback) Resolve(ctx context.Context, text string) (model.Extraction, bool) {
	if !f.Enabled() {
		return model.Extraction{}, false
	}
	if utf8.RuneCountInString(text) < f.minTextLength {
		return model.Extraction{}, false
	}

	resp, err := f.provider.Complete(ctx, CompletionRequest{
		System: fallbackSystem,
		Prompt: BuildPrompt(text),
		JSON:   true,
	})
	if err != nil {
		f.log.Warn().Err(err).Str("provider", f.provider.Name()).Msg("fallback call failed")
		return model.Extraction{}, false
	}

	x, err := DecodeExtraction(resp.Text)
	if err != nil {
		f.log.Debug().Err(err).Str("provider", f.provider.Name()).Str("answer", resp.Text).Msg("fallback answer rejected")
		return model.Extraction{}, false
	}
	return x, true
}

// BuildPrompt constructs the extraction prompt for one message
func BuildPrompt(text string) string {
	if utf8.RuneCountInString(text) > maxPromptRunes {
		text = string([]rune(text)[:maxPromptRunes])
	}

	labels := make([]string, len(model.AllThreats))
	for i, t := range model.AllThreats {
		labels[i] = string(t)
	}

	return fmt.Sprintf(`Проаналізуй повідомлення про загрозу і визнач один населений пункт або область.

Повідомлення:
"%s"

Поверни один JSON-об'єкт з полями:
- "threat": одне з %s
- "city": назва населеного пункту в називному відмінку, або ""
- "region": область у форматі "Назва обл.", або ""

Жаргон: "балалайка", "мопед", "шахед" = uav.
Якщо загрозу чи місце визначити неможливо, поверни {"threat":"","city":"","region":""}.`,
		text, strings.Join(labels, ", "))
}

// DecodeExtraction strictly decodes a model answer. Unknown fields, trailing
// data and threats outside the closed set are rejected.
func DecodeExtraction(answer string) (model.Extraction, error) {
	raw, err := jsonObject(answer)
	if err != nil {
		return model.Extraction{}, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var a fallbackAnswer
	if err := dec.Decode(&a); err != nil {
		return model.Extraction{}, fmt.Errorf("decode answer: %w", err)
	}
	if dec.More() {
		return model.Extraction{}, fmt.Errorf("decode answer: trailing data")
	}

	threat, ok := model.ParseThreat(a.Threat)
	if !ok || !threat.Valid() {
		return model.Extraction{}, fmt.Errorf("unrecognized threat %q", a.Threat)
	}

	return model.Extraction{
		Threat:     threat,
		City:       normalize.City(a.City),
		Region:     normalize.Region(a.Region),
		Confidence: model.ConfidenceAIFallback,
	}, nil
}

// jsonObject isolates the outermost JSON object, tolerating code fences
// around it
func jsonObject(answer string) ([]byte, error) {
	start := strings.IndexByte(answer, '{')
	end := strings.LastIndexByte(answer, '}')
	if start < 0 || end < start {
		return nil, errNoJSON
	}
	return []byte(answer[start : end+1]), nil
}
