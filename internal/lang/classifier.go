// Package lang provides best-effort language detection for message text,
// restricted to the configured set of supported codes.
package lang

import (
	"fmt"
	"strings"

	"github.com/pemistahl/lingua-go"
)

type Classifier interface {
	// Classify returns the ISO 639-1 code of text's language, or the
	// fallback code when detection fails or is ambiguous. It never
	// returns an error: classification must not fail a message write.
	Classify(text string) string
}

type LinguaClassifier struct {
	detector lingua.LanguageDetector
	fallback string
}

// NewLinguaClassifier builds a classifier limited to the supported ISO
// 639-1 codes. The fallback code must be part of the supported set.
func NewLinguaClassifier(supported []string, fallback string) (*LinguaClassifier, error) {
	languages := make([]lingua.Language, 0, len(supported))
	for _, code := range supported {
		iso := lingua.GetIsoCode639_1FromValue(strings.ToUpper(code))
		if iso == lingua.UnknownIsoCode639_1 {
			return nil, fmt.Errorf("unsupported language code %q", code)
		}
		languages = append(languages, lingua.GetLanguageFromIsoCode639_1(iso))
	}
	if len(languages) < 2 {
		return nil, fmt.Errorf("need at least two languages, got %d", len(languages))
	}

	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(languages...).
		Build()

	return &LinguaClassifier{detector: detector, fallback: fallback}, nil
}

func (c *LinguaClassifier) Classify(text string) string {
	language, ok := c.detector.DetectLanguageOf(text)
	if !ok {
		return c.fallback
	}

	return strings.ToLower(language.IsoCode639_1().String())
}
