package scrape

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// detectedLanguages are the languages company sites in scope are written in.
var detectedLanguages = []lingua.Language{
	lingua.English,
	lingua.German,
	lingua.Turkish,
	lingua.French,
	lingua.Spanish,
	lingua.Italian,
}

// DetectLanguage returns the ISO 639-1 code of text's language, or "" when
// the text is too short or ambiguous.
func DetectLanguage(text string) string {
	text = strings.TrimSpace(text)
	if len([]rune(text)) < 20 {
		return ""
	}
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(detectedLanguages...).
			Build()
	})
	lang, ok := detector.DetectLanguageOf(TruncateRunes(text, 2000))
	if !ok {
		return ""
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}
