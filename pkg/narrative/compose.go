package narrative

import (
	"strings"

	"climatelens/pkg/model"
)

// Compose builds the local fallback story for req. It is pure and total:
// unknown languages use the English skeleton, an unresolved place uses the
// language's "your area" phrase and unobserved conditions its
// "changing patterns" phrase.
func Compose(req model.NarrativeRequest) string {
	p := mustLookup(req.Language)

	city := strings.TrimSpace(req.Place.City)
	if req.Place.IsSentinel() {
		city = p.AreaPhrase
	}

	conditions := strings.TrimSpace(req.Conditions.Description)
	if !req.Conditions.Observed || conditions == "" {
		conditions = p.PatternsPhrase
	}

	return p.render(city, conditions)
}

// Fallback wraps Compose into a result tagged as fallback.
func Fallback(req model.NarrativeRequest) model.NarrativeResult {
	lang := req.Language
	if _, ok := profiles[lang]; !ok {
		lang = model.LanguageEnglish
	}
	return model.NarrativeResult{
		Text:     Compose(req),
		Language: lang,
		Source:   model.SourceFallback,
	}
}
