package narrative

import (
	"unicode"

	"climatelens/pkg/model"
)

// minScriptShare is the share of letters that must belong to the expected
// script before a localized answer counts as pure.
const minScriptShare = 0.9

// ScriptPurity returns the share of letters in text that belong to the
// language's script, in [0,1]. Languages without a script constraint, and
// texts without letters, score 1.
func ScriptPurity(text string, lang model.Language) float64 {
	p := mustLookup(lang)
	if p.Script == nil {
		return 1
	}

	var letters, inScript int
	for _, r := range text {
		if !unicode.IsLetter(r) && !unicode.Is(unicode.Mn, r) && !unicode.Is(unicode.Mc, r) {
			continue
		}
		letters++
		if unicode.Is(p.Script, r) {
			inScript++
		}
	}
	if letters == 0 {
		return 1
	}
	return float64(inScript) / float64(letters)
}

// IsPure reports whether text meets the script requirement of lang.
func IsPure(text string, lang model.Language) bool {
	return ScriptPurity(text, lang) >= minScriptShare
}
