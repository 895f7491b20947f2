package narrative

import (
	"fmt"
	"strings"
	"unicode"

	"climatelens/pkg/model"
)

// Profile holds everything language-specific about generating and speaking
// a story. Adding a language means adding a row to profiles and a prompt template.
type Profile struct {
	Language model.Language
	Info     model.LanguageInfo

	// PromptTemplate is the prompts.Manager name of the generation prompt.
	PromptTemplate string

	// VoiceTag is the BCP 47 tag handed to the speech device.
	VoiceTag string

	// Fallback is the local story skeleton. {city} and {conditions} are substituted.
	Fallback string
	// AreaPhrase replaces {city} when the place could not be resolved.
	AreaPhrase string
	// PatternsPhrase replaces {conditions} when nothing was observed.
	PatternsPhrase string

	// Script is the writing system the model must answer in; nil means any.
	Script *unicode.RangeTable
}

var profiles = map[model.Language]Profile{
	model.LanguageEnglish: {
		Language:       model.LanguageEnglish,
		Info:           model.LanguageInfo{Code: "en", Name: "English"},
		PromptTemplate: "story/english.tmpl",
		VoiceTag:       "en-US",
		Fallback: "In {city}, climate change is creating new challenges. " +
			"The current weather conditions with {conditions} remind us of the importance " +
			"of environmental awareness and community action.",
		AreaPhrase:     "your area",
		PatternsPhrase: "changing patterns",
	},
	model.LanguageHindi: {
		Language:       model.LanguageHindi,
		Info:           model.LanguageInfo{Code: "hi", Name: "Hindi"},
		PromptTemplate: "story/hindi.tmpl",
		VoiceTag:       "hi-IN",
		Fallback: "{city} में जलवायु परिवर्तन नई चुनौतियां पैदा कर रहा है। " +
			"वर्तमान मौसम की स्थिति {conditions} के साथ हमें पर्यावरण जागरूकता और सामुदायिक कार्रवाई के महत्व की याद दिलाती है। " +
			"हमें मिलकर इस समस्या का समाधान खोजना होगा।",
		AreaPhrase:     "आपके क्षेत्र",
		PatternsPhrase: "बदलते मौसम के पैटर्न",
		Script:         unicode.Devanagari,
	},
	model.LanguageNepali: {
		Language:       model.LanguageNepali,
		Info:           model.LanguageInfo{Code: "ne", Name: "Nepali"},
		PromptTemplate: "story/nepali.tmpl",
		VoiceTag:       "ne-NP",
		Fallback: "{city} मा जलवायु परिवर्तनले नयाँ चुनौतीहरू सिर्जना गरिरहेको छ। " +
			"हालको मौसमी अवस्था {conditions} ले हामीलाई वातावरणीय चेतना र सामुदायिक कार्यको महत्त्वको सम्झना गराउँछ।",
		AreaPhrase:     "तपाईंको क्षेत्र",
		PatternsPhrase: "परिवर्तनशील ढाँचा",
		Script:         unicode.Devanagari,
	},
}

// Lookup returns the profile of lang.
func Lookup(lang model.Language) (Profile, error) {
	p, ok := profiles[lang]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}
	return p, nil
}

// mustLookup returns the profile of lang, or English for unknown values.
func mustLookup(lang model.Language) Profile {
	if p, ok := profiles[lang]; ok {
		return p
	}
	return profiles[model.LanguageEnglish]
}

// VoiceTag returns the speech locale for lang (en-US for unknown languages).
func VoiceTag(lang model.Language) string {
	return mustLookup(lang).VoiceTag
}

// Infos lists the supported languages in display order.
func Infos() []model.LanguageInfo {
	out := make([]model.LanguageInfo, 0, len(model.Languages))
	for _, l := range model.Languages {
		out = append(out, profiles[l].Info)
	}
	return out
}

func (p Profile) render(city, conditions string) string {
	return strings.NewReplacer("{city}", city, "{conditions}", conditions).Replace(p.Fallback)
}
