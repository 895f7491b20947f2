package narrative

import "errors"

var (
	// ErrGenerationFailed covers every way the generative backend can fail:
	// transport error, non-2xx status, empty or missing story.
	ErrGenerationFailed = errors.New("story generation failed")

	// ErrUnsupportedLanguage is returned for languages without a profile.
	ErrUnsupportedLanguage = errors.New("unsupported language")
)
