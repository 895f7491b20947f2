package tts

import (
	"fmt"
	"os"
	"strings"
)

// VerifyAudioFile checks that a synthesized file exists and is plausibly audio.
func VerifyAudioFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("audio file missing: %w", err)
	}
	if info.Size() < MinAudioSize {
		return fmt.Errorf("audio file too small (%d bytes): %s", info.Size(), path)
	}
	return nil
}

// VoiceFor picks the configured voice for a BCP 47 tag such as "hi-IN".
// An exact match wins, then any voice whose tag shares the primary language.
func VoiceFor(voices map[string]string, tag string) (string, error) {
	if v, ok := voices[tag]; ok && v != "" {
		return v, nil
	}
	primary := strings.ToLower(strings.SplitN(tag, "-", 2)[0])
	for t, v := range voices {
		if v != "" && strings.ToLower(strings.SplitN(t, "-", 2)[0]) == primary {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrNoVoice, tag)
}

// LocaleOf returns the locale prefix of a voice ID ("hi-IN-SwaraNeural" -> "hi-IN").
func LocaleOf(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) < 3 {
		return "en-US"
	}
	return parts[0] + "-" + parts[1]
}
