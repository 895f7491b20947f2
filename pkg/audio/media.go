package audio

import (
	"fmt"
	"os"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

// DecodeMedia opens an mp3 or wav file. The caller closes the streamer.
func DecodeMedia(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}
	if streamer, format, err := mp3.Decode(f); err == nil {
		return streamer, format, nil
	}
	f.Close()

	f, err = os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}
	streamer, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return streamer, format, nil
}
