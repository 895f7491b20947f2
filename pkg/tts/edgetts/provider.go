// Package edgetts synthesizes speech with the Microsoft Edge read-aloud service.
package edgetts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"climatelens/pkg/tracker"
	"climatelens/pkg/tts"
)

const providerName = "edge-tts"

// ErrNotConfigured is returned when the service endpoint is incomplete.
var ErrNotConfigured = errors.New("edge tts endpoint not configured")

// Endpoint holds the connection parameters of the read-aloud service.
type Endpoint struct {
	BaseURL            string
	Origin             string
	UserAgent          string
	TrustedClientToken string
	SecMSGecVersion    string
}

// EndpointFromEnv reads the EDGE_TTS_* environment variables.
func EndpointFromEnv() Endpoint {
	return Endpoint{
		BaseURL:            os.Getenv("EDGE_TTS_BASE_URL"),
		Origin:             os.Getenv("EDGE_TTS_ORIGIN"),
		UserAgent:          os.Getenv("EDGE_TTS_USER_AGENT"),
		TrustedClientToken: os.Getenv("EDGE_TTS_TRUSTED_CLIENT_TOKEN"),
		SecMSGecVersion:    os.Getenv("EDGE_TTS_SEC_MS_GEC_VERSION"),
	}
}

// Validate reports which parameters are missing.
func (e Endpoint) Validate() error {
	var missing []string
	for name, v := range map[string]string{
		"EDGE_TTS_BASE_URL":             e.BaseURL,
		"EDGE_TTS_ORIGIN":               e.Origin,
		"EDGE_TTS_USER_AGENT":           e.UserAgent,
		"EDGE_TTS_TRUSTED_CLIENT_TOKEN": e.TrustedClientToken,
		"EDGE_TTS_SEC_MS_GEC_VERSION":   e.SecMSGecVersion,
	} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrNotConfigured, strings.Join(missing, ", "))
	}
	return nil
}

// Provider implements tts.Provider for Microsoft Edge TTS.
type Provider struct {
	tracker  *tracker.Tracker
	endpoint Endpoint
}

// NewProvider creates a new Edge TTS provider.
func NewProvider(t *tracker.Tracker, endpoint Endpoint) *Provider {
	return &Provider{tracker: t, endpoint: endpoint}
}

// Synthesize generates an .mp3 file using Edge TTS. One attempt is made.
func (p *Provider) Synthesize(ctx context.Context, text, voice, outputPath string) (string, error) {
	if voice == "" {
		return "", fmt.Errorf("voice ID is required")
	}
	if err := p.endpoint.Validate(); err != nil {
		return "", err
	}

	fullPath := outputPath
	if !strings.HasSuffix(strings.ToLower(fullPath), ".mp3") {
		fullPath += ".mp3"
	}
	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	conn, err := p.dial(ctx)
	if err != nil {
		p.track(err)
		return "", err
	}
	defer conn.Close()

	// Unblock ReadMessage when the caller gives up.
	stop := context.AfterFunc(ctx, func() { _ = conn.SetReadDeadline(time.Now()) })
	defer stop()

	if err := p.sendConfig(conn); err != nil {
		p.track(err)
		return "", err
	}

	requestID := strings.ReplaceAll(uuid.New().String(), "-", "")
	ssml := buildSSML(voice, text)
	err = p.sendSSML(conn, ssml, requestID)
	if err == nil {
		err = p.consumeResponses(ctx, conn, file)
	}
	tts.Log("EDGETTS", voice, ssml, err)
	p.track(err)
	if err != nil {
		return "", err
	}
	return "mp3", nil
}

func (p *Provider) track(err error) {
	if p.tracker == nil {
		return
	}
	if err != nil {
		p.tracker.TrackAPIFailure(providerName)
		return
	}
	p.tracker.TrackAPISuccess(providerName)
}

func (p *Provider) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Origin", p.endpoint.Origin)
	header.Set("Pragma", "no-cache")
	header.Set("Cache-Control", "no-cache")
	header.Set("User-Agent", p.endpoint.UserAgent)
	header.Set("Accept-Encoding", "gzip, deflate, br, zstd")
	header.Set("Accept-Language", "en-US,en;q=0.9")

	muid := strings.ReplaceAll(uuid.New().String(), "-", "")
	header.Set("Cookie", fmt.Sprintf("muid=%s", muid))

	url := fmt.Sprintf("%s?TrustedClientToken=%s&Sec-MS-GEC=%s&Sec-MS-GEC-Version=%s",
		p.endpoint.BaseURL, p.endpoint.TrustedClientToken, p.generateSecMSGec(), p.endpoint.SecMSGecVersion)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			slog.Warn("EdgeTTS: handshake failure", "status", resp.Status, "status_code", resp.StatusCode)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

// generateSecMSGec derives the rolling token: Windows file-time ticks,
// rounded down to five minutes, hashed with the client token.
func (p *Provider) generateSecMSGec() string {
	ticks := float64(time.Now().Unix()) + 11644473600
	ticks -= float64(int64(ticks) % 300)
	ticks *= 1e7

	hash := sha256.Sum256([]byte(fmt.Sprintf("%.0f%s", ticks, p.endpoint.TrustedClientToken)))
	return strings.ToUpper(hex.EncodeToString(hash[:]))
}

func (p *Provider) sendConfig(conn *websocket.Conn) error {
	configMsg := "Content-Type:application/json; charset=utf-8\r\nPath:speech.config\r\n\r\n{\"context\":{\"synthesis\":{\"audio\":{\"metadataoptions\":{\"sentenceBoundaryEnabled\":\"false\",\"wordBoundaryEnabled\":\"false\"},\"outputFormat\":\"audio-24khz-48kbitrate-mono-mp3\"}}}}"
	if err := conn.WriteMessage(websocket.TextMessage, []byte(configMsg)); err != nil {
		return fmt.Errorf("failed to send speech.config: %w", err)
	}
	return nil
}

func (p *Provider) sendSSML(conn *websocket.Conn, ssml, requestID string) error {
	ssmlMsg := fmt.Sprintf("X-RequestId:%s\r\nContent-Type:application/ssml+xml\r\nPath:ssml\r\n\r\n%s", requestID, ssml)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(ssmlMsg)); err != nil {
		return fmt.Errorf("failed to send ssml: %w", err)
	}
	return nil
}

// buildSSML wraps text for voice. xml:lang follows the voice's locale so
// Devanagari text is read by the Hindi or Nepali engine.
func buildSSML(voice, text string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&apos;",
	)
	return fmt.Sprintf("<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='%s'><voice name='%s'>%s</voice></speak>",
		tts.LocaleOf(voice), voice, replacer.Replace(text))
}

func (p *Provider) consumeResponses(ctx context.Context, conn *websocket.Conn, file *os.File) error {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read message failed: %w", err)
		}

		switch msgType {
		case websocket.TextMessage:
			if strings.Contains(string(data), "Path:turn.end") {
				return nil
			}
		case websocket.BinaryMessage:
			if err := p.handleBinaryMessage(data, file); err != nil {
				return err
			}
		}
	}
}

// handleBinaryMessage writes the audio payload that follows the
// big-endian length-prefixed header.
func (p *Provider) handleBinaryMessage(data []byte, file *os.File) error {
	if len(data) < 2 {
		return nil
	}
	headerLength := int(uint16(data[0])<<8 | uint16(data[1]))
	if len(data) < 2+headerLength {
		return nil
	}
	audioData := data[2+headerLength:]
	if len(audioData) > 0 {
		if _, err := file.Write(audioData); err != nil {
			return fmt.Errorf("write audio data failed: %w", err)
		}
	}
	return nil
}

// Voices returns the neural voices for the supported story languages.
func (p *Provider) Voices(ctx context.Context) ([]tts.Voice, error) {
	return []tts.Voice{
		{ID: "en-US-AvaMultilingualNeural", Name: "Ava (Multilingual)", Language: "en-US", IsNeural: true},
		{ID: "en-US-AndrewMultilingualNeural", Name: "Andrew (Multilingual)", Language: "en-US", IsNeural: true},
		{ID: "hi-IN-SwaraNeural", Name: "Swara (India)", Language: "hi-IN", IsNeural: true},
		{ID: "hi-IN-MadhurNeural", Name: "Madhur (India)", Language: "hi-IN", IsNeural: true},
		{ID: "ne-NP-HemkalaNeural", Name: "Hemkala (Nepal)", Language: "ne-NP", IsNeural: true},
		{ID: "ne-NP-SagarNeural", Name: "Sagar (Nepal)", Language: "ne-NP", IsNeural: true},
	}, nil
}
