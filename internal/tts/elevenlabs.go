package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ElevenLabsClient synthesizes speech over the ElevenLabs HTTP API.
// Synthesis is request/response: one chunk of text in, one complete MP3
// payload out. The orchestrator keeps utterances short, so buffering a full
// chunk is cheap and avoids the tail-cutoff issues of the streaming path.
type ElevenLabsClient struct {
	HTTPClient *http.Client
	APIKey     string
	ModelID    string
}

// NewElevenLabsClient builds a client with the flash model, the fastest
// ElevenLabs offering at the time of writing.
func NewElevenLabsClient(apiKey string) *ElevenLabsClient {
	return &ElevenLabsClient{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		APIKey:     apiKey,
		ModelID:    "eleven_flash_v2_5",
	}
}

// Synthesize renders text with the given voice and returns MP3 bytes.
// Empty text yields nil bytes and no API call.
func (e *ElevenLabsClient) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if e.APIKey == "" || voiceID == "" {
		return nil, fmt.Errorf("tts: elevenlabs api key or voice id missing")
	}
	if text == "" {
		return nil, nil
	}

	u := url.URL{
		Scheme: "https",
		Host:   "api.elevenlabs.io",
		Path:   "/v1/text-to-speech/" + voiceID,
	}
	q := u.Query()
	q.Set("output_format", "mp3_44100_128")
	u.RawQuery = q.Encode()

	body := map[string]any{
		"model_id": e.ModelID,
		"text":     text,
		"voice_settings": map[string]any{
			"stability":         0.4,
			"similarity_boost":  0.7,
			"style":             0.0,
			"use_speaker_boost": true,
		},
	}
	buf, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", e.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts: elevenlabs request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("tts: elevenlabs status=%d body=%s", resp.StatusCode, string(b))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tts: elevenlabs read body: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("tts: elevenlabs returned no audio")
	}
	return audio, nil
}
