package transcript

import (
	"bytes"
	"context"
	"fmt"

	listenapi "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/rest"
	clientinterfaces "github.com/deepgram/deepgram-go-sdk/pkg/client/interfaces/v1"
	listen "github.com/deepgram/deepgram-go-sdk/pkg/client/listen"

	"github.com/Izzoudine/back-flow/internal/metrics"
)

// Result is a finished file transcription with word-level timing, ready for
// the metrics engine.
type Result struct {
	Transcript string
	Words      []metrics.Word
}

// DeepgramRecognizer transcribes full recordings through Deepgram's
// prerecorded REST API. Word timestamps are required for pace and pause
// analysis, which is why this path does not reuse the live session.
type DeepgramRecognizer struct {
	apiKey   string
	model    string
	language string
}

// NewDeepgramRecognizer builds a recognizer; model defaults to nova-2 and
// language to French.
func NewDeepgramRecognizer(apiKey, model, language string) *DeepgramRecognizer {
	if model == "" {
		model = "nova-2"
	}
	if language == "" {
		language = "fr"
	}
	return &DeepgramRecognizer{apiKey: apiKey, model: model, language: language}
}

// TranscribeFile sends a complete recording and returns its transcript plus
// per-word timings.
func (d *DeepgramRecognizer) TranscribeFile(ctx context.Context, audio []byte) (Result, error) {
	if d.apiKey == "" {
		return Result{}, fmt.Errorf("transcript: deepgram api key missing")
	}
	if len(audio) == 0 {
		return Result{}, fmt.Errorf("transcript: empty audio")
	}

	c := listen.NewREST(d.apiKey, &clientinterfaces.ClientOptions{})
	dg := listenapi.New(c)

	options := &clientinterfaces.PreRecordedTranscriptionOptions{
		Model:       d.model,
		Language:    d.language,
		SmartFormat: true,
		FillerWords: true,
		Punctuate:   true,
	}

	res, err := dg.FromStream(ctx, bytes.NewReader(audio), options)
	if err != nil {
		return Result{}, fmt.Errorf("transcript: deepgram transcribe: %w", err)
	}
	if len(res.Results.Channels) == 0 || len(res.Results.Channels[0].Alternatives) == 0 {
		return Result{}, fmt.Errorf("transcript: deepgram returned no alternatives")
	}

	alt := res.Results.Channels[0].Alternatives[0]
	out := Result{
		Transcript: alt.Transcript,
		Words:      make([]metrics.Word, 0, len(alt.Words)),
	}
	for _, w := range alt.Words {
		out.Words = append(out.Words, metrics.Word{Text: w.Word, Start: w.Start, End: w.End})
	}
	return out, nil
}
