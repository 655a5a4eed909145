package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/Izzoudine/back-flow/internal/agent"
	"github.com/Izzoudine/back-flow/internal/llm"
	"github.com/Izzoudine/back-flow/internal/metrics"
	"github.com/Izzoudine/back-flow/internal/transcript"
)

// Recognizer transcribes a complete recording with word-level timestamps.
type Recognizer interface {
	TranscribeFile(ctx context.Context, audio []byte) (transcript.Result, error)
}

// Speech renders one text chunk into audio bytes.
type Speech interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// AudioUploader pushes a recording to the LLM provider and blocks until the
// asset is usable for multimodal generation.
type AudioUploader interface {
	UploadAudio(ctx context.Context, r io.Reader, mimeType string) (agent.AudioRef, error)
}

// Storage abstracts recording archival. Optional; may be nil.
type Storage interface {
	Upload(objectKey string, contentType string, body []byte) error
}

// Analysis is the outcome of one pitch-analysis request.
type Analysis struct {
	Metrics metrics.Report `json:"metrics"`
	Advice  string         `json:"advice"`
}

// ValidationError reports empty or unusable input; no provider call was made.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("usecase: invalid input: %s", e.Reason)
}

// CoachService is the orchestration surface exposed to the transport layer.
type CoachService interface {
	Reconfigure(name, gender, scenario, behavior string) error
	HandleTextTurn(ctx context.Context, text string) ([]byte, error)
	HandleAudioTurn(ctx context.Context, audio []byte, mimeType string) ([]byte, error)
	AnalyzeRecording(ctx context.Context, audio []byte, mimeType string) (Analysis, error)
}

type coachService struct {
	session  *agent.Session
	stt      Recognizer
	speech   Speech
	uploader AudioUploader
	engine   *metrics.Engine
	archive  Storage
	voices   map[agent.Voice]string
}

// NewCoachService wires the pipeline. archive may be nil to disable
// recording archival.
func NewCoachService(session *agent.Session, stt Recognizer, speech Speech, uploader AudioUploader, engine *metrics.Engine, archive Storage, voices map[agent.Voice]string) CoachService {
	return &coachService{
		session:  session,
		stt:      stt,
		speech:   speech,
		uploader: uploader,
		engine:   engine,
		archive:  archive,
		voices:   voices,
	}
}

// Reconfigure installs a new persona and voice on the session.
func (s *coachService) Reconfigure(name, gender, scenario, behavior string) error {
	voice := agent.ParseVoice(gender)
	log.Printf("usecase: config: %s (%s)", name, voice)
	return s.session.Reconfigure(name, scenario, behavior, voice)
}

// HandleTextTurn runs one typed turn through the full pipeline and returns
// the spoken reply.
func (s *coachService) HandleTextTurn(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ValidationError{Reason: "empty text"}
	}
	return s.speakTurn(ctx, agent.Input{Text: text})
}

// HandleAudioTurn uploads the user's recording, waits for the asset to be
// usable, then runs the multimodal turn. A rejected asset aborts the turn
// before any generation call; any other upload failure degrades to the
// spoken audio fallback, same as a provider failure mid-turn.
func (s *coachService) HandleAudioTurn(ctx context.Context, audio []byte, mimeType string) ([]byte, error) {
	if len(audio) == 0 {
		return nil, &ValidationError{Reason: "empty audio"}
	}
	ref, err := s.uploader.UploadAudio(ctx, bytes.NewReader(audio), mimeType)
	if err != nil {
		var rej *llm.AudioRejectedError
		if errors.As(err, &rej) {
			return nil, err
		}
		log.Printf("usecase: audio upload failed, speaking fallback: %v", err)
		return s.speakFallback(ctx)
	}
	return s.speakTurn(ctx, agent.Input{Audio: &ref})
}

// speakFallback synthesizes the audio-turn apology with the current voice.
func (s *coachService) speakFallback(ctx context.Context) ([]byte, error) {
	voiceID := s.voices[s.session.Voice()]
	out, err := s.speech.Synthesize(ctx, agent.FallbackAudioReply, voiceID)
	if err != nil {
		return nil, fmt.Errorf("usecase: fallback synthesis: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("usecase: no audio produced for turn")
	}
	return out, nil
}

// speakTurn streams the reply, segments it into speakable chunks and
// synthesizes each chunk independently. A chunk that fails synthesis is
// skipped: downstream consumers treat the stream as best-effort, so partial
// audio beats no audio.
func (s *coachService) speakTurn(ctx context.Context, in agent.Input) ([]byte, error) {
	deltas, err := s.session.StreamReply(ctx, in)
	if err != nil {
		return nil, err
	}
	voiceID := s.voices[s.session.Voice()]

	var out []byte
	for chunk := range agent.Segment(ctx, deltas) {
		audio, err := s.speech.Synthesize(ctx, chunk, voiceID)
		if err != nil {
			log.Printf("usecase: tts chunk failed, skipping: %v", err)
			continue
		}
		out = append(out, audio...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("usecase: no audio produced for turn")
	}
	return out, nil
}

// fallbackAdvice is returned when the scoring call itself fails; the metrics
// half of the analysis may still be valid.
const fallbackAdvice = `{"note": "0", "accroche_probleme": "Erreur", "solution_cible": "Erreur", "unicite_business": "Erreur", "cta_action": "Erreur", "elements_manquants": "Erreur", "conseil": "Erreur technique"}`

// analysisPromptTemplate asks for a severe structural review of the pitch
// against the classic nine-point outline, answered in strict JSON.
const analysisPromptTemplate = `Tu es un expert en Pitch de Startup (Type Y-Combinator).
Analyse ce pitch en vérifiant la présence des 9 points clés de la structure idéale :

1. POURQUOI (Le problème/Accroche)
2. QUOI (La solution)
3. QUI (La cible)
4. COMMENT (Le fonctionnement)
5. OÙ/QUAND (Contexte/Marché)
6. POURQUOI TOI (Différenciation)
7. ARGENT (Modèle éco - Optionnel mais bon à savoir)
8. APPEL À L'ACTION (Ce que tu veux)

CONTEXTE ET STATS DU PITCHEUR :
%s

CONSIGNES DE RÉPONSE (JSON STRICT) :
Tu dois noter SÉVÈREMENT. Si un point clé est absent, dis-le.

Réponds UNIQUEMENT avec ce JSON :
{
    "note": "Note/100",
    "accroche_probleme": "Analyse du WHY et du problème (1 phrase)",
    "solution_cible": "Analyse du QUOI et QUI (1 phrase)",
    "unicite_business": "Analyse du POURQUOI TOI et du MODÈLE ÉCO (1 phrase)",
    "cta_action": "Analyse de l'APPEL À L'ACTION (1 phrase)",
    "elements_manquants": "Liste les points oubliés parmi les 9 (ex: 'Manque le Business Model, Manque le CTA...')",
    "conseil": "Le conseil prioritaire pour améliorer la structure"
}`

// AnalyzeRecording transcribes a pitch with word timestamps, computes the
// delivery metrics and asks the LLM for a structural review. Provider
// failures degrade to zero metrics plus an error advisory; the request
// itself never fails on a provider error.
func (s *coachService) AnalyzeRecording(ctx context.Context, audio []byte, mimeType string) (Analysis, error) {
	if len(audio) == 0 {
		return Analysis{}, &ValidationError{Reason: "empty audio"}
	}

	res, err := s.stt.TranscribeFile(ctx, audio)
	if err != nil {
		log.Printf("usecase: pitch transcription failed: %v", err)
		return Analysis{Metrics: metrics.Report{}, Advice: fallbackAdvice}, nil
	}

	rep := s.engine.Compute(res.Words, res.Transcript)

	statsCtx := fmt.Sprintf("TRANSCRIPTION DU PITCH: '%s'\nSTATS: %d mots/minute, %d mots de remplissage, %d pauses longues.",
		rep.Transcript, rep.WPM, rep.Fillers, rep.LongPauses)
	advice, err := s.session.OneShot(ctx, fmt.Sprintf(analysisPromptTemplate, statsCtx))
	if err != nil {
		log.Printf("usecase: pitch scoring failed: %v", err)
		advice = fallbackAdvice
	} else {
		advice = cleanJSONReply(advice)
	}

	if s.archive != nil {
		key := fmt.Sprintf("pitch_%s", uuid.NewString())
		body := append([]byte(nil), audio...)
		go func() {
			if err := s.archive.Upload(key, mimeType, body); err != nil {
				log.Printf("usecase: archive recording: %v", err)
			}
		}()
	}

	return Analysis{Metrics: rep, Advice: advice}, nil
}

// cleanJSONReply strips the markdown fences models like to wrap JSON in.
func cleanJSONReply(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
