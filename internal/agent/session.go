package agent

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
)

// personaTemplate derives the system instruction from the three persona
// fields. The fixed rules keep replies speakable: spoken register, no
// formatting, short sentences, no disclosure of non-human identity.
const personaTemplate = `Tu incarnes %s.
SCÉNARIO : %s
COMPORTEMENT : %s

RÈGLES IMPORTANTES :
- Tu es dans une conversation ORALE.
- Ne fais JAMAIS de listes à puces ou de formatage complexe (gras, italique).
- Fais des phrases courtes, claires et percutantes.
- Ne révèle jamais que tu n'es pas humain.
- Reste bref, sauf si on te demande explicitement de développer.
- Réagis directement à ce qu'on te dit (ou au ton de la voix).`

// Fallback replies spoken when the provider fails mid-turn. A failing
// provider must degrade to a short apology, never crash the session.
// FallbackAudioReply is exported so the pipeline can speak it when an audio
// turn dies before generation even starts.
const (
	fallbackTextReply  = "Désolé, j'ai un petit bug de cerveau."
	FallbackAudioReply = "Désolé, je n'ai pas bien entendu. Peux-tu répéter ?"
)

// historyAudioPlaceholder stands in for the user text of a multimodal turn.
const historyAudioPlaceholder = "[message vocal]"

// ListenPrompt accompanies an audio reference on the multimodal path.
const ListenPrompt = "Écoute cet audio attentivement et réponds-moi en suivant ton persona."

// Session owns one persona: its system instruction, voice identity and
// conversation history. All state is private to the session; nothing is
// shared across sessions beyond the injected provider handle.
type Session struct {
	llm LLM

	mu sync.Mutex

	persona    string
	system     string
	voice      Voice
	history    []Turn
	busy       bool
	cancelTurn context.CancelFunc
	// epoch increments on every reconfiguration so that a reply streamed
	// under a previous persona can never land in the new history.
	epoch int
}

// NewSession constructs a Session with a neutral default persona.
func NewSession(llm LLM) *Session {
	return &Session{
		llm:    llm,
		system: "Tu es un assistant utile.",
		voice:  VoicePrimary,
	}
}

// Reconfigure atomically installs a new persona: it rebuilds the system
// instruction, selects the voice, clears the conversation history and
// cancels any in-flight reply from the previous configuration. It fails
// only when all three persona fields are empty.
func (s *Session) Reconfigure(name, scenario, behavior string, voice Voice) error {
	if strings.TrimSpace(name) == "" && strings.TrimSpace(scenario) == "" && strings.TrimSpace(behavior) == "" {
		return &ConfigurationError{Reason: "persona name, scenario and behavior are all empty"}
	}

	s.mu.Lock()
	if s.cancelTurn != nil {
		s.cancelTurn()
		s.cancelTurn = nil
	}
	s.epoch++
	s.persona = name
	s.system = fmt.Sprintf(personaTemplate, name, scenario, behavior)
	s.voice = voice
	s.history = nil
	s.mu.Unlock()

	log.Printf("agent: persona updated: %s (voice=%s)", name, voice)
	return nil
}

// Voice returns the voice identity of the current persona.
func (s *Session) Voice() Voice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voice
}

// HistoryLen reports the number of recorded turns.
func (s *Session) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// History returns a copy of the conversation history.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.history))
	copy(out, s.history)
	return out
}

// StreamReply produces the assistant's reply to in as a lazy sequence of
// text deltas. On successful completion it appends one user turn and one
// assistant turn to the history. Provider failures are converted into a
// short fallback delta and are never propagated; a failed turn leaves the
// history untouched. A second turn issued while one is streaming is
// rejected with ErrTurnInProgress.
func (s *Session) StreamReply(ctx context.Context, in Input) (<-chan string, error) {
	if in.Audio == nil && strings.TrimSpace(in.Text) == "" {
		return nil, &ValidationError{Reason: "empty input"}
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, ErrTurnInProgress
	}
	turnCtx, cancel := context.WithCancel(ctx)
	s.busy = true
	s.cancelTurn = cancel
	epoch := s.epoch
	system := s.system
	history := make([]Turn, len(s.history))
	copy(history, s.history)
	s.mu.Unlock()

	out := make(chan string)
	go func() {
		defer close(out)
		defer cancel()
		defer func() {
			s.mu.Lock()
			s.busy = false
			if s.epoch == epoch {
				s.cancelTurn = nil
			}
			s.mu.Unlock()
		}()

		deltas, errs := s.llm.StreamReply(turnCtx, system, history, in)

		var full strings.Builder
		failed := false
		openDeltas, openErrs := true, true
		for openDeltas || openErrs {
			select {
			case d, ok := <-deltas:
				if !ok {
					openDeltas = false
					continue
				}
				if d == "" {
					continue
				}
				full.WriteString(d)
				select {
				case out <- d:
				case <-turnCtx.Done():
					return
				}
			case e, ok := <-errs:
				if !ok {
					openErrs = false
					continue
				}
				if e != nil {
					log.Printf("agent: llm stream error: %v", e)
					failed = true
				}
			case <-turnCtx.Done():
				return
			}
		}

		if failed {
			fb := fallbackTextReply
			if in.Audio != nil {
				fb = FallbackAudioReply
			}
			select {
			case out <- fb:
			case <-turnCtx.Done():
			}
			return
		}

		reply := strings.TrimSpace(full.String())
		if reply == "" {
			return
		}
		userText := strings.TrimSpace(in.Text)
		if in.Audio != nil {
			userText = historyAudioPlaceholder
		}
		s.mu.Lock()
		if s.epoch == epoch {
			s.history = append(s.history,
				Turn{Role: RoleUser, Text: userText},
				Turn{Role: RoleAssistant, Text: reply},
			)
		}
		s.mu.Unlock()
	}()

	return out, nil
}

// OneShot runs a single history-independent generation. It never reads or
// mutates the session history; it exists for the pitch-analysis flow.
func (s *Session) OneShot(ctx context.Context, prompt string) (string, error) {
	return s.llm.OneShot(ctx, prompt)
}
