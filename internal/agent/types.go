package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one entry of a session's conversation history.
type Turn struct {
	Role string
	Text string
}

// AudioRef points at a provider-side audio asset that reached the ACTIVE
// state and can be fed to a multimodal generation call.
type AudioRef struct {
	URI      string
	MIMEType string
}

// Input is one user turn: exactly one of Text or Audio should be set.
type Input struct {
	Text  string
	Audio *AudioRef
}

// LLM is the minimal capability interface the session needs from the
// language-model provider. StreamReply must close both channels when the
// stream ends; the error channel carries at most one error.
type LLM interface {
	StreamReply(ctx context.Context, system string, history []Turn, in Input) (<-chan string, <-chan error)
	OneShot(ctx context.Context, prompt string) (string, error)
}

// Voice selects which configured TTS voice speaks the session's replies.
type Voice string

const (
	VoicePrimary   Voice = "primary"
	VoiceSecondary Voice = "secondary"
)

// ParseVoice maps loose gender-ish labels onto a voice identity.
// "femme", "female", "woman", "fille" and the like select the secondary
// voice; everything else (including empty) keeps the primary one.
func ParseVoice(s string) Voice {
	g := strings.ToLower(strings.TrimSpace(s))
	if strings.Contains(g, "fem") || strings.Contains(g, "woman") || strings.Contains(g, "fille") {
		return VoiceSecondary
	}
	return VoicePrimary
}

// ConfigurationError reports an invalid persona reconfiguration.
// The session state is left untouched when it is returned.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("agent: invalid configuration: %s", e.Reason)
}

// ValidationError reports unusable turn input. No provider call was made
// and the session state is unchanged.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("agent: invalid input: %s", e.Reason)
}

// ErrTurnInProgress is returned when a new turn is issued while a previous
// one is still streaming. Overlapping turns are rejected, not queued.
var ErrTurnInProgress = errors.New("agent: a turn is already in progress")
