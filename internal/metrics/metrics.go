package metrics

import (
	"log"
	"strings"
	"unicode"
)

// Word is a single recognized word with provider timing.
// Start and End are offsets in seconds from the beginning of the recording.
// Filler, when set by the provider, overrides the lexical filler heuristic.
type Word struct {
	Text   string
	Start  float64
	End    float64
	Filler *bool
}

// Report holds the speaking-quality statistics for one recording.
// A Report is computed fresh per analysis request and never merged or cached.
type Report struct {
	WPM        int    `json:"wpm"`
	Fillers    int    `json:"fillers"`
	LongPauses int    `json:"pauses"`
	Transcript string `json:"transcript"`
}

// DefaultFillerWords are French hesitation markers counted as delivery defects.
var DefaultFillerWords = []string{"euh", "hum", "ben", "bah", "bon", "alors"}

const (
	// DefaultLongPauseGap is the inter-word silence, in seconds, beyond which
	// a pause counts against the speaker.
	DefaultLongPauseGap = 2.0

	// minDurationMinutes floors the WPM divisor so ultra-short samples do not
	// blow up the pace figure.
	minDurationMinutes = 0.1
)

// Engine computes delivery statistics from word-level timestamps.
// The zero value is not usable; construct with NewEngine.
type Engine struct {
	fillers      map[string]struct{}
	longPauseGap float64
}

// NewEngine returns an Engine with the French filler set and the 2-second
// pause threshold. Pass overrides to tune either; nil/zero keep the defaults.
func NewEngine(fillerWords []string, longPauseGap float64) *Engine {
	if len(fillerWords) == 0 {
		fillerWords = DefaultFillerWords
	}
	if longPauseGap <= 0 {
		longPauseGap = DefaultLongPauseGap
	}
	set := make(map[string]struct{}, len(fillerWords))
	for _, w := range fillerWords {
		set[strings.ToLower(w)] = struct{}{}
	}
	return &Engine{fillers: set, longPauseGap: longPauseGap}
}

// Compute derives a Report from an ordered word sequence and the raw
// transcript. It never fails: an empty sequence yields the zero report, and
// any panic while reading provider output degrades to zero metrics with a
// flagged transcript.
func (e *Engine) Compute(words []Word, transcript string) (rep Report) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("metrics: recovered while computing: %v", r)
			rep = Report{Transcript: "Erreur calcul"}
		}
	}()

	if len(words) == 0 {
		return Report{Transcript: ""}
	}

	durationMin := (words[len(words)-1].End - words[0].Start) / 60
	if durationMin < minDurationMinutes {
		durationMin = minDurationMinutes
	}
	rep.WPM = int(float64(len(words)) / durationMin)

	for _, w := range words {
		if e.isFiller(w) {
			rep.Fillers++
		}
	}

	for i := 0; i < len(words)-1; i++ {
		if words[i+1].Start-words[i].End > e.longPauseGap {
			rep.LongPauses++
		}
	}

	rep.Transcript = transcript
	return rep
}

// isFiller prefers the provider flag and falls back to the lexical set.
func (e *Engine) isFiller(w Word) bool {
	if w.Filler != nil {
		return *w.Filler
	}
	norm := strings.ToLower(strings.TrimRightFunc(w.Text, unicode.IsPunct))
	_, ok := e.fillers[norm]
	return ok
}
