package metrics

import "testing"

func TestCompute_EmptyWordsYieldsZeroReport(t *testing.T) {
	e := NewEngine(nil, 0)
	rep := e.Compute(nil, "ignored")
	if rep.WPM != 0 || rep.Fillers != 0 || rep.LongPauses != 0 {
		t.Fatalf("expected zero report, got %+v", rep)
	}
	if rep.Transcript != "" {
		t.Fatalf("expected empty transcript, got %q", rep.Transcript)
	}
}

func TestCompute_PauseAndFillerDetection(t *testing.T) {
	e := NewEngine(nil, 0)
	words := []Word{
		{Text: "euh", Start: 0.0, End: 0.5},
		{Text: "bonjour", Start: 3.0, End: 3.5},
	}
	rep := e.Compute(words, "euh bonjour")
	if rep.LongPauses != 1 {
		t.Fatalf("expected 1 long pause (2.5s gap), got %d", rep.LongPauses)
	}
	if rep.Fillers != 1 {
		t.Fatalf("expected 1 filler, got %d", rep.Fillers)
	}
	if rep.Transcript != "euh bonjour" {
		t.Fatalf("transcript mismatch: %q", rep.Transcript)
	}
}

func TestCompute_WPMWithoutFloor(t *testing.T) {
	// 10 words over 20 seconds: 0.333 minutes, floor not applied, 30 wpm.
	words := make([]Word, 10)
	for i := range words {
		words[i] = Word{Text: "mot", Start: float64(i) * 2, End: float64(i)*2 + 1}
	}
	words[9].End = 20
	e := NewEngine(nil, 0)
	rep := e.Compute(words, "dix mots")
	if rep.WPM != 30 {
		t.Fatalf("expected wpm 30, got %d", rep.WPM)
	}
}

func TestCompute_DurationFloorOnShortSample(t *testing.T) {
	words := []Word{
		{Text: "salut", Start: 0.0, End: 0.5},
		{Text: "toi", Start: 0.5, End: 1.0},
	}
	e := NewEngine(nil, 0)
	rep := e.Compute(words, "salut toi")
	// 1 second of speech would divide by 0.0167 min; the 0.1 min floor caps this at 20.
	if rep.WPM != 20 {
		t.Fatalf("expected floored wpm 20, got %d", rep.WPM)
	}
}

func TestCompute_ProviderFillerFlagTakesPrecedence(t *testing.T) {
	yes, no := true, false
	words := []Word{
		// Not in the lexical set but flagged by the provider.
		{Text: "voilà", Start: 0, End: 0.3, Filler: &yes},
		// In the lexical set but explicitly unflagged.
		{Text: "euh", Start: 0.4, End: 0.6, Filler: &no},
	}
	e := NewEngine(nil, 0)
	rep := e.Compute(words, "x")
	if rep.Fillers != 1 {
		t.Fatalf("expected provider flags to win, got %d fillers", rep.Fillers)
	}
}

func TestCompute_NormalizesCaseAndTrailingPunctuation(t *testing.T) {
	words := []Word{
		{Text: "Euh,", Start: 0, End: 0.2},
		{Text: "bonjour", Start: 0.3, End: 0.8},
		{Text: "alors.", Start: 1.0, End: 1.4},
	}
	e := NewEngine(nil, 0)
	rep := e.Compute(words, "Euh, bonjour alors.")
	if rep.Fillers != 2 {
		t.Fatalf("expected 2 fillers after normalization, got %d", rep.Fillers)
	}
}

func TestNewEngine_CustomFillerSetAndThreshold(t *testing.T) {
	e := NewEngine([]string{"like"}, 1.0)
	words := []Word{
		{Text: "like", Start: 0, End: 0.2},
		{Text: "totally", Start: 1.5, End: 2.0},
	}
	rep := e.Compute(words, "like totally")
	if rep.Fillers != 1 {
		t.Fatalf("expected custom filler match, got %d", rep.Fillers)
	}
	if rep.LongPauses != 1 {
		t.Fatalf("expected pause above custom 1s threshold, got %d", rep.LongPauses)
	}
}
