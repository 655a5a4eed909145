package config

import (
	"testing"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("HTTP_ADDRESS", "")
	t.Setenv("GEMINI_MODEL_ID", "")
	t.Setenv("DEEPGRAM_MODEL_ID", "")
	t.Setenv("DEEPGRAM_LANGUAGE", "")
	cfg := Load()
	if cfg.HTTPAddress == "" {
		t.Fatalf("expected default http address")
	}
	if cfg.GeminiModelID == "" {
		t.Fatalf("expected default gemini model id")
	}
	if cfg.DeepgramModelID != "nova-2" || cfg.DeepgramLanguage != "fr" {
		t.Fatalf("expected deepgram defaults, got %q/%q", cfg.DeepgramModelID, cfg.DeepgramLanguage)
	}
}

func TestLoad_GeminiKeyList(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", " key-one , key-two")
	cfg := Load()
	if cfg.GeminiAPIKey != "key-one" {
		t.Fatalf("expected first key from the list, got %q", cfg.GeminiAPIKey)
	}
}

func TestFirstKey(t *testing.T) {
	if got := firstKey(""); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	if got := firstKey(",,  ,abc"); got != "abc" {
		t.Fatalf("expected abc, got %q", got)
	}
}
