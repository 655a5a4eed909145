package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress string

	GeminiAPIKey  string
	GeminiModelID string

	DeepgramAPIKey   string
	DeepgramModelID  string
	DeepgramLanguage string

	ElevenLabsKey              string
	ElevenLabsVoiceIDPrimary   string
	ElevenLabsVoiceIDSecondary string

	SupabaseURL    string
	SupabaseKey    string
	SupabaseBucket string
}

// Load reads environment variables and returns Config with sane defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Error loading .env file")
	}

	addr := os.Getenv("HTTP_ADDRESS")
	if addr == "" {
		addr = ":8001"
	}

	// GEMINI_API_KEY may hold a comma-separated key list; only the first
	// entry is used, the rest are spares to rotate in by hand.
	geminiKey := firstKey(os.Getenv("GEMINI_API_KEY"))
	if geminiKey == "" {
		log.Println("Warning: GEMINI_API_KEY not set - conversation will not work")
	}
	geminiModel := os.Getenv("GEMINI_MODEL_ID")
	if geminiModel == "" {
		geminiModel = "gemini-2.5-flash"
	}

	deepgramKey := os.Getenv("DEEPGRAM_API_KEY")
	if deepgramKey == "" {
		log.Println("Warning: DEEPGRAM_API_KEY not set - pitch analysis and live transcription will not work")
	}
	deepgramModel := os.Getenv("DEEPGRAM_MODEL_ID")
	if deepgramModel == "" {
		deepgramModel = "nova-2"
	}
	deepgramLang := os.Getenv("DEEPGRAM_LANGUAGE")
	if deepgramLang == "" {
		deepgramLang = "fr"
	}

	elevenKey := os.Getenv("ELEVENLABS_API_KEY")
	if elevenKey == "" {
		log.Println("Warning: ELEVENLABS_API_KEY not set - TTS will not work")
	}
	voicePrimary := os.Getenv("ELEVENLABS_VOICE_ID_PRIMARY")
	voiceSecondary := os.Getenv("ELEVENLABS_VOICE_ID_SECONDARY")
	if voicePrimary == "" || voiceSecondary == "" {
		log.Println("Warning: ELEVENLABS_VOICE_ID_PRIMARY/SECONDARY not both set - voice selection may fail; set concrete voice IDs from your ElevenLabs dashboard")
	}

	supabaseURL := os.Getenv("SUPABASE_URL")
	supabaseKey := os.Getenv("SUPABASE_SERVICE_ROLE_KEY")
	supabaseBucket := os.Getenv("SUPABASE_BUCKET")
	if supabaseBucket == "" {
		supabaseBucket = "recordings"
	}
	if supabaseURL == "" || supabaseKey == "" {
		log.Println("Warning: SUPABASE_URL/SUPABASE_SERVICE_ROLE_KEY not set - recording archival disabled")
	}

	log.Printf("config: HTTP_ADDRESS=%s", addr)
	return Config{
		HTTPAddress:                addr,
		GeminiAPIKey:               geminiKey,
		GeminiModelID:              geminiModel,
		DeepgramAPIKey:             deepgramKey,
		DeepgramModelID:            deepgramModel,
		DeepgramLanguage:           deepgramLang,
		ElevenLabsKey:              elevenKey,
		ElevenLabsVoiceIDPrimary:   voicePrimary,
		ElevenLabsVoiceIDSecondary: voiceSecondary,
		SupabaseURL:                supabaseURL,
		SupabaseKey:                supabaseKey,
		SupabaseBucket:             supabaseBucket,
	}
}

func firstKey(raw string) string {
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			return k
		}
	}
	return ""
}
