package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/Izzoudine/back-flow/api/http"
	"github.com/Izzoudine/back-flow/internal/agent"
	"github.com/Izzoudine/back-flow/internal/bridge"
	"github.com/Izzoudine/back-flow/internal/config"
	"github.com/Izzoudine/back-flow/internal/httpserver"
	"github.com/Izzoudine/back-flow/internal/llm"
	"github.com/Izzoudine/back-flow/internal/metrics"
	"github.com/Izzoudine/back-flow/internal/storage"
	"github.com/Izzoudine/back-flow/internal/transcript"
	"github.com/Izzoudine/back-flow/internal/tts"
	"github.com/Izzoudine/back-flow/internal/usecase"
)

func main() {
	// Include sub-second precision in all log timestamps
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	cfg := config.Load()

	gemini, err := llm.NewGeminiClient(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModelID)
	if err != nil {
		log.Fatalf("gemini client: %v", err)
	}

	session := agent.NewSession(gemini)
	recognizer := transcript.NewDeepgramRecognizer(cfg.DeepgramAPIKey, cfg.DeepgramModelID, cfg.DeepgramLanguage)
	speech := tts.NewElevenLabsClient(cfg.ElevenLabsKey)
	engine := metrics.NewEngine(nil, 0)

	var archive usecase.Storage
	if cfg.SupabaseURL != "" && cfg.SupabaseKey != "" {
		sb, err := storage.NewSupabaseStorage(storage.SupabaseConfig{
			URL:            cfg.SupabaseURL,
			ServiceRoleKey: cfg.SupabaseKey,
			Bucket:         cfg.SupabaseBucket,
		})
		if err != nil {
			log.Printf("supabase storage disabled: %v", err)
		} else {
			archive = sb
		}
	}

	voices := map[agent.Voice]string{
		agent.VoicePrimary:   cfg.ElevenLabsVoiceIDPrimary,
		agent.VoiceSecondary: cfg.ElevenLabsVoiceIDSecondary,
	}
	coach := usecase.NewCoachService(session, recognizer, speech, gemini, engine, archive, voices)

	live := func(ctx context.Context) (bridge.LiveTranscriber, error) {
		dg := transcript.NewDeepgramLive(cfg.DeepgramAPIKey, cfg.DeepgramModelID, cfg.DeepgramLanguage)
		if err := dg.Connect(); err != nil {
			return nil, err
		}
		return dg, nil
	}

	e := httpserver.New(api.NewHandlers(coach, live))

	server := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		log.Printf("server listening on %s", cfg.HTTPAddress)
		serverErrors <- server.ListenAndServe()
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	case sig := <-sigChan:
		log.Printf("shutdown signal received: %v", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = server.Close()
	}
}
