package llm

import (
	"context"
	"fmt"
	"io"
	"strings"

	"google.golang.org/genai"

	"github.com/Izzoudine/back-flow/internal/agent"
)

const defaultModel = "gemini-2.5-flash"

// GeminiClient adapts the Gemini API to the agent.LLM capability interface
// and implements AssetStore over the Gemini files API.
type GeminiClient struct {
	client  *genai.Client
	model   string
	monitor *ReadinessMonitor
}

// NewGeminiClient builds a client for the given API key and model id.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm: gemini api key missing")
	}
	if model == "" {
		model = defaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: create gemini client: %w", err)
	}
	g := &GeminiClient{client: client, model: model}
	g.monitor = NewReadinessMonitor(g, 0, 0)
	return g, nil
}

// StreamReply implements agent.LLM. The full history plus the new input is
// sent on every call; the session owns the history, not the provider.
func (g *GeminiClient) StreamReply(ctx context.Context, system string, history []agent.Turn, in agent.Input) (<-chan string, <-chan error) {
	out := make(chan string, 16)
	errs := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errs)

		contents := make([]*genai.Content, 0, len(history)+1)
		for _, t := range history {
			role := genai.RoleUser
			if t.Role == agent.RoleAssistant {
				role = genai.RoleModel
			}
			contents = append(contents, genai.NewContentFromText(t.Text, genai.Role(role)))
		}
		var parts []*genai.Part
		if in.Audio != nil {
			parts = append(parts,
				genai.NewPartFromText(agent.ListenPrompt),
				genai.NewPartFromURI(in.Audio.URI, in.Audio.MIMEType),
			)
		} else {
			parts = append(parts, genai.NewPartFromText(in.Text))
		}
		contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: parts})

		cfg := &genai.GenerateContentConfig{}
		if system != "" {
			cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
		}

		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, cfg) {
			if err != nil {
				errs <- fmt.Errorf("llm: gemini stream: %w", err)
				return
			}
			delta := resp.Text()
			if delta == "" {
				continue
			}
			select {
			case out <- delta:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, errs
}

// OneShot implements agent.LLM for history-independent calls.
func (g *GeminiClient) OneShot(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("llm: gemini generate: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

// Upload implements AssetStore.
func (g *GeminiClient) Upload(ctx context.Context, r io.Reader, mimeType string) (Asset, error) {
	f, err := g.client.Files.Upload(ctx, r, &genai.UploadFileConfig{MIMEType: mimeType})
	if err != nil {
		return Asset{State: StateRejected, Reason: err.Error()}, fmt.Errorf("llm: upload audio: %w", err)
	}
	return assetFromFile(f), nil
}

// Status implements AssetStore.
func (g *GeminiClient) Status(ctx context.Context, id string) (Asset, error) {
	f, err := g.client.Files.Get(ctx, id, nil)
	if err != nil {
		return Asset{ID: id}, fmt.Errorf("llm: asset status: %w", err)
	}
	return assetFromFile(f), nil
}

// UploadAudio uploads a recording and blocks until the provider reports it
// usable. Generation must never be attempted against a non-ACTIVE asset.
func (g *GeminiClient) UploadAudio(ctx context.Context, r io.Reader, mimeType string) (agent.AudioRef, error) {
	asset, err := g.Upload(ctx, r, mimeType)
	if err != nil {
		return agent.AudioRef{}, err
	}
	ready, err := g.monitor.AwaitReady(ctx, asset)
	if err != nil {
		return agent.AudioRef{}, err
	}
	return agent.AudioRef{URI: ready.URI, MIMEType: ready.MIMEType}, nil
}

func assetFromFile(f *genai.File) Asset {
	a := Asset{ID: f.Name, URI: f.URI, MIMEType: f.MIMEType}
	switch f.State {
	case genai.FileStateActive:
		a.State = StateActive
	case genai.FileStateFailed:
		a.State = StateRejected
		if f.Error != nil {
			a.Reason = f.Error.Message
		}
	default:
		a.State = StateProcessing
	}
	return a
}
