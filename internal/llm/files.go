package llm

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"
)

// AssetState tracks an uploaded audio asset through provider-side processing.
type AssetState string

const (
	StateUploading  AssetState = "UPLOADING"
	StateProcessing AssetState = "PROCESSING"
	StateActive     AssetState = "ACTIVE"
	StateRejected   AssetState = "REJECTED"
)

// Asset is a provider-side audio file reference.
type Asset struct {
	ID       string
	URI      string
	MIMEType string
	State    AssetState
	// Reason carries the provider's failure message for REJECTED assets.
	Reason string
}

// AssetStore is the minimal interface over the provider's file API.
type AssetStore interface {
	Upload(ctx context.Context, r io.Reader, mimeType string) (Asset, error)
	Status(ctx context.Context, id string) (Asset, error)
}

// AudioRejectedError reports that the provider refused an uploaded asset.
type AudioRejectedError struct {
	AssetID string
	Reason  string
}

func (e *AudioRejectedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("llm: audio asset %s rejected by provider", e.AssetID)
	}
	return fmt.Sprintf("llm: audio asset %s rejected by provider: %s", e.AssetID, e.Reason)
}

const (
	defaultPollInterval = 1 * time.Second
	defaultMaxPolls     = 30
)

// ReadinessMonitor polls an AssetStore until an asset becomes usable.
type ReadinessMonitor struct {
	store        AssetStore
	pollInterval time.Duration
	maxPolls     int
}

// NewReadinessMonitor builds a monitor with a 1-second poll interval and a
// bounded attempt count. Zero values keep the defaults.
func NewReadinessMonitor(store AssetStore, pollInterval time.Duration, maxPolls int) *ReadinessMonitor {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	if maxPolls <= 0 {
		maxPolls = defaultMaxPolls
	}
	return &ReadinessMonitor{store: store, pollInterval: pollInterval, maxPolls: maxPolls}
}

// AwaitReady blocks until the asset reaches a terminal state. It returns the
// asset on ACTIVE and an *AudioRejectedError on REJECTED. The wait holds no
// locks and honours ctx cancellation between polls, so an aborted request
// releases the caller promptly.
func (m *ReadinessMonitor) AwaitReady(ctx context.Context, asset Asset) (Asset, error) {
	switch asset.State {
	case StateActive:
		return asset, nil
	case StateRejected:
		return asset, &AudioRejectedError{AssetID: asset.ID, Reason: asset.Reason}
	}

	timer := time.NewTimer(m.pollInterval)
	defer timer.Stop()
	for attempt := 0; attempt < m.maxPolls; attempt++ {
		select {
		case <-ctx.Done():
			return asset, ctx.Err()
		case <-timer.C:
		}

		cur, err := m.store.Status(ctx, asset.ID)
		if err != nil {
			return asset, fmt.Errorf("llm: asset status: %w", err)
		}
		switch cur.State {
		case StateActive:
			return cur, nil
		case StateRejected:
			return cur, &AudioRejectedError{AssetID: cur.ID, Reason: cur.Reason}
		}
		timer.Reset(m.pollInterval)
	}

	log.Printf("llm: asset %s still not ready after %d polls", asset.ID, m.maxPolls)
	return asset, fmt.Errorf("llm: asset %s not ready after %d polls", asset.ID, m.maxPolls)
}
