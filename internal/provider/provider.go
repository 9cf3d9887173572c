// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package provider renders raw creative canvases from prompts. Two
// backends implement the same contract: a real generative service (AI
// Horde) and a deterministic offline mock. The backend is chosen once at
// startup, not per call.
package provider

import (
	"context"
	"errors"

	"github.com/pdiddy/creative-engine/pkg/types"
)

// Failure taxonomy for the real backend. The orchestrator retries on any
// of these and falls back to the deterministic backend when retries are
// exhausted; none of them ever aborts the whole run.
var (
	// ErrUnavailable means the service could not be reached or refused
	// the job.
	ErrUnavailable = errors.New("image provider unavailable")

	// ErrQuotaExceeded means the service rejected the job for rate or
	// kudos limits.
	ErrQuotaExceeded = errors.New("image provider quota exceeded")

	// ErrTimeout means the job did not finish within the configured
	// generation timeout.
	ErrTimeout = errors.New("image generation timed out")
)

// Backend generates one raw canvas per request.
type Backend interface {
	// Name identifies the backend in manifests and summaries.
	Name() string

	// Generate renders the request. Implementations must honor ctx and
	// return an error wrapping one of the package sentinels when the
	// failure fits the taxonomy.
	Generate(ctx context.Context, req types.GenerationRequest) (*types.GeneratedImage, error)
}
