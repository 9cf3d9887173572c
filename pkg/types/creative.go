// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"image"
	"time"
)

// Tone is a caption style variant applied to the same creative.
type Tone string

const (
	ToneFormal Tone = "formal"
	ToneWitty  Tone = "witty"
	ToneUrgent Tone = "urgent"
)

// DefaultTones is the tone set used when the caller does not override it.
var DefaultTones = []Tone{ToneFormal, ToneWitty, ToneUrgent}

// Concept is a predefined creative direction. Concepts are immutable and
// defined at process start by the catalog.
type Concept struct {
	// ID is a short slug, unique within the catalog (e.g. "hero").
	ID string `json:"id" yaml:"id"`

	// Name is a human-readable label for listings.
	Name string `json:"name" yaml:"name"`

	// PromptTemplate is the positive prompt with {product} and
	// {brand_constraints} placeholders.
	PromptTemplate string `json:"prompt_template" yaml:"prompt_template"`

	// NegativePrompt lists the artifacts the generator should avoid.
	NegativePrompt string `json:"negative_prompt" yaml:"negative_prompt"`

	// Seed is a reproducible base seed derived from the concept ID.
	// Request seeds additionally mix in the product description and
	// variant index.
	Seed int64 `json:"seed" yaml:"seed"`
}

// GenerationRequest carries everything a provider backend needs to render
// one raw canvas. Built per concept variant by the orchestrator and
// consumed once.
type GenerationRequest struct {
	Concept   Concept
	Width     int
	Height    int
	Seed      int64
	Prompt    string
	ModelHint string
}

// GeneratedImage is a raw canvas produced by a provider backend. The
// orchestrator owns it until compositing; only the composited result
// persists.
type GeneratedImage struct {
	ConceptID string
	Canvas    image.Image
	Seed      int64
	Provider  string
}

// CompositeResult is a finished creative: the generated canvas with brand
// assets blended in, ready for encoding.
type CompositeResult struct {
	ConceptID string
	Canvas    image.Image
	Filename  string
}

// CaptionSet is one caption variant for one creative. Exactly one set
// exists per (image, tone) pair.
type CaptionSet struct {
	Filename string   `json:"filename"`
	Tone     Tone     `json:"tone"`
	Headline string   `json:"headline"`
	Body     string   `json:"body"`
	CTA      string   `json:"cta"`
	Hashtags []string `json:"hashtags"`
}

// ManifestEntry links one output image to its generation parameters.
// One-to-one with CompositeResult.
type ManifestEntry struct {
	Filename  string `json:"filename"`
	ConceptID string `json:"concept"`
	Seed      int64  `json:"seed"`
	Prompt    string `json:"prompt"`
	Provider  string `json:"provider"`
	Fallback  bool   `json:"fallback"`
	Tones     int    `json:"tones"`
}

// Manifest is the structured record of a whole run.
type Manifest struct {
	CreatedAt   time.Time       `json:"created_at"`
	ProductDesc string          `json:"product_desc"`
	Provider    string          `json:"provider"`
	Width       int             `json:"width"`
	Height      int             `json:"height"`
	Entries     []ManifestEntry `json:"items"`
}

// ConceptState tracks a concept's progress through the pipeline.
type ConceptState string

const (
	StatePending     ConceptState = "pending"
	StateGenerating  ConceptState = "generating"
	StateCompositing ConceptState = "compositing"
	StateCaptioning  ConceptState = "captioning"
	StateDone        ConceptState = "done"
	StateFailed      ConceptState = "failed"
)

// RunSummary holds the aggregate outcome of a pipeline run.
type RunSummary struct {
	// Succeeded counts creatives that reached Done.
	Succeeded int

	// Fallback counts creatives whose provider call fell back to the
	// deterministic backend. Fallback creatives also count as Succeeded.
	Fallback int

	// Failed counts creatives excluded from the manifest.
	Failed int

	// CaptionFallbacks counts caption sets substituted with the
	// templated fallback.
	CaptionFallbacks int
}

// Total returns the number of creatives attempted.
func (s RunSummary) Total() int {
	return s.Succeeded + s.Failed
}

// HasFailures reports whether any creative failed.
func (s RunSummary) HasFailures() bool {
	return s.Failed > 0
}
