// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package caption produces per-tone marketing copy for each creative.
// A backend (Hugging Face or the offline template) supplies candidate
// captions; this package validates them against the required shape and
// guarantees that every image ends up with exactly one caption set per
// tone, substituting a deterministic fallback when the backend cannot
// deliver.
package caption

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/creative-engine/internal/httputil"
	"github.com/pdiddy/creative-engine/pkg/types"
)

// ErrMalformed marks a backend response that is missing required fields,
// exceeds the body bound, or cannot be parsed as JSON. It triggers one
// stricter retry, then the templated fallback.
var ErrMalformed = errors.New("caption response malformed")

const defaultBodyWordLimit = 25

// Request asks a backend for one caption.
type Request struct {
	ProductDesc string
	ConceptID   string
	Tone        types.Tone

	// Strict tightens the instruction after a malformed response.
	Strict bool
}

// Parts is the validated caption shape: {headline, body, cta, hashtags}.
type Parts struct {
	Headline string   `json:"headline"`
	Body     string   `json:"body"`
	CTA      string   `json:"cta"`
	Hashtags []string `json:"hashtags"`
}

// Backend generates caption candidates. Implementations return an error
// wrapping ErrMalformed for unparseable responses and plain errors for
// transport failures.
type Backend interface {
	Name() string
	Caption(ctx context.Context, req Request) (Parts, error)
}

// Generator wraps a backend with validation, retry, and fallback so the
// tone-count invariant always holds.
type Generator struct {
	backend   Backend
	retry     httputil.Policy
	bodyLimit int
}

// NewGenerator builds a Generator from config.
func NewGenerator(backend Backend, cfg types.CaptionConfig) *Generator {
	limit := cfg.BodyWordLimit
	if limit <= 0 {
		limit = defaultBodyWordLimit
	}
	return &Generator{
		backend: backend,
		retry: httputil.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
			Multiplier:  cfg.Retry.Multiplier,
		},
		bodyLimit: limit,
	}
}

// ForImage returns exactly one CaptionSet per tone for the named image,
// in tone order, plus the number of fallback substitutions. It never
// fails; a backend that cannot produce a valid caption costs that tone
// its fallback, not the image its captions.
func (g *Generator) ForImage(ctx context.Context, filename, productDesc, conceptID string, tones []types.Tone) ([]types.CaptionSet, int) {
	sets := make([]types.CaptionSet, 0, len(tones))
	fallbacks := 0

	for _, tone := range tones {
		parts, usedFallback := g.one(ctx, productDesc, conceptID, tone)
		if usedFallback {
			fallbacks++
		}
		sets = append(sets, types.CaptionSet{
			Filename: filename,
			Tone:     tone,
			Headline: parts.Headline,
			Body:     parts.Body,
			CTA:      parts.CTA,
			Hashtags: parts.Hashtags,
		})
	}
	return sets, fallbacks
}

// one resolves a single (image, tone) caption: backend call, validation,
// one strict retry on malformed output, then fallback.
func (g *Generator) one(ctx context.Context, productDesc, conceptID string, tone types.Tone) (Parts, bool) {
	req := Request{ProductDesc: productDesc, ConceptID: conceptID, Tone: tone}

	parts, err := g.call(ctx, req)
	if err == nil {
		if parts, err = g.validate(parts); err == nil {
			return parts, false
		}
	}

	if errors.Is(err, ErrMalformed) {
		req.Strict = true
		parts, err = g.call(ctx, req)
		if err == nil {
			if parts, err = g.validate(parts); err == nil {
				return parts, false
			}
		}
	}

	return Fallback(productDesc, tone), true
}

// call invokes the backend under the retry policy. Transport errors are
// retried; a malformed response short-circuits so it can take the strict
// path instead of burning policy attempts.
func (g *Generator) call(ctx context.Context, req Request) (Parts, error) {
	var parts Parts
	var malformed error

	err := g.retry.Do(ctx, func() error {
		p, cerr := g.backend.Caption(ctx, req)
		if cerr != nil {
			if errors.Is(cerr, ErrMalformed) {
				malformed = cerr
				return nil
			}
			return cerr
		}
		parts = p
		malformed = nil
		return nil
	})
	if err != nil {
		return Parts{}, err
	}
	if malformed != nil {
		return Parts{}, malformed
	}
	return parts, nil
}

// validate checks the required shape and normalizes hashtags. Violations
// wrap ErrMalformed.
func (g *Generator) validate(p Parts) (Parts, error) {
	p.Headline = strings.TrimSpace(p.Headline)
	p.Body = strings.TrimSpace(p.Body)
	p.CTA = strings.TrimSpace(p.CTA)

	switch {
	case p.Headline == "":
		return p, fmt.Errorf("missing headline: %w", ErrMalformed)
	case p.Body == "":
		return p, fmt.Errorf("missing body: %w", ErrMalformed)
	case p.CTA == "":
		return p, fmt.Errorf("missing cta: %w", ErrMalformed)
	case len(p.Hashtags) == 0:
		return p, fmt.Errorf("missing hashtags: %w", ErrMalformed)
	}

	if words := len(strings.Fields(p.Body)); words > g.bodyLimit {
		return p, fmt.Errorf("body has %d words, limit %d: %w", words, g.bodyLimit, ErrMalformed)
	}

	tags := make([]string, 0, len(p.Hashtags))
	for _, tag := range p.Hashtags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if !strings.HasPrefix(tag, "#") {
			tag = "#" + tag
		}
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return p, fmt.Errorf("missing hashtags: %w", ErrMalformed)
	}
	p.Hashtags = tags

	return p, nil
}

// Fallback builds the deterministic templated caption for a tone. It is
// the guarantee behind the tone-count invariant: whatever the backend
// does, this always produces a valid set.
func Fallback(productDesc string, tone types.Tone) Parts {
	headlines := map[types.Tone]string{
		types.ToneFormal: "Premium performance, reliable every day.",
		types.ToneWitty:  "Sip smarter, not harder.",
		types.ToneUrgent: "Limited stock — grab yours now!",
	}
	bodies := map[types.Tone]string{
		types.ToneFormal: fmt.Sprintf("The %s combines refined design with lasting durability — perfect for daily use.", productDesc),
		types.ToneWitty:  fmt.Sprintf("This %s keeps your drink hot and your hands happy. Fancy that!", productDesc),
		types.ToneUrgent: fmt.Sprintf("Hurry — %s selling fast. Take it before it's gone.", productDesc),
	}
	ctas := map[types.Tone]string{
		types.ToneFormal: "Shop now",
		types.ToneWitty:  "Get it",
		types.ToneUrgent: "Buy now",
	}

	pick := func(m map[types.Tone]string) string {
		if v, ok := m[tone]; ok {
			return v
		}
		return m[types.ToneFormal]
	}

	return Parts{
		Headline: pick(headlines),
		Body:     pick(bodies),
		CTA:      pick(ctas),
		Hashtags: []string{"#design", "#everyday", "#musthave"},
	}
}
