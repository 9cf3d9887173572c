// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline orchestrates a creative batch: for every concept
// variant it generates a canvas, composites the brand assets, and
// captions the result, with a bounded worker pool across jobs. Failures
// stay local to their job so one bad concept never sinks the batch.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/creative-engine/internal/catalog"
	"github.com/pdiddy/creative-engine/internal/composite"
	"github.com/pdiddy/creative-engine/internal/httputil"
	"github.com/pdiddy/creative-engine/internal/provider"
	"github.com/pdiddy/creative-engine/pkg/types"
)

const (
	defaultDimension   = 768
	defaultConcurrency = 3
)

// Captioner produces the per-tone caption sets for one creative.
// Satisfied by *caption.Generator.
type Captioner interface {
	ForImage(ctx context.Context, filename, productDesc, conceptID string, tones []types.Tone) ([]types.CaptionSet, int)
}

// Providers pairs the primary image backend with an optional fallback
// used once the primary's retries are exhausted.
type Providers struct {
	Primary  provider.Backend
	Fallback provider.Backend
}

// Result is the completed batch, ready for packaging. Results, Captions,
// and Manifest.Entries are aligned in catalog order and contain only the
// creatives that reached Done.
type Result struct {
	Results  []*types.CompositeResult
	Captions []types.CaptionSet
	Manifest *types.Manifest
	Summary  types.RunSummary
}

// job is one concept variant to render.
type job struct {
	concept types.Concept
	variant int
	seed    int64
	prompt  string
}

// slot holds one job's outcome, indexed by job order so the manifest
// preserves catalog order regardless of worker scheduling.
type slot struct {
	state            types.ConceptState
	result           *types.CompositeResult
	captions         []types.CaptionSet
	entry            types.ManifestEntry
	fallback         bool
	captionFallbacks int
}

// Run executes the batch. It returns a Result even when the context is
// canceled partway: jobs that finished stay in the output, the rest are
// counted as failed. The returned error is reserved for setup problems;
// per-job failures surface through Summary.Failed.
func Run(ctx context.Context, providers Providers, captioner Captioner, assets *composite.Assets, concepts []types.Concept, cfg types.PipelineConfig, w io.Writer) (*Result, error) {
	if providers.Primary == nil {
		return nil, errors.New("pipeline: no primary provider configured")
	}
	cfg = withDefaults(cfg)

	jobs := buildJobs(concepts, cfg)
	slots := make([]slot, len(jobs))
	for i := range slots {
		slots[i].state = types.StatePending
	}

	retry := httputil.Policy{
		MaxAttempts: cfg.Provider.Retry.MaxAttempts,
		BaseDelay:   cfg.Provider.Retry.BaseDelay,
		Multiplier:  cfg.Provider.Retry.Multiplier,
	}

	var mu sync.Mutex
	logf := func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, format, args...)
	}

	fmt.Fprintf(w, "rendering %d creatives (%d concepts x %d variants) with %s\n",
		len(jobs), len(concepts), cfg.PerConcept, providers.Primary.Name())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)

	for i := range jobs {
		i := i
		g.Go(func() error {
			runJob(gctx, &slots[i], jobs[i], providers, captioner, assets, cfg, retry, logf)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	return collect(slots, providers.Primary.Name(), cfg), nil
}

// runJob drives one creative through the state machine. It never returns
// an error: failures mark the slot and the batch moves on.
func runJob(ctx context.Context, s *slot, j job, providers Providers, captioner Captioner, assets *composite.Assets, cfg types.PipelineConfig, retry httputil.Policy, logf func(string, ...any)) {
	if ctx.Err() != nil {
		s.state = types.StateFailed
		return
	}

	s.state = types.StateGenerating
	gen, usedFallback, err := generate(ctx, j, providers, cfg, retry)
	if err != nil {
		logf("warning: %s v%d: generation failed: %v\n", j.concept.ID, j.variant, err)
		s.state = types.StateFailed
		return
	}
	if usedFallback {
		logf("warning: %s v%d: primary provider exhausted, using %s\n", j.concept.ID, j.variant, gen.Provider)
	}

	filename := fmt.Sprintf("%s_v%d_s%d.jpg", j.concept.ID, j.variant, j.seed)

	s.state = types.StateCompositing
	s.result = composite.Compose(gen, assets, cfg.Composite, filename)

	s.state = types.StateCaptioning
	s.captions, s.captionFallbacks = captioner.ForImage(ctx, filename, cfg.ProductDesc, j.concept.ID, cfg.Tones)

	s.fallback = usedFallback
	s.entry = types.ManifestEntry{
		Filename:  filename,
		ConceptID: j.concept.ID,
		Seed:      j.seed,
		Prompt:    j.prompt,
		Provider:  gen.Provider,
		Fallback:  usedFallback,
		Tones:     len(cfg.Tones),
	}
	s.state = types.StateDone
	logf("done %s\n", filename)
}

// generate runs the primary backend under the retry policy, then falls
// back to the secondary when every attempt failed. The bool reports
// whether the fallback produced the canvas.
func generate(ctx context.Context, j job, providers Providers, cfg types.PipelineConfig, retry httputil.Policy) (*types.GeneratedImage, bool, error) {
	req := types.GenerationRequest{
		Concept:   j.concept,
		Width:     cfg.Width,
		Height:    cfg.Height,
		Seed:      j.seed,
		Prompt:    j.prompt,
		ModelHint: cfg.Provider.Model,
	}

	var gen *types.GeneratedImage
	err := retry.Do(ctx, func() error {
		out, gerr := providers.Primary.Generate(ctx, req)
		if gerr != nil {
			return gerr
		}
		gen = out
		return nil
	})
	if err == nil {
		return gen, false, nil
	}

	if providers.Fallback == nil || cfg.Provider.DisableFallback || ctx.Err() != nil {
		return nil, false, err
	}

	gen, ferr := providers.Fallback.Generate(ctx, req)
	if ferr != nil {
		return nil, false, fmt.Errorf("fallback after %v: %w", err, ferr)
	}
	return gen, true, nil
}

// collect folds the slots into the final Result, preserving job order
// and skipping failed slots.
func collect(slots []slot, providerName string, cfg types.PipelineConfig) *Result {
	res := &Result{
		Manifest: &types.Manifest{
			CreatedAt:   time.Now().UTC(),
			ProductDesc: cfg.ProductDesc,
			Provider:    providerName,
			Width:       cfg.Width,
			Height:      cfg.Height,
		},
	}

	for i := range slots {
		s := &slots[i]
		if s.state != types.StateDone {
			res.Summary.Failed++
			continue
		}
		res.Summary.Succeeded++
		if s.fallback {
			res.Summary.Fallback++
		}
		res.Summary.CaptionFallbacks += s.captionFallbacks

		res.Results = append(res.Results, s.result)
		res.Captions = append(res.Captions, s.captions...)
		res.Manifest.Entries = append(res.Manifest.Entries, s.entry)
	}
	return res
}

func buildJobs(concepts []types.Concept, cfg types.PipelineConfig) []job {
	jobs := make([]job, 0, len(concepts)*cfg.PerConcept)
	for _, c := range concepts {
		prompt := catalog.Render(c, cfg.ProductDesc, cfg.BrandConstraints)
		for v := 0; v < cfg.PerConcept; v++ {
			jobs = append(jobs, job{
				concept: c,
				variant: v,
				seed:    catalog.Seed(cfg.ProductDesc, c.ID, v),
				prompt:  prompt,
			})
		}
	}
	return jobs
}

func withDefaults(cfg types.PipelineConfig) types.PipelineConfig {
	if cfg.PerConcept <= 0 {
		cfg.PerConcept = 1
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.Width <= 0 {
		cfg.Width = defaultDimension
	}
	if cfg.Height <= 0 {
		cfg.Height = defaultDimension
	}
	if len(cfg.Tones) == 0 {
		cfg.Tones = append([]types.Tone(nil), types.DefaultTones...)
	}
	return cfg
}
