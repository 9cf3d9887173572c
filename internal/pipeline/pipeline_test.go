// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"image"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/creative-engine/internal/caption"
	"github.com/pdiddy/creative-engine/internal/catalog"
	"github.com/pdiddy/creative-engine/internal/composite"
	"github.com/pdiddy/creative-engine/internal/provider"
	"github.com/pdiddy/creative-engine/pkg/types"
)

// failingBackend always reports the service as unavailable.
type failingBackend struct{}

func (failingBackend) Name() string { return "failing" }

func (failingBackend) Generate(context.Context, types.GenerationRequest) (*types.GeneratedImage, error) {
	return nil, provider.ErrUnavailable
}

// flakyBackend fails for the listed concept IDs and delegates to the
// mock for everything else.
type flakyBackend struct {
	failFor map[string]bool
	mock    provider.Mock
}

func (flakyBackend) Name() string { return "flaky" }

func (f flakyBackend) Generate(ctx context.Context, req types.GenerationRequest) (*types.GeneratedImage, error) {
	if f.failFor[req.Concept.ID] {
		return nil, provider.ErrUnavailable
	}
	return f.mock.Generate(ctx, req)
}

func testAssets() *composite.Assets {
	logo := image.NewNRGBA(image.Rect(0, 0, 32, 16))
	product := image.NewNRGBA(image.Rect(0, 0, 24, 24))
	for i := 3; i < len(logo.Pix); i += 4 {
		logo.Pix[i] = 255
	}
	for i := 3; i < len(product.Pix); i += 4 {
		product.Pix[i] = 255
	}
	return &composite.Assets{Logo: logo, Product: product}
}

func testConfig() types.PipelineConfig {
	return types.PipelineConfig{
		Provider: types.ProviderConfig{
			Retry: types.RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, Multiplier: 2},
		},
		ProductDesc: "travel mug",
		Width:       64,
		Height:      64,
		Concurrency: 4,
	}
}

func templatedCaptioner() Captioner {
	return caption.NewGenerator(caption.Templated{}, types.CaptionConfig{
		Retry: types.RetryConfig{MaxAttempts: 1, BaseDelay: time.Millisecond},
	})
}

func TestRun_FullCatalogWithMock(t *testing.T) {
	concepts := catalog.List()
	providers := Providers{Primary: provider.Mock{}}

	res, err := Run(context.Background(), providers, templatedCaptioner(), testAssets(), concepts, testConfig(), io.Discard)
	require.NoError(t, err)

	assert.Len(t, res.Results, len(concepts))
	assert.Len(t, res.Captions, len(concepts)*len(types.DefaultTones))
	assert.Len(t, res.Manifest.Entries, len(concepts))

	assert.Equal(t, len(concepts), res.Summary.Succeeded)
	assert.Zero(t, res.Summary.Failed)
	assert.Zero(t, res.Summary.Fallback)
	assert.False(t, res.Summary.HasFailures())
	assert.Equal(t, provider.MockName, res.Manifest.Provider)
}

func TestRun_PreservesCatalogOrder(t *testing.T) {
	concepts := catalog.List()
	providers := Providers{Primary: provider.Mock{}}

	res, err := Run(context.Background(), providers, templatedCaptioner(), testAssets(), concepts, testConfig(), io.Discard)
	require.NoError(t, err)

	require.Len(t, res.Manifest.Entries, len(concepts))
	for i, c := range concepts {
		assert.Equal(t, c.ID, res.Manifest.Entries[i].ConceptID)
		assert.Equal(t, c.ID, res.Results[i].ConceptID)
	}
}

func TestRun_PerConceptVariantsGetDistinctSeeds(t *testing.T) {
	concepts := catalog.List()[:2]
	cfg := testConfig()
	cfg.PerConcept = 3

	res, err := Run(context.Background(), Providers{Primary: provider.Mock{}}, templatedCaptioner(), testAssets(), concepts, cfg, io.Discard)
	require.NoError(t, err)

	require.Len(t, res.Manifest.Entries, 6)
	seeds := map[int64]bool{}
	for _, e := range res.Manifest.Entries {
		seeds[e.Seed] = true
	}
	assert.Len(t, seeds, 6, "every variant should carry a distinct seed")
}

func TestRun_PartialFailureKeepsSurvivors(t *testing.T) {
	concepts := catalog.List()
	backend := flakyBackend{failFor: map[string]bool{"hero": true, "flatlay": true}}
	cfg := testConfig()
	cfg.Provider.DisableFallback = true

	res, err := Run(context.Background(), Providers{Primary: backend}, templatedCaptioner(), testAssets(), concepts, cfg, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, len(concepts)-2, res.Summary.Succeeded)
	assert.Equal(t, 2, res.Summary.Failed)
	assert.True(t, res.Summary.HasFailures())
	assert.Equal(t, len(concepts), res.Summary.Total())

	assert.Len(t, res.Results, len(concepts)-2)
	assert.Len(t, res.Captions, (len(concepts)-2)*len(types.DefaultTones))
	for _, e := range res.Manifest.Entries {
		assert.NotEqual(t, "hero", e.ConceptID)
		assert.NotEqual(t, "flatlay", e.ConceptID)
	}
}

func TestRun_FallbackFillsIn(t *testing.T) {
	concepts := catalog.List()[:3]
	providers := Providers{Primary: failingBackend{}, Fallback: provider.Mock{}}

	res, err := Run(context.Background(), providers, templatedCaptioner(), testAssets(), concepts, testConfig(), io.Discard)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Summary.Succeeded)
	assert.Equal(t, 3, res.Summary.Fallback)
	assert.Zero(t, res.Summary.Failed)
	for _, e := range res.Manifest.Entries {
		assert.True(t, e.Fallback)
		assert.Equal(t, provider.MockName, e.Provider)
	}
}

func TestRun_AllFailWithoutFallback(t *testing.T) {
	concepts := catalog.List()[:3]

	res, err := Run(context.Background(), Providers{Primary: failingBackend{}}, templatedCaptioner(), testAssets(), concepts, testConfig(), io.Discard)
	require.NoError(t, err)

	assert.Zero(t, res.Summary.Succeeded)
	assert.Equal(t, 3, res.Summary.Failed)
	assert.Empty(t, res.Results)
	assert.Empty(t, res.Manifest.Entries)
}

func TestRun_NoPrimaryProvider(t *testing.T) {
	_, err := Run(context.Background(), Providers{}, templatedCaptioner(), testAssets(), catalog.List(), testConfig(), io.Discard)
	assert.Error(t, err)
}

func TestRun_ManifestToneCountsMatchCaptions(t *testing.T) {
	concepts := catalog.List()[:4]
	cfg := testConfig()
	cfg.Tones = []types.Tone{types.ToneFormal, types.ToneUrgent}

	res, err := Run(context.Background(), Providers{Primary: provider.Mock{}}, templatedCaptioner(), testAssets(), concepts, cfg, io.Discard)
	require.NoError(t, err)

	perFile := map[string]int{}
	for _, cs := range res.Captions {
		perFile[cs.Filename]++
	}
	for _, e := range res.Manifest.Entries {
		assert.Equal(t, 2, e.Tones)
		assert.Equal(t, 2, perFile[e.Filename])
	}
}

func TestRun_CanceledContextFailsRemainingJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Run(ctx, Providers{Primary: provider.Mock{}}, templatedCaptioner(), testAssets(), catalog.List(), testConfig(), io.Discard)
	require.NoError(t, err)

	assert.Equal(t, len(catalog.List()), res.Summary.Failed)
	assert.Empty(t, res.Results)
}

// A solid-color test double would hide ordering bugs; make sure distinct
// variants actually differ at the pixel level.
func TestRun_MockOutputsDifferAcrossConcepts(t *testing.T) {
	concepts := catalog.List()[:2]

	res, err := Run(context.Background(), Providers{Primary: provider.Mock{}}, templatedCaptioner(), testAssets(), concepts, testConfig(), io.Discard)
	require.NoError(t, err)
	require.Len(t, res.Results, 2)

	a := res.Results[0].Canvas.(*image.NRGBA)
	b := res.Results[1].Canvas.(*image.NRGBA)
	assert.NotEqual(t, a.Pix, b.Pix)
}
