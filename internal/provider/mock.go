// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"image"
	"image/color"

	"github.com/pdiddy/creative-engine/pkg/types"
)

// MockName is the provider name recorded in manifests for mock output.
const MockName = "mock"

// Mock renders a seeded procedural pattern instead of calling a
// generation service. Equal (seed, width, height) inputs always produce
// identical pixel buffers, which keeps offline runs byte-reproducible.
// Mock never fails.
type Mock struct{}

// Name implements Backend.
func (Mock) Name() string { return MockName }

// Generate implements Backend. Dimensions are clamped to at least 1×1;
// the context is ignored because no I/O happens.
func (Mock) Generate(_ context.Context, req types.GenerationRequest) (*types.GeneratedImage, error) {
	w, h := req.Width, req.Height
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	rng := splitmix64(uint64(req.Seed))
	base := paletteColor(&rng)
	far := paletteColor(&rng)
	accent := paletteColor(&rng)
	bandPhase := int(rng%64) + 24

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// Diagonal gradient between the two base colors.
			num := x + y
			den := w + h - 2
			if den < 1 {
				den = 1
			}
			c := lerpColor(base, far, num, den)

			// Accent bands keyed to the seed, integer math only so
			// the pattern is identical on every platform.
			if ((x+y*3)/bandPhase+int(req.Seed))%5 == 0 {
				c = lerpColor(c, accent, 1, 3)
			}
			img.SetNRGBA(x, y, c)
		}
	}

	return &types.GeneratedImage{
		ConceptID: req.Concept.ID,
		Canvas:    img,
		Seed:      req.Seed,
		Provider:  MockName,
	}, nil
}

// splitmix64 advances a simple deterministic PRNG state. Good enough for
// palette picks; cryptographic quality is irrelevant here.
func splitmix64(state uint64) uint64 {
	state += 0x9e3779b97f4a7c15
	z := state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// paletteColor derives the next color from the PRNG state, biased toward
// mid tones so composited logos stay visible.
func paletteColor(state *uint64) color.NRGBA {
	*state = splitmix64(*state)
	v := *state
	return color.NRGBA{
		R: uint8(64 + (v>>0)%128),
		G: uint8(64 + (v>>8)%128),
		B: uint8(64 + (v>>16)%128),
		A: 255,
	}
}

// lerpColor mixes a and b at ratio num/den using integer arithmetic.
func lerpColor(a, b color.NRGBA, num, den int) color.NRGBA {
	mix := func(x, y uint8) uint8 {
		return uint8((int(x)*(den-num) + int(y)*num) / den)
	}
	return color.NRGBA{
		R: mix(a.R, b.R),
		G: mix(a.G, b.G),
		B: mix(a.B, b.B),
		A: 255,
	}
}
