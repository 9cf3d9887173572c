// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog defines the fixed set of creative concepts the pipeline
// renders. The catalog is pure: listing concepts has no side effects and
// no failure modes, and every seed it hands out is reproducible.
package catalog

import (
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/creative-engine/pkg/types"
)

// NegativePrompt lists the artifacts every concept tells the generator to
// avoid. Shared across the whole catalog.
const NegativePrompt = "watermark, lowres, text, extra fingers, logo of other brands, nsfw, noisy, oversaturated"

// suffix appended to every prompt template so all concepts share the same
// quality floor.
const promptSuffix = "; high-detail, photorealistic; no text/watermarks"

// concepts is the built-in catalog in declaration order. Manifest ordering
// follows this order regardless of completion order.
var concepts = []types.Concept{
	{ID: "hero", Name: "Hero shot", PromptTemplate: "Hero shot — clean studio white background; {product}; centered; natural soft shadow; 50mm, shallow DOF; {brand_constraints}" + promptSuffix},
	{ID: "lifestyle", Name: "Lifestyle", PromptTemplate: "Lifestyle — {product} placed on a wooden cafe table near a latte, shallow DOF, warm golden-hour lighting, candid human hand interacting (no faces visible), {brand_constraints}" + promptSuffix},
	{ID: "flatlay", Name: "Flat-lay", PromptTemplate: "Flat-lay — top-down composition, {product} among related accessories, minimal clutter, brand color accents" + promptSuffix},
	{ID: "closeup", Name: "Close-up", PromptTemplate: "Close-up — macro shot of {product} texture and logo area, crisp details, soft gradient background" + promptSuffix},
	{ID: "duotone", Name: "Graphic duotone", PromptTemplate: "Graphic duotone — {product} silhouette styled with brand palette duotone, high contrast, geometric shapes background" + promptSuffix},
	{ID: "seasonal", Name: "Seasonal festive", PromptTemplate: "Seasonal festive — {product} with subtle holiday props (winter - snow-soft bokeh), cozy warm lighting, no religious icons, brand voice warm" + promptSuffix},
	{ID: "action", Name: "Action shot", PromptTemplate: "Action shot — {product} in motion (pouring or being grabbed), motion blur artfully used, dynamic angle, realistic" + promptSuffix},
	{ID: "minimal", Name: "Minimalist", PromptTemplate: "Minimalist — {product} on a large negative-space backdrop with brand color accent, strong composition, subtle shadow, premium feel" + promptSuffix},
	{ID: "outdoor", Name: "Outdoor", PromptTemplate: "Outdoor — {product} on a hiking trail bench, natural light, rugged props, realistic environmental integration" + promptSuffix},
	{ID: "mockup", Name: "Ad mockup", PromptTemplate: "Ad mockup — {product} with top-left reserved space for text, safe margins, high-contrast area for CTA overlay (do NOT render text in image)" + promptSuffix},
}

// List returns the built-in catalog in declaration order. Callers receive
// a copy and may not mutate the catalog through it.
func List() []types.Concept {
	out := make([]types.Concept, len(concepts))
	copy(out, concepts)
	for i := range out {
		out[i].NegativePrompt = NegativePrompt
		out[i].Seed = Seed("", out[i].ID, 0)
	}
	return out
}

// Render fills the {product} and {brand_constraints} placeholders of a
// concept's prompt template.
func Render(c types.Concept, productDesc, brandConstraints string) string {
	r := strings.NewReplacer(
		"{product}", productDesc,
		"{brand_constraints}", brandConstraints,
	)
	return r.Replace(c.PromptTemplate)
}

// Seed derives a reproducible seed from the product description, concept
// ID, and variant index. The derivation is the first 8 hex digits of
// SHA-256 over the joined inputs, so equal inputs always produce equal
// seeds across runs and machines.
func Seed(productDesc, conceptID string, variant int) int64 {
	h := sha256.Sum256([]byte(productDesc + "||" + conceptID + "||" + strconv.Itoa(variant)))
	hexDigits := fmt.Sprintf("%x", h[:4])
	v, _ := strconv.ParseUint(hexDigits, 16, 64)
	return int64(v)
}
