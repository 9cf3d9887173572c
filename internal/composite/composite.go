// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package composite

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/pdiddy/creative-engine/pkg/types"
)

const (
	defaultLogoScale  = 0.12
	defaultMarginFrac = 0.04
	defaultCorner     = "bottom-right"
)

// Compose overlays the brand logo (and optionally a product badge) onto a
// generated canvas. The logo is scaled so its longest side is a fixed
// fraction of the canvas width and placed in the configured corner with a
// safe margin from every edge. Compose never fails: assets were validated
// up front and placement clamps itself to any canvas of at least 1×1.
func Compose(gen *types.GeneratedImage, assets *Assets, cfg types.CompositeConfig, filename string) *types.CompositeResult {
	canvas := imaging.Clone(gen.Canvas)
	cw, ch := canvas.Bounds().Dx(), canvas.Bounds().Dy()

	logoScale := cfg.LogoScale
	if logoScale <= 0 || logoScale >= 1 {
		logoScale = defaultLogoScale
	}
	marginFrac := cfg.MarginFrac
	if marginFrac < 0 || marginFrac >= 0.5 {
		marginFrac = defaultMarginFrac
	}
	corner := cfg.Corner
	if corner == "" {
		corner = defaultCorner
	}

	margin := safeMargin(cw, ch, marginFrac)

	logo := fitAsset(assets.Logo, cw, ch, logoScale, margin)
	pt := placeRect(cw, ch, logo.Bounds().Dx(), logo.Bounds().Dy(), margin, corner)
	canvas = imaging.Overlay(canvas, logo, pt, 1.0)

	if cfg.ProductScale > 0 && assets.Product != nil {
		badge := fitAsset(assets.Product, cw, ch, cfg.ProductScale, margin)
		bpt := placeRect(cw, ch, badge.Bounds().Dx(), badge.Bounds().Dy(), margin, oppositeCorner(corner))
		canvas = imaging.Overlay(canvas, badge, bpt, 1.0)
	}

	return &types.CompositeResult{
		ConceptID: gen.ConceptID,
		Canvas:    canvas,
		Filename:  filename,
	}
}

// safeMargin converts the margin fraction to pixels, capped so at least
// one pixel of placement room remains on each axis.
func safeMargin(cw, ch int, frac float64) int {
	short := cw
	if ch < short {
		short = ch
	}
	margin := int(float64(short) * frac)
	if cap := (cw - 1) / 2; margin > cap {
		margin = cap
	}
	if cap := (ch - 1) / 2; margin > cap {
		margin = cap
	}
	if margin < 0 {
		margin = 0
	}
	return margin
}

// fitAsset scales an asset so its longest side is scale×canvas-width,
// then shrinks further if the result would not fit inside the margins.
func fitAsset(asset *image.NRGBA, cw, ch int, scale float64, margin int) *image.NRGBA {
	target := int(float64(cw) * scale)
	if target < 1 {
		target = 1
	}

	var scaled *image.NRGBA
	if asset.Bounds().Dx() >= asset.Bounds().Dy() {
		scaled = imaging.Resize(asset, target, 0, imaging.Lanczos)
	} else {
		scaled = imaging.Resize(asset, 0, target, imaging.Lanczos)
	}

	maxW := cw - 2*margin
	maxH := ch - 2*margin
	if scaled.Bounds().Dx() > maxW || scaled.Bounds().Dy() > maxH {
		scaled = imaging.Fit(scaled, maxW, maxH, imaging.Lanczos)
	}
	// imaging returns a 0×0 image when a requested dimension rounds to
	// zero; fall back to a single pixel so Overlay stays harmless.
	if scaled.Bounds().Dx() < 1 || scaled.Bounds().Dy() < 1 {
		scaled = imaging.Clone(imaging.Crop(asset, image.Rect(0, 0, 1, 1)))
	}
	return scaled
}

// placeRect returns the top-left point for an lw×lh overlay inside a
// cw×ch canvas, honoring the margin in the given corner.
func placeRect(cw, ch, lw, lh, margin int, corner string) image.Point {
	var x, y int
	switch corner {
	case "top-left":
		x, y = margin, margin
	case "bottom-left":
		x, y = margin, ch-lh-margin
	case "center":
		x, y = (cw-lw)/2, (ch-lh)/2
	default: // bottom-right
		x, y = cw-lw-margin, ch-lh-margin
	}

	// Clamp so the overlay always stays inside the canvas, margin
	// permitting.
	if x > cw-lw-margin {
		x = cw - lw - margin
	}
	if y > ch-lh-margin {
		y = ch - lh - margin
	}
	if x < margin {
		x = margin
	}
	if y < margin {
		y = margin
	}
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	return image.Pt(x, y)
}

// oppositeCorner mirrors a corner horizontally so the product badge never
// collides with the logo.
func oppositeCorner(corner string) string {
	switch corner {
	case "bottom-right":
		return "bottom-left"
	case "bottom-left":
		return "bottom-right"
	case "top-left":
		return "bottom-right"
	default:
		return "bottom-left"
	}
}
