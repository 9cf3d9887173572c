// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package composite blends brand assets onto generated canvases.
package composite

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// AssetLoadError reports an unreadable or malformed brand asset. Asset
// loading happens before any generation work so a bad logo fails the run
// without burning provider calls.
type AssetLoadError struct {
	Path string
	Err  error
}

func (e *AssetLoadError) Error() string {
	return fmt.Sprintf("loading asset %s: %v", e.Path, e.Err)
}

func (e *AssetLoadError) Unwrap() error { return e.Err }

// Assets holds the decoded brand inputs, normalized to NRGBA so alpha
// blending behaves the same regardless of source format.
type Assets struct {
	Logo    *image.NRGBA
	Product *image.NRGBA
}

// LoadAssets reads and decodes the logo and product images (PNG or JPEG).
// Any failure is an *AssetLoadError.
func LoadAssets(logoPath, productPath string) (*Assets, error) {
	logo, err := loadImage(logoPath)
	if err != nil {
		return nil, err
	}
	product, err := loadImage(productPath)
	if err != nil {
		return nil, err
	}
	return &Assets{Logo: logo, Product: product}, nil
}

func loadImage(path string) (*image.NRGBA, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, &AssetLoadError{Path: path, Err: err}
	}
	b := img.Bounds()
	if b.Dx() < 1 || b.Dy() < 1 {
		return nil, &AssetLoadError{Path: path, Err: fmt.Errorf("image has no pixels")}
	}
	return imaging.Clone(img), nil
}
