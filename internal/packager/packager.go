// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package packager writes a finished batch to disk: encoded images, the
// caption CSV, the run manifest, and a zip archive bundling all three.
package packager

import (
	"archive/zip"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/pdiddy/creative-engine/pkg/types"
)

const (
	imagesDirName    = "images"
	captionsFileName = "captions.csv"
	manifestFileName = "manifest.json"
	jpegQuality      = 95
)

// PackagingError reports an inconsistent batch or a filesystem failure
// while writing outputs. Packaging is all-or-nothing per artifact: a
// PackagingError means the archive cannot be trusted.
type PackagingError struct {
	Stage string
	Err   error
}

func (e *PackagingError) Error() string {
	return fmt.Sprintf("packaging %s: %v", e.Stage, e.Err)
}

func (e *PackagingError) Unwrap() error { return e.Err }

func fail(stage string, err error) error {
	return &PackagingError{Stage: stage, Err: err}
}

// Package writes the batch under outDir and zips it next to the
// directory at outDir+".zip". It verifies cross-artifact consistency
// first so a bug upstream cannot produce an archive whose manifest lies
// about its contents. Returns the archive path.
func Package(outDir string, results []*types.CompositeResult, captions []types.CaptionSet, manifest *types.Manifest, w io.Writer) (string, error) {
	if err := verify(results, captions, manifest); err != nil {
		return "", err
	}

	imagesDir := filepath.Join(outDir, imagesDirName)
	if err := os.MkdirAll(imagesDir, 0o755); err != nil {
		return "", fail("output directory", err)
	}

	for _, res := range results {
		path := filepath.Join(imagesDir, res.Filename)
		if err := imaging.Save(res.Canvas, path, imaging.JPEGQuality(jpegQuality)); err != nil {
			return "", fail("image "+res.Filename, err)
		}
	}
	fmt.Fprintf(w, "wrote %d images to %s\n", len(results), imagesDir)

	if err := writeCaptionsCSV(filepath.Join(outDir, captionsFileName), captions); err != nil {
		return "", err
	}
	if err := writeManifest(filepath.Join(outDir, manifestFileName), manifest); err != nil {
		return "", err
	}

	archivePath := outDir + ".zip"
	if err := writeArchive(archivePath, outDir, results); err != nil {
		return "", err
	}
	fmt.Fprintf(w, "archive ready: %s\n", archivePath)

	return archivePath, nil
}

// verify checks the invariants that tie the three artifacts together:
// results, manifest entries, and captions must describe the same set of
// filenames, with exactly the announced number of caption rows each.
func verify(results []*types.CompositeResult, captions []types.CaptionSet, manifest *types.Manifest) error {
	if manifest == nil {
		return fail("verify", fmt.Errorf("nil manifest"))
	}
	if len(results) != len(manifest.Entries) {
		return fail("verify", fmt.Errorf("%d images but %d manifest entries", len(results), len(manifest.Entries)))
	}

	resultNames := make(map[string]bool, len(results))
	for _, res := range results {
		if resultNames[res.Filename] {
			return fail("verify", fmt.Errorf("duplicate image filename %q", res.Filename))
		}
		resultNames[res.Filename] = true
	}

	captionCounts := make(map[string]int, len(results))
	for _, cs := range captions {
		captionCounts[cs.Filename]++
	}

	for _, entry := range manifest.Entries {
		if !resultNames[entry.Filename] {
			return fail("verify", fmt.Errorf("manifest entry %q has no image", entry.Filename))
		}
		if got := captionCounts[entry.Filename]; got != entry.Tones {
			return fail("verify", fmt.Errorf("%q has %d caption rows, manifest says %d", entry.Filename, got, entry.Tones))
		}
		delete(captionCounts, entry.Filename)
	}
	for filename := range captionCounts {
		return fail("verify", fmt.Errorf("captions for %q have no manifest entry", filename))
	}
	return nil
}

func writeCaptionsCSV(path string, captions []types.CaptionSet) error {
	f, err := os.Create(path)
	if err != nil {
		return fail("captions", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write([]string{"filename", "tone", "headline", "body", "cta", "hashtags"}); err != nil {
		return fail("captions", err)
	}
	for _, cs := range captions {
		row := []string{
			cs.Filename,
			string(cs.Tone),
			cs.Headline,
			cs.Body,
			cs.CTA,
			strings.Join(cs.Hashtags, " "),
		}
		if err := cw.Write(row); err != nil {
			return fail("captions", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fail("captions", err)
	}
	return f.Close()
}

func writeManifest(path string, manifest *types.Manifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fail("manifest", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fail("manifest", err)
	}
	return nil
}

// writeArchive zips the batch with stable archive names: images under
// images/, captions.csv and manifest.json at the root.
func writeArchive(archivePath, outDir string, results []*types.CompositeResult) error {
	f, err := os.Create(archivePath)
	if err != nil {
		return fail("archive", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	addFile := func(srcPath, arcName string) error {
		src, err := os.Open(srcPath)
		if err != nil {
			return err
		}
		defer src.Close()

		dst, err := zw.Create(arcName)
		if err != nil {
			return err
		}
		_, err = io.Copy(dst, src)
		return err
	}

	for _, res := range results {
		src := filepath.Join(outDir, imagesDirName, res.Filename)
		if err := addFile(src, imagesDirName+"/"+res.Filename); err != nil {
			return fail("archive", err)
		}
	}
	if err := addFile(filepath.Join(outDir, captionsFileName), captionsFileName); err != nil {
		return fail("archive", err)
	}
	if err := addFile(filepath.Join(outDir, manifestFileName), manifestFileName); err != nil {
		return fail("archive", err)
	}

	if err := zw.Close(); err != nil {
		return fail("archive", err)
	}
	return f.Close()
}
