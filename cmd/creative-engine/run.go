package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/creative-engine/internal/caption"
	"github.com/pdiddy/creative-engine/internal/catalog"
	"github.com/pdiddy/creative-engine/internal/composite"
	"github.com/pdiddy/creative-engine/internal/packager"
	"github.com/pdiddy/creative-engine/internal/pipeline"
	"github.com/pdiddy/creative-engine/internal/provider"
	"github.com/pdiddy/creative-engine/internal/runlog"
	"github.com/pdiddy/creative-engine/internal/secrets"
	"github.com/pdiddy/creative-engine/pkg/types"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "creative-engine/0.1"
	defaultLedgerDir = ".creative-engine"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate a batch of branded creatives",
	Long: `Run renders every concept in the catalog (or a custom catalog loaded
with --concepts) for the given product, composites the brand logo onto each
image, captions the results, and packages everything into an output
directory plus a zip archive.

The mock provider is fully offline and deterministic; the horde provider
submits jobs to the AI Horde and falls back to the mock when the service
cannot deliver.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().String("logo", "", "path to the brand logo image (required)")
	runCmd.Flags().String("product", "", "path to the product image (required)")
	runCmd.Flags().String("product-desc", "", "product description used in prompts and captions (default: product filename)")
	runCmd.Flags().String("brand-constraints", "", "brand style constraints injected into every prompt")
	runCmd.Flags().String("out", "out/creatives", "output directory; the archive lands at <out>.zip")
	runCmd.Flags().String("provider", "mock", "image provider: mock or horde")
	runCmd.Flags().String("concepts", "", "custom concept catalog (YAML) instead of the built-in one")
	runCmd.Flags().Int("per-concept", 1, "variants to render per concept")
	runCmd.Flags().Int("width", 768, "canvas width in pixels")
	runCmd.Flags().Int("height", 768, "canvas height in pixels")
	runCmd.Flags().StringSlice("tones", nil, "caption tones (default formal,witty,urgent)")
	runCmd.Flags().Int("concurrency", 3, "concurrent creatives in flight")
	runCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 30s)")
	runCmd.Flags().Duration("generate-timeout", 0, "bound on one provider job, submit to download (default 3m)")
	runCmd.Flags().Duration("submit-interval", 0, "minimum spacing between provider submissions")
	runCmd.Flags().String("api-key", "", "AI Horde API key (default: .secrets/ or STABLEHORDE_API_KEY)")
	runCmd.Flags().String("hf-token", "", "Hugging Face token for AI captions (default: .secrets/ or HUGGINGFACE_API_TOKEN)")
	runCmd.Flags().String("caption-model", "", "Hugging Face model for captions")
	runCmd.Flags().Float64("logo-scale", 0, "logo size as a fraction of canvas width (default 0.12)")
	runCmd.Flags().String("corner", "", "logo corner: bottom-right, bottom-left, top-left, center")
	runCmd.Flags().Bool("no-fallback", false, "fail concepts instead of falling back to the mock provider")
	runCmd.Flags().String("ledger-dir", defaultLedgerDir, "directory for the run ledger database")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	logoPath, _ := cmd.Flags().GetString("logo")
	productPath, _ := cmd.Flags().GetString("product")
	if logoPath == "" || productPath == "" {
		return fmt.Errorf("both --logo and --product are required")
	}

	// Asset problems should surface before any provider work happens.
	assets, err := composite.LoadAssets(logoPath, productPath)
	if err != nil {
		return err
	}

	cfg, err := buildConfig(cmd, productPath)
	if err != nil {
		return err
	}

	concepts, err := loadConcepts(cmd)
	if err != nil {
		return err
	}

	providers, err := buildProviders(cfg.Provider)
	if err != nil {
		return err
	}
	captioner := buildCaptioner(cfg.Caption)

	res, err := pipeline.Run(cmd.Context(), providers, captioner, assets, concepts, cfg, os.Stdout)
	if err != nil {
		return err
	}

	if res.Summary.Succeeded == 0 {
		return fmt.Errorf("all %d creatives failed", res.Summary.Total())
	}

	archivePath, err := packager.Package(cfg.OutDir, res.Results, res.Captions, res.Manifest, os.Stdout)
	if err != nil {
		return err
	}

	recordRun(cmd, res, archivePath)
	printSummary(res, archivePath)

	if res.Summary.HasFailures() {
		fmt.Fprintf(os.Stderr, "warning: %d creative(s) failed and were left out of the archive\n", res.Summary.Failed)
	}
	return nil
}

func buildConfig(cmd *cobra.Command, productPath string) (types.PipelineConfig, error) {
	flags := cmd.Flags()

	timeout, _ := flags.GetDuration("timeout")
	if timeout == 0 {
		timeout = defaultTimeout
	}

	backend, _ := flags.GetString("provider")
	switch backend {
	case "mock", "horde":
	default:
		return types.PipelineConfig{}, fmt.Errorf("unknown provider %q (want mock or horde)", backend)
	}

	productDesc, _ := flags.GetString("product-desc")
	if productDesc == "" {
		productDesc = viper.GetString("product_desc")
	}
	if productDesc == "" {
		productDesc = descFromFilename(productPath)
	}

	toneNames, _ := flags.GetStringSlice("tones")
	tones, err := parseTones(toneNames)
	if err != nil {
		return types.PipelineConfig{}, err
	}

	apiKey, _ := flags.GetString("api-key")
	hfToken, _ := flags.GetString("hf-token")
	captionModel, _ := flags.GetString("caption-model")
	brandConstraints, _ := flags.GetString("brand-constraints")
	outDir, _ := flags.GetString("out")
	perConcept, _ := flags.GetInt("per-concept")
	width, _ := flags.GetInt("width")
	height, _ := flags.GetInt("height")
	concurrency, _ := flags.GetInt("concurrency")
	generateTimeout, _ := flags.GetDuration("generate-timeout")
	submitInterval, _ := flags.GetDuration("submit-interval")
	logoScale, _ := flags.GetFloat64("logo-scale")
	corner, _ := flags.GetString("corner")
	noFallback, _ := flags.GetBool("no-fallback")

	httpCfg := types.HTTPConfig{Timeout: timeout, UserAgent: defaultUserAgent}

	return types.PipelineConfig{
		Provider: types.ProviderConfig{
			HTTPConfig:      httpCfg,
			Backend:         backend,
			APIKey:          secrets.Resolve(loadedSecrets, secrets.KeyStableHorde, apiKey, "STABLEHORDE_API_KEY"),
			GenerateTimeout: generateTimeout,
			SubmitInterval:  submitInterval,
			DisableFallback: noFallback,
		},
		Caption: types.CaptionConfig{
			HTTPConfig: httpCfg,
			APIToken:   secrets.Resolve(loadedSecrets, secrets.KeyHuggingFace, hfToken, "HUGGINGFACE_API_TOKEN"),
			Model:      captionModel,
		},
		Composite: types.CompositeConfig{
			LogoScale: logoScale,
			Corner:    corner,
		},
		ProductDesc:      productDesc,
		BrandConstraints: brandConstraints,
		Width:            width,
		Height:           height,
		PerConcept:       perConcept,
		Concurrency:      concurrency,
		Tones:            tones,
		OutDir:           outDir,
	}, nil
}

func loadConcepts(cmd *cobra.Command) ([]types.Concept, error) {
	catalogPath, _ := cmd.Flags().GetString("concepts")
	if catalogPath == "" {
		return catalog.List(), nil
	}
	return catalog.Load(catalogPath)
}

func buildProviders(cfg types.ProviderConfig) (pipeline.Providers, error) {
	switch cfg.Backend {
	case "horde":
		return pipeline.Providers{
			Primary:  provider.NewHorde(cfg),
			Fallback: provider.Mock{},
		}, nil
	default:
		return pipeline.Providers{Primary: provider.Mock{}}, nil
	}
}

// buildCaptioner selects the Hugging Face backend when a token is
// available, the offline templates otherwise.
func buildCaptioner(cfg types.CaptionConfig) pipeline.Captioner {
	var backend caption.Backend = caption.Templated{}
	if cfg.APIToken != "" {
		backend = caption.NewHuggingFace(cfg)
		fmt.Fprintf(os.Stderr, "captions: using %s\n", backend.Name())
	}
	return caption.NewGenerator(backend, cfg)
}

// recordRun appends the run to the local ledger. Ledger problems are
// warnings: the archive on disk is the deliverable, not the database.
func recordRun(cmd *cobra.Command, res *pipeline.Result, archivePath string) {
	ledgerDir, _ := cmd.Flags().GetString("ledger-dir")
	if ledgerDir == "" {
		return
	}

	store, err := runlog.Open(ledgerDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: run ledger unavailable: %v\n", err)
		return
	}
	defer store.Close()

	if err := store.Record(cmd.Context(), res.Manifest, res.Summary, archivePath); err != nil {
		fmt.Fprintf(os.Stderr, "warning: recording run failed: %v\n", err)
	}
}

func printSummary(res *pipeline.Result, archivePath string) {
	s := res.Summary
	fmt.Printf("\n%d/%d creatives succeeded", s.Succeeded, s.Total())
	if s.Fallback > 0 {
		fmt.Printf(" (%d via fallback provider)", s.Fallback)
	}
	fmt.Println()
	fmt.Printf("captions: %d rows (%d templated)\n", len(res.Captions), s.CaptionFallbacks)
	fmt.Printf("archive: %s\n", archivePath)
}

// descFromFilename turns "travel_mug.png" into "travel mug".
func descFromFilename(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	stem = strings.ReplaceAll(stem, "_", " ")
	stem = strings.ReplaceAll(stem, "-", " ")
	return strings.TrimSpace(stem)
}

func parseTones(names []string) ([]types.Tone, error) {
	if len(names) == 0 {
		return nil, nil
	}
	tones := make([]types.Tone, 0, len(names))
	for _, name := range names {
		switch tone := types.Tone(strings.ToLower(strings.TrimSpace(name))); tone {
		case types.ToneFormal, types.ToneWitty, types.ToneUrgent:
			tones = append(tones, tone)
		default:
			return nil, fmt.Errorf("unknown tone %q (want formal, witty, or urgent)", name)
		}
	}
	return tones, nil
}
