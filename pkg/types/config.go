package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout for a single call.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "creative-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// RetryConfig holds the bounded-attempt retry schedule shared by the
// network-facing stages.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first
	// (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// BaseDelay is the wait before the second attempt (default 2s).
	BaseDelay time.Duration `json:"base_delay" yaml:"base_delay"`

	// Multiplier scales the delay after each attempt (default 2.0).
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`
}

// ProviderConfig holds settings for the image-generation stage.
type ProviderConfig struct {
	HTTPConfig `yaml:",inline"`
	Retry      RetryConfig `json:"retry" yaml:"retry"`

	// Backend selects the provider: "mock" or "horde".
	Backend string `json:"backend" yaml:"backend"`

	// APIKey is the AI Horde key. Empty means the anonymous key.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Model is the model hint submitted with generation jobs
	// (default "stable_diffusion").
	Model string `json:"model" yaml:"model"`

	// PollInterval is the delay between job status checks (default 2s).
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`

	// GenerateTimeout bounds one submit-poll-download cycle (default 3m).
	GenerateTimeout time.Duration `json:"generate_timeout" yaml:"generate_timeout"`

	// SubmitInterval is the minimum spacing between job submissions,
	// enforced by a rate limiter. Zero disables pacing.
	SubmitInterval time.Duration `json:"submit_interval" yaml:"submit_interval"`

	// DisableFallback turns off the deterministic fallback so provider
	// failures mark the concept as failed instead.
	DisableFallback bool `json:"disable_fallback" yaml:"disable_fallback"`
}

// CaptionConfig holds settings for the captioning stage.
type CaptionConfig struct {
	HTTPConfig `yaml:",inline"`
	Retry      RetryConfig `json:"retry" yaml:"retry"`

	// APIToken is the Hugging Face Inference API token. Empty selects
	// the templated offline backend.
	APIToken string `json:"api_token,omitempty" yaml:"api_token,omitempty"`

	// Model is the Hugging Face model identifier
	// (default "google/flan-t5-small").
	Model string `json:"model" yaml:"model"`

	// BodyWordLimit bounds the caption body length (default 25 words).
	BodyWordLimit int `json:"body_word_limit" yaml:"body_word_limit"`

	// CacheTTL is how long caption responses are reused for identical
	// (description, concept, tone) triples (default 1h).
	CacheTTL time.Duration `json:"cache_ttl" yaml:"cache_ttl"`
}

// CompositeConfig holds settings for brand-asset placement.
type CompositeConfig struct {
	// LogoScale is the logo's longest side as a fraction of canvas
	// width (default 0.12).
	LogoScale float64 `json:"logo_scale" yaml:"logo_scale"`

	// ProductScale is the product badge's longest side as a fraction of
	// canvas width. Zero omits the badge.
	ProductScale float64 `json:"product_scale" yaml:"product_scale"`

	// MarginFrac is the minimum safe margin from every edge as a
	// fraction of the canvas's shorter side (default 0.04).
	MarginFrac float64 `json:"margin_frac" yaml:"margin_frac"`

	// Corner places the logo: "bottom-right", "bottom-left",
	// "top-left", or "center" (default "bottom-right").
	Corner string `json:"corner" yaml:"corner"`
}

// PipelineConfig groups all stage configurations for one run.
type PipelineConfig struct {
	Provider  ProviderConfig  `json:"provider" yaml:"provider"`
	Caption   CaptionConfig   `json:"caption" yaml:"caption"`
	Composite CompositeConfig `json:"composite" yaml:"composite"`

	// ProductDesc describes the product in every prompt and caption.
	ProductDesc string `json:"product_desc" yaml:"product_desc"`

	// BrandConstraints is injected into the {brand_constraints}
	// placeholder of each prompt template.
	BrandConstraints string `json:"brand_constraints" yaml:"brand_constraints"`

	// Width and Height are the canvas dimensions in pixels.
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`

	// PerConcept is the number of variants rendered per concept
	// (default 1). Each variant gets a distinct derived seed.
	PerConcept int `json:"per_concept" yaml:"per_concept"`

	// Concurrency bounds the worker pool across concepts (default 3).
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// Tones lists the caption variants per creative.
	Tones []Tone `json:"tones" yaml:"tones"`

	// OutDir is the output directory; the archive lands next to it.
	OutDir string `json:"out_dir" yaml:"out_dir"`
}
