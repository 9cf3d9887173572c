// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/creative-engine/pkg/types"
)

// HordeName is the provider name recorded in manifests for real output.
const HordeName = "ai_horde"

// hordeAPIBase is the AI Horde endpoint. Package-level var for test
// substitution.
var hordeAPIBase = "https://stablehorde.net/api"

// anonymousKey is the documented key for unauthenticated Horde access.
const anonymousKey = "0000000000"

const (
	defaultModel           = "stable_diffusion"
	defaultPollInterval    = 2 * time.Second
	defaultGenerateTimeout = 3 * time.Minute
)

// Horde generates images through the community AI Horde service: submit
// an async job, poll until a worker finishes it, then download the
// result. Submissions are paced by a rate limiter so a concurrent run
// stays inside the community API's comfort zone.
type Horde struct {
	apiKey          string
	model           string
	userAgent       string
	client          *http.Client
	pollInterval    time.Duration
	generateTimeout time.Duration
	limiter         *rate.Limiter
}

// NewHorde builds a Horde backend from config. Zero config fields fall
// back to service defaults; an empty API key runs anonymously at the
// lowest queue priority.
func NewHorde(cfg types.ProviderConfig) *Horde {
	key := cfg.APIKey
	if key == "" {
		key = anonymousKey
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	genTimeout := cfg.GenerateTimeout
	if genTimeout <= 0 {
		genTimeout = defaultGenerateTimeout
	}

	limit := rate.Inf
	if cfg.SubmitInterval > 0 {
		limit = rate.Every(cfg.SubmitInterval)
	}

	return &Horde{
		apiKey:          key,
		model:           model,
		userAgent:       cfg.UserAgent,
		client:          &http.Client{Timeout: cfg.Timeout},
		pollInterval:    poll,
		generateTimeout: genTimeout,
		limiter:         rate.NewLimiter(limit, 1),
	}
}

// Name implements Backend.
func (h *Horde) Name() string { return HordeName }

// hordeParams mirrors the generation parameters of the Horde job payload.
type hordeParams struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Seed        string `json:"seed"`
	N           int    `json:"n"`
	Steps       int    `json:"steps"`
	SamplerName string `json:"sampler_name"`
}

// hordeSubmission is the async job submission payload.
type hordeSubmission struct {
	Prompt string      `json:"prompt"`
	Params hordeParams `json:"params"`
	NSFW   bool        `json:"nsfw"`
	Models []string    `json:"models"`
	R2     bool        `json:"r2"`
}

type hordeSubmitResponse struct {
	ID string `json:"id"`
}

type hordeCheckResponse struct {
	Done    bool `json:"done"`
	Faulted bool `json:"faulted"`
}

type hordeStatusResponse struct {
	Generations []hordeGeneration `json:"generations"`
}

type hordeGeneration struct {
	Img string `json:"img"`
}

// Generate implements Backend. The whole submit-poll-download cycle is
// bounded by the configured generation timeout.
func (h *Horde) Generate(ctx context.Context, req types.GenerationRequest) (*types.GeneratedImage, error) {
	ctx, cancel := context.WithTimeout(ctx, h.generateTimeout)
	defer cancel()

	if err := h.limiter.Wait(ctx); err != nil {
		return nil, h.timeoutOr(ctx, err)
	}

	jobID, err := h.submit(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := h.poll(ctx, jobID); err != nil {
		return nil, err
	}

	data, err := h.fetchResult(ctx, jobID)
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding generated image: %w: %v", ErrUnavailable, err)
	}

	return &types.GeneratedImage{
		ConceptID: req.Concept.ID,
		Canvas:    img,
		Seed:      req.Seed,
		Provider:  HordeName,
	}, nil
}

// submit posts the async job and returns its ID.
func (h *Horde) submit(ctx context.Context, req types.GenerationRequest) (string, error) {
	prompt := req.Prompt
	if req.Concept.NegativePrompt != "" {
		// The Horde prompt format separates the negative prompt
		// with "###".
		prompt += " ### " + req.Concept.NegativePrompt
	}

	model := req.ModelHint
	if model == "" {
		model = h.model
	}

	payload := hordeSubmission{
		Prompt: prompt,
		Params: hordeParams{
			Width:  req.Width,
			Height: req.Height,
			// The Horde expects a 31-bit seed as a string.
			Seed:        strconv.FormatInt(req.Seed%(1<<31-1), 10),
			N:           1,
			Steps:       30,
			SamplerName: "k_euler",
		},
		NSFW:   false,
		Models: []string{model},
		R2:     true,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshaling submission: %w", err)
	}

	var submitted hordeSubmitResponse
	if err := h.doJSON(ctx, http.MethodPost, hordeAPIBase+"/v2/generate/async", bytes.NewReader(body), &submitted); err != nil {
		return "", fmt.Errorf("submitting generation job: %w", err)
	}
	if submitted.ID == "" {
		return "", fmt.Errorf("submitting generation job: no job id in response: %w", ErrUnavailable)
	}
	return submitted.ID, nil
}

// poll waits until the job is done, checking at the configured interval.
func (h *Horde) poll(ctx context.Context, jobID string) error {
	url := hordeAPIBase + "/v2/generate/check/" + jobID
	for {
		var status hordeCheckResponse
		if err := h.doJSON(ctx, http.MethodGet, url, nil, &status); err != nil {
			// Transient check failures keep polling until the
			// deadline handles them.
			if errors.Is(err, ErrTimeout) {
				return err
			}
		} else {
			if status.Faulted {
				return fmt.Errorf("job %s faulted: %w", jobID, ErrUnavailable)
			}
			if status.Done {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return h.timeoutOr(ctx, ctx.Err())
		case <-time.After(h.pollInterval):
		}
	}
}

// fetchResult downloads the finished image, either from the R2 URL the
// Horde returns or from inline base64.
func (h *Horde) fetchResult(ctx context.Context, jobID string) ([]byte, error) {
	var status hordeStatusResponse
	if err := h.doJSON(ctx, http.MethodGet, hordeAPIBase+"/v2/generate/status/"+jobID, nil, &status); err != nil {
		return nil, fmt.Errorf("fetching job status: %w", err)
	}
	if len(status.Generations) == 0 {
		return nil, fmt.Errorf("job %s finished with no generations: %w", jobID, ErrUnavailable)
	}

	img := status.Generations[0].Img
	if strings.HasPrefix(img, "http") {
		return h.download(ctx, img)
	}

	data, err := base64.StdEncoding.DecodeString(img)
	if err != nil {
		return nil, fmt.Errorf("decoding inline image: %w: %v", ErrUnavailable, err)
	}
	return data, nil
}

// download fetches raw image bytes from the result URL.
func (h *Horde) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating download request: %w", err)
	}
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, h.classifyTransport(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, "image download")
	}
	return io.ReadAll(resp.Body)
}

// doJSON performs one API call and decodes the JSON response into out.
func (h *Horde) doJSON(ctx context.Context, method, url string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", h.apiKey)
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return h.classifyTransport(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return classifyStatus(resp.StatusCode, method+" "+url)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w: %v", ErrUnavailable, err)
	}
	return nil
}

// classifyStatus maps HTTP status codes onto the failure taxonomy.
func classifyStatus(code int, what string) error {
	switch {
	case code == http.StatusTooManyRequests, code == http.StatusForbidden:
		return fmt.Errorf("%s: HTTP %d: %w", what, code, ErrQuotaExceeded)
	default:
		return fmt.Errorf("%s: HTTP %d: %w", what, code, ErrUnavailable)
	}
}

// classifyTransport maps transport-level failures onto the taxonomy.
func (h *Horde) classifyTransport(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return h.timeoutOr(ctx, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// timeoutOr turns a deadline expiry into ErrTimeout and passes through
// caller cancellation unchanged.
func (h *Horde) timeoutOr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("after %s: %w", h.generateTimeout, ErrTimeout)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
