// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package caption

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/template"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/pdiddy/creative-engine/internal/httputil"
	"github.com/pdiddy/creative-engine/pkg/types"
)

// HuggingFaceName identifies the hosted copywriting backend.
const HuggingFaceName = "huggingface"

// hfAPIBase is a variable so tests can point the client at a fake server.
var hfAPIBase = "https://api-inference.huggingface.co/models/"

const (
	defaultHFModel  = "mistralai/Mistral-7B-Instruct-v0.2"
	defaultCacheTTL = 15 * time.Minute
)

var promptTemplate = template.Must(template.New("caption").Parse(
	`You are an advertising copywriter. Write one social media caption for this product: {{.ProductDesc}}.
Creative angle: {{.ConceptID}}. Tone: {{.Tone}}.
Respond with a single JSON object and nothing else:
{"headline": "max 8 words", "body": "max 25 words", "cta": "short call to action", "hashtags": ["3 to 6 tags"]}
{{- if .Strict}}
Your previous answer was not valid JSON. Output ONLY the JSON object, no prose, no markdown fences.
{{- end}}`))

// HuggingFace calls the hosted text-generation inference API and parses
// the model output into caption parts. Identical requests within the
// cache TTL are served from memory so regenerating a batch does not
// re-bill every caption.
type HuggingFace struct {
	token     string
	model     string
	userAgent string
	client    *http.Client
	cache     *gocache.Cache
}

// NewHuggingFace builds the backend from config. The model and cache TTL
// fall back to package defaults when unset.
func NewHuggingFace(cfg types.CaptionConfig) *HuggingFace {
	model := cfg.Model
	if model == "" {
		model = defaultHFModel
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &HuggingFace{
		token:     cfg.APIToken,
		model:     model,
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: cfg.Timeout},
		cache:     gocache.New(ttl, 2*ttl),
	}
}

func (h *HuggingFace) Name() string { return HuggingFaceName }

// Caption generates one caption. Strict requests bypass the cache: they
// only happen after a malformed response, which may itself be cached
// upstream of us.
func (h *HuggingFace) Caption(ctx context.Context, req Request) (Parts, error) {
	key := cacheKey(req)
	if !req.Strict {
		if cached, ok := h.cache.Get(key); ok {
			return cached.(Parts), nil
		}
	}

	text, err := h.generate(ctx, req)
	if err != nil {
		return Parts{}, err
	}

	parts, err := parseParts(text)
	if err != nil {
		return Parts{}, err
	}

	h.cache.Set(key, parts, gocache.DefaultExpiration)
	return parts, nil
}

type hfPayload struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
	Options    hfOptions    `json:"options"`
}

type hfParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens"`
	Temperature    float64 `json:"temperature"`
	ReturnFullText bool    `json:"return_full_text"`
}

type hfOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

func (h *HuggingFace) generate(ctx context.Context, req Request) (string, error) {
	var prompt bytes.Buffer
	if err := promptTemplate.Execute(&prompt, req); err != nil {
		return "", fmt.Errorf("rendering caption prompt: %w", err)
	}

	body, err := json.Marshal(hfPayload{
		Inputs: prompt.String(),
		Parameters: hfParameters{
			MaxNewTokens: 160,
			Temperature:  0.7,
		},
		Options: hfOptions{WaitForModel: true},
	})
	if err != nil {
		return "", fmt.Errorf("encoding caption request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, hfAPIBase+h.model, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building caption request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+h.token)
	}
	if h.userAgent != "" {
		httpReq.Header.Set("User-Agent", h.userAgent)
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("caption request failed: %w", err)
	}
	defer httputil.DrainClose(resp)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("caption API returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading caption response: %w", err)
	}
	return extractGeneratedText(raw), nil
}

// extractGeneratedText handles both response shapes the inference API
// uses: a list of {generated_text} objects or a single object. Anything
// else is passed through raw and left to JSON extraction.
func extractGeneratedText(raw []byte) string {
	var list []struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0].GeneratedText
	}

	var single struct {
		GeneratedText string `json:"generated_text"`
	}
	if err := json.Unmarshal(raw, &single); err == nil && single.GeneratedText != "" {
		return single.GeneratedText
	}

	return string(raw)
}

// parseParts pulls the first JSON object out of the model output. Models
// love to wrap their answer in prose or code fences, so we scan for the
// outermost braces instead of trusting the whole string.
func parseParts(text string) (Parts, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Parts{}, fmt.Errorf("no JSON object in model output: %w", ErrMalformed)
	}

	var parts Parts
	if err := json.Unmarshal([]byte(text[start:end+1]), &parts); err != nil {
		return Parts{}, fmt.Errorf("decoding caption JSON: %v: %w", err, ErrMalformed)
	}
	return parts, nil
}

func cacheKey(req Request) string {
	return req.ProductDesc + "|" + req.ConceptID + "|" + string(req.Tone)
}

// Templated is the offline backend: it serves the deterministic tone
// templates directly. Used when no API token is configured, and as the
// terminal fallback inside the generator.
type Templated struct{}

func (Templated) Name() string { return "template" }

func (Templated) Caption(_ context.Context, req Request) (Parts, error) {
	return Fallback(req.ProductDesc, req.Tone), nil
}
