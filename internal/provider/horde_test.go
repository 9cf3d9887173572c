// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/creative-engine/pkg/types"
)

// pngBytes returns a tiny encoded PNG for the fake result endpoint.
func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testHorde(t *testing.T, handler http.Handler) *Horde {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	old := hordeAPIBase
	hordeAPIBase = ts.URL
	t.Cleanup(func() { hordeAPIBase = old })

	return NewHorde(types.ProviderConfig{
		HTTPConfig:      types.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "creative-engine/test"},
		PollInterval:    time.Millisecond,
		GenerateTimeout: 5 * time.Second,
	})
}

func hordeTestRequest() types.GenerationRequest {
	return types.GenerationRequest{
		Concept: types.Concept{ID: "hero", NegativePrompt: "watermark"},
		Width:   64,
		Height:  64,
		Seed:    12345,
		Prompt:  "Hero shot of a travel mug",
	}
}

func TestHorde_Generate(t *testing.T) {
	var checks int32
	mux := http.NewServeMux()

	var serverURL string
	mux.HandleFunc("POST /v2/generate/async", func(w http.ResponseWriter, r *http.Request) {
		var sub hordeSubmission
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sub))
		assert.Contains(t, sub.Prompt, "Hero shot of a travel mug")
		assert.Contains(t, sub.Prompt, "### watermark")
		assert.Equal(t, "12345", sub.Params.Seed)
		assert.Equal(t, 1, sub.Params.N)

		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(hordeSubmitResponse{ID: "job-1"})
	})
	mux.HandleFunc("GET /v2/generate/check/job-1", func(w http.ResponseWriter, _ *http.Request) {
		done := atomic.AddInt32(&checks, 1) >= 2
		json.NewEncoder(w).Encode(hordeCheckResponse{Done: done})
	})
	mux.HandleFunc("GET /v2/generate/status/job-1", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(hordeStatusResponse{
			Generations: []hordeGeneration{{Img: serverURL + "/result.png"}},
		})
	})
	data := pngBytes(t)
	mux.HandleFunc("GET /result.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Write(data)
	})

	h := testHorde(t, mux)
	serverURL = hordeAPIBase

	out, err := h.Generate(context.Background(), hordeTestRequest())
	require.NoError(t, err)

	assert.Equal(t, HordeName, out.Provider)
	assert.Equal(t, "hero", out.ConceptID)
	assert.Equal(t, int64(12345), out.Seed)
	assert.Equal(t, image.Rect(0, 0, 4, 4), out.Canvas.Bounds())
	assert.GreaterOrEqual(t, atomic.LoadInt32(&checks), int32(2), "should have polled until done")
}

func TestHorde_QuotaExceeded(t *testing.T) {
	h := testHorde(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := h.Generate(context.Background(), hordeTestRequest())
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestHorde_Unavailable(t *testing.T) {
	h := testHorde(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := h.Generate(context.Background(), hordeTestRequest())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHorde_Faulted(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v2/generate/async", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(hordeSubmitResponse{ID: "job-2"})
	})
	mux.HandleFunc("GET /v2/generate/check/job-2", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(hordeCheckResponse{Faulted: true})
	})

	h := testHorde(t, mux)
	_, err := h.Generate(context.Background(), hordeTestRequest())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHorde_Timeout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v2/generate/async", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(hordeSubmitResponse{ID: "job-3"})
	})
	mux.HandleFunc("GET /v2/generate/check/job-3", func(w http.ResponseWriter, _ *http.Request) {
		// Never done.
		json.NewEncoder(w).Encode(hordeCheckResponse{})
	})

	h := testHorde(t, mux)
	h.generateTimeout = 50 * time.Millisecond

	_, err := h.Generate(context.Background(), hordeTestRequest())
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestHorde_CallerCancellation(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v2/generate/async", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(hordeSubmitResponse{ID: "job-4"})
	})
	mux.HandleFunc("GET /v2/generate/check/job-4", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(hordeCheckResponse{})
	})

	h := testHorde(t, mux)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := h.Generate(ctx, hordeTestRequest())
	assert.ErrorIs(t, err, context.Canceled)
}
