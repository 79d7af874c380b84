package analyze

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
	"google.golang.org/genai"

	"github.com/fpang/vidcheck/internal/jsonutil"
	"github.com/fpang/vidcheck/internal/retry"
	"github.com/fpang/vidcheck/internal/video"
)

// Gemini model IDs suitable for frame analysis.
const (
	// ModelGemini25Flash is stable, balanced performance.
	ModelGemini25Flash = "gemini-2.5-flash"

	// ModelGemini25FlashLite is for high-throughput, lowest cost.
	ModelGemini25FlashLite = "gemini-2.5-flash-lite"

	// ModelGemini25Pro is stable, for high-reasoning tasks.
	ModelGemini25Pro = "gemini-2.5-pro"
)

// DefaultModelName is the Gemini model used when none is configured.
// Can be overridden via the GEMINI_MODEL environment variable.
const DefaultModelName = ModelGemini25Flash

// maxUploadDim bounds the longest edge of an uploaded frame. Frames are
// downscaled before JPEG encoding to keep request payloads small.
const maxUploadDim = 768

// jpegQuality matches the quality used for frame uploads.
const jpegQuality = 85

const systemPrompt = `You are a forensic video analyst specializing in detecting synthetic and manipulated media. You examine individual video frames for signs of deepfake generation and report concrete, specific observations. Respond only with the requested JSON object.`

const frameAnalysisPrompt = `Analyze this video frame for signs of deepfake manipulation.

Focus on:
1. Facial features: Look for unnatural smoothing, inconsistent lighting, warping, or artifacts
2. Background: Check for blur boundaries, inconsistencies, or warping around edges
3. Texture: Identify areas that appear too smooth, synthetic, or have resolution mismatches
4. Physical plausibility: Note any physically impossible features or inconsistencies

For each observation, specify:
- What you observe
- Where in the frame (e.g., "around the jawline", "in the background")
- Why it might indicate synthetic manipulation

Respond with a JSON object of this exact shape:
{
  "suspicion_level": <float 0.0-1.0, how likely the frame is synthetic>,
  "confidence": <integer 0-100, how confident you are in that estimate>,
  "evidence": [<string, one specific concrete observation per entry>]
}`

// ResolveModelName returns the Gemini model to use, resolved from:
// 1. GEMINI_MODEL environment variable (if set)
// 2. The configured model name (if non-empty)
// 3. DefaultModelName
func ResolveModelName(configured string) string {
	if env := os.Getenv("GEMINI_MODEL"); env != "" {
		return env
	}
	if configured != "" {
		return configured
	}
	return DefaultModelName
}

// GeminiProvider analyzes frames with the Gemini API. Safe for concurrent
// use; the underlying client is goroutine-safe.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a provider authenticated from the
// GEMINI_API_KEY environment variable.
func NewGeminiProvider(ctx context.Context, model string) (*GeminiProvider, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		model:  ResolveModelName(model),
	}, nil
}

// Name implements Provider.
func (p *GeminiProvider) Name() string { return "gemini" }

// Analyze implements Provider. The frame is downscaled, JPEG-encoded, and
// sent inline with the frame-analysis prompt; the JSON response is parsed
// into an Assessment.
func (p *GeminiProvider) Analyze(ctx context.Context, frame *video.Frame, meta *video.Metadata) (*Assessment, error) {
	encoded, err := encodeFrame(frame.Image)
	if err != nil {
		// A frame that cannot be encoded will never succeed.
		return nil, retry.Permanent(fmt.Errorf("failed to encode frame %d: %w", frame.Index, err))
	}

	prompt := frameAnalysisPrompt
	if meta != nil {
		prompt = fmt.Sprintf(
			"Video metadata:\n- Resolution: %s\n- Duration: %.2fs\n- Codec: %s\n\n%s",
			meta.Resolution(), meta.Duration.Seconds(), meta.Codec, prompt)
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		},
		MaxOutputTokens: 2048,
	}

	parts := []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: encoded}},
		{Text: prompt},
	}
	contents := []*genai.Content{{Role: "user", Parts: parts}}

	log.Debug().
		Int("frame_index", frame.Index).
		Str("model", p.model).
		Int("payload_bytes", len(encoded)).
		Msg("Sending frame for remote analysis")

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("Gemini call failed for frame %d: %w", frame.Index, err)
	}
	if resp == nil || resp.Text() == "" {
		return nil, fmt.Errorf("empty response from Gemini for frame %d", frame.Index)
	}

	assessment, err := jsonutil.Parse[Assessment](resp.Text())
	if err != nil {
		return nil, fmt.Errorf("failed to parse assessment for frame %d: %w", frame.Index, err)
	}
	if assessment.SuspicionLevel < 0 || assessment.SuspicionLevel > 1 {
		return nil, fmt.Errorf("suspicion level %.3f out of range for frame %d",
			assessment.SuspicionLevel, frame.Index)
	}

	return &assessment, nil
}

// encodeFrame downscales the image so its longest edge is at most
// maxUploadDim and returns it JPEG-encoded.
func encodeFrame(img image.Image) ([]byte, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w > maxUploadDim || h > maxUploadDim {
		scale := float64(maxUploadDim) / float64(max(w, h))
		dw := int(float64(w) * scale)
		dh := int(float64(h) * scale)
		if dw < 1 {
			dw = 1
		}
		if dh < 1 {
			dh = 1
		}

		resized := image.NewRGBA(image.Rect(0, 0, dw, dh))
		draw.BiLinear.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		img = resized
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
