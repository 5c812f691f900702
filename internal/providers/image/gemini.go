package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/place5-inc/pinkroom-api-sub000/internal/domain"
	"github.com/place5-inc/pinkroom-api-sub000/internal/infra"
)

// Options controls how the Gemini image generator is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     infra.Logger
}

// GeminiGenerator derives styled images from a source photo via the Gemini
// REST API. One call produces one image for one design prompt.
type GeminiGenerator struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     infra.Logger
}

// NewGeminiGenerator constructs a generator with sane defaults. Callers may
// provide a nil HTTP client; one with a request timeout will be created.
func NewGeminiGenerator(opts Options) (*GeminiGenerator, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 90 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash-image"
	}

	return &GeminiGenerator{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: client,
		logger:     opts.Logger,
	}, nil
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// Generate downloads the source photo, conditions the model on it together
// with the design prompt (and sample image when present), and returns the
// first inline image the model emits.
func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) (Asset, error) {
	if err := ctx.Err(); err != nil {
		return Asset{}, err
	}

	parts := []geminiPart{{Text: buildPrompt(req)}}

	source, mime, err := g.fetchImage(ctx, req.SourceURL)
	if err != nil {
		return Asset{}, &Fault{Kind: domain.FailureInvalidInput, Err: fmt.Errorf("fetch source image: %w", err)}
	}
	parts = append(parts, geminiPart{InlineData: &geminiInlineData{
		MimeType: mime,
		Data:     base64.StdEncoding.EncodeToString(source),
	}})

	if req.SampleURL != "" {
		sample, sampleMIME, err := g.fetchImage(ctx, req.SampleURL)
		if err != nil {
			// A broken sample reference should not block generation.
			g.logger.Warn().Err(err).
				Str("photo_id", req.PhotoID).
				Int("design_id", req.DesignID).
				Msg("gemini: sample image unavailable, generating without it")
		} else {
			parts = append(parts, geminiPart{InlineData: &geminiInlineData{
				MimeType: sampleMIME,
				Data:     base64.StdEncoding.EncodeToString(sample),
			}})
		}
	}

	payload := geminiGenerateContentRequest{
		Contents:         []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: &geminiGenerationConfig{ResponseModalities: []string{"IMAGE"}},
	}

	var response geminiGenerateContentResponse
	path := fmt.Sprintf("/models/%s:generateContent", url.PathEscape(g.model))
	if err := g.invoke(ctx, path, payload, &response); err != nil {
		return Asset{}, err
	}

	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			if part.InlineData == nil || part.InlineData.Data == "" {
				continue
			}
			data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
			if err != nil {
				return Asset{}, &Fault{Kind: domain.FailureProvider, Err: fmt.Errorf("decode inline data: %w", err)}
			}
			format := part.InlineData.MimeType
			if format == "" {
				format = "image/png"
			}
			g.logger.Debug().
				Str("photo_id", req.PhotoID).
				Int("design_id", req.DesignID).
				Str("model", g.model).
				Msg("gemini: generated image")
			return Asset{Data: data, Format: format}, nil
		}
	}

	return Asset{}, &Fault{Kind: domain.FailureProvider, Err: fmt.Errorf("no image content returned")}
}

func buildPrompt(req GenerateRequest) string {
	parts := []string{strings.TrimSpace(req.Prompt)}
	parts = append(parts, "Apply the hairstyle to the person in the first image. Keep the face, skin tone and framing unchanged.")
	if req.SampleURL != "" {
		parts = append(parts, "Use the second image as the hairstyle reference.")
	}
	return strings.Join(parts, " ")
}

func (g *GeminiGenerator) invoke(ctx context.Context, path string, payload any, out any) error {
	endpoint := g.baseURL + path
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("key", g.apiKey)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		kind := domain.FailureProvider
		if ctx.Err() != nil || isTimeout(err) {
			kind = domain.FailureTimeout
		}
		return &Fault{Kind: kind, Err: fmt.Errorf("invoke gemini: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return &Fault{Kind: classifyStatus(resp.StatusCode), Err: apiError(resp)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Fault{Kind: domain.FailureProvider, Err: fmt.Errorf("decode gemini response: %w", err)}
	}
	return nil
}

func apiError(resp *http.Response) error {
	var apiErr geminiErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("gemini status %d: %s", resp.StatusCode, apiErr.Error.Message)
	}
	return fmt.Errorf("gemini status %d", resp.StatusCode)
}

func classifyStatus(status int) domain.FailureKind {
	switch {
	case status == http.StatusTooManyRequests:
		return domain.FailureRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return domain.FailureTimeout
	case status >= 400 && status < 500:
		return domain.FailureInvalidInput
	default:
		return domain.FailureProvider
	}
}

func isTimeout(err error) bool {
	type timeout interface{ Timeout() bool }
	var t timeout
	for e := err; e != nil; e = unwrap(e) {
		if te, ok := e.(timeout); ok {
			t = te
			break
		}
	}
	return t != nil && t.Timeout()
}

func unwrap(err error) error {
	u, ok := err.(interface{ Unwrap() error })
	if !ok {
		return nil
	}
	return u.Unwrap()
}

func (g *GeminiGenerator) fetchImage(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download %s: status %d", rawURL, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" || !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}
	return data, mime, nil
}

var _ Generator = (*GeminiGenerator)(nil)
