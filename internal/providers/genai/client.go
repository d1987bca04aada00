package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/keffjoons/looksy-backend/internal/domain"
	"github.com/keffjoons/looksy-backend/internal/imaging"
	"github.com/keffjoons/looksy-backend/internal/infra"
	"github.com/keffjoons/looksy-backend/pkg/retry"
)

// Mode selects the fidelity/latency trade-off for one synthesis call.
type Mode string

const (
	ModeFast     Mode = "fast"
	ModeAccurate Mode = "accurate"
)

const (
	defaultBaseURL        = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel          = "gemini-2.5-flash-image"
	defaultAttemptTimeout = 30 * time.Second
	defaultRetryBaseDelay = time.Second
	maxAttempts           = 3

	inlineImagePrefix = "data:image/png;base64,"
)

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	AttemptTimeout time.Duration
	RetryBaseDelay time.Duration
}

// Client relays virtual try-on synthesis requests to the Gemini
// generateContent endpoint. One invocation makes between one and three
// outbound calls: transient upstream failures (500/502/503, attempt timeout)
// are retried with exponential backoff, everything else fails immediately.
type Client struct {
	apiKey         string
	baseURL        string
	model          string
	httpClient     *http.Client
	logger         *infra.Logger
	attemptTimeout time.Duration
	retryBaseDelay time.Duration
}

// SynthesisRequest carries the validated images and context for one call.
type SynthesisRequest struct {
	UserImage    imaging.Payload
	Overlays     []imaging.Payload
	ProductTitle string
	Mode         Mode
	RequestID    string
}

// Usage is a rough observability estimate, not billing-accurate.
type Usage struct {
	Model         string `json:"model"`
	TokenEstimate int    `json:"tokenEstimate"`
}

// SynthesisResult is the produced try-on image plus usage metadata.
type SynthesisResult struct {
	ImageDataURL string
	Usage        Usage
}

// StatusError is a non-2xx reply from the Gemini endpoint.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gemini status %d", e.StatusCode)
	}
	return fmt.Sprintf("gemini status %d: %s", e.StatusCode, e.Message)
}

// Transient reports whether the status is a momentary server-side failure
// worth retrying.
func (e *StatusError) Transient() bool {
	switch e.StatusCode {
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return true
	}
	return false
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

// geminiPart accepts both inlineData and inline_data on the way in; the API
// has used both spellings across versions.
type geminiPart struct {
	Text            string            `json:"text,omitempty"`
	InlineData      *geminiInlineData `json:"inlineData,omitempty"`
	InlineDataSnake *geminiInlineData `json:"inline_data,omitempty"`
}

func (p geminiPart) inline() *geminiInlineData {
	if p.InlineData != nil {
		return p.InlineData
	}
	return p.InlineDataSnake
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature float64 `json:"temperature"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiPromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates     []geminiCandidate     `json:"candidates"`
	PromptFeedback *geminiPromptFeedback `json:"promptFeedback,omitempty"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// NewClient constructs a Gemini client with sane defaults. Callers may provide
// a nil HTTP client; a reusable one will be created.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, domain.ErrServiceMisconfigured
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	attemptTimeout := opts.AttemptTimeout
	if attemptTimeout <= 0 {
		attemptTimeout = defaultAttemptTimeout
	}
	retryBaseDelay := opts.RetryBaseDelay
	if retryBaseDelay <= 0 {
		retryBaseDelay = defaultRetryBaseDelay
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := infra.Logger(zerolog.Nop())
		logger = &discard
	}

	return &Client{
		apiKey:         strings.TrimSpace(opts.APIKey),
		baseURL:        baseURL,
		model:          model,
		httpClient:     httpClient,
		logger:         logger,
		attemptTimeout: attemptTimeout,
		retryBaseDelay: retryBaseDelay,
	}, nil
}

// Model returns the configured Gemini model identifier.
func (c *Client) Model() string {
	return c.model
}

// Synthesize issues one generateContent call with the try-on instruction and
// the reference images, retrying transient failures up to the attempt budget.
func (c *Client) Synthesize(ctx context.Context, req SynthesisRequest) (*SynthesisResult, error) {
	prompt := buildTryOnPrompt(req)
	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: buildParts(prompt, req),
		}},
		GenerationConfig: &geminiGenerationConfig{Temperature: 0},
	}

	var response geminiGenerateContentResponse
	policy := retry.Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   c.retryBaseDelay,
		Retryable:   transient,
	}
	err := policy.Do(ctx, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
		defer cancel()
		response = geminiGenerateContentResponse{}
		return c.invoke(attemptCtx, payload, &response)
	})
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %s", domain.ErrRateLimited, statusErr.Message)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrSynthesisFailed, err)
	}

	if fb := response.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return nil, fmt.Errorf("%w: prompt blocked (%s)", domain.ErrSynthesisFailed, fb.BlockReason)
	}

	imageDataURL, ok := extractImage(response)
	if !ok {
		// The call itself succeeded; an empty response will not get
		// better on retry.
		return nil, domain.ErrNoImageProduced
	}

	c.logger.Debug().
		Str("request_id", req.RequestID).
		Str("model", c.model).
		Int("overlays", len(req.Overlays)).
		Msg("genai: synthesis completed")

	return &SynthesisResult{
		ImageDataURL: imageDataURL,
		Usage: Usage{
			Model:         c.model,
			TokenEstimate: (len(prompt) + 3) / 4,
		},
	}, nil
}

// transient is the retryable-predicate handed to the retry policy: attempt
// timeouts and 500/502/503 replies qualify, nothing else does.
func transient(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Transient()
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func (c *Client) invoke(ctx context.Context, payload any, out any) error {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("key", c.apiKey)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("invoke gemini: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		var apiErr geminiErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			statusErr.Message = apiErr.Error.Message
		}
		return statusErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gemini response: %w", err)
	}
	return nil
}

func buildParts(prompt string, req SynthesisRequest) []geminiPart {
	parts := make([]geminiPart, 0, len(req.Overlays)+2)
	parts = append(parts, geminiPart{Text: prompt})
	parts = append(parts, geminiPart{InlineData: &geminiInlineData{
		MimeType: req.UserImage.MimeType,
		Data:     req.UserImage.Base64,
	}})
	for _, overlay := range req.Overlays {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: overlay.MimeType,
			Data:     overlay.Base64,
		}})
	}
	return parts
}

// extractImage walks candidate parts in order looking for an inline image
// attachment, then falls back to scanning text for an embedded data URI.
func extractImage(response geminiGenerateContentResponse) (string, bool) {
	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			if inline := part.inline(); inline != nil && inline.Data != "" {
				mime := inline.MimeType
				if mime == "" {
					mime = "image/png"
				}
				return "data:" + mime + ";base64," + inline.Data, true
			}
		}
	}
	for _, candidate := range response.Candidates {
		for _, part := range candidate.Content.Parts {
			if uri, ok := extractInlineImageLiteral(part.Text); ok {
				return uri, true
			}
		}
	}
	return "", false
}

// extractInlineImageLiteral pulls a data:image/png;base64,... literal out of
// model text, trimming punctuation the model tends to append after it.
func extractInlineImageLiteral(text string) (string, bool) {
	idx := strings.Index(text, inlineImagePrefix)
	if idx < 0 {
		return "", false
	}
	literal := text[idx:]
	if end := strings.IndexFunc(literal, func(r rune) bool {
		return r == ' ' || r == '\n' || r == '\t' || r == '\r'
	}); end >= 0 {
		literal = literal[:end]
	}
	literal = strings.TrimRight(literal, `.,;:!?)]}>"'`)
	if len(literal) <= len(inlineImagePrefix) {
		return "", false
	}
	return literal, true
}
