package imaging

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/keffjoons/looksy-backend/internal/infra"
)

// MaxOverlayImages caps how many reference images accompany one try-on
// request regardless of how many the extension supplies.
const MaxOverlayImages = 3

const defaultFetchTimeout = 15 * time.Second

// ResolverOptions configures an overlay Resolver.
type ResolverOptions struct {
	HTTPClient   *http.Client
	FetchTimeout time.Duration
	Logger       *infra.Logger
}

// Resolver turns the overlay inputs of a try-on request into image payloads.
// Inline data URIs are always preferred; remote URLs are fetched only when no
// inline entries were supplied at all.
type Resolver struct {
	httpClient   *http.Client
	fetchTimeout time.Duration
	logger       *infra.Logger
}

// NewResolver constructs a Resolver with sane defaults for missing options.
func NewResolver(opts ResolverOptions) *Resolver {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	timeout := opts.FetchTimeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	logger := opts.Logger
	if logger == nil {
		discard := infra.Logger(zerolog.Nop())
		logger = &discard
	}
	return &Resolver{httpClient: client, fetchTimeout: timeout, logger: logger}
}

// Resolve produces up to MaxOverlayImages payloads in the order the inputs
// were given. Individual failures are dropped, not fatal: a bad entry costs
// only itself. An empty result is valid here; rejecting the request when no
// overlays survive is the caller's decision.
func (r *Resolver) Resolve(ctx context.Context, inline []string, urls []string) []Payload {
	if len(inline) > 0 {
		return r.resolveInline(inline)
	}
	if len(urls) > 0 {
		return r.resolveRemote(ctx, urls)
	}
	return nil
}

func (r *Resolver) resolveInline(inline []string) []Payload {
	if len(inline) > MaxOverlayImages {
		inline = inline[:MaxOverlayImages]
	}
	out := make([]Payload, 0, len(inline))
	for i, uri := range inline {
		payload, err := DecodeDataURI(uri)
		if err != nil {
			r.logger.Warn().Err(err).Int("index", i).Msg("overlay: dropped inline entry")
			continue
		}
		out = append(out, payload)
	}
	return out
}

// resolveRemote fetches every URL concurrently, each under its own timeout.
// Results land in an indexed slice so the returned order matches the input
// order no matter which fetch finishes first.
func (r *Resolver) resolveRemote(ctx context.Context, urls []string) []Payload {
	if len(urls) > MaxOverlayImages {
		urls = urls[:MaxOverlayImages]
	}
	results := make([]*Payload, len(urls))
	var wg sync.WaitGroup
	for i, target := range urls {
		wg.Add(1)
		go func(i int, target string) {
			defer wg.Done()
			payload, err := r.fetchOne(ctx, target)
			if err != nil {
				r.logger.Warn().Err(err).Int("index", i).Str("url", target).Msg("overlay: dropped remote entry")
				return
			}
			results[i] = &payload
		}(i, target)
	}
	wg.Wait()

	out := make([]Payload, 0, len(urls))
	for _, p := range results {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}

func (r *Resolver) fetchOne(ctx context.Context, target string) (Payload, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, target, nil)
	if err != nil {
		return Payload{}, err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return Payload{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Payload{}, &fetchError{status: resp.StatusCode}
	}
	mime := normalizeContentType(resp.Header.Get("Content-Type"))
	if !AllowedMimeType(mime) {
		return Payload{}, &fetchError{mime: mime}
	}

	// One byte past the ceiling is enough to detect an oversized body
	// without buffering the rest of it.
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return Payload{}, err
	}
	if len(data) > MaxImageBytes {
		return Payload{}, &fetchError{oversized: true}
	}
	return Payload{
		MimeType: strings.ToLower(mime),
		Base64:   base64.StdEncoding.EncodeToString(data),
	}, nil
}

func normalizeContentType(ct string) string {
	if idx := strings.Index(ct, ";"); idx >= 0 {
		ct = ct[:idx]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

type fetchError struct {
	status    int
	mime      string
	oversized bool
}

func (e *fetchError) Error() string {
	switch {
	case e.status != 0:
		return "overlay fetch failed with status " + strconv.Itoa(e.status)
	case e.oversized:
		return "overlay body exceeds size ceiling"
	default:
		return "overlay has unsupported content type " + e.mime
	}
}
