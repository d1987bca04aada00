package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/keffjoons/looksy-backend/internal/imaging"
	"github.com/keffjoons/looksy-backend/internal/infra"
	"github.com/keffjoons/looksy-backend/internal/middleware"
	"github.com/keffjoons/looksy-backend/internal/providers/genai"
	"github.com/keffjoons/looksy-backend/internal/storage"
)

// Synthesizer is the one capability the try-on handler needs from the
// generative backend. The genai client is the only production implementation;
// tests substitute stubs.
type Synthesizer interface {
	Synthesize(ctx context.Context, req genai.SynthesisRequest) (*genai.SynthesisResult, error)
}

// App bundles the request handlers with their injected dependencies.
type App struct {
	Config   *infra.Config
	Logger   infra.Logger
	Resolver *imaging.Resolver
	// Synth is nil when no API credential is configured; the try-on
	// handler reports that as a per-request misconfiguration.
	Synth  Synthesizer
	Studio *storage.StudioStore
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// error writes the stable {error, code} body and logs the terminal failure
// once with the request correlation id. Cause detail reaches the client only
// outside production.
func (a *App) error(w http.ResponseWriter, r *http.Request, status int, code, msg string, cause error) {
	evt := a.Logger.Error().
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Str("code", code).
		Int("status", status)
	if cause != nil {
		evt = evt.Err(cause)
	}
	evt.Msg("request failed")

	body := map[string]string{"error": msg, "code": code}
	if cause != nil && !a.Config.IsProduction() {
		body["detail"] = cause.Error()
	}
	a.json(w, status, body)
}
