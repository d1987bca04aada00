package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/keffjoons/looksy-backend/internal/domain"
	"github.com/keffjoons/looksy-backend/internal/imaging"
	"github.com/keffjoons/looksy-backend/internal/middleware"
	"github.com/keffjoons/looksy-backend/internal/providers/genai"
)

type productContext struct {
	Title    string `json:"title,omitempty"`
	Hostname string `json:"hostname,omitempty"`
}

type tryOnRequest struct {
	ExtensionID    string          `json:"extensionId,omitempty"`
	UserImage      string          `json:"userImage,omitempty"`
	StudioImageID  string          `json:"studioImageId,omitempty"`
	OverlayData    []string        `json:"overlayData,omitempty"`
	OverlayUrls    []string        `json:"overlayUrls,omitempty"`
	ProductContext *productContext `json:"productContext,omitempty"`
	PlanType       string          `json:"planType,omitempty"`
}

type tryOnResponse struct {
	OK     bool        `json:"ok"`
	Result string      `json:"result"`
	Usage  genai.Usage `json:"usage"`
}

// TryOn relays one virtual try-on request: authorize, validate the user
// image, resolve overlays, synthesize, respond. Retries live solely inside
// the synthesis client; this layer retries nothing.
func (a *App) TryOn(w http.ResponseWriter, r *http.Request) {
	var req tryOnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, r, http.StatusBadRequest, domain.CodeInvalidUserImage, "invalid request body", err)
		return
	}

	if !a.Config.ExtensionAllowed(extensionID(r, req.ExtensionID)) {
		a.error(w, r, http.StatusForbidden, domain.CodeInvalidExtensionID, "extension not allowed", domain.ErrUnauthorized)
		return
	}

	userImage, ok := a.resolveUserImage(w, r, req)
	if !ok {
		return
	}

	overlays := a.Resolver.Resolve(r.Context(), req.OverlayData, req.OverlayUrls)
	if len(overlays) == 0 {
		a.error(w, r, http.StatusUnprocessableEntity, domain.CodeNoOverlayImages, "no usable overlay images", domain.ErrNoOverlayImages)
		return
	}

	if a.Synth == nil {
		a.error(w, r, http.StatusInternalServerError, domain.CodeServiceMisconfigured, "service misconfigured", domain.ErrServiceMisconfigured)
		return
	}

	synthReq := genai.SynthesisRequest{
		UserImage: userImage,
		Overlays:  overlays,
		Mode:      modeForPlan(req.PlanType),
		RequestID: middleware.RequestIDFromContext(r.Context()),
	}
	if req.ProductContext != nil {
		synthReq.ProductTitle = req.ProductContext.Title
	}

	result, err := a.Synth.Synthesize(r.Context(), synthReq)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRateLimited):
			a.error(w, r, http.StatusTooManyRequests, domain.CodeRateLimited, "upstream rate limited", err)
		case errors.Is(err, domain.ErrNoImageProduced):
			a.error(w, r, http.StatusInternalServerError, domain.CodeNoImageProduced, "model produced no image", err)
		case errors.Is(err, domain.ErrSynthesisFailed):
			a.error(w, r, http.StatusInternalServerError, domain.CodeGenerationFailed, "image generation failed", err)
		default:
			a.error(w, r, http.StatusInternalServerError, domain.CodeInternal, "internal error", err)
		}
		return
	}

	a.json(w, http.StatusOK, tryOnResponse{OK: true, Result: result.ImageDataURL, Usage: result.Usage})
}

// resolveUserImage validates the inline user image, or substitutes a stored
// studio capture when the extension sends only its id. Writes the error
// response itself and reports success through the bool.
func (a *App) resolveUserImage(w http.ResponseWriter, r *http.Request, req tryOnRequest) (imaging.Payload, bool) {
	if strings.TrimSpace(req.UserImage) == "" && req.StudioImageID != "" && a.Studio != nil {
		payload, err := a.studioPayload(r, req.StudioImageID)
		if err != nil {
			a.error(w, r, http.StatusBadRequest, domain.CodeInvalidUserImage, "studio image unavailable", err)
			return imaging.Payload{}, false
		}
		return payload, true
	}

	payload, err := imaging.DecodeDataURI(req.UserImage)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnsupportedMediaType):
			a.error(w, r, http.StatusUnprocessableEntity, domain.CodeUnsupportedImageType, "unsupported user image type", err)
		case errors.Is(err, domain.ErrPayloadTooLarge):
			a.error(w, r, http.StatusRequestEntityTooLarge, domain.CodeImageTooLarge, "user image too large", err)
		default:
			a.error(w, r, http.StatusBadRequest, domain.CodeInvalidUserImage, "userImage must be a base64 data URI", err)
		}
		return imaging.Payload{}, false
	}
	return payload, true
}

func (a *App) studioPayload(r *http.Request, id string) (imaging.Payload, error) {
	data, mime, err := a.Studio.Load(r.Context(), id)
	if err != nil {
		return imaging.Payload{}, err
	}
	return imaging.EncodePayload(mime, data)
}

// extensionID prefers the header identity over the body field.
func extensionID(r *http.Request, bodyID string) string {
	if id := strings.TrimSpace(r.Header.Get("X-Extension-Id")); id != "" {
		return id
	}
	return strings.TrimSpace(bodyID)
}

// modeForPlan maps the extension's plan to a synthesis mode: paying
// (unlimited) installs get the accurate path, everyone else the fast one.
func modeForPlan(planType string) genai.Mode {
	if strings.EqualFold(planType, "unlimited") {
		return genai.ModeAccurate
	}
	return genai.ModeFast
}
