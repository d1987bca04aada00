package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keffjoons/looksy-backend/internal/domain"
	"github.com/keffjoons/looksy-backend/internal/imaging"
	"github.com/keffjoons/looksy-backend/internal/storage"
)

type studioUploadRequest struct {
	ExtensionID string `json:"extensionId,omitempty"`
	Image       string `json:"image"`
}

// StudioUpload stores a studio photo of the user for later try-on requests.
// Validation is identical to the try-on user image.
func (a *App) StudioUpload(w http.ResponseWriter, r *http.Request) {
	var req studioUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, r, http.StatusBadRequest, domain.CodeInvalidUserImage, "invalid request body", err)
		return
	}
	if !a.Config.ExtensionAllowed(extensionID(r, req.ExtensionID)) {
		a.error(w, r, http.StatusForbidden, domain.CodeInvalidExtensionID, "extension not allowed", domain.ErrUnauthorized)
		return
	}

	payload, err := imaging.DecodeDataURI(req.Image)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnsupportedMediaType):
			a.error(w, r, http.StatusUnprocessableEntity, domain.CodeUnsupportedImageType, "unsupported image type", err)
		case errors.Is(err, domain.ErrPayloadTooLarge):
			a.error(w, r, http.StatusRequestEntityTooLarge, domain.CodeImageTooLarge, "image too large", err)
		default:
			a.error(w, r, http.StatusBadRequest, domain.CodeInvalidUserImage, "image must be a base64 data URI", err)
		}
		return
	}

	data, err := base64.StdEncoding.DecodeString(payload.Base64)
	if err != nil {
		a.error(w, r, http.StatusBadRequest, domain.CodeInvalidUserImage, "image payload is not valid base64", err)
		return
	}

	id, err := a.Studio.Save(r.Context(), payload.MimeType, data)
	if err != nil {
		a.error(w, r, http.StatusInternalServerError, domain.CodeInternal, "failed to store studio image", err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"ok": true, "id": id})
}

// StudioImage serves a stored studio photo. Expired entries look exactly like
// missing ones.
func (a *App) StudioImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	data, mime, err := a.Studio.Load(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrStudioImageNotFound) {
			a.error(w, r, http.StatusNotFound, domain.CodeNotFound, "studio image not found", err)
			return
		}
		a.error(w, r, http.StatusInternalServerError, domain.CodeInternal, "failed to load studio image", err)
		return
	}
	w.Header().Set("Content-Type", mime)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
