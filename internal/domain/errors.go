package domain

import "errors"

// Sentinel errors for every failure the service can surface. Handlers map
// these onto HTTP statuses and stable machine codes; nothing else in the
// error taxonomy crosses a package boundary.
var (
	ErrUnauthorized         = errors.New("extension id not allowed")
	ErrMalformedDataURI     = errors.New("malformed data uri")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrPayloadTooLarge      = errors.New("image payload too large")
	ErrNoOverlayImages      = errors.New("no overlay images resolved")
	ErrServiceMisconfigured = errors.New("missing api credential")
	ErrRateLimited          = errors.New("rate limited")
	ErrSynthesisFailed      = errors.New("synthesis failed")
	ErrNoImageProduced      = errors.New("no image in synthesis response")
	ErrNotFound             = errors.New("not found")
)

// Machine-readable codes returned alongside every error response. These are
// part of the extension contract and must not change between releases.
const (
	CodeInvalidExtensionID   = "INVALID_EXTENSION_ID"
	CodeInvalidUserImage     = "INVALID_USER_IMAGE"
	CodeUnsupportedImageType = "UNSUPPORTED_IMAGE_TYPE"
	CodeImageTooLarge        = "IMAGE_TOO_LARGE"
	CodeNoOverlayImages      = "NO_OVERLAY_IMAGES"
	CodeServiceMisconfigured = "SERVICE_MISCONFIGURED"
	CodeRateLimited          = "RATE_LIMITED"
	CodeGenerationFailed     = "GENERATION_FAILED"
	CodeNoImageProduced      = "NO_IMAGE_PRODUCED"
	CodeNotFound             = "NOT_FOUND"
	CodeInternal             = "INTERNAL"
)
