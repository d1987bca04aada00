package imaging

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/keffjoons/looksy-backend/internal/domain"
)

// MaxImageBytes is the per-image ceiling applied to decoded payload sizes.
const MaxImageBytes = 8 << 20 // 8 MiB

const base64Marker = ";base64,"

// allowedMimeTypes is the closed set of image formats the extension may send.
var allowedMimeTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/jpg":  {},
	"image/png":  {},
	"image/webp": {},
	"image/avif": {},
}

// Payload is a validated image ready to be shipped to the synthesis API. The
// base64 payload is kept undecoded; the provider sends it inline as-is, so
// decoding here would only duplicate work.
type Payload struct {
	MimeType string
	Base64   string
}

// DecodeDataURI validates a data:<mime>;base64,<payload> string and returns
// the typed payload. The mime type is matched case-insensitively against the
// allow-list and the decoded size is bounded by MaxImageBytes using the
// base64 length estimate len*3/4, which is always >= the real decoded size.
func DecodeDataURI(uri string) (Payload, error) {
	if !strings.HasPrefix(uri, "data:") {
		return Payload{}, domain.ErrMalformedDataURI
	}
	rest := uri[len("data:"):]
	idx := strings.Index(rest, base64Marker)
	if idx < 0 {
		return Payload{}, domain.ErrMalformedDataURI
	}
	mime := strings.ToLower(strings.TrimSpace(rest[:idx]))
	payload := rest[idx+len(base64Marker):]
	if mime == "" || payload == "" {
		return Payload{}, domain.ErrMalformedDataURI
	}
	if _, ok := allowedMimeTypes[mime]; !ok {
		return Payload{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedMediaType, mime)
	}
	if estimatedBytes(payload) > MaxImageBytes {
		return Payload{}, domain.ErrPayloadTooLarge
	}
	return Payload{MimeType: mime, Base64: payload}, nil
}

// EncodePayload wraps already-loaded image bytes as a Payload, applying the
// same mime and size rules as DecodeDataURI.
func EncodePayload(mime string, data []byte) (Payload, error) {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if _, ok := allowedMimeTypes[mime]; !ok {
		return Payload{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedMediaType, mime)
	}
	if len(data) == 0 {
		return Payload{}, domain.ErrMalformedDataURI
	}
	if len(data) > MaxImageBytes {
		return Payload{}, domain.ErrPayloadTooLarge
	}
	return Payload{MimeType: mime, Base64: base64.StdEncoding.EncodeToString(data)}, nil
}

// AllowedMimeType reports whether mime is acceptable as an image input.
func AllowedMimeType(mime string) bool {
	_, ok := allowedMimeTypes[strings.ToLower(strings.TrimSpace(mime))]
	return ok
}

// estimatedBytes is the fast upper bound on decoded size; padding makes the
// true size slightly smaller, never larger.
func estimatedBytes(payload string) int {
	return len(payload) * 3 / 4
}
