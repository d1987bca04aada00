package imaging

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/keffjoons/looksy-backend/internal/domain"
)

const tinyPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg=="

func TestDecodeDataURIValid(t *testing.T) {
	tests := []struct {
		name     string
		uri      string
		wantMime string
	}{
		{"jpeg", "data:image/jpeg;base64," + tinyPNG, "image/jpeg"},
		{"jpg alias", "data:image/jpg;base64," + tinyPNG, "image/jpg"},
		{"png", "data:image/png;base64," + tinyPNG, "image/png"},
		{"webp", "data:image/webp;base64," + tinyPNG, "image/webp"},
		{"avif", "data:image/avif;base64," + tinyPNG, "image/avif"},
		{"uppercase mime", "data:IMAGE/PNG;base64," + tinyPNG, "image/png"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			payload, err := DecodeDataURI(tc.uri)
			if err != nil {
				t.Fatalf("DecodeDataURI returned error: %v", err)
			}
			if payload.MimeType != tc.wantMime {
				t.Fatalf("MimeType = %q, want %q", payload.MimeType, tc.wantMime)
			}
			if payload.Base64 != tinyPNG {
				t.Fatalf("Base64 payload was modified: got %q", payload.Base64)
			}
		})
	}
}

func TestDecodeDataURIMalformed(t *testing.T) {
	tests := []struct {
		name string
		uri  string
	}{
		{"missing data prefix", "image/png;base64," + tinyPNG},
		{"missing base64 marker", "data:image/png," + tinyPNG},
		{"empty payload", "data:image/png;base64,"},
		{"empty mime", "data:;base64," + tinyPNG},
		{"empty string", ""},
		{"plain url", "https://example.com/a.png"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeDataURI(tc.uri)
			if !errors.Is(err, domain.ErrMalformedDataURI) {
				t.Fatalf("error = %v, want ErrMalformedDataURI", err)
			}
		})
	}
}

func TestDecodeDataURIUnsupportedMediaType(t *testing.T) {
	tests := []string{"image/gif", "image/svg+xml", "text/plain", "application/pdf"}
	for _, mime := range tests {
		t.Run(mime, func(t *testing.T) {
			_, err := DecodeDataURI("data:" + mime + ";base64," + tinyPNG)
			if !errors.Is(err, domain.ErrUnsupportedMediaType) {
				t.Fatalf("error = %v, want ErrUnsupportedMediaType", err)
			}
		})
	}
}

func TestDecodeDataURIPayloadTooLarge(t *testing.T) {
	// 8 MiB of decoded bytes is (8<<20)*4/3 base64 characters; one block
	// past that must be rejected regardless of mime type.
	oversized := strings.Repeat("A", (MaxImageBytes/3+1)*4)
	_, err := DecodeDataURI("data:image/png;base64," + oversized)
	if !errors.Is(err, domain.ErrPayloadTooLarge) {
		t.Fatalf("error = %v, want ErrPayloadTooLarge", err)
	}
}

func TestDecodeDataURILargePayloadWithinCeiling(t *testing.T) {
	payload := strings.Repeat("A", (MaxImageBytes/3-1)*4)
	if _, err := DecodeDataURI("data:image/png;base64," + payload); err != nil {
		t.Fatalf("DecodeDataURI returned error: %v", err)
	}
}

func TestEncodePayload(t *testing.T) {
	raw, err := base64.StdEncoding.DecodeString(tinyPNG)
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}

	payload, err := EncodePayload("image/png", raw)
	if err != nil {
		t.Fatalf("EncodePayload returned error: %v", err)
	}
	if payload.MimeType != "image/png" {
		t.Fatalf("MimeType = %q, want image/png", payload.MimeType)
	}
	if payload.Base64 != tinyPNG {
		t.Fatalf("Base64 round trip mismatch")
	}

	if _, err := EncodePayload("image/gif", raw); !errors.Is(err, domain.ErrUnsupportedMediaType) {
		t.Fatalf("error = %v, want ErrUnsupportedMediaType", err)
	}
	if _, err := EncodePayload("image/png", nil); !errors.Is(err, domain.ErrMalformedDataURI) {
		t.Fatalf("error = %v, want ErrMalformedDataURI", err)
	}
}
