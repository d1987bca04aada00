package infra

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ServiceName identifies this process in health responses and logs.
const ServiceName = "looksy-backend"

// Config represents application configuration loaded from environment
// variables. It is constructed once at startup and never mutated; everything
// that needs a setting receives the value explicitly.
type Config struct {
	AppEnv              string
	Port                string
	GeminiAPIKey        string
	GeminiModel         string
	GeminiBaseURL       string
	AllowedExtensionIDs []string
	AllowedOrigins      []string
	StudioCachePath     string
	StudioCacheTTL      time.Duration
	OverlayFetchTimeout time.Duration
	SynthesisTimeout    time.Duration
	HTTPReadTimeout     time.Duration
	HTTPWriteTimeout    time.Duration
	HTTPIdleTimeout     time.Duration
	RateLimitPerMin     int
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. A missing GEMINI_API_KEY is not fatal here: the
// try-on handler reports it per-request as a misconfiguration so the rest of
// the surface (health, studio reads) stays up.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:              getEnv("APP_ENV", "development"),
		Port:                getEnv("PORT", "8080"),
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-2.5-flash-image"),
		GeminiBaseURL:       getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		AllowedExtensionIDs: splitList(os.Getenv("EXTENSION_ALLOWLIST")),
		AllowedOrigins:      splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		StudioCachePath:     getEnv("STUDIO_CACHE_PATH", "./data/studio"),
		StudioCacheTTL:      time.Hour * time.Duration(getEnvInt("STUDIO_CACHE_TTL_HOURS", 24)),
		OverlayFetchTimeout: time.Second * time.Duration(getEnvInt("OVERLAY_FETCH_TIMEOUT_SECONDS", 15)),
		SynthesisTimeout:    time.Second * time.Duration(getEnvInt("SYNTHESIS_TIMEOUT_SECONDS", 30)),
		HTTPReadTimeout:     time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout:    time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 120)),
		HTTPIdleTimeout:     time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:     getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}
	return cfg, nil
}

// IsProduction controls whether free-text error detail is echoed to clients.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// ExtensionAllowed reports whether the caller identity may use the API. An
// empty allow-list leaves the API open, which is the development default.
func (c *Config) ExtensionAllowed(id string) bool {
	if len(c.AllowedExtensionIDs) == 0 {
		return true
	}
	for _, allowed := range c.AllowedExtensionIDs {
		if allowed == id {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
