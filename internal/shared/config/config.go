package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"

	"resume-editor/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port               string
	Env                string
	DatabaseURL        string
	CORSAllowOrigin    []string
	ObjectStoreType    string
	LocalStoreDir      string
	AWSRegion          string
	S3Bucket           string
	S3Prefix           string
	SSEKMSKeyID        string
	LLMProvider        string
	LLMModel           string
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	AnthropicAPIKey    string
	GeminiAPIKey       string
	CompletionTimeout  time.Duration
	CompletionInFlight int
	CompletionDebounce time.Duration
	SessionTTL         time.Duration
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Missing files are fine; the environment wins over file values.
	_ = godotenv.Load(".env")
	_ = godotenv.Load("cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		telemetry.Warn("config.database_url_missing", map[string]any{"env": env})
	}

	return Config{
		Port:               getEnv("PORT", "8080"),
		Env:                env,
		DatabaseURL:        dbURL,
		CORSAllowOrigin:    splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		ObjectStoreType:    normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:      getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:          getEnv("AWS_REGION", ""),
		S3Bucket:           getEnv("S3_BUCKET", ""),
		S3Prefix:           getEnv("S3_PREFIX", ""),
		SSEKMSKeyID:        getEnv("SSE_KMS_KEY_ID", ""),
		LLMProvider:        normalizeProvider(getEnv("LLM_PROVIDER", "none")),
		LLMModel:           getEnv("LLM_MODEL", ""),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", ""),
		AnthropicAPIKey:    getEnv("ANTHROPIC_API_KEY", ""),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		CompletionTimeout:  getDuration("COMPLETION_TIMEOUT", 20*time.Second),
		CompletionInFlight: getInt("COMPLETION_MAX_IN_FLIGHT", 4),
		CompletionDebounce: getDuration("COMPLETION_DEBOUNCE", 0),
		SessionTTL:         getDuration("SESSION_TTL", 2*time.Hour),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		UIRedirectURL:      getEnv("UI_REDIRECT_URL", ""),
	}
}

// Validate reports settings that would otherwise only fail once a request
// reaches the component that needs them.
func (c Config) Validate() error {
	deployed := c.Env == "production" || c.Env == "staging"
	return validation.ValidateStruct(&c,
		validation.Field(&c.DatabaseURL,
			validation.When(deployed, validation.Required.Error("DATABASE_URL is required in "+c.Env))),
		validation.Field(&c.S3Bucket,
			validation.When(c.ObjectStoreType == "s3", validation.Required.Error("S3_BUCKET is required for OBJECT_STORE=s3"))),
		validation.Field(&c.LLMModel,
			validation.When(c.LLMProvider != "none", validation.Required.Error("LLM_MODEL is required when LLM_PROVIDER is set"))),
		validation.Field(&c.OpenAIAPIKey,
			validation.When(c.LLMProvider == "openai", validation.Required.Error("OPENAI_API_KEY is required"))),
		validation.Field(&c.AnthropicAPIKey,
			validation.When(c.LLMProvider == "anthropic", validation.Required.Error("ANTHROPIC_API_KEY is required"))),
		validation.Field(&c.GeminiAPIKey,
			validation.When(c.LLMProvider == "gemini", validation.Required.Error("GEMINI_API_KEY is required"))),
		validation.Field(&c.OpenAIBaseURL, is.URL),
		validation.Field(&c.CompletionInFlight, validation.Min(1)),
		validation.Field(&c.SessionTTL, validation.Min(time.Minute)),
	)
}

func getEnv(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil && d >= 0 {
		return d
	}
	telemetry.Warn("config.invalid_duration", map[string]any{"key": key, "value": raw})
	return def
}

func getInt(key string, def int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	if n, err := strconv.Atoi(raw); err == nil && n > 0 {
		return n
	}
	telemetry.Warn("config.invalid_int", map[string]any{"key": key, "value": raw})
	return def
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "test":
		return "test"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	case "anthropic", "claude":
		return "anthropic"
	case "gemini", "google":
		return "gemini"
	default:
		return "none"
	}
}
