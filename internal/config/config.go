// Package config loads service settings from the environment and command-line flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/deusflow/newsroom/internal/llm"
)

const (
	keyListenAddr       = "LISTEN_ADDR"
	keyFeedsConfigPath  = "FEEDS_CONFIG_PATH"
	keyCacheTTL         = "CACHE_TTL"
	keyMaxItems         = "MAX_ITEMS"
	keyFeedTimeout      = "FEED_TIMEOUT"
	keyFeedUserAgent    = "FEED_USER_AGENT"
	keyCoalesceRefresh  = "COALESCE_REFRESH"
	keyLLMProvider      = "LLM_PROVIDER"
	keyLLMAPIURL        = "LLM_API_URL"
	keyLLMAPIVersion    = "LLM_API_VERSION"
	keyLLMAPIKey        = "LLM_API_KEY"
	keyLLMDeployment    = "LLM_DEPLOYMENT"
	keyGeminiAPIKey     = "GEMINI_API_KEY"
	keyGeminiModel      = "GEMINI_MODEL"
	keySearXNGURL       = "SEARXNG_URL"
	keyEnrichAttempts   = "ENRICH_ATTEMPTS"
	keyEnrichTimeout    = "ENRICH_TIMEOUT"
	keyEnrichRetryDelay = "ENRICH_RETRY_DELAY"
	keyCORSOrigins      = "CORS_ALLOWED_ORIGINS"
	keyShutdownTimeout  = "SHUTDOWN_TIMEOUT"
	keyDebug            = "DEBUG"
)

type Config struct {
	// Server settings
	ListenAddr      string
	CORSOrigins     []string
	ShutdownTimeout time.Duration

	// Feed settings
	FeedsConfigPath string // empty = built-in source list
	CacheTTL        time.Duration
	MaxItems        int
	FeedTimeout     time.Duration
	FeedUserAgent   string
	CoalesceRefresh bool

	// Completion backend
	LLMProvider   string // azure | openai | gemini
	LLMAPIURL     string
	LLMAPIVersion string
	LLMAPIKey     string
	LLMDeployment string
	GeminiAPIKey  string
	GeminiModel   string

	// Enrichment retry policy
	EnrichAttempts   int
	EnrichTimeout    time.Duration
	EnrichRetryDelay time.Duration

	SearXNGURL string

	Debug bool
}

// SetDefaults registers the built-in value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(keyListenAddr, ":8080")
	v.SetDefault(keyFeedsConfigPath, "")
	v.SetDefault(keyCacheTTL, 5*time.Minute)
	v.SetDefault(keyMaxItems, 20)
	v.SetDefault(keyFeedTimeout, 20*time.Second)
	v.SetDefault(keyFeedUserAgent, "")
	v.SetDefault(keyCoalesceRefresh, false)
	v.SetDefault(keyLLMProvider, llm.ProviderAzure)
	v.SetDefault(keyLLMAPIVersion, llm.DefaultAzureAPIVersion)
	v.SetDefault(keyLLMDeployment, llm.DefaultDeployment)
	v.SetDefault(keyGeminiModel, llm.DefaultGeminiModel)
	v.SetDefault(keyEnrichAttempts, 3)
	v.SetDefault(keyEnrichTimeout, 60*time.Second)
	v.SetDefault(keyEnrichRetryDelay, time.Second)
	v.SetDefault(keyCORSOrigins, "*")
	v.SetDefault(keyShutdownTimeout, 10*time.Second)
	v.SetDefault(keyDebug, false)
}

// BindFlags registers the command-line overrides on fs and binds them to v.
// Flags win over the environment.
func BindFlags(fs *pflag.FlagSet, v *viper.Viper) error {
	fs.String("listen", "", "address to listen on (LISTEN_ADDR)")
	fs.String("feeds", "", "YAML file with feed sources (FEEDS_CONFIG_PATH)")
	fs.Bool("debug", false, "enable debug logging (DEBUG)")
	fs.Bool("coalesce-refresh", false, "share one feed refresh between concurrent callers (COALESCE_REFRESH)")

	bindings := map[string]string{
		keyListenAddr:      "listen",
		keyFeedsConfigPath: "feeds",
		keyDebug:           "debug",
		keyCoalesceRefresh: "coalesce-refresh",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// Load reads every setting from v, which should already carry defaults and
// flag bindings. Environment variables are picked up automatically.
func Load(v *viper.Viper) (*Config, error) {
	v.AutomaticEnv()

	cfg := &Config{
		ListenAddr:      v.GetString(keyListenAddr),
		CORSOrigins:     splitList(v.GetString(keyCORSOrigins)),
		ShutdownTimeout: v.GetDuration(keyShutdownTimeout),

		FeedsConfigPath: v.GetString(keyFeedsConfigPath),
		CacheTTL:        v.GetDuration(keyCacheTTL),
		MaxItems:        v.GetInt(keyMaxItems),
		FeedTimeout:     v.GetDuration(keyFeedTimeout),
		FeedUserAgent:   v.GetString(keyFeedUserAgent),
		CoalesceRefresh: v.GetBool(keyCoalesceRefresh),

		LLMProvider:   strings.ToLower(v.GetString(keyLLMProvider)),
		LLMAPIURL:     v.GetString(keyLLMAPIURL),
		LLMAPIVersion: v.GetString(keyLLMAPIVersion),
		LLMAPIKey:     v.GetString(keyLLMAPIKey),
		LLMDeployment: v.GetString(keyLLMDeployment),
		GeminiAPIKey:  v.GetString(keyGeminiAPIKey),
		GeminiModel:   v.GetString(keyGeminiModel),

		EnrichAttempts:   v.GetInt(keyEnrichAttempts),
		EnrichTimeout:    v.GetDuration(keyEnrichTimeout),
		EnrichRetryDelay: v.GetDuration(keyEnrichRetryDelay),

		SearXNGURL: v.GetString(keySearXNGURL),

		Debug: v.GetBool(keyDebug),
	}

	return cfg, cfg.Validate()
}

// LoadEnv loads the configuration from the environment alone.
func LoadEnv() (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	return Load(v)
}

func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("LISTEN_ADDR is required")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive")
	}
	if c.MaxItems <= 0 {
		return fmt.Errorf("MAX_ITEMS must be positive")
	}
	if c.FeedTimeout <= 0 {
		return fmt.Errorf("FEED_TIMEOUT must be positive")
	}
	if c.EnrichAttempts < 1 {
		return fmt.Errorf("ENRICH_ATTEMPTS must be at least 1")
	}
	if c.EnrichTimeout <= 0 {
		return fmt.Errorf("ENRICH_TIMEOUT must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	switch c.LLMProvider {
	case llm.ProviderAzure, llm.ProviderOpenAI, llm.ProviderGemini:
	default:
		return fmt.Errorf("LLM_PROVIDER must be 'azure', 'openai' or 'gemini'")
	}
	return nil
}

// LLM returns the completion backend settings.
func (c *Config) LLM() llm.Config {
	return llm.Config{
		Provider:     c.LLMProvider,
		BaseURL:      c.LLMAPIURL,
		APIVersion:   c.LLMAPIVersion,
		APIKey:       c.LLMAPIKey,
		Deployment:   c.LLMDeployment,
		GeminiAPIKey: c.GeminiAPIKey,
		GeminiModel:  c.GeminiModel,
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
