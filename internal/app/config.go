package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/blueprintx-backend/internal/db"
	"github.com/yungbote/blueprintx-backend/internal/observability"
	"github.com/yungbote/blueprintx-backend/internal/platform/envutil"
	"github.com/yungbote/blueprintx-backend/internal/platform/logger"
)

const (
	ProviderKindOpenAI  = "openai"
	ProviderKindOutline = "outline"
)

// ProviderConfig describes one topic extraction backend. Every LLM backend is
// reached through an OpenAI-compatible chat-completions endpoint.
type ProviderConfig struct {
	Name          string        `yaml:"name"`
	Kind          string        `yaml:"kind"`
	BaseURL       string        `yaml:"base_url"`
	APIKey        string        `yaml:"api_key"`
	Model         string        `yaml:"model"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxRetries    int           `yaml:"max_retries"`
	MaxInputChars int           `yaml:"max_input_chars"`
}

type providersFile struct {
	Default   string           `yaml:"default"`
	Fallbacks []string         `yaml:"fallbacks"`
	Providers []ProviderConfig `yaml:"providers"`
}

type Config struct {
	Port           string
	LogMode        string
	JWTSecretKey   string
	AccessTokenTTL time.Duration

	DB db.Config

	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	AnalysisCacheTTL time.Duration

	DefaultProvider   string
	FallbackProviders []string
	Providers         []ProviderConfig

	DefaultDailyHours float64
	MaxUploadBytes    int64
	CORSOrigins       []string
	AnalyzerMaxDepth  int
	AnalyzerMaxNodes  int

	Otel observability.OtelConfig
}

func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		Port:           envutil.String("PORT", "8080"),
		LogMode:        envutil.String("LOG_MODE", "development"),
		JWTSecretKey:   envutil.String("JWT_SECRET_KEY", ""),
		AccessTokenTTL: envutil.Duration("ACCESS_TOKEN_TTL", time.Hour),

		DB: db.Config{
			Driver:           envutil.String("DB_DRIVER", "postgres"),
			PostgresHost:     envutil.String("POSTGRES_HOST", "localhost"),
			PostgresPort:     envutil.String("POSTGRES_PORT", "5432"),
			PostgresUser:     envutil.String("POSTGRES_USER", "postgres"),
			PostgresPassword: envutil.String("POSTGRES_PASSWORD", ""),
			PostgresName:     envutil.String("POSTGRES_NAME", "blueprintx"),
			PostgresSSLMode:  envutil.String("POSTGRES_SSLMODE", "disable"),
			SQLitePath:       envutil.String("SQLITE_PATH", ""),
		},

		RedisAddr:        envutil.String("REDIS_ADDR", ""),
		RedisPassword:    envutil.String("REDIS_PASSWORD", ""),
		RedisDB:          envutil.Int("REDIS_DB", 0),
		AnalysisCacheTTL: envutil.Duration("ANALYSIS_CACHE_TTL", 24*time.Hour),

		DefaultProvider:   strings.ToLower(envutil.String("ANALYSIS_PROVIDER", "")),
		FallbackProviders: envutil.CSV("ANALYSIS_FALLBACK_PROVIDERS", nil),

		DefaultDailyHours: envutil.Float("DEFAULT_DAILY_HOURS", 2.0),
		MaxUploadBytes:    envutil.Int64("MAX_UPLOAD_BYTES", 10<<20),
		CORSOrigins:       envutil.CSV("CORS_ALLOWED_ORIGINS", nil),
		AnalyzerMaxDepth:  envutil.Int("ANALYZER_MAX_DEPTH", 0),
		AnalyzerMaxNodes:  envutil.Int("ANALYZER_MAX_NODES", 0),

		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "blueprintx-backend"),
			Environment: envutil.String("OTEL_ENVIRONMENT", "development"),
			Version:     envutil.String("OTEL_SERVICE_VERSION", "dev"),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", true),
			Headers:     observability.ParseHeaders(envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "")),
			SampleRatio: envutil.Float("OTEL_SAMPLE_RATIO", 1.0),
		},
	}

	if cfg.JWTSecretKey == "" {
		return Config{}, fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if cfg.DefaultDailyHours <= 0 {
		log.Warn("DEFAULT_DAILY_HOURS must be positive, using 2.0", "value", cfg.DefaultDailyHours)
		cfg.DefaultDailyHours = 2.0
	}

	cfg.Providers = envProviders()
	if path := envutil.String("PROVIDERS_CONFIG_PATH", ""); path != "" {
		pf, err := loadProvidersFile(path)
		if err != nil {
			return Config{}, err
		}
		cfg.Providers = mergeProviders(cfg.Providers, pf.Providers)
		if cfg.DefaultProvider == "" {
			cfg.DefaultProvider = strings.ToLower(strings.TrimSpace(pf.Default))
		}
		if len(cfg.FallbackProviders) == 0 {
			cfg.FallbackProviders = pf.Fallbacks
		}
		log.Info("Loaded providers file", "path", path, "providers", len(pf.Providers))
	}
	if cfg.DefaultProvider == "" {
		cfg.DefaultProvider = firstLLM(cfg.Providers)
	}
	return cfg, nil
}

// envProviders builds the providers whose credentials are present in the
// environment. The offline outline provider is always available.
func envProviders() []ProviderConfig {
	var out []ProviderConfig
	if key := envutil.String("GROQ_API_KEY", ""); key != "" {
		out = append(out, ProviderConfig{
			Name:    "groq",
			Kind:    ProviderKindOpenAI,
			BaseURL: envutil.String("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
			APIKey:  key,
			Model:   envutil.String("GROQ_MODEL", "llama-3.3-70b-versatile"),
		})
	}
	if key := envutil.String("OPENAI_API_KEY", ""); key != "" {
		out = append(out, ProviderConfig{
			Name:    "openai",
			Kind:    ProviderKindOpenAI,
			BaseURL: envutil.String("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			APIKey:  key,
			Model:   envutil.String("OPENAI_MODEL", "gpt-4o-mini"),
		})
	}
	if key := envutil.String("GEMINI_API_KEY", ""); key != "" {
		out = append(out, ProviderConfig{
			Name:    "gemini",
			Kind:    ProviderKindOpenAI,
			BaseURL: envutil.String("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/openai"),
			APIKey:  key,
			Model:   envutil.String("GEMINI_MODEL", "gemini-1.5-flash"),
		})
	}
	if base := envutil.String("OLLAMA_BASE_URL", ""); base != "" {
		out = append(out, ProviderConfig{
			Name:    "ollama",
			Kind:    ProviderKindOpenAI,
			BaseURL: strings.TrimRight(base, "/") + "/v1",
			Model:   envutil.String("OLLAMA_MODEL", "llama3"),
			Timeout: envutil.Duration("OLLAMA_TIMEOUT", 180*time.Second),
		})
	}
	out = append(out, ProviderConfig{Name: "outline", Kind: ProviderKindOutline})
	return out
}

func loadProvidersFile(path string) (*providersFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read providers file: %w", err)
	}
	var pf providersFile
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(b))), &pf); err != nil {
		return nil, fmt.Errorf("parse providers file: %w", err)
	}
	for i := range pf.Providers {
		p := &pf.Providers[i]
		p.Name = strings.ToLower(strings.TrimSpace(p.Name))
		p.Kind = strings.ToLower(strings.TrimSpace(p.Kind))
		if p.Name == "" {
			return nil, fmt.Errorf("providers file: entry %d has no name", i)
		}
		if p.Kind == "" {
			p.Kind = ProviderKindOpenAI
		}
		if p.Kind != ProviderKindOpenAI && p.Kind != ProviderKindOutline {
			return nil, fmt.Errorf("providers file: %s has unknown kind %q", p.Name, p.Kind)
		}
	}
	return &pf, nil
}

// mergeProviders lets file entries replace environment entries of the same name.
func mergeProviders(base, override []ProviderConfig) []ProviderConfig {
	idx := map[string]int{}
	out := append([]ProviderConfig(nil), base...)
	for i, p := range out {
		idx[p.Name] = i
	}
	for _, p := range override {
		if i, ok := idx[p.Name]; ok {
			out[i] = p
			continue
		}
		idx[p.Name] = len(out)
		out = append(out, p)
	}
	return out
}

func firstLLM(ps []ProviderConfig) string {
	for _, p := range ps {
		if p.Kind == ProviderKindOpenAI {
			return p.Name
		}
	}
	return "outline"
}
