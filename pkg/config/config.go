// Package config assembles runtime configuration from .env, environment
// variables and an optional config.yaml. Secrets missing from the
// environment can be backfilled from Google Secret Manager.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigPath   = "config.yaml"
	defaultGroqModel    = "llama-3.3-70b-versatile"
	defaultOutputDir    = "./output"
	defaultTempDir      = "./tmp"
	defaultResolution   = "1080x1920"
	defaultLanguage     = "en-US"
	defaultVoiceStyle   = "neural"
	defaultStoreBackend = "firestore"
	defaultPollSeconds  = 30
)

type Config struct {
	GroqAPIKey           string
	GoogleSearchAPIKey   string
	GoogleSearchEngineID string
	GCPProjectID         string
	GCPCredentialsFile   string
	GCSBucket            string

	Groq    GroqConfig    `yaml:"groq"`
	Speech  SpeechConfig  `yaml:"speech"`
	Video   VideoConfig   `yaml:"video"`
	Blog    BlogConfig    `yaml:"blog"`
	Capture CaptureConfig `yaml:"capture"`
	Store   StoreConfig   `yaml:"store"`
	Notify  NotifyConfig  `yaml:"notify"`
	Worker  WorkerConfig  `yaml:"worker"`
}

type GroqConfig struct {
	Model string `yaml:"model"`
}

type SpeechConfig struct {
	Language   string `yaml:"language"`
	VoiceStyle string `yaml:"voice_style"` // "neural" or "studio"
}

type VideoConfig struct {
	OutputDir  string `yaml:"output_dir"`
	TempDir    string `yaml:"temp_dir"`
	Resolution string `yaml:"resolution"`
}

type BlogConfig struct {
	BaseURL string `yaml:"base_url"`
}

type CaptureConfig struct {
	BrowserPath string `yaml:"browser_path"`
}

type StoreConfig struct {
	Backend string `yaml:"backend"` // "firestore" or "memory"
}

type NotifyConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Recipient string `yaml:"recipient"`
}

type WorkerConfig struct {
	PollSeconds int `yaml:"poll_seconds"`
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		GroqAPIKey:           os.Getenv("GROQ_API_KEY"),
		GoogleSearchAPIKey:   os.Getenv("GOOGLE_SEARCH_API_KEY"),
		GoogleSearchEngineID: os.Getenv("GOOGLE_SEARCH_ENGINE_ID"),
		GCPProjectID:         os.Getenv("GCP_PROJECT_ID"),
		GCPCredentialsFile:   os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		GCSBucket:            os.Getenv("GCS_BUCKET"),
	}

	loadYAMLConfig(cfg)
	applyDefaults(cfg)

	return cfg
}

func loadYAMLConfig(cfg *Config) {
	data, err := os.ReadFile(defaultConfigPath)
	if err != nil {
		slog.Warn("No config.yaml found, using defaults")
		return
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		slog.Error("Failed to parse config.yaml", "error", err)
	}
}

func applyDefaults(cfg *Config) {
	applyGroqDefaults(cfg)
	applySpeechDefaults(cfg)
	applyVideoDefaults(cfg)
	applyStoreDefaults(cfg)
	applyNotifyDefaults(cfg)
	applyWorkerDefaults(cfg)
}

func applyGroqDefaults(cfg *Config) {
	if cfg.Groq.Model == "" {
		cfg.Groq.Model = defaultGroqModel
	}
}

func applySpeechDefaults(cfg *Config) {
	if cfg.Speech.Language == "" {
		cfg.Speech.Language = defaultLanguage
	}
	if cfg.Speech.VoiceStyle == "" {
		cfg.Speech.VoiceStyle = defaultVoiceStyle
	}
}

func applyVideoDefaults(cfg *Config) {
	if cfg.Video.OutputDir == "" {
		cfg.Video.OutputDir = defaultOutputDir
	}
	if cfg.Video.TempDir == "" {
		cfg.Video.TempDir = defaultTempDir
	}
	if cfg.Video.Resolution == "" {
		cfg.Video.Resolution = defaultResolution
	}
}

func applyStoreDefaults(cfg *Config) {
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = defaultStoreBackend
	}
}

func applyNotifyDefaults(cfg *Config) {
	if cfg.Notify.Endpoint == "" {
		cfg.Notify.Endpoint = os.Getenv("MAIL_ENDPOINT")
	}
	if cfg.Notify.Recipient == "" {
		cfg.Notify.Recipient = os.Getenv("NOTIFY_EMAIL")
	}
}

func applyWorkerDefaults(cfg *Config) {
	if cfg.Worker.PollSeconds == 0 {
		cfg.Worker.PollSeconds = defaultPollSeconds
	}
}

// secretNames maps config fields to their Secret Manager secret ids.
var secretNames = map[string]func(*Config) *string{
	"groq-api-key":            func(c *Config) *string { return &c.GroqAPIKey },
	"google-search-api-key":   func(c *Config) *string { return &c.GoogleSearchAPIKey },
	"google-search-engine-id": func(c *Config) *string { return &c.GoogleSearchEngineID },
}

// BackfillSecrets fills empty API keys from Secret Manager. A missing
// secret is not fatal; the component that needs the key will fail with a
// clearer error later.
func BackfillSecrets(ctx context.Context, cfg *Config) error {
	if cfg.GCPProjectID == "" {
		return nil
	}

	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("create secret manager client: %w", err)
	}
	defer func() { _ = client.Close() }()

	for name, field := range secretNames {
		target := field(cfg)
		if *target != "" {
			continue
		}

		resp, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
			Name: fmt.Sprintf("projects/%s/secrets/%s/versions/latest", cfg.GCPProjectID, name),
		})
		if err != nil {
			slog.Warn("secret not available", "secret", name, "error", err)
			continue
		}
		*target = string(resp.Payload.Data)
	}
	return nil
}
