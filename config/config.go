package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	HTTPPort string `envconfig:"HTTP_PORT" default:"4242"`

	// live = DOI-Registry + Sidecar-Store, fixture = In-Memory-Daten (lokale Entwicklung, Tests)
	Backend     string `envconfig:"BACKEND" default:"live"`
	FixtureFile string `envconfig:"FIXTURE_FILE"`
	DOIPrefix   string `envconfig:"DOI_PREFIX" default:"10.80791"`

	DOIRegistryURL string        `envconfig:"DOI_REGISTRY_URL" default:"https://ws-cadc.canfar.net/doi/instances"`
	HTTPTimeout    time.Duration `envconfig:"HTTP_TIMEOUT" default:"60s"`

	// Circuit Breaker vor der Registry
	BreakerFailures uint32        `envconfig:"REGISTRY_BREAKER_FAILURES" default:"5"`
	BreakerTimeout  time.Duration `envconfig:"REGISTRY_BREAKER_TIMEOUT" default:"30s"`

	// vault oder s3
	SidecarStore string `envconfig:"SIDECAR_STORE" default:"vault"`
	VaultBaseURL string `envconfig:"VAULT_BASE_URL" default:"https://ws-cadc.canfar.net/vault/files"`

	S3Key    string `envconfig:"S3_KEY"`
	S3Secret string `envconfig:"S3_SECRET"`
	S3URL    string `envconfig:"S3_URL"`
	S3Region string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX"`

	ReviewFetchConcurrency int `envconfig:"REVIEW_FETCH_CONCURRENCY" default:"4"`

	// Optional: ohne DSN wird die Statushistorie nur im Speicher gehalten.
	DatabaseDSN string `envconfig:"DATABASE_DSN"`

	RefreshSchedule string `envconfig:"REFRESH_SCHEDULE" default:"*/15 * * * *"`
	ServiceToken    string `envconfig:"SERVICE_TOKEN"`

	CitationBaseURL string `envconfig:"CITATION_BASE_URL" default:"https://www.canfar.net/citation/landing"`
}

// Validate prüft Kombinationen, die envconfig allein nicht abdeckt.
func (c *Config) Validate() error {
	switch c.Backend {
	case "live", "fixture":
	default:
		return fmt.Errorf("unknown BACKEND %q (expected live or fixture)", c.Backend)
	}
	switch c.SidecarStore {
	case "vault":
	case "s3":
		if c.S3Bucket == "" || c.S3URL == "" {
			return fmt.Errorf("SIDECAR_STORE=s3 requires S3_URL and S3_BUCKET")
		}
	default:
		return fmt.Errorf("unknown SIDECAR_STORE %q (expected vault or s3)", c.SidecarStore)
	}
	if c.ReviewFetchConcurrency < 1 {
		return fmt.Errorf("REVIEW_FETCH_CONCURRENCY must be at least 1, got %d", c.ReviewFetchConcurrency)
	}
	return nil
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, c.Validate()
}
