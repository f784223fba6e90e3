// Package config loads operational, non-per-camera settings: broker and
// endpoint addresses, credentials, and listen addresses. Per-camera
// settings live in camconfig instead. YAML first, then env.Parse so
// environment variables win, exactly as the upstream config loader
// does it.
package config

import (
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config структура конфига
type Config struct {
	Postgres struct {
		Enabled bool   `yaml:"enabled" env:"POSTGRES_ENABLED"`
		DSN     string `yaml:"dsn" env:"DATABASE_DSN"`
	} `yaml:"postgres"`

	Minio struct {
		Enabled   bool   `yaml:"enabled" env:"MINIO_ENABLED"`
		Endpoint  string `yaml:"endpoint" env:"MINIO_ENDPOINT"`
		AccessKey string `yaml:"access_key" env:"MINIO_ACCESS_KEY"`
		SecretKey string `yaml:"secret_key" env:"MINIO_SECRET_KEY"`
		Secure    bool   `yaml:"secure" env:"MINIO_SECURE"`
		Bucket    string `yaml:"bucket" env:"MINIO_BUCKET"`
	} `yaml:"minio"`

	Kafka struct {
		Enabled    bool     `yaml:"enabled" env:"KAFKA_ENABLED"`
		Brokers    []string `yaml:"brokers" env:"KAFKA_BROKERS" envSeparator:","`
		AlertTopic string   `yaml:"alert_topic" env:"ALERT_TOPIC"`
	} `yaml:"kafka"`

	Detection struct {
		Endpoint            string  `yaml:"endpoint" env:"DETECTION_ENDPOINT"`
		ConfidenceThreshold float64 `yaml:"confidence_threshold" env:"DETECTION_CONFIDENCE_THRESHOLD"`
	} `yaml:"detection"`

	HTTP struct {
		ListenAddr string `yaml:"listen_addr" env:"HTTP_LISTEN_ADDR"`
	} `yaml:"http"`

	Snapshot struct {
		Dir string `yaml:"dir" env:"SNAPSHOT_DIR"`
	} `yaml:"snapshot"`

	CamerasPath string `yaml:"cameras_path" env:"CAMERAS_PATH"`
}

// defaults returns a Config that lets the process start with no YAML file
// present at all: every optional sink is disabled, the HTTP surface binds
// a sane local address, and snapshots land in a local directory.
func defaults() *Config {
	cfg := &Config{}
	cfg.Detection.ConfidenceThreshold = 0.5
	cfg.HTTP.ListenAddr = ":8080"
	cfg.Snapshot.Dir = "snapshots"
	cfg.CamerasPath = "cameras.json"
	return cfg
}

// LoadConfig reads filename (relative to internal/config/) as YAML over a
// defaulted Config, then applies environment-variable overrides. A
// missing file is not an error — the defaults (plus any env overrides)
// are used as-is, mirroring camconfig's own missing-file tolerance.
func LoadConfig(filename string) (*Config, error) {
	cfg := defaults()

	if filename == "" {
		filename = "local.yaml"
	}
	path := "internal/config/" + filename

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
