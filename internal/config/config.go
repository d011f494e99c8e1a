package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Default thresholds applied when the config file leaves them out. A
// missing threshold is never a validation error.
const (
	DefaultLagThreshold      = 1000
	DefaultStaleConsumerDays = 30
	DefaultUnusedTopicDays   = 90
	DefaultTimeout           = 10 * time.Second
)

// Config holds connection settings and diagnostic thresholds loaded from a
// YAML file. Every field can be overridden by a CLI flag.
type Config struct {
	BootstrapServers string `yaml:"bootstrap_servers"`

	// Amazon MSK: when set, bootstrap servers are resolved from the ARN.
	ClusterARN string `yaml:"cluster_arn"`
	AWSRegion  string `yaml:"aws_region"`
	AWSProfile string `yaml:"aws_profile"`

	AuthMechanism string    `yaml:"auth_mechanism"` // PLAIN, SCRAM-SHA-256, SCRAM-SHA-512, AWS_MSK_IAM
	Username      string    `yaml:"username"`
	Password      string    `yaml:"password"`
	TLS           TLSConfig `yaml:"tls"`

	LagThreshold      int64 `yaml:"lag_threshold"`
	StaleConsumerDays int   `yaml:"stale_consumer_days"`
	UnusedTopicDays   int   `yaml:"unused_topic_days"`

	Timeout time.Duration `yaml:"timeout"`
	Format  string        `yaml:"format"` // text or json
}

// TLSConfig holds TLS related fields.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled,omitempty"`
	CAFile   string `yaml:"ca_file,omitempty"`
	CertFile string `yaml:"cert_file,omitempty"`
	KeyFile  string `yaml:"key_file,omitempty"`
}

// Load auto-discovers and loads a config file.
// Search order:
// 1) current working directory (config.yml, config.yaml)
// 2) user home directory (.kafka-lens.yaml)
// Returns (nil, "", nil) when no file exists; the tool then runs on flags
// and defaults alone.
func Load() (*Config, string, error) {
	paths, err := defaultPaths()
	if err != nil {
		return nil, "", err
	}

	for _, path := range paths {
		cfg, found, err := loadOptionalPath(path)
		if err != nil {
			return nil, "", err
		}
		if found {
			return cfg, path, nil
		}
	}

	return nil, "", nil
}

// LoadFromPath loads and parses a config file from an explicit path.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}

	return cfg, nil
}

// Normalize fills documented defaults for anything unset and pulls SASL
// credentials from the environment when the file leaves them out.
func (c *Config) Normalize() {
	if c.LagThreshold <= 0 {
		c.LagThreshold = DefaultLagThreshold
	}
	if c.StaleConsumerDays <= 0 {
		c.StaleConsumerDays = DefaultStaleConsumerDays
	}
	if c.UnusedTopicDays <= 0 {
		c.UnusedTopicDays = DefaultUnusedTopicDays
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Format == "" {
		c.Format = "text"
	}
	if c.Username == "" {
		c.Username = os.Getenv("KAFKA_LENS_USERNAME")
	}
	if c.Password == "" {
		c.Password = os.Getenv("KAFKA_LENS_PASSWORD")
	}
}

func defaultPaths() ([]string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve current directory: %w", err)
	}

	paths := []string{
		filepath.Join(cwd, "config.yml"),
		filepath.Join(cwd, "config.yaml"),
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		paths = append(paths, filepath.Join(home, ".kafka-lens.yaml"))
	}

	return paths, nil
}

func loadOptionalPath(path string) (*Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read config %q: %w", path, err)
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, false, fmt.Errorf("parse config %q: %w", path, err)
	}

	return cfg, true, nil
}

func parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
