package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	App struct {
		Name string `yaml:"name"`
		Env  string `yaml:"env"`
	} `yaml:"app"`
	Server struct {
		Port        string   `yaml:"port"`
		CORSOrigins []string `yaml:"cors_origins"`
		MaxUploadMB int64    `yaml:"max_upload_mb"`
	} `yaml:"server"`
	Database struct {
		Type string `yaml:"type"` // "sqlite" or "postgres"
		URL  string `yaml:"url"`
	} `yaml:"database"`
	Auth struct {
		JWTSecret       string     `yaml:"jwt_secret"`
		TokenTTLMinutes int        `yaml:"token_ttl_minutes"`
		SeedUsers       []SeedUser `yaml:"seed_users"`
	} `yaml:"auth"`
	Scoring   Scoring `yaml:"scoring"`
	Dashboard struct {
		RecentIocs  int `yaml:"recent_iocs"`
		RecentScans int `yaml:"recent_scans"`
	} `yaml:"dashboard"`
	Notifier struct {
		Enabled          bool   `yaml:"enabled"`
		TelegramBotToken string `yaml:"telegram_bot_token"`
		ChatID           int64  `yaml:"chat_id"`
		QueueSize        int    `yaml:"queue_size"`
	} `yaml:"notifier"`
	Telemetry Telemetry `yaml:"telemetry"`
}

// Telemetry controls the OTLP metrics exporter.
type Telemetry struct {
	Enabled      bool          `yaml:"enabled"`
	OTLPEndpoint string        `yaml:"otlp_endpoint"`
	Insecure     bool          `yaml:"insecure"`
	Interval     time.Duration `yaml:"interval"`
}

// SeedUser is an account created at startup if it does not exist.
type SeedUser struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

type Scoring struct {
	Timeout             time.Duration `yaml:"timeout"`
	SourceTimeout       time.Duration `yaml:"source_timeout"`
	CacheTTL            time.Duration `yaml:"cache_ttl"`
	CacheSize           int           `yaml:"cache_size"`
	SuspiciousThreshold int           `yaml:"suspicious_threshold"`
	MaliciousThreshold  int           `yaml:"malicious_threshold"`
	Heuristics          struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"heuristics"`
	IocMatch struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"ioc_match"`
	VirusTotal struct {
		APIKey            string `yaml:"api_key"`
		BaseURL           string `yaml:"base_url"`
		RequestsPerMinute int    `yaml:"requests_per_minute"`
	} `yaml:"virustotal"`
}

// DefaultPath is used when CONFIG_PATH is unset.
const DefaultPath = "configs/config.yml"

// Path returns the config file location.
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return DefaultPath
}

// LoadConfig reads configuration from the specified YAML file.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyDefaults()

	config.Database.URL = os.ExpandEnv(config.Database.URL)
	config.Auth.JWTSecret = os.ExpandEnv(config.Auth.JWTSecret)
	config.Scoring.VirusTotal.APIKey = os.ExpandEnv(config.Scoring.VirusTotal.APIKey)
	config.Notifier.TelegramBotToken = os.ExpandEnv(config.Notifier.TelegramBotToken)
	config.Telemetry.OTLPEndpoint = os.ExpandEnv(config.Telemetry.OTLPEndpoint)
	for i := range config.Auth.SeedUsers {
		config.Auth.SeedUsers[i].Password = os.ExpandEnv(config.Auth.SeedUsers[i].Password)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Default returns a configuration with every default applied, suitable for tests.
func Default() *Config {
	config := &Config{}
	config.Scoring.Heuristics.Enabled = true
	config.Scoring.IocMatch.Enabled = true
	config.applyDefaults()
	return config
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "Cyber Guard Platform API"
	}
	if c.App.Env == "" {
		c.App.Env = "development"
	}
	if c.Server.Port == "" {
		c.Server.Port = "8000"
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"http://localhost:5173"}
	}
	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = 10
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.URL == "" && c.Database.Type == "sqlite" {
		c.Database.URL = "file:./data/cyber_guard.db"
	}
	if c.Auth.TokenTTLMinutes == 0 {
		c.Auth.TokenTTLMinutes = 60
	}
	if c.Scoring.Timeout == 0 {
		c.Scoring.Timeout = 15 * time.Second
	}
	if c.Scoring.SourceTimeout == 0 {
		c.Scoring.SourceTimeout = 8 * time.Second
	}
	if c.Scoring.CacheTTL == 0 {
		c.Scoring.CacheTTL = 10 * time.Minute
	}
	if c.Scoring.CacheSize == 0 {
		c.Scoring.CacheSize = 1024
	}
	if c.Scoring.SuspiciousThreshold == 0 {
		c.Scoring.SuspiciousThreshold = 30
	}
	if c.Scoring.MaliciousThreshold == 0 {
		c.Scoring.MaliciousThreshold = 70
	}
	if c.Scoring.VirusTotal.BaseURL == "" {
		c.Scoring.VirusTotal.BaseURL = "https://www.virustotal.com/api/v3"
	}
	if c.Scoring.VirusTotal.RequestsPerMinute == 0 {
		// Public API quota.
		c.Scoring.VirusTotal.RequestsPerMinute = 4
	}
	if c.Dashboard.RecentIocs == 0 {
		c.Dashboard.RecentIocs = 10
	}
	if c.Dashboard.RecentScans == 0 {
		c.Dashboard.RecentScans = 10
	}
	if c.Notifier.QueueSize == 0 {
		c.Notifier.QueueSize = 64
	}
	if c.Telemetry.OTLPEndpoint == "" {
		c.Telemetry.OTLPEndpoint = "localhost:4317"
	}
	if c.Telemetry.Interval == 0 {
		c.Telemetry.Interval = 10 * time.Second
	}
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Type {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.type must be sqlite or postgres, got %q", c.Database.Type))
	}
	if c.Database.URL == "" {
		errs = append(errs, errors.New("database.url is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	s, m := c.Scoring.SuspiciousThreshold, c.Scoring.MaliciousThreshold
	if s <= 0 || s >= m || m > 100 {
		errs = append(errs, fmt.Errorf("scoring thresholds must satisfy 0 < suspicious (%d) < malicious (%d) <= 100", s, m))
	}
	if c.Scoring.SourceTimeout > c.Scoring.Timeout {
		errs = append(errs, errors.New("scoring.source_timeout must not exceed scoring.timeout"))
	}
	if c.Notifier.Enabled && (c.Notifier.TelegramBotToken == "" || c.Notifier.ChatID == 0) {
		errs = append(errs, errors.New("notifier requires telegram_bot_token and chat_id when enabled"))
	}
	return errors.Join(errs...)
}
