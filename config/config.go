package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all service configuration.
type Config struct {
	// Environment
	Environment EnvironmentConfig

	// Server
	HTTPServer HTTPServerConfig
	Logger     LoggerConfig

	// Persistence
	Database DatabaseConfig

	// Gateway specifics
	Webhook   WebhookConfig
	Queue     QueueConfig
	Worker    WorkerConfig
	LoopGuard LoopGuardConfig
	OAuth     OAuthConfig
}

type EnvironmentConfig struct {
	Name string
}

type HTTPServerConfig struct {
	Port int
	Mode string
}

type LoggerConfig struct {
	Level        string
	Mode         string
	Encoding     string
	ColorEnabled bool
}

// DatabaseConfig selects the backing store. Driver is "memory", "sqlite" or
// "postgres"; DSN is ignored for memory.
type DatabaseConfig struct {
	Driver string
	DSN    string
}

type WebhookConfig struct {
	RateLimitPerMin int
	Mention         string
	AllowedLabels   []string
}

type QueueConfig struct {
	LeaseTimeout   time.Duration
	ReaperInterval time.Duration
	PollInterval   time.Duration
}

type WorkerConfig struct {
	PoolSize       int
	DequeueTimeout time.Duration
}

type LoopGuardConfig struct {
	TTL time.Duration
}

// OAuthClientConfig holds one provider's OAuth app credentials. Refresh is
// only wired for providers with a non-empty client id.
type OAuthClientConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
}

type OAuthConfig struct {
	GitHub OAuthClientConfig
	Slack  OAuthClientConfig
}

// Load loads configuration using Viper.
// Config file name: config.yaml, searched in ./config, ., /etc/app/
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/app/")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}

	// Environment & Server
	cfg.Environment.Name = viper.GetString("environment.name")
	cfg.HTTPServer.Port = viper.GetInt("http_server.port")
	cfg.HTTPServer.Mode = viper.GetString("http_server.mode")
	cfg.Logger.Level = viper.GetString("logger.level")
	cfg.Logger.Mode = viper.GetString("logger.mode")
	cfg.Logger.Encoding = viper.GetString("logger.encoding")
	cfg.Logger.ColorEnabled = viper.GetBool("logger.color_enabled")

	// Persistence
	cfg.Database.Driver = viper.GetString("database.driver")
	cfg.Database.DSN = viper.GetString("database.dsn")
	if dsn := viper.GetString("database_dsn"); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if err := validateDatabase(&cfg.Database); err != nil {
		return nil, err
	}

	// Webhook intake
	cfg.Webhook.RateLimitPerMin = viper.GetInt("webhook.rate_limit_per_min")
	cfg.Webhook.Mention = viper.GetString("webhook.mention")

	// Split allowed labels since viper might not parse array seamlessly from env
	var labels []string
	if rawLabels := viper.GetString("webhook.allowed_labels"); rawLabels != "" {
		for _, label := range strings.Split(rawLabels, ",") {
			label = strings.TrimSpace(label)
			if label != "" {
				labels = append(labels, label)
			}
		}
	}
	cfg.Webhook.AllowedLabels = labels

	// Queue
	cfg.Queue.LeaseTimeout = viper.GetDuration("queue.lease_timeout")
	cfg.Queue.ReaperInterval = viper.GetDuration("queue.reaper_interval")
	cfg.Queue.PollInterval = viper.GetDuration("queue.poll_interval")

	// Worker
	cfg.Worker.PoolSize = viper.GetInt("worker.pool_size")
	cfg.Worker.DequeueTimeout = viper.GetDuration("worker.dequeue_timeout")

	// Loop guard
	cfg.LoopGuard.TTL = viper.GetDuration("loop_guard.ttl")

	// OAuth apps
	cfg.OAuth.GitHub.ClientID = viper.GetString("oauth.github.client_id")
	cfg.OAuth.GitHub.ClientSecret = viper.GetString("oauth.github.client_secret")
	cfg.OAuth.GitHub.TokenURL = viper.GetString("oauth.github.token_url")
	cfg.OAuth.Slack.ClientID = viper.GetString("oauth.slack.client_id")
	cfg.OAuth.Slack.ClientSecret = viper.GetString("oauth.slack.client_secret")
	cfg.OAuth.Slack.TokenURL = viper.GetString("oauth.slack.token_url")

	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("environment.name", "development")
	viper.SetDefault("http_server.port", 8080)
	viper.SetDefault("http_server.mode", "debug")
	viper.SetDefault("logger.level", "debug")
	viper.SetDefault("logger.mode", "debug")
	viper.SetDefault("logger.encoding", "console")
	viper.SetDefault("logger.color_enabled", true)

	viper.SetDefault("database.driver", "memory")
	viper.SetDefault("database.dsn", "")

	viper.SetDefault("webhook.rate_limit_per_min", 60)
	viper.SetDefault("webhook.mention", "@agent")

	viper.SetDefault("queue.lease_timeout", "5m")
	viper.SetDefault("queue.reaper_interval", "30s")
	viper.SetDefault("queue.poll_interval", "250ms")

	viper.SetDefault("worker.pool_size", 4)
	viper.SetDefault("worker.dequeue_timeout", "5s")

	viper.SetDefault("loop_guard.ttl", "1h")

	viper.SetDefault("oauth.github.token_url", "https://github.com/login/oauth/access_token")
	viper.SetDefault("oauth.slack.token_url", "https://slack.com/api/oauth.v2.access")
}

func validateDatabase(cfg *DatabaseConfig) error {
	switch cfg.Driver {
	case "memory":
		return nil
	case "sqlite", "postgres":
		if cfg.DSN == "" {
			return fmt.Errorf("database.dsn is required for driver %q", cfg.Driver)
		}
		return nil
	default:
		return fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
