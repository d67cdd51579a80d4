package cfg

import (
	"flag"
	"fmt"
	"hash/fnv"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/denisbrodbeck/machineid"
	"github.com/rs/zerolog/log"
)

// Version is reported in logs and the webhook User-Agent
const Version = "1.2.0"

// DefaultDatabasePath is where the notification center keeps its database
const DefaultDatabasePath = "~/Library/Group Containers/group.com.apple.usernoted/db2/db"

// Sink types
const (
	SinkStdout  = "stdout"
	SinkWebhook = "webhook"
	SinkKafka   = "kafka"
	SinkNats    = "nats"
)

// Payload formats
const (
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

// SinkConfiguration selects and configures the single delivery target
type SinkConfiguration struct {
	Type       string   `toml:"type"`
	Format     string   `toml:"format"`
	WebhookURL string   `toml:"webhook_url"`
	TimeoutMS  int      `toml:"timeout_ms"` // Per-delivery bound
	Gzip       bool     `toml:"gzip"`       // Compress webhook bodies
	Brokers    []string `toml:"brokers"`
	Topic      string   `toml:"topic"`
	BatchSize  int      `toml:"batch_size"`
	NatsURL    string   `toml:"nats_url"`
	Subject    string   `toml:"subject"`
	FilterApps []string `toml:"filter_apps"` // Glob patterns over bundle IDs
}

// LoggingConfiguration controls logging behavior
type LoggingConfiguration struct {
	Verbose bool   `toml:"verbose"`
	Format  string `toml:"format"` // "console" or "json"
}

// PrometheusConfiguration for metrics
type PrometheusConfiguration struct {
	Enabled bool `toml:"enabled"`
}

// AdminConfiguration for the status HTTP surface
type AdminConfiguration struct {
	Enabled     bool   `toml:"enabled"`
	BindAddress string `toml:"bind_address"`
	Port        int    `toml:"port"`
	Token       string `toml:"token"` // Bearer token for /status and /metrics; empty disables auth
}

// Configuration is the main configuration structure
type Configuration struct {
	InstanceID          uint64 `toml:"instance_id"`
	DatabasePath        string `toml:"database_path"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`

	Sink       SinkConfiguration       `toml:"sink"`
	Logging    LoggingConfiguration    `toml:"logging"`
	Prometheus PrometheusConfiguration `toml:"prometheus"`
	Admin      AdminConfiguration      `toml:"admin"`
}

// Command line flags
var (
	ConfigPathFlag = flag.String("config", "", "Path to configuration file")
	DatabaseFlag   = flag.String("db", "", "Notification database path (overrides config)")
	SinkTypeFlag   = flag.String("sink", "", "Sink type: stdout, webhook, kafka, nats (overrides config)")
	VerboseFlag    = flag.Bool("verbose", false, "Enable debug logging")
)

// Default configuration
var Config = DefaultConfiguration()

// DefaultConfiguration returns a Configuration populated with defaults
func DefaultConfiguration() *Configuration {
	return &Configuration{
		InstanceID:          0, // Auto-generate
		DatabasePath:        DefaultDatabasePath,
		PollIntervalSeconds: 5,

		Sink: SinkConfiguration{
			Type:      SinkStdout,
			Format:    FormatJSON,
			TimeoutMS: 5000,
			BatchSize: 1,
			Topic:     "blurt.notifications",
			Subject:   "blurt.notifications",
		},

		Logging: LoggingConfiguration{
			Verbose: false,
			Format:  "console",
		},

		Prometheus: PrometheusConfiguration{
			Enabled: false,
		},

		Admin: AdminConfiguration{
			Enabled:     false,
			BindAddress: "127.0.0.1",
			Port:        9469,
		},
	}
}

// Load loads configuration from file and applies CLI overrides
func Load(configPath string) error {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			log.Info().Str("path", configPath).Msg("Loading configuration")
			if _, err := toml.DecodeFile(configPath, Config); err != nil {
				return fmt.Errorf("failed to decode config: %w", err)
			}
		} else {
			log.Warn().Str("path", configPath).Msg("Config file not found, using defaults")
		}
	}

	if *DatabaseFlag != "" {
		Config.DatabasePath = *DatabaseFlag
	}
	if *SinkTypeFlag != "" {
		Config.Sink.Type = *SinkTypeFlag
	}
	if *VerboseFlag {
		Config.Logging.Verbose = true
	}

	if Config.InstanceID == 0 {
		var err error
		Config.InstanceID, err = generateInstanceID()
		if err != nil {
			return fmt.Errorf("failed to generate instance ID: %w", err)
		}
		log.Debug().Uint64("instance_id", Config.InstanceID).Msg("Auto-generated instance ID")
	}

	expanded, err := ExpandHome(Config.DatabasePath)
	if err != nil {
		return err
	}
	Config.DatabasePath = expanded

	return nil
}

// ApplyArgs applies positional arguments. A single optional argument is the
// webhook URL; providing it selects webhook delivery.
func ApplyArgs(args []string) error {
	switch len(args) {
	case 0:
		return nil
	case 1:
		Config.Sink.Type = SinkWebhook
		Config.Sink.WebhookURL = args[0]
		return nil
	default:
		return fmt.Errorf("expected at most one argument (webhook URL), got %d", len(args))
	}
}

// ExpandHome expands a leading "~/" using the HOME environment variable
func ExpandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	home := os.Getenv("HOME")
	if home == "" {
		return "", fmt.Errorf("cannot expand %q: HOME is not set", path)
	}

	return filepath.Join(home, path[2:]), nil
}

// generateInstanceID creates a stable instance ID based on machine ID
func generateInstanceID() (uint64, error) {
	id, err := machineid.ProtectedID("blurt")
	if err != nil {
		return 0, err
	}

	h := fnv.New64a()
	h.Write([]byte(id))
	return h.Sum64(), nil
}

// Validate checks configuration for errors
func Validate() error {
	if Config.DatabasePath == "" {
		return fmt.Errorf("database path is required")
	}

	if Config.PollIntervalSeconds < 1 {
		return fmt.Errorf("poll interval must be >= 1 second")
	}

	if err := validateSink(&Config.Sink); err != nil {
		return err
	}

	if Config.Logging.Format != "console" && Config.Logging.Format != "json" {
		return fmt.Errorf("invalid logging format: %s", Config.Logging.Format)
	}

	if Config.Admin.Enabled && (Config.Admin.Port < 1 || Config.Admin.Port > 65535) {
		return fmt.Errorf("invalid admin port: %d", Config.Admin.Port)
	}

	return nil
}

func validateSink(s *SinkConfiguration) error {
	if s.Format != FormatJSON && s.Format != FormatMsgpack {
		return fmt.Errorf("invalid sink format: %s", s.Format)
	}

	if s.TimeoutMS < 1 {
		return fmt.Errorf("sink timeout must be >= 1ms")
	}

	switch s.Type {
	case SinkStdout:
		if s.Format != FormatJSON {
			return fmt.Errorf("stdout sink only supports %s format", FormatJSON)
		}
	case SinkWebhook:
		if s.WebhookURL == "" {
			return fmt.Errorf("webhook sink requires webhook_url")
		}
		u, err := url.Parse(s.WebhookURL)
		if err != nil {
			return fmt.Errorf("invalid webhook URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("webhook URL must be http or https: %s", s.WebhookURL)
		}
		if u.Host == "" {
			return fmt.Errorf("webhook URL has no host: %s", s.WebhookURL)
		}
	case SinkKafka:
		if len(s.Brokers) == 0 {
			return fmt.Errorf("kafka sink requires at least one broker")
		}
		if s.Topic == "" {
			return fmt.Errorf("kafka sink requires topic")
		}
	case SinkNats:
		if s.NatsURL == "" {
			return fmt.Errorf("nats sink requires nats_url")
		}
		if s.Subject == "" {
			return fmt.Errorf("nats sink requires subject")
		}
	default:
		return fmt.Errorf("unknown sink type: %s", s.Type)
	}

	return nil
}
