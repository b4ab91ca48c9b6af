// Package config loads gateway configuration from a YAML file with
// environment overrides. The file path comes from BRAGI_CONFIG and
// defaults to /etc/bragi/config.yaml; a missing file is fine as long as
// the required values arrive through the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultConfigPath = "/etc/bragi/config.yaml"

type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	LogLevel       string        `mapstructure:"log_level"`
	MaxFileSize    string        `mapstructure:"max_file_size"`
	ShutdownGrace  time.Duration `mapstructure:"shutdown_grace"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`
}

// ModelConfig describes one model to load at startup. The map key in
// Config.Models is the serving alias clients use.
type ModelConfig struct {
	Repo        string `mapstructure:"repo"`
	Device      string `mapstructure:"device"`
	ComputeType string `mapstructure:"compute_type"`
	// Endpoint points HTTP-backed adapters at their inference engine.
	Endpoint string `mapstructure:"endpoint"`
	// BinaryPath overrides the executable for subprocess adapters.
	BinaryPath string `mapstructure:"binary_path"`
}

type Config struct {
	Server        ServerConfig           `mapstructure:"server"`
	Device        string                 `mapstructure:"device"`
	Models        map[string]ModelConfig `mapstructure:"models"`
	DatabaseURL   string                 `mapstructure:"database_url"`
	VoiceAudioDir string                 `mapstructure:"voice_audio_dir"`
}

// MaxFileSizeBytes resolves the configured upload cap. Load has already
// validated the string, so this never fails after startup.
func (c *Config) MaxFileSizeBytes() int64 {
	n, _ := ParseFileSize(c.Server.MaxFileSize)
	return n
}

func Load() (*Config, error) {
	path := os.Getenv("BRAGI_CONFIG")
	if path == "" {
		path = defaultConfigPath
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.max_file_size", "25MB")
	v.SetDefault("server.shutdown_grace", 10*time.Second)
	v.SetDefault("server.rate_limit_rps", 10.0)
	v.SetDefault("server.rate_limit_burst", 20)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("device", "auto")
	v.SetDefault("voice_audio_dir", "/var/lib/bragi/voices")

	// Flat env names kept short; nested keys bound explicitly.
	for env, key := range map[string]string{
		"BRAGI_HOST":            "server.host",
		"BRAGI_PORT":            "server.port",
		"BRAGI_LOG_LEVEL":       "server.log_level",
		"BRAGI_MAX_FILE_SIZE":   "server.max_file_size",
		"BRAGI_DEVICE":          "device",
		"BRAGI_DATABASE_URL":    "database_url",
		"BRAGI_VOICE_AUDIO_DIR": "voice_audio_dir",
	} {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("config: bind %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("config: database_url is required")
	}
	if _, err := ParseFileSize(c.Server.MaxFileSize); err != nil {
		return err
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Server.Port)
	}
	for alias, m := range c.Models {
		if m.Repo == "" {
			return fmt.Errorf("config: model %q has no repo", alias)
		}
	}
	return nil
}

var sizePattern = regexp.MustCompile(`(?i)^\s*(\d+(?:\.\d+)?)\s*(B|KB|MB|GB|TB)\s*$`)

var sizeUnits = map[string]int64{
	"B":  1,
	"KB": 1 << 10,
	"MB": 1 << 20,
	"GB": 1 << 30,
	"TB": 1 << 40,
}

// ParseFileSize turns strings like "25MB" or "1.5 GB" into bytes.
func ParseFileSize(s string) (int64, error) {
	m := sizePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("config: invalid file size %q", s)
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("config: invalid file size %q", s)
	}
	return int64(value * float64(sizeUnits[strings.ToUpper(m[2])])), nil
}
