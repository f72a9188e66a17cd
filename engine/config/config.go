package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/ini.v1"
)

// Config wraps viper and provides typed accessors.
type Config struct {
	v *viper.Viper
}

// Load reads a config file (INI or any viper-supported format) and prepares
// engine defaults. Environment variables prefixed OSCILLATE_ override keys.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("OSCILLATE")
	v.AutomaticEnv()

	setDefaults(v)

	if strings.EqualFold(filepath.Ext(path), ".ini") {
		if err := loadINI(v, path); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		return &Config{v: v}, nil
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	return &Config{v: v}, nil
}

// Default returns a config holding only the engine defaults.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	return &Config{v: v}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("MaxTranscoders", 4)
	v.SetDefault("IdleTimeoutSec", 300)
	v.SetDefault("AutosaveIntervalSec", 30)
	v.SetDefault("IdleScanIntervalSec", 10)
	v.SetDefault("CrossfadeSec", 3.0)
	v.SetDefault("CacheSize", 200)
	v.SetDefault("MaxQueueSize", 1000)
	v.SetDefault("HistorySize", 50)
	v.SetDefault("DefaultBitrate", 256000)
	v.SetDefault("ReducedBitrate", 128000)
	v.SetDefault("Database", "oscillate.db")
	v.SetDefault("DBMaxOpenConns", 1)
	v.SetDefault("DBMaxIdleConns", 1)
	v.SetDefault("DBConnMaxLifetimeSec", 3600)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFormat", "text")
	v.SetDefault("LogSource", false)
	v.SetDefault("GormLogLevel", "warn")
	v.SetDefault("FFmpegPath", "ffmpeg")
	v.SetDefault("WorkerPoolSize", 4)
	v.SetDefault("EnableResolver", true)
	v.SetDefault("ResolveTimeoutSec", 10)
	v.SetDefault("ResolveRetryMax", 2)
	v.SetDefault("SaveRatePerSec", 1.0)
	v.SetDefault("SaveBurst", 2)
	v.SetDefault("MetricsListen", "")
}

// GetString returns a string value.
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt returns an int value.
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 returns a float64 value.
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool returns a bool value.
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// Set overrides a value; exposed for tests and programmatic embedding.
func (c *Config) Set(key string, value any) {
	c.v.Set(key, value)
}

func loadINI(v *viper.Viper, path string) error {
	cfg, err := ini.Load(path)
	if err != nil {
		return err
	}

	for _, section := range cfg.Sections() {
		for _, key := range section.Keys() {
			v.Set(key.Name(), key.Value())
		}
	}

	return nil
}
