package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/AnyUserName/jpeg2png/internal/profile"
	"github.com/spf13/viper"
)

// Config holds everything a convert run needs.
type Config struct {
	Workers   int           `mapstructure:"workers"`
	OutDir    string        `mapstructure:"out_dir"`
	Profile   string        `mapstructure:"profile"`
	Overwrite bool          `mapstructure:"overwrite"`
	Report    string        `mapstructure:"report"`
	Logging   LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// EnvPrefix is the prefix for environment overrides, e.g. JPEG2PNG_WORKERS.
const EnvPrefix = "JPEG2PNG"

// SetDefaults registers defaults on v.
func SetDefaults(v *viper.Viper) {
	workers := runtime.NumCPU()
	if workers < 1 {
		workers = 1
	}
	v.SetDefault("workers", workers)
	v.SetDefault("out_dir", "")
	v.SetDefault("profile", profile.DefaultName)
	v.SetDefault("overwrite", true)
	v.SetDefault("report", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.json", false)
}

// Load reads configuration into v and decodes it. configFile, when set,
// must exist; otherwise jpeg2png.yaml is looked up in the working
// directory and $HOME/.config/jpeg2png and may be absent.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("jpeg2png")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/jpeg2png")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found is OK, use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	if _, ok := profile.Lookup(c.Profile); !ok {
		return fmt.Errorf("unknown profile %q (available: %s)", c.Profile, strings.Join(profile.Names(), ", "))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	return nil
}
