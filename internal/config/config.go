package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// UserAgent is the spoofed desktop user agent sent by launched browsers
const UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/89.0.4389.114 Safari/537.36"

// Config is the root configuration
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Browser    BrowserConfig    `mapstructure:"browser" yaml:"browser"`
	Navigation NavigationConfig `mapstructure:"navigation" yaml:"navigation"`
	Output     OutputConfig     `mapstructure:"output" yaml:"output"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig controls how the browser is launched
type BrowserConfig struct {
	Headless      bool          `mapstructure:"headless" yaml:"headless"`
	Bin           string        `mapstructure:"bin" yaml:"bin"`
	DriverDir     string        `mapstructure:"driver_dir" yaml:"driver_dir"`
	UserAgent     string        `mapstructure:"user_agent" yaml:"user_agent"`
	Lang          string        `mapstructure:"lang" yaml:"lang"`
	UserDataDir   string        `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	NoSandbox     bool          `mapstructure:"no_sandbox" yaml:"no_sandbox"`
	WindowWidth   int           `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight  int           `mapstructure:"window_height" yaml:"window_height"`
	ScriptTimeout time.Duration `mapstructure:"script_timeout" yaml:"script_timeout"`
}

// NavigationConfig holds the defaults for page loads
type NavigationConfig struct {
	Wait       time.Duration `mapstructure:"wait" yaml:"wait"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	CloseAlert bool          `mapstructure:"close_alert" yaml:"close_alert"`
}

// OutputConfig controls where screenshots land
type OutputConfig struct {
	Dir        string `mapstructure:"dir" yaml:"dir"`
	ThumbWidth uint   `mapstructure:"thumb_width" yaml:"thumb_width"`
}

// SetDefaults registers every default on v
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "domlens")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.bin", "")
	v.SetDefault("browser.driver_dir", "")
	v.SetDefault("browser.user_agent", UserAgent)
	v.SetDefault("browser.lang", "de-DE")
	v.SetDefault("browser.user_data_dir", "")
	v.SetDefault("browser.no_sandbox", false)
	v.SetDefault("browser.window_width", 1280)
	v.SetDefault("browser.window_height", 720)
	v.SetDefault("browser.script_timeout", 5*time.Second)

	// -- Navigation --
	v.SetDefault("navigation.wait", 0)
	v.SetDefault("navigation.timeout", 30*time.Second)
	v.SetDefault("navigation.close_alert", false)

	// -- Output --
	v.SetDefault("output.dir", ".")
	v.SetDefault("output.thumb_width", 0)
}

// New builds a viper instance with defaults, the optional config file and
// DOMLENS_* environment overrides.
func New(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("domlens")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("DOMLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return v, nil
}

// Load unmarshals and validates the configuration held by v
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration with nothing but defaults applied
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate checks for values the launcher cannot work with
func (c *Config) Validate() error {
	if c.Browser.WindowWidth <= 0 || c.Browser.WindowHeight <= 0 {
		return fmt.Errorf("browser.window_width and browser.window_height must be positive integers")
	}
	if c.Browser.ScriptTimeout < 0 {
		return fmt.Errorf("browser.script_timeout must not be negative")
	}
	if c.Navigation.Wait < 0 {
		return fmt.Errorf("navigation.wait must not be negative")
	}
	if c.Navigation.Timeout < 0 {
		return fmt.Errorf("navigation.timeout must not be negative")
	}
	switch c.Logger.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logger.format must be console or json, got %q", c.Logger.Format)
	}
	return nil
}
