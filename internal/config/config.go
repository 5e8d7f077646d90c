package config

import "time"

// Config holds the relay server's configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	APIURL            string        `mapstructure:"api_url" yaml:"api_url"`
	APIKey            string        `mapstructure:"api_key" yaml:"api_key"`
	APITimeout        time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
}

// Default returns configuration with reasonable starter defaults. The
// data-API URL and key have no useful defaults and must come from the
// config file or the SHELLO_API_URL / SHELLO_API_KEY environment.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		APITimeout:        60 * time.Second,
		LogLevel:          "info",
	}
}

// Validate reports configuration the server cannot start without.
func (c Config) Validate() error {
	if c.APIURL == "" {
		return errMissingAPIURL
	}
	return nil
}
