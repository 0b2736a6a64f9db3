package config

import "time"

// Config holds gateway configuration values.
type Config struct {
	ListenAddr      string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	HTTPAddr        string        `mapstructure:"http_addr" yaml:"http_addr"`
	ServerName      string        `mapstructure:"server_name" yaml:"server_name"`
	UserHost        string        `mapstructure:"user_host" yaml:"user_host"`
	APIBaseURL      string        `mapstructure:"api_base_url" yaml:"api_base_url"`
	PollInterval    time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	LookbackWindow  time.Duration `mapstructure:"lookback_window" yaml:"lookback_window"`
	SelfSentTTL     time.Duration `mapstructure:"self_sent_ttl" yaml:"self_sent_ttl"`
	SendRate        float64       `mapstructure:"send_rate" yaml:"send_rate"`
	SendBurst       int           `mapstructure:"send_burst" yaml:"send_burst"`
	MaxLineLength   int           `mapstructure:"max_line_length" yaml:"max_line_length"`
	LogLevel        string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat       string        `mapstructure:"log_format" yaml:"log_format"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		ListenAddr:      ":6667",
		HTTPAddr:        ":8080",
		ServerName:      "hmirc.local",
		UserHost:        "hackmud.trustnet",
		APIBaseURL:      "https://www.hackmud.com/mobile",
		PollInterval:    time.Second,
		LookbackWindow:  5 * time.Minute,
		SelfSentTTL:     30 * time.Minute,
		SendRate:        2,
		SendBurst:       5,
		MaxLineLength:   8192,
		LogLevel:        "info",
		LogFormat:       "console",
		ShutdownTimeout: 5 * time.Second,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.ListenAddr != "" {
		c.ListenAddr = other.ListenAddr
	}
	if other.HTTPAddr != "" {
		c.HTTPAddr = other.HTTPAddr
	}
	if other.ServerName != "" {
		c.ServerName = other.ServerName
	}
	if other.UserHost != "" {
		c.UserHost = other.UserHost
	}
	if other.APIBaseURL != "" {
		c.APIBaseURL = other.APIBaseURL
	}
	if other.PollInterval != 0 {
		c.PollInterval = other.PollInterval
	}
	if other.LookbackWindow != 0 {
		c.LookbackWindow = other.LookbackWindow
	}
	if other.SelfSentTTL != 0 {
		c.SelfSentTTL = other.SelfSentTTL
	}
	if other.SendRate != 0 {
		c.SendRate = other.SendRate
	}
	if other.SendBurst != 0 {
		c.SendBurst = other.SendBurst
	}
	if other.MaxLineLength != 0 {
		c.MaxLineLength = other.MaxLineLength
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
}

// Validate reports settings the gateway cannot run with.
func (c Config) Validate() error {
	switch {
	case c.ListenAddr == "":
		return errMissing("listen_addr")
	case c.APIBaseURL == "":
		return errMissing("api_base_url")
	case c.ServerName == "":
		return errMissing("server_name")
	case c.PollInterval <= 0:
		return errInvalid("poll_interval", "must be positive")
	case c.LookbackWindow <= 0:
		return errInvalid("lookback_window", "must be positive")
	case c.SendRate < 0:
		return errInvalid("send_rate", "must not be negative")
	}
	return nil
}
