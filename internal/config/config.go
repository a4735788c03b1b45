package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the configuration for the application.
type Config struct {
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`

	DB struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"db"`

	// Capability is the external analysis provider workers delegate to.
	Capability struct {
		URL           string        `mapstructure:"url"`
		InvokeTimeout time.Duration `mapstructure:"invoke_timeout"`
		MaxAttempts   int           `mapstructure:"max_attempts"`
		BackoffBase   time.Duration `mapstructure:"backoff_base"`
		BackoffMax    time.Duration `mapstructure:"backoff_max"`
	} `mapstructure:"capability"`

	Pool struct {
		Capacity int `mapstructure:"capacity"`
	} `mapstructure:"pool"`

	Phases struct {
		MaxConcurrentUnits int           `mapstructure:"max_concurrent_units"`
		UnitTimeout        time.Duration `mapstructure:"unit_timeout"`
	} `mapstructure:"phases"`

	Events struct {
		NATSURL string `mapstructure:"nats_url"`
	} `mapstructure:"events"`

	Auth struct {
		OktaDomain    string `mapstructure:"okta_domain"`
		ClientID      string `mapstructure:"client_id"`
		ClientSecret  string `mapstructure:"client_secret"`
		RedirectURL   string `mapstructure:"redirect_url"`
		DevModeBypass bool   `mapstructure:"dev_mode_bypass"`
	} `mapstructure:"auth"`

	TLS struct {
		Enable    bool     `mapstructure:"enable"`
		CertFile  string   `mapstructure:"cert_file"`
		KeyFile   string   `mapstructure:"key_file"`
		Hostnames []string `mapstructure:"hostnames"`
	} `mapstructure:"tls"`
}

// LoadConfig loads the configuration from a file and the environment.
func LoadConfig(path string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	if path != "" {
		viper.SetConfigFile(path)
	}
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Auth.OktaDomain = normalizeIssuer(config.Auth.OktaDomain)

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("log_level", "info")
	viper.SetDefault("db.port", 5432)
	viper.SetDefault("db.sslmode", "disable")
	viper.SetDefault("capability.invoke_timeout", "120s")
	viper.SetDefault("capability.max_attempts", 3)
	viper.SetDefault("capability.backoff_base", "2s")
	viper.SetDefault("capability.backoff_max", "30s")
	viper.SetDefault("pool.capacity", 64)
	viper.SetDefault("phases.max_concurrent_units", 8)
	viper.SetDefault("phases.unit_timeout", "90s")
}

// normalizeIssuer ensures the provided OIDC issuer string is in a
// predictable form. It removes any trailing slash and leaves the scheme and
// path intact, so users can paste the full URL from the provider's admin
// console without worrying about double prefixes.
func normalizeIssuer(input string) string {
	iss := strings.TrimSpace(input)
	if strings.HasSuffix(iss, "/") {
		iss = strings.TrimRight(iss, "/")
	}
	return iss
}
