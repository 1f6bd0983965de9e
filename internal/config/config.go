package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
	Mode    string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Path    string `mapstructure:"path"`
	LogMode bool   `mapstructure:"log_mode"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	Issuer      string `mapstructure:"issuer"`
	ExpireHours int    `mapstructure:"expire_hours"`
	// RefreshDays bounds how long a refresh token stays usable.
	RefreshDays int `mapstructure:"refresh_days"`
}

type SecurityConfig struct {
	BcryptCost    int    `mapstructure:"bcrypt_cost"`
	EncryptionKey string `mapstructure:"encryption_key"`
	MaxFailed     int    `mapstructure:"max_failed_logins"`
	LockMinutes   int    `mapstructure:"lock_minutes"`
}

type LogConfig struct {
	File   string `mapstructure:"file"`
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// BackendConfig describes how the dashboard reaches the data service.
type BackendConfig struct {
	URL     string `mapstructure:"url"`
	AnonKey string `mapstructure:"anon_key"`
}

type ClientConfig struct {
	SessionPath   string        `mapstructure:"session_path"`
	Timeout       time.Duration `mapstructure:"timeout"`
	RefreshMargin time.Duration `mapstructure:"refresh_margin"`
	// BootstrapWait bounds how long the CLI waits for startup provisioning.
	BootstrapWait time.Duration `mapstructure:"bootstrap_wait"`
}

// DemoConfig controls the evaluation account provisioned at startup.
type DemoConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Email      string `mapstructure:"email"`
	Password   string `mapstructure:"password"`
	Name       string `mapstructure:"name"`
	Department string `mapstructure:"department"`
}

type AppSubConfig struct {
	PageSize int `mapstructure:"page_size"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Security SecurityConfig `mapstructure:"security"`
	Log      LogConfig      `mapstructure:"log"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Client   ClientConfig   `mapstructure:"client"`
	Demo     DemoConfig     `mapstructure:"demo"`
	App      AppSubConfig   `mapstructure:"app"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")

	v.SetDefault("database.path", "data/efarina.db")
	v.SetDefault("database.log_mode", false)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "efarina-finance")
	v.SetDefault("jwt.expire_hours", 1)
	v.SetDefault("jwt.refresh_days", 30)

	v.SetDefault("security.bcrypt_cost", 12)
	v.SetDefault("security.encryption_key", "")
	v.SetDefault("security.max_failed_logins", 5)
	v.SetDefault("security.lock_minutes", 10)

	v.SetDefault("log.file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("backend.url", "http://localhost:8080")
	v.SetDefault("backend.anon_key", "")

	v.SetDefault("client.session_path", "data/session.db")
	v.SetDefault("client.timeout", 15*time.Second)
	v.SetDefault("client.refresh_margin", time.Minute)
	v.SetDefault("client.bootstrap_wait", 10*time.Second)

	v.SetDefault("demo.enabled", true)
	v.SetDefault("demo.email", "demo@efarina.tv")
	v.SetDefault("demo.password", "123456")
	v.SetDefault("demo.name", "User Demo")
	v.SetDefault("demo.department", "Demo")

	v.SetDefault("app.page_size", 20)
}

// Load reads configuration from the given file path (e.g. "config.yaml").
// An empty path looks for config.yaml in the working directory; a missing
// default file is not an error, defaults and EFT_* environment variables apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	// environment overrides, e.g. EFT_SERVER_PORT=9000
	v.SetEnvPrefix("EFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// AccessTTL is the lifetime of issued access tokens.
func (c JWTConfig) AccessTTL() time.Duration {
	if c.ExpireHours <= 0 {
		return time.Hour
	}
	return time.Duration(c.ExpireHours) * time.Hour
}

// RefreshTTL is the lifetime of a refresh token and its server session.
func (c JWTConfig) RefreshTTL() time.Duration {
	if c.RefreshDays <= 0 {
		return 30 * 24 * time.Hour
	}
	return time.Duration(c.RefreshDays) * 24 * time.Hour
}
