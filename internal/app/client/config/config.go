package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultServerAddress = "localhost:8080"
	defaultEnv           = "local"
	defaultConfigDir     = ".spratt"
	defaultDaemonAddr    = "127.0.0.1:8765"
)

type Config struct {
	Env             string        `mapstructure:"app_env"`
	ServerAddress   string        `mapstructure:"server_address"`
	EnableTLS       bool          `mapstructure:"enable_tls"`
	ConfigDir       string        `mapstructure:"config_dir"`
	TokenPath       string        `mapstructure:"token_path"`
	StatePath       string        `mapstructure:"state_path"`
	DataPath        string        `mapstructure:"data_path"`
	InboxDir        string        `mapstructure:"inbox_dir"`
	DaemonAddr      string        `mapstructure:"daemon_addr"`
	RetryBudget     int           `mapstructure:"retry_budget"`
	WatchdogTimeout time.Duration `mapstructure:"watchdog_timeout"`
	ResyncInterval  time.Duration `mapstructure:"resync_interval"`
	ProbeInterval   time.Duration `mapstructure:"probe_interval"`
	InboxDebounce   time.Duration `mapstructure:"inbox_debounce"`
}

// MustLoad загружает конфигурацию клиента: .env, переменные окружения, ~/.spratt/config.yaml
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("config error: %v", err))
	}
	return cfg
}

func Load() (*Config, error) {
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = "../.env"
	}
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Printf("failed to load .env: %v\n", err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", defaultEnv)
	v.SetDefault("SERVER_ADDRESS", defaultServerAddress)
	v.SetDefault("ENABLE_TLS", false)
	v.SetDefault("CONFIG_DIR", "")
	v.SetDefault("DAEMON_ADDR", defaultDaemonAddr)
	v.SetDefault("RETRY_BUDGET", 3)
	v.SetDefault("WATCHDOG_TIMEOUT", 30*time.Second)
	v.SetDefault("RESYNC_INTERVAL", 30*time.Second)
	v.SetDefault("PROBE_INTERVAL", 5*time.Second)
	v.SetDefault("INBOX_DEBOUNCE", 2*time.Second)
	v.SetDefault("INBOX_DIR", "")

	configDir := v.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			homeDir = "."
		}
		configDir = filepath.Join(homeDir, defaultConfigDir)
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}

	// необязательный файл настроек рядом с данными
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	inboxDir := v.GetString("INBOX_DIR")
	if inboxDir == "" {
		inboxDir = filepath.Join(configDir, "inbox")
	}

	cfg := &Config{
		Env:             v.GetString("APP_ENV"),
		ServerAddress:   v.GetString("SERVER_ADDRESS"),
		EnableTLS:       v.GetBool("ENABLE_TLS"),
		ConfigDir:       configDir,
		TokenPath:       filepath.Join(configDir, "token"),
		StatePath:       filepath.Join(configDir, "state.json"),
		DataPath:        filepath.Join(configDir, "staging.db"),
		InboxDir:        inboxDir,
		DaemonAddr:      v.GetString("DAEMON_ADDR"),
		RetryBudget:     v.GetInt("RETRY_BUDGET"),
		WatchdogTimeout: v.GetDuration("WATCHDOG_TIMEOUT"),
		ResyncInterval:  v.GetDuration("RESYNC_INTERVAL"),
		ProbeInterval:   v.GetDuration("PROBE_INTERVAL"),
		InboxDebounce:   v.GetDuration("INBOX_DEBOUNCE"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.ServerAddress == "" {
		return fmt.Errorf("server_address must not be empty")
	}
	if c.RetryBudget <= 0 {
		return fmt.Errorf("retry_budget must be positive, got %d", c.RetryBudget)
	}
	if c.WatchdogTimeout <= 0 {
		return fmt.Errorf("watchdog_timeout must be positive")
	}
	return nil
}

// ServerURL базовый адрес сервера со схемой
func (c *Config) ServerURL() string {
	scheme := "http"
	if c.EnableTLS {
		scheme = "https"
	}
	return scheme + "://" + c.ServerAddress
}

func (c *Config) IsProd() bool {
	return c.Env == "prod"
}

func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

func (c *Config) IsLocal() bool {
	return c.Env == "local" || c.Env == ""
}
