package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPath = ".env"

	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

type Config struct {
	Env     string
	DB      db
	Server  server
	Storage storage
	Speech  speech
	Worker  worker
	Session session
}

type db struct {
	DatabaseURI string `env:"DATABASE_URI"`
	// Migrations путь к каталогу с миграциями; пусто - встроенные миграции
	Migrations string `env:"MIGRATIONS_PATH"`
}

type server struct {
	RunAddress     string        `env:"RUN_ADDRESS"`
	MaxUploadBytes int64         `env:"MAX_UPLOAD_BYTES"`
	ReadTimeout    time.Duration `env:"READ_TIMEOUT"`
}

type storage struct {
	ObjectsPath string `env:"OBJECTS_PATH"`
}

type speech struct {
	Endpoint string        `env:"SPEECH_ENDPOINT"`
	Key      string        `env:"SPEECH_KEY"`
	Language string        `env:"SPEECH_LANGUAGE"`
	Timeout  time.Duration `env:"SPEECH_TIMEOUT"`
}

type worker struct {
	PollInterval time.Duration `env:"WORKER_POLL_INTERVAL"`
	MaxAttempts  int           `env:"WORKER_MAX_ATTEMPTS"`
}

type session struct {
	TTL time.Duration `env:"SESSION_TTL"`
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	return cfg
}

func Load() (*Config, error) {
	if err := godotenv.Load(envPath); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", EnvLocal)
	v.SetDefault("RUN_ADDRESS", ":8080")
	v.SetDefault("MAX_UPLOAD_BYTES", 50<<20)
	v.SetDefault("READ_TIMEOUT", 2*time.Minute)
	v.SetDefault("OBJECTS_PATH", "./data/objects")
	v.SetDefault("SPEECH_LANGUAGE", "en-AU")
	v.SetDefault("SPEECH_TIMEOUT", 2*time.Minute)
	v.SetDefault("WORKER_POLL_INTERVAL", 10*time.Second)
	v.SetDefault("WORKER_MAX_ATTEMPTS", 3)
	v.SetDefault("SESSION_TTL", 24*time.Hour)

	cfg := &Config{
		Env: v.GetString("APP_ENV"),
		DB: db{
			DatabaseURI: v.GetString("DATABASE_URI"),
			Migrations:  v.GetString("MIGRATIONS_PATH"),
		},
		Server: server{
			RunAddress:     v.GetString("RUN_ADDRESS"),
			MaxUploadBytes: v.GetInt64("MAX_UPLOAD_BYTES"),
			ReadTimeout:    v.GetDuration("READ_TIMEOUT"),
		},
		Storage: storage{ObjectsPath: v.GetString("OBJECTS_PATH")},
		Speech: speech{
			Endpoint: v.GetString("SPEECH_ENDPOINT"),
			Key:      v.GetString("SPEECH_KEY"),
			Language: v.GetString("SPEECH_LANGUAGE"),
			Timeout:  v.GetDuration("SPEECH_TIMEOUT"),
		},
		Worker: worker{
			PollInterval: v.GetDuration("WORKER_POLL_INTERVAL"),
			MaxAttempts:  v.GetInt("WORKER_MAX_ATTEMPTS"),
		},
		Session: session{TTL: v.GetDuration("SESSION_TTL")},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DB.DatabaseURI == "" {
		return fmt.Errorf("DATABASE_URI is required")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if c.Worker.MaxAttempts <= 0 {
		return fmt.Errorf("WORKER_MAX_ATTEMPTS must be positive")
	}
	return nil
}

// SpeechEnabled true, если настроен сервис распознавания речи
func (c *Config) SpeechEnabled() bool {
	return c.Speech.Endpoint != "" && c.Speech.Key != ""
}
