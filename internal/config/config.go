package config

import (
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string           `yaml:"env" env-default:"development"` // environment
	HTTPServer HTTPServerConfig `yaml:"http_server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	CORS       CORSConfig       `yaml:"cors"`
	Migrations MigrationsConfig `yaml:"migrations"`
}

// HTTPServerConfig структура http сервера
type HTTPServerConfig struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// DatabaseConfig структура по работе с БД.
// DATABASE_URL, если задан, имеет приоритет над отдельными параметрами.
type DatabaseConfig struct {
	URL      string `yaml:"-" env:"DATABASE_URL"`
	Host     string `yaml:"host" env-default:"localhost"`
	Port     int    `yaml:"port" env-default:"5432"`
	User     string `yaml:"user" env-default:"postgres"`
	Password string `yaml:"-" env:"DB_PASSWORD"`
	Name     string `yaml:"name" env-default:"auth"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
}

// AuthConfig настройки кодов и хэширования паролей
type AuthConfig struct {
	ResetCodeTTL       time.Duration `yaml:"reset_code_ttl" env-default:"15m"`
	PasswordScheme     string        `yaml:"password_scheme" env:"PASSWORD_SCHEME" env-default:"sha256"`
	EnforceResetExpiry bool          `yaml:"enforce_reset_expiry" env-default:"false"`
}

// CORSConfig - срок кэширования preflight-ответа, секунды
type CORSConfig struct {
	MaxAge int `yaml:"max_age" env-default:"86400"`
}

type MigrationsConfig struct {
	Path  string `yaml:"path" env-default:"./migrations"`
	Table string `yaml:"table" env-default:"migrations"`
}

// DSN собирает строку подключения к postgres
func (d DatabaseConfig) DSN() (string, error) {
	if d.URL != "" {
		return d.URL, nil
	}
	if d.Password == "" {
		return "", fmt.Errorf("neither DATABASE_URL nor DB_PASSWORD is set")
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.Name,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String(), nil
}

// MustLoad - если не загружаем - паникуем
func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		log.Fatal("CONFIG_PATH not exists")
	}
	return MustLoadByPath(configPath)
}

func fetchConfigPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	return path
}

func MustLoadByPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file not found: " + configPath)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("can't read config file %s: %v", configPath, err)
	}

	return &cfg
}
