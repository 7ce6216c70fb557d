package config

import (
	"fmt"
	"net/url"

	"github.com/spf13/viper"
)

// Config groups application configuration, read from the environment via
// Viper. godotenv loads configs/.env into the environment first (see main).
type Config struct {
	App  AppConfig
	DB   DBConfig
	HTTP HTTPConfig
	JWT  JWTConfig
	Log  LogConfig
}

// AppConfig holds general application settings.
type AppConfig struct {
	Env  string // development, staging, production
	Name string
}

// DBConfig holds PostgreSQL settings. If DatabaseURL is set it is used as
// the complete connection string.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
}

// HTTPConfig holds server settings.
type HTTPConfig struct {
	Port           string
	AllowedOrigins []string
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret            string
	AccessExpiryHours int
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string
}

// ConnectionString returns the DSN to use: DATABASE_URL when defined,
// otherwise one built from the discrete fields.
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// Load reads configuration from the environment with sane development
// defaults.
func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "shop-admin-api")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "postgres")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("PORT", "8080")
	v.SetDefault("CORS_ORIGINS", []string{"http://localhost:5173", "http://127.0.0.1:5173"})
	v.SetDefault("JWT_ACCESS_EXPIRY_HOURS", 24)
	v.SetDefault("LOG_LEVEL", "info")

	return &Config{
		App: AppConfig{
			Env:  v.GetString("APP_ENV"),
			Name: v.GetString("APP_NAME"),
		},
		DB: DBConfig{
			DatabaseURL: v.GetString("DATABASE_URL"),
			Host:        v.GetString("DB_HOST"),
			Port:        v.GetInt("DB_PORT"),
			User:        v.GetString("DB_USER"),
			Password:    v.GetString("DB_PASSWORD"),
			DBName:      v.GetString("DB_NAME"),
			SSLMode:     v.GetString("DB_SSLMODE"),
		},
		HTTP: HTTPConfig{
			Port:           v.GetString("PORT"),
			AllowedOrigins: v.GetStringSlice("CORS_ORIGINS"),
		},
		JWT: JWTConfig{
			Secret:            v.GetString("JWT_SECRET"),
			AccessExpiryHours: v.GetInt("JWT_ACCESS_EXPIRY_HOURS"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
	}
}
