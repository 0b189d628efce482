package config

import (
	"io/fs"
	"strings"

	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const devJWTSecret = "development-only-secret"

// DatabaseConfig holds PostgreSQL settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// JWTConfig holds token verification settings.
type JWTConfig struct {
	Secret string
}

// KafkaConfig holds broker settings.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// PaymentConfig selects the payment authorization gateway.
type PaymentConfig struct {
	Provider string
	Currency string
}

// ServiceConfig holds all configuration for the promo service.
type ServiceConfig struct {
	Port               string
	AppEnv             string
	LogLevel           string
	MigrationsDir      string
	CORSAllowedOrigins []string
	DBConfig           DatabaseConfig
	JWTConfig          JWTConfig
	KafkaConfig        KafkaConfig
	PaymentConfig      PaymentConfig
}

// Load reads configuration from the environment, with an optional .env file
// in the working directory taking lower precedence than real variables.
func Load() (*ServiceConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	if v.GetString("APP_ENV") != "development" && v.GetString("JWT_SECRET") == devJWTSecret {
		return nil, errors.New("JWT_SECRET must be set outside development")
	}

	return &ServiceConfig{
		Port:               servicePort(v),
		AppEnv:             v.GetString("APP_ENV"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		MigrationsDir:      v.GetString("MIGRATIONS_DIR"),
		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		DBConfig:           loadDatabaseConfig(v),
		JWTConfig:          JWTConfig{Secret: v.GetString("JWT_SECRET")},
		KafkaConfig:        loadKafkaConfig(v),
		PaymentConfig: PaymentConfig{
			Provider: v.GetString("PAYMENT_PROVIDER"),
			Currency: strings.ToUpper(v.GetString("PAYMENT_CURRENCY")),
		},
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_PORT", "8084")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "forkline_promo")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("JWT_SECRET", devJWTSecret)
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_GROUP_PREFIX", "forkline-")
	v.SetDefault("PAYMENT_PROVIDER", "mock")
	v.SetDefault("PAYMENT_CURRENCY", "PLN")
}

// servicePort normalizes SERVICE_PORT to the ":port" form http.Server wants.
func servicePort(v *viper.Viper) string {
	port := v.GetString("SERVICE_PORT")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

func loadDatabaseConfig(v *viper.Viper) DatabaseConfig {
	return DatabaseConfig{
		Host:     v.GetString("DB_HOST"),
		Port:     v.GetString("DB_PORT"),
		User:     v.GetString("DB_USER"),
		Password: v.GetString("DB_PASSWORD"),
		DBName:   v.GetString("DB_NAME"),
		SSLMode:  v.GetString("DB_SSLMODE"),
	}
}

func loadKafkaConfig(v *viper.Viper) KafkaConfig {
	return KafkaConfig{
		Brokers:     splitList(v.GetString("KAFKA_BROKERS")),
		GroupPrefix: v.GetString("KAFKA_GROUP_PREFIX"),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
