package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders the GORM/pgx connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// TranzakConfig holds payment gateway credentials.
type TranzakConfig struct {
	APIURL string
	AppID  string
	AppKey string
}

// QueueConfig holds RabbitMQ settings for the domain-event consumer.
type QueueConfig struct {
	URL      string
	Exchange string
	Queue    string
}

// ServiceConfig holds all configuration for the payment service.
type ServiceConfig struct {
	Port                string
	AppEnv              string
	DBConfig            DatabaseConfig
	JWTSecret           string
	QueueConfig         QueueConfig
	KafkaBrokers        []string
	TranzakConfig       TranzakConfig
	FrontendURL         string
	CurrencyCode        string
	BookingLeadTimeMins int
}

// Load reads configuration from environment variables (with optional .env
// file) and returns a ServiceConfig.
func Load() (*ServiceConfig, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	// A missing .env file is fine; the environment still wins.
	_ = v.ReadInConfig()
	v.AutomaticEnv()

	v.SetDefault("SERVICE_PORT", ":8084")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("RABBITMQ_EXCHANGE", "docta-exchange")
	v.SetDefault("RABBITMQ_QUEUE", "payment-queue")
	v.SetDefault("KAFKA_BROKERS", []string{"localhost:9092"})
	v.SetDefault("CURRENCY_CODE", "XAF")
	v.SetDefault("BOOKING_LEAD_TIME_MINS", 30)

	cfg := &ServiceConfig{
		Port:   v.GetString("SERVICE_PORT"),
		AppEnv: v.GetString("APP_ENV"),
		DBConfig: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSL_MODE"),
		},
		JWTSecret: v.GetString("JWT_SECRET"),
		QueueConfig: QueueConfig{
			URL:      v.GetString("RABBITMQ_URL"),
			Exchange: v.GetString("RABBITMQ_EXCHANGE"),
			Queue:    v.GetString("RABBITMQ_QUEUE"),
		},
		KafkaBrokers: v.GetStringSlice("KAFKA_BROKERS"),
		TranzakConfig: TranzakConfig{
			APIURL: v.GetString("TRANZAK_API_URL"),
			AppID:  v.GetString("TRANZAK_API_KEY"),
			AppKey: v.GetString("TRANZAK_API_SECRET"),
		},
		FrontendURL:         v.GetString("FRONT_END_URL"),
		CurrencyCode:        v.GetString("CURRENCY_CODE"),
		BookingLeadTimeMins: v.GetInt("BOOKING_LEAD_TIME_MINS"),
	}

	if cfg.DBConfig.DBName == "" {
		return nil, fmt.Errorf("DB_NAME is required")
	}
	if cfg.QueueConfig.URL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required")
	}
	if cfg.TranzakConfig.APIURL == "" {
		return nil, fmt.Errorf("TRANZAK_API_URL is required")
	}

	return cfg, nil
}
