package config

import (
	"strings"
	"time"

	"github.com/mindsettler/service-booking/internal/platform/config"
)

// ServiceConfig holds all configuration for the booking service.
type ServiceConfig struct {
	Port        string
	AppEnv      string
	DBConfig    config.DatabaseConfig
	JWTConfig   config.JWTConfig
	KafkaConfig config.KafkaConfig
	RedisConfig config.RedisConfig
	SMTPConfig  config.SMTPConfig

	// FrontendURL is the base for links sent in emails.
	FrontendURL string
	// CORSOrigins lists allowed browser origins.
	CORSOrigins []string
	// VerificationResendWindow throttles verification emails per booking.
	VerificationResendWindow time.Duration
	// StatusEmailWindow throttles status lookups by email per address.
	StatusEmailWindow time.Duration
}

// Load reads configuration from environment variables.
func Load() (*ServiceConfig, error) {
	v, err := config.Load("BOOKING")
	if err != nil {
		return nil, err
	}
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("CORS_ORIGINS", "*")

	var origins []string
	for _, o := range strings.Split(v.GetString("CORS_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return &ServiceConfig{
		Port:                     config.GetServicePort(v, "SERVICE_PORT"),
		AppEnv:                   config.GetAppEnv(v),
		DBConfig:                 config.LoadDatabaseConfig(v, "DB_NAME"),
		JWTConfig:                config.LoadJWTConfig(v),
		KafkaConfig:              config.LoadKafkaConfig(v),
		RedisConfig:              config.LoadRedisConfig(v),
		SMTPConfig:               config.LoadSMTPConfig(v),
		FrontendURL:              strings.TrimRight(v.GetString("FRONTEND_URL"), "/"),
		CORSOrigins:              origins,
		VerificationResendWindow: config.GetDuration(v, "VERIFICATION_RESEND_WINDOW", 60*time.Second),
		StatusEmailWindow:        config.GetDuration(v, "STATUS_EMAIL_WINDOW", 60*time.Second),
	}, nil
}
