package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                 string        `mapstructure:"PORT"`
	Env                  string        `mapstructure:"ENV"`
	DatabaseURL          string        `mapstructure:"DATABASE_URL"`
	DBMaxConns           int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns           int32         `mapstructure:"DB_MIN_CONNS"`
	DBSchema             string        `mapstructure:"DB_SCHEMA"`
	MigrationsDir        string        `mapstructure:"MIGRATIONS_DIR"`
	CORSOrigins          []string      `mapstructure:"CORS_ORIGINS"`
	JWTSigningKey        string        `mapstructure:"JWT_SIGNING_KEY"`
	JWTIssuer            string        `mapstructure:"JWT_ISSUER"`
	SweepEnabled         bool          `mapstructure:"SWEEP_ENABLED"`
	PatientSweepInterval time.Duration `mapstructure:"PATIENT_SWEEP_INTERVAL"`
	CertSweepInterval    time.Duration `mapstructure:"CERT_SWEEP_INTERVAL"`
	BlobBackend          string        `mapstructure:"BLOB_BACKEND"`
	S3Bucket             string        `mapstructure:"S3_BUCKET"`
	S3Endpoint           string        `mapstructure:"S3_ENDPOINT"`
	SMTPAddr             string        `mapstructure:"SMTP_ADDR"`
	SMTPFrom             string        `mapstructure:"SMTP_FROM"`
	AllowPaidEdit        bool          `mapstructure:"ALLOW_PAID_EDIT"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DB_SCHEMA", "public")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("SWEEP_ENABLED", true)
	v.SetDefault("PATIENT_SWEEP_INTERVAL", "1h")
	v.SetDefault("CERT_SWEEP_INTERVAL", "24h")
	v.SetDefault("BLOB_BACKEND", "memory")
	v.SetDefault("SMTP_FROM", "no-reply@clinic.local")
	v.SetDefault("ALLOW_PAID_EDIT", false)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("DB_SCHEMA")
	v.BindEnv("MIGRATIONS_DIR")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("JWT_SIGNING_KEY")
	v.BindEnv("JWT_ISSUER")
	v.BindEnv("SWEEP_ENABLED")
	v.BindEnv("PATIENT_SWEEP_INTERVAL")
	v.BindEnv("CERT_SWEEP_INTERVAL")
	v.BindEnv("BLOB_BACKEND")
	v.BindEnv("S3_BUCKET")
	v.BindEnv("S3_ENDPOINT")
	v.BindEnv("SMTP_ADDR")
	v.BindEnv("SMTP_FROM")
	v.BindEnv("ALLOW_PAID_EDIT")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() && cfg.JWTSigningKey == "" {
		log.Println("WARNING: ENV=development without JWT_SIGNING_KEY; every request is treated as admin.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSigningKey == "" {
		return fmt.Errorf("JWT_SIGNING_KEY is required when ENV=%q", c.Env)
	}
	if c.JWTSigningKey != "" && len(c.JWTSigningKey) < 32 {
		return fmt.Errorf("JWT_SIGNING_KEY must be at least 32 characters, got %d", len(c.JWTSigningKey))
	}

	switch c.BlobBackend {
	case "memory":
		if c.IsProduction() {
			return fmt.Errorf("BLOB_BACKEND=memory is not allowed in production")
		}
	case "s3":
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when BLOB_BACKEND is \"s3\"")
		}
	default:
		return fmt.Errorf("BLOB_BACKEND must be \"memory\" or \"s3\", got %q", c.BlobBackend)
	}

	if c.PatientSweepInterval <= 0 {
		return fmt.Errorf("PATIENT_SWEEP_INTERVAL must be positive, got %s", c.PatientSweepInterval)
	}
	if c.CertSweepInterval <= 0 {
		return fmt.Errorf("CERT_SWEEP_INTERVAL must be positive, got %s", c.CertSweepInterval)
	}

	return nil
}
