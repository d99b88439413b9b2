package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Config struct {
	Port           string
	GinMode        string
	MongoURI       string
	MongoDatabase  string
	JWTSecret      string
	TokenTTL       time.Duration
	UploadDir      string
	MaxUploadBytes int64
	CloudinaryURL  string
	CORSOrigins    []string

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	JobSweepSchedule string
}

var defaultOrigins = []string{
	"http://localhost:8080",
	"http://127.0.0.1:8080",
	"http://localhost:5500",
	"http://127.0.0.1:5500",
	"http://localhost:3000",
}

// Load reads .env files (a missing one is fine) and then the environment.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		// godotenv never overrides variables that are already set
		_ = godotenv.Load(f)
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("MONGODB_DATABASE", "networked")
	v.SetDefault("TOKEN_TTL", "24h")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("MAX_UPLOAD_BYTES", 50<<20)
	v.SetDefault("JOB_SWEEP_SCHEDULE", "@every 1h")
	v.SetDefault("VAPID_SUBJECT", "mailto:admin@networked.local")

	cfg := &Config{
		Port:               v.GetString("PORT"),
		GinMode:            v.GetString("GIN_MODE"),
		MongoURI:           v.GetString("MONGODB_URI"),
		MongoDatabase:      v.GetString("MONGODB_DATABASE"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		TokenTTL:           v.GetDuration("TOKEN_TTL"),
		UploadDir:          v.GetString("UPLOAD_DIR"),
		MaxUploadBytes:     v.GetInt64("MAX_UPLOAD_BYTES"),
		CloudinaryURL:      v.GetString("CLOUDINARY_URL"),
		VAPIDPublicKey:     v.GetString("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey:    v.GetString("VAPID_PRIVATE_KEY"),
		VAPIDSubject:       v.GetString("VAPID_SUBJECT"),
		GoogleClientID:     v.GetString("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: v.GetString("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  v.GetString("GOOGLE_REDIRECT_URL"),
		JobSweepSchedule:   v.GetString("JOB_SWEEP_SCHEDULE"),
		CORSOrigins:        splitList(v.GetString("CORS_ORIGINS")),
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = defaultOrigins
	}
	if cfg.TokenTTL <= 0 {
		return nil, errors.Errorf("TOKEN_TTL must be positive, got %q", v.GetString("TOKEN_TTL"))
	}
	return cfg, nil
}

// Validate checks the settings a server cannot start without.
func (c *Config) Validate(needMongo bool) error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if needMongo && c.MongoURI == "" {
		return errors.New("MONGODB_URI must be set")
	}
	return nil
}

func (c *Config) PushEnabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
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
