package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        string
	Environment string

	DatabaseURL string
	RedisURL    string

	JWTSecret     string
	JWTIssuer     string
	JWTAccessTTL  time.Duration
	JWTRefreshTTL time.Duration

	RegistrationOTPTTL time.Duration
	LoginOTPTTL        time.Duration
	OTPGrace           time.Duration
	OTPAutoProvision   bool

	DoubtRoomDefaultHours int

	GeminiAPIKey          string
	GeminiModel           string
	GoogleCredentialsJSON string
	GoogleClientID        string

	SupabaseURL    string
	SupabaseKey    string
	SupabaseBucket string
	UploadFolder   string
	MaxUploadBytes int64

	SMTPHost     string
	SMTPPort     string
	SMTPEmail    string
	SMTPPassword string

	CORSOrigins []string

	EventsPublisher string
	KafkaBrokers    []string
	EventsTopic     string
}

// Load reads the process environment. godotenv is expected to have run first.
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		DatabaseURL: getEnv("DATABASE_URL", dsnFromParts()),
		RedisURL:    getEnv("REDIS_URL", ""),

		JWTSecret:     getEnv("JWT_SECRET", "change-me"),
		JWTIssuer:     getEnv("JWT_ISSUER", "gyanguru"),
		JWTAccessTTL:  getEnvDuration("JWT_ACCESS_TTL", time.Hour),
		JWTRefreshTTL: getEnvDuration("JWT_REFRESH_TTL", 30*24*time.Hour),

		RegistrationOTPTTL: getEnvDuration("REGISTRATION_OTP_TTL", 600*time.Second),
		LoginOTPTTL:        getEnvDuration("LOGIN_OTP_TTL", 300*time.Second),
		OTPGrace:           getEnvDuration("OTP_GRACE", time.Hour),
		OTPAutoProvision:   getEnvBool("OTP_AUTO_PROVISION", false),

		DoubtRoomDefaultHours: getEnvInt("DOUBT_ROOM_DEFAULT_HOURS", 2),

		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS_JSON", ""),
		GoogleClientID:        getEnv("GOOGLE_CLIENT_ID", ""),

		SupabaseURL:    getEnv("SUPABASE_URL", ""),
		SupabaseKey:    getEnv("SUPABASE_KEY", ""),
		SupabaseBucket: getEnv("SUPABASE_BUCKET", "uploads"),
		UploadFolder:   getEnv("UPLOAD_FOLDER", "./uploads"),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 100*1024*1024)),

		SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPEmail:    getEnv("SMTP_EMAIL", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		CORSOrigins: getEnvList("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173,http://127.0.0.1:3000"),

		EventsPublisher: getEnv("EVENTS_PUBLISHER", "gochannel"),
		KafkaBrokers:    getEnvList("KAFKA_BROKERS", "localhost:9092"),
		EventsTopic:     getEnv("EVENTS_TOPIC", "gyanguru.events"),
	}
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func dsnFromParts() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=Asia/Kolkata",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", ""),
		getEnv("DB_NAME", "gyanguru"),
		getEnv("DB_PORT", "5432"),
	)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

// getEnvDuration accepts Go durations ("10m") or a bare number of seconds.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func getEnvList(key, fallback string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, fallback), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
