package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Member identifier strategies accepted by MEMBER_ID_STRATEGY.
const (
	StrategyCounter = "counter"
	StrategyRandom  = "random"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort    string
	AppEnv     string
	AppBaseURL string // used to build verification links

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	MemberIDStrategy string
	MemberIDPrefix   string
	MemberIDWidth    int

	VerificationTokenTTL time.Duration
	PasswordResetTTL     time.Duration

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	SNSRegion     string
	AlertTopicARN string // empty disables SNS alerts

	AllowedOrigins []string // CORS allowed origins

	LogLevel string
	LogFile  string // empty logs to stderr only
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Members            string
	MemberKeys         string
	VerificationTokens string
	Counters           string
	Credentials        string
	PasswordResets     string
	Contacts           string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:    getEnv("APP_PORT", "3000"),
		AppEnv:     getEnv("APP_ENV", "development"),
		AppBaseURL: strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:3000"), "/"),

		AWSRegion:      getEnv("AWS_REGION", "ap-northeast-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Members:            getEnv("DYNAMO_TABLE_MEMBERS", "members"),
			MemberKeys:         getEnv("DYNAMO_TABLE_MEMBER_KEYS", "member_keys"),
			VerificationTokens: getEnv("DYNAMO_TABLE_VERIFICATION_TOKENS", "email_verification_tokens"),
			Counters:           getEnv("DYNAMO_TABLE_COUNTERS", "counters"),
			Credentials:        getEnv("DYNAMO_TABLE_CREDENTIALS", "credentials"),
			PasswordResets:     getEnv("DYNAMO_TABLE_PASSWORD_RESETS", "password_reset_tokens"),
			Contacts:           getEnv("DYNAMO_TABLE_CONTACTS", "contacts"),
		},

		MemberIDStrategy: strings.ToLower(getEnv("MEMBER_ID_STRATEGY", StrategyCounter)),
		MemberIDPrefix:   getEnv("MEMBER_ID_PREFIX", "JTA"),
		MemberIDWidth:    getEnvInt("MEMBER_ID_WIDTH", 8),

		VerificationTokenTTL: getEnvDuration("VERIFICATION_TOKEN_TTL", 24*time.Hour),
		PasswordResetTTL:     getEnvDuration("PASSWORD_RESET_TTL", time.Hour),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         getEnvDuration("JWT_EXPIRY", 5*24*time.Hour),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		SNSRegion:     getEnv("SNS_REGION", "ap-northeast-1"),
		AlertTopicARN: getEnv("ALERT_TOPIC_ARN", ""),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
	}
}

// IsProduction reports whether the service runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
