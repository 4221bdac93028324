package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	S3BucketName   string
	S3PresignTTL   time.Duration

	JWTPrivateKeyPath  string
	JWTPublicKeyPath   string
	JWTExpiry          time.Duration
	JWTIssuer          string
	RefreshTokenExpiry time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	SNSRegion   string
	SNSTopicARN string // empty disables event publishing

	RedisAddr     string // empty falls back to in-process session stores
	RedisPassword string
	RedisDB       int

	OTP      OTPConfig
	Playback PlaybackConfig

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users             string
	Sessions          string
	VerificationCodes string
	Contents          string
	Advertisements    string
}

// OTPConfig tunes the email passcode flow.
type OTPConfig struct {
	Cooldown    time.Duration
	CodeTTL     time.Duration
	MaxAttempts int
	FlowIdleTTL time.Duration
	MailSubject string
}

// PlaybackConfig tunes access decisions and pre-roll ads.
type PlaybackConfig struct {
	MinimumWatch  time.Duration
	AuthRoute     string
	BillingRoute  string
	ContentRoute  string // fmt pattern taking the content id
	AdSessionTTL  time.Duration
	SweepInterval time.Duration
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:             getEnv("DYNAMO_TABLE_USERS", "users"),
			Sessions:          getEnv("DYNAMO_TABLE_SESSIONS", "sessions"),
			VerificationCodes: getEnv("DYNAMO_TABLE_VERIFICATION_CODES", "verification_codes"),
			Contents:          getEnv("DYNAMO_TABLE_CONTENTS", "contents"),
			Advertisements:    getEnv("DYNAMO_TABLE_ADVERTISEMENTS", "advertisements"),
		},
		S3BucketName:       getEnv("S3_BUCKET_NAME", "ad-media"),
		S3PresignTTL:       getEnvDuration("S3_PRESIGN_TTL", 15*time.Minute),
		JWTPrivateKeyPath:  getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:   getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:          time.Duration(getEnvInt("JWT_EXPIRY_DAYS", 7)) * 24 * time.Hour,
		JWTIssuer:          getEnv("JWT_ISSUER", "playback-gate"),
		RefreshTokenExpiry: time.Duration(getEnvInt("REFRESH_TOKEN_EXPIRY_DAYS", 30)) * 24 * time.Hour,
		SMTPHost:           getEnv("SMTP_HOST", "localhost"),
		SMTPPort:           getEnv("SMTP_PORT", "1025"),
		SMTPFrom:           getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername:       getEnv("SMTP_USERNAME", ""),
		SMTPPassword:       getEnv("SMTP_PASSWORD", ""),
		SNSRegion:          getEnv("SNS_REGION", "us-east-1"),
		SNSTopicARN:        getEnv("SNS_TOPIC_ARN", ""),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		OTP: OTPConfig{
			Cooldown:    getEnvDuration("OTP_RESEND_COOLDOWN", 60*time.Second),
			CodeTTL:     getEnvDuration("OTP_CODE_TTL", 15*time.Minute),
			MaxAttempts: getEnvInt("OTP_MAX_ATTEMPTS", 5),
			FlowIdleTTL: getEnvDuration("OTP_FLOW_IDLE_TTL", 30*time.Minute),
			MailSubject: getEnv("OTP_MAIL_SUBJECT", "Your verification code"),
		},
		Playback: PlaybackConfig{
			MinimumWatch:  getEnvDuration("AD_MINIMUM_WATCH", 5*time.Second),
			AuthRoute:     getEnv("ROUTE_AUTH", "/verify"),
			BillingRoute:  getEnv("ROUTE_BILLING", "/subscribe"),
			ContentRoute:  getEnv("ROUTE_CONTENT", "/watch/%s"),
			AdSessionTTL:  getEnvDuration("AD_SESSION_IDLE_TTL", 10*time.Minute),
			SweepInterval: getEnvDuration("REGISTRY_SWEEP_INTERVAL", time.Minute),
		},
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
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

// getEnvDuration accepts Go duration strings ("90s", "5m").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
