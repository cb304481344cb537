package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"   validate:"required"`
	Auth       AuthConfig       `mapstructure:"auth"       validate:"required"`
	AWS        AWSConfig        `mapstructure:"aws"        validate:"required"`
	Polly      PollyConfig      `mapstructure:"polly"      validate:"required"`
	Artifacts  ArtifactsConfig  `mapstructure:"artifacts"  validate:"required"`
	Reconciler ReconcilerConfig `mapstructure:"reconciler" validate:"required"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"             validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level"        validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url"            validate:"required,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
}

// AuthConfig contains the bearer token verification settings.
// With PublicKeyPEM set, tokens must be RS256 signed by that key (for example
// the signing key of a Cognito user pool); otherwise they must be HS256
// signed with JWTSecret.
type AuthConfig struct {
	JWTSecret    string `mapstructure:"jwt_secret"     validate:"omitempty,min=32"`
	PublicKeyPEM string `mapstructure:"public_key_pem" validate:"required_without=JWTSecret"`
	Issuer       string `mapstructure:"issuer"`
}

// AWSConfig holds the credentials and region shared by the Polly and S3 clients.
// Empty keys fall back to the SDK's default credential chain.
type AWSConfig struct {
	Region          string `mapstructure:"region"            validate:"required"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Endpoint        string `mapstructure:"endpoint"          validate:"omitempty,url"`
}

// PollyConfig contains the speech synthesis task settings.
type PollyConfig struct {
	OutputBucket    string        `mapstructure:"output_bucket"     validate:"required"`
	OutputKeyPrefix string        `mapstructure:"output_key_prefix"`
	OutputFormat    string        `mapstructure:"output_format"     validate:"required,oneof=mp3 ogg_vorbis pcm json"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"   validate:"gt=0"`
}

// ArtifactsConfig controls the access URLs minted for completed tasks.
type ArtifactsConfig struct {
	URLTTL time.Duration `mapstructure:"url_ttl" validate:"gt=0"`
}

// ReconcilerConfig controls the background reconciliation sweep.
type ReconcilerConfig struct {
	Interval      time.Duration `mapstructure:"interval"        validate:"gt=0"`
	RecordTimeout time.Duration `mapstructure:"record_timeout"  validate:"gt=0"`
	Concurrency   int           `mapstructure:"concurrency"     validate:"gt=0"`
	FullScanEvery int           `mapstructure:"full_scan_every" validate:"gte=0"`
}

// RedisConfig configures the optional pending-task index.
// The index is disabled when Addr is empty.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"       validate:"gte=0"`
	Key      string `mapstructure:"key"`
}

// Enabled reports whether a Redis address is configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// TelemetryConfig controls metric export.
type TelemetryConfig struct {
	MetricsEnabled bool          `mapstructure:"metrics_enabled"`
	ExportInterval time.Duration `mapstructure:"export_interval" validate:"gt=0"`
}
