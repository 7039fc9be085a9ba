// Package config assembles the service configuration from defaults, an
// optional JSON or YAML file, environment variables and command line flags,
// in increasing order of priority.
package config

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/patric-chuzhbe/jobtracker/internal/models"
)

type Config struct {
	RunAddr             string        `json:"server_address" yaml:"server_address" env:"SERVER_ADDRESS" validate:"hostname_port"`
	BaseURL             string        `json:"base_url" yaml:"base_url" env:"BASE_URL" validate:"url"`
	LogLevel            string        `json:"log_level" yaml:"log_level" env:"LOG_LEVEL" validate:"loglevel"`
	DBFileName          string        `json:"file_storage_path" yaml:"file_storage_path" env:"FILE_STORAGE_PATH"`
	DatabaseDSN         string        `json:"database_dsn" yaml:"database_dsn" env:"DATABASE_DSN"`
	DBConnectionTimeout time.Duration `json:"db_connection_timeout" yaml:"db_connection_timeout" env:"DB_CONNECTION_TIMEOUT" validate:"gt=0"`
	MigrationsDir       string        `json:"migrations_dir" yaml:"migrations_dir" env:"MIGRATIONS_DIR" validate:"required"`

	AuthSigningKey string `json:"auth_signing_key" yaml:"auth_signing_key" env:"AUTH_SIGNING_KEY" validate:"required,base64url"`
	AuthIssuer     string `json:"auth_issuer" yaml:"auth_issuer" env:"AUTH_ISSUER"`
	AuthAudience   string `json:"auth_audience" yaml:"auth_audience" env:"AUTH_AUDIENCE"`

	ObjectStorageType string `json:"object_storage_type" yaml:"object_storage_type" env:"OBJECT_STORAGE_TYPE" validate:"oneof=s3 disk"`
	ObjectStorageDir  string `json:"object_storage_dir" yaml:"object_storage_dir" env:"OBJECT_STORAGE_DIR" validate:"required_if=ObjectStorageType disk"`
	S3Bucket          string `json:"s3_bucket" yaml:"s3_bucket" env:"S3_BUCKET" validate:"required_if=ObjectStorageType s3"`
	S3Region          string `json:"s3_region" yaml:"s3_region" env:"S3_REGION"`
	S3Endpoint        string `json:"s3_endpoint" yaml:"s3_endpoint" env:"S3_ENDPOINT" validate:"omitempty,url"`
	S3UsePathStyle    bool   `json:"s3_use_path_style" yaml:"s3_use_path_style" env:"S3_USE_PATH_STYLE"`
	S3AccessKeyID     string `json:"s3_access_key_id" yaml:"s3_access_key_id" env:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `json:"s3_secret_access_key" yaml:"s3_secret_access_key" env:"S3_SECRET_ACCESS_KEY"`

	MaxRequestBodySize int64    `json:"max_request_body_size" yaml:"max_request_body_size" env:"MAX_REQUEST_BODY_SIZE" validate:"gt=0"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	RateLimitRPS       float64  `json:"rate_limit_rps" yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS" validate:"gt=0"`
	RateLimitBurst     int      `json:"rate_limit_burst" yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST" validate:"gt=0"`
	TrustedSubnet      string   `json:"trusted_subnet" yaml:"trusted_subnet" env:"TRUSTED_SUBNET" validate:"omitempty,cidr"`

	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" validate:"gt=0"`

	ConfigFile string `json:"-" yaml:"-" env:"CONFIG"`
}

var defaultConfig = Config{
	RunAddr:             ":8080",
	BaseURL:             "http://localhost:8080",
	LogLevel:            "info",
	DBConnectionTimeout: 10 * time.Second,
	MigrationsDir:       "cmd/jobtracker/migrations",
	ObjectStorageType:   models.ObjectStorageTypeDisk,
	ObjectStorageDir:    "uploads",
	S3Region:            "us-east-1",
	MaxRequestBodySize:  12 << 20,
	CORSAllowedOrigins:  []string{"http://localhost:5173"},
	RateLimitRPS:        20,
	RateLimitBurst:      40,
	ShutdownTimeout:     10 * time.Second,
}

type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

// WithDisableFlagsParsing skips the command line, which tests rely on.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// New builds and validates the configuration. Every source is decoded onto
// the same struct in priority order, so a later source overrides an earlier
// one even with a zero value such as false or an empty string.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("in internal/config/config.go/New(): error while `godotenv.Load()` calling: %w", err)
	}

	givenFlags := map[string]string{}
	if !options.disableFlagsParsing {
		var err error
		givenFlags, err = parseFlags(os.Args[1:])
		if err != nil {
			return nil, err
		}
	}

	configFile, ok := givenFlags[configFileFlag]
	if !ok {
		configFile = os.Getenv("CONFIG")
	}

	values := defaultConfig
	values.CORSAllowedOrigins = append([]string(nil), defaultConfig.CORSAllowedOrigins...)

	if configFile != "" {
		if err := loadFile(configFile, &values); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(&values); err != nil {
		return nil, fmt.Errorf("in internal/config/config.go/New(): error while `env.Parse()` calling: %w", err)
	}

	applyFlags(&values, givenFlags)
	values.ConfigFile = configFile

	if err := values.validate(); err != nil {
		return nil, err
	}

	return &values, nil
}

const configFileFlag = "c"

type flagBinding struct {
	name  string
	usage string
	field func(values *Config) *string
}

var flagBindings = []flagBinding{
	{name: "a", usage: "address and port to run server", field: func(c *Config) *string { return &c.RunAddr }},
	{name: "b", usage: "public base URL used in attachment links", field: func(c *Config) *string { return &c.BaseURL }},
	{name: "l", usage: "logger level", field: func(c *Config) *string { return &c.LogLevel }},
	{name: "f", usage: "JSON file name with database", field: func(c *Config) *string { return &c.DBFileName }},
	{name: "d", usage: "A string with the database connection details", field: func(c *Config) *string { return &c.DatabaseDSN }},
	{name: "o", usage: "object storage backend: s3 or disk", field: func(c *Config) *string { return &c.ObjectStorageType }},
	{name: "t", usage: "CIDR allowed to reach internal endpoints", field: func(c *Config) *string { return &c.TrustedSubnet }},
	{name: configFileFlag, usage: "path to a JSON or YAML config file", field: func(c *Config) *string { return &c.ConfigFile }},
}

// parseFlags returns the flags present on the command line by name.
func parseFlags(args []string) (map[string]string, error) {
	flagSet := flag.NewFlagSet("jobtracker", flag.ContinueOnError)
	for _, binding := range flagBindings {
		flagSet.String(binding.name, "", binding.usage)
	}

	if err := flagSet.Parse(args); err != nil {
		return nil, fmt.Errorf("in internal/config/config.go/parseFlags(): error while `flagSet.Parse()` calling: %w", err)
	}

	given := map[string]string{}
	flagSet.Visit(func(f *flag.Flag) {
		given[f.Name] = f.Value.String()
	})

	return given, nil
}

func applyFlags(values *Config, givenFlags map[string]string) {
	for _, binding := range flagBindings {
		if value, ok := givenFlags[binding.name]; ok {
			*binding.field(values) = value
		}
	}
}

// loadFile decodes a JSON or YAML file over values. Keys missing from the
// file keep their current value.
func loadFile(fileName string, values *Config) error {
	content, err := os.ReadFile(fileName)
	if err != nil {
		return fmt.Errorf("in internal/config/config.go/loadFile(): error while `os.ReadFile()` calling: %w", err)
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(content, values)
	default:
		err = json.Unmarshal(content, values)
	}
	if err != nil {
		return fmt.Errorf("in internal/config/config.go/loadFile(): cannot decode %s: %w", fileName, err)
	}

	return nil
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[value]
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	return validate.Struct(c)
}

// SigningKey decodes the base64url encoded JWT signing key.
func (c *Config) SigningKey() ([]byte, error) {
	return base64.URLEncoding.DecodeString(c.AuthSigningKey)
}

// StorageType reports which user and application store the settings select:
// PostgreSQL when a DSN is given, else a JSON file, else memory.
func (c *Config) StorageType() int {
	switch {
	case c.DatabaseDSN != "":
		return models.StorageTypePostgresql
	case c.DBFileName != "":
		return models.StorageTypeFile
	default:
		return models.StorageTypeMemory
	}
}
