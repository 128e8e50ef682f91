// Package config resolves process settings from defaults, an optional
// config file, GQLDYN_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g.
// GQLDYN_HTTP_ADDR for http-addr.
const EnvPrefix = "GQLDYN"

// Schema modes.
const (
	SchemaModeStatic     = "static"
	SchemaModePerRequest = "per-request"
)

// Keys.
const (
	KeyCatalog         = "catalog"
	KeyRecords         = "records"
	KeyHTTPAddr        = "http-addr"
	KeyGRPCAddr        = "grpc-addr"
	KeyBasePath        = "base-path"
	KeySchemaMode      = "schema-mode"
	KeyInterface       = "interface"
	KeyListField       = "list-field"
	KeyNATSURL         = "nats-url"
	KeyIngest          = "ingest"
	KeyS3Region        = "s3-region"
	KeyS3Endpoint      = "s3-endpoint"
	KeyLogLevel        = "log-level"
	KeyLogFormat       = "log-format"
	KeyShutdownTimeout = "shutdown-timeout"
)

// Config holds resolved settings.
type Config struct {
	Catalog         string        // catalog file or CUE directory; empty for the built-in catalog
	Records         string        // snapshot to seed the store from
	HTTPAddr        string        // empty disables HTTP
	GRPCAddr        string        // empty disables gRPC
	BasePath        string        // REST base path
	SchemaMode      string        // static | per-request
	Interface       string        // name of the shared interface
	ListField       string        // name of the query list field
	NATSURL         string        // empty disables events
	Ingest          bool          // consume the ingest topic
	S3Region        string        // region for s3:// record sources
	S3Endpoint      string        // custom endpoint (MinIO and similar)
	LogLevel        string        // debug | info | warn | error
	LogFormat       string        // text | json
	ShutdownTimeout time.Duration // graceful shutdown budget
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyHTTPAddr, "127.0.0.1:8080")
	v.SetDefault(KeyGRPCAddr, "127.0.0.1:9090")
	v.SetDefault(KeyBasePath, "/v1")
	v.SetDefault(KeySchemaMode, SchemaModeStatic)
	v.SetDefault(KeyInterface, "Animal")
	v.SetDefault(KeyListField, "animals")
	v.SetDefault(KeyS3Region, "us-east-1")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyShutdownTimeout, 5*time.Second)
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds every flag of fs whose name is a known key.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		if !isKey(f.Name) {
			return
		}
		if err := v.BindPFlag(f.Name, f); err != nil {
			errs = append(errs, fmt.Errorf("bind flag %s: %w", f.Name, err))
		}
	})
	return errors.Join(errs...)
}

// Load reads file (if non-empty) into v and resolves a Config.
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	cfg := Config{
		Catalog:         v.GetString(KeyCatalog),
		Records:         v.GetString(KeyRecords),
		HTTPAddr:        v.GetString(KeyHTTPAddr),
		GRPCAddr:        v.GetString(KeyGRPCAddr),
		BasePath:        v.GetString(KeyBasePath),
		SchemaMode:      v.GetString(KeySchemaMode),
		Interface:       v.GetString(KeyInterface),
		ListField:       v.GetString(KeyListField),
		NATSURL:         v.GetString(KeyNATSURL),
		Ingest:          v.GetBool(KeyIngest),
		S3Region:        v.GetString(KeyS3Region),
		S3Endpoint:      v.GetString(KeyS3Endpoint),
		LogLevel:        v.GetString(KeyLogLevel),
		LogFormat:       v.GetString(KeyLogFormat),
		ShutdownTimeout: v.GetDuration(KeyShutdownTimeout),
	}
	return cfg, cfg.Validate()
}

// Validate checks enumerated settings and their combinations.
func (c Config) Validate() error {
	switch c.SchemaMode {
	case SchemaModeStatic, SchemaModePerRequest:
	default:
		return fmt.Errorf("invalid %s %q: must be %s or %s", KeySchemaMode, c.SchemaMode, SchemaModeStatic, SchemaModePerRequest)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid %s %q: must be text or json", KeyLogFormat, c.LogFormat)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Ingest && c.NATSURL == "" {
		return fmt.Errorf("%s requires %s", KeyIngest, KeyNATSURL)
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("invalid %s %s", KeyShutdownTimeout, c.ShutdownTimeout)
	}
	return nil
}

func isKey(name string) bool {
	switch name {
	case KeyCatalog, KeyRecords, KeyHTTPAddr, KeyGRPCAddr, KeyBasePath, KeySchemaMode,
		KeyInterface, KeyListField, KeyNATSURL, KeyIngest, KeyS3Region, KeyS3Endpoint,
		KeyLogLevel, KeyLogFormat, KeyShutdownTimeout:
		return true
	}
	return false
}
