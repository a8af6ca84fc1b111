// Package config loads heartrisk settings from defaults, a YAML file, a .env
// file and HEARTRISK_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "HEARTRISK_"

// ErrEndpointNotConfigured is returned when a command needs the prediction
// endpoint and none was supplied.
var ErrEndpointNotConfigured = errors.New("prediction endpoint is not configured: set HEARTRISK_ENDPOINT, endpoint in the config file, or --endpoint")

// Config holds all runtime settings.
type Config struct {
	Endpoint  string        `yaml:"endpoint" validate:"omitempty,url"`
	Timeout   time.Duration `yaml:"timeout" validate:"gt=0,lte=5m"`
	Listen    string        `yaml:"listen" validate:"required,host_port"`
	RateLimit float64       `yaml:"rate_limit" validate:"gt=0"` // submissions per second per client
	RateBurst int           `yaml:"rate_burst" validate:"gte=1"`
	LogLevel  string        `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat string        `yaml:"log_format" validate:"oneof=text json"`

	MaxSessions int           `yaml:"max_sessions" validate:"gte=1"`
	SessionTTL  time.Duration `yaml:"session_ttl" validate:"gte=1m"`

	TraceEnabled  bool    `yaml:"trace_enabled"`
	OTLPEndpoint  string  `yaml:"otlp_endpoint" validate:"omitempty,host_port"` // collector host:port, gRPC
	TraceInsecure bool    `yaml:"trace_insecure"`
	TraceSample   float64 `yaml:"trace_sample" validate:"gte=0,lte=1"`
}

// Default returns the built-in settings. There is no default endpoint.
func Default() Config {
	return Config{
		Timeout:   30 * time.Second,
		Listen:    "127.0.0.1:8080",
		RateLimit: 1,
		RateBurst: 3,
		LogLevel:  "info",
		LogFormat: "text",

		MaxSessions: 1000,
		SessionTTL:  30 * time.Minute,
		TraceSample: 1,
	}
}

// LoadDotEnv loads variables from the given .env files (".env" if none) into
// the process environment without overriding variables already set. Missing
// files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load builds a Config from defaults, the optional YAML file at path and the
// process environment.
func Load(path string) (Config, error) {
	return LoadWith(path, os.LookupEnv)
}

// LoadWith is Load with an explicit environment lookup.
func LoadWith(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	str("ENDPOINT", &c.Endpoint)
	str("LISTEN", &c.Listen)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)
	str("OTLP_ENDPOINT", &c.OTLPEndpoint)

	boolean := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s%s %q: %w", EnvPrefix, name, v, err))
				return
			}
			*dst = b
		}
	}
	boolean("TRACE_ENABLED", &c.TraceEnabled)
	boolean("TRACE_INSECURE", &c.TraceInsecure)

	if v, ok := lookup(EnvPrefix + "TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %sTIMEOUT %q: %w", EnvPrefix, v, err))
		} else {
			c.Timeout = d
		}
	}
	if v, ok := lookup(EnvPrefix + "RATE_LIMIT"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %sRATE_LIMIT %q: %w", EnvPrefix, v, err))
		} else {
			c.RateLimit = f
		}
	}
	if v, ok := lookup(EnvPrefix + "TRACE_SAMPLE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %sTRACE_SAMPLE %q: %w", EnvPrefix, v, err))
		} else {
			c.TraceSample = f
		}
	}
	if v, ok := lookup(EnvPrefix + "SESSION_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %sSESSION_TTL %q: %w", EnvPrefix, v, err))
		} else {
			c.SessionTTL = d
		}
	}
	if v, ok := lookup(EnvPrefix + "MAX_SESSIONS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %sMAX_SESSIONS %q: %w", EnvPrefix, v, err))
		} else {
			c.MaxSessions = n
		}
	}
	if v, ok := lookup(EnvPrefix + "RATE_BURST"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %sRATE_BURST %q: %w", EnvPrefix, v, err))
		} else {
			c.RateBurst = n
		}
	}
	return errors.Join(errs...)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("host_port", func(fl validator.FieldLevel) bool {
		return validHostPort(fl.Field().String())
	})
	return v
}

// validHostPort accepts host:port with an optional host and a bracketed IPv6
// literal, e.g. ":8080", "localhost:8080", "[::1]:8080".
func validHostPort(addr string) bool {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if strings.ContainsAny(host, " /") {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 0 && n <= 65535
}

// Validate checks every field and joins all problems into one error.
func (c *Config) Validate() error {
	var errs []error
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			errs = append(errs, fmt.Errorf("invalid %s %v (%s %s)", fe.Field(), fe.Value(), fe.Tag(), fe.Param()))
		}
	}
	if c.TraceEnabled && c.OTLPEndpoint == "" {
		errs = append(errs, errors.New("invalid OTLPEndpoint: required when tracing is enabled"))
	}
	return errors.Join(errs...)
}

// RequireEndpoint fails fast when no prediction endpoint is configured.
func (c *Config) RequireEndpoint() error {
	if c.Endpoint == "" {
		return ErrEndpointNotConfigured
	}
	return nil
}
