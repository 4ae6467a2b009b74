package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// ServicesKey is the document key holding the service name -> base URL map.
const ServicesKey = "GLOBAL_URL"

// ErrLoad wraps every failure returned by Load.
var ErrLoad = errors.New("config: load failed")

type RouteConfig struct {
	Prefix  string `mapstructure:"prefix"`
	Service string `mapstructure:"service"`
}

type UpstreamConfig struct {
	Timeout         string `mapstructure:"timeout"`
	ConnectTimeout  string `mapstructure:"connect_timeout"`
	IdleTimeout     string `mapstructure:"idle_timeout"`
	MaxConns        int    `mapstructure:"max_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	FollowRedirects bool   `mapstructure:"follow_redirects"`
}

type CORSConfig struct {
	AllowOrigins     []string `mapstructure:"allow_origins"`
	AllowMethods     []string `mapstructure:"allow_methods"`
	AllowHeaders     []string `mapstructure:"allow_headers"`
	ExposeHeaders    []string `mapstructure:"expose_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type HealthCheckConfig struct {
	Interval string `mapstructure:"interval"`
}

type GatewayConfig struct {
	Routes      []RouteConfig     `mapstructure:"routes"`
	Upstream    UpstreamConfig    `mapstructure:"upstream"`
	CORS        CORSConfig        `mapstructure:"cors"`
	HealthCheck HealthCheckConfig `mapstructure:"health_check"`
}

// Config is the typed view of the configuration document. Services is read
// from the GLOBAL_URL entry with its key case preserved; everything else goes
// through viper and may be overridden from the environment.
type Config struct {
	API         string        `mapstructure:"api"`
	Port        int           `mapstructure:"port"`
	Environment string        `mapstructure:"environment"`
	LogLevel    string        `mapstructure:"log_level"`
	Gateway     GatewayConfig `mapstructure:"gateway"`

	Services map[string]string `mapstructure:"-"`

	document map[string]json.RawMessage
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api", "127.0.0.1")
	v.SetDefault("port", 3014)
	v.SetDefault("environment", EnvDev)
	v.SetDefault("log_level", LogLevelInfo)

	v.SetDefault("gateway.routes", []map[string]any{
		{"prefix": "/data/", "service": "MICROSERVICES_DATA"},
		{"prefix": "/chat/", "service": "MICROSERVICES_CHAT"},
	})

	v.SetDefault("gateway.upstream.timeout", "10s")
	v.SetDefault("gateway.upstream.connect_timeout", "2s")
	v.SetDefault("gateway.upstream.idle_timeout", "30s")
	v.SetDefault("gateway.upstream.max_conns", 200)
	v.SetDefault("gateway.upstream.max_idle_conns", 100)
	v.SetDefault("gateway.upstream.follow_redirects", true)

	v.SetDefault("gateway.cors.allow_origins", []string{"*", "https://2xedbot.site"})
	v.SetDefault("gateway.cors.allow_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("gateway.cors.allow_headers", []string{"*"})
	v.SetDefault("gateway.cors.expose_headers", []string{"set-cookie"})
	v.SetDefault("gateway.cors.allow_credentials", true)
	v.SetDefault("gateway.cors.max_age", 3600)

	v.SetDefault("gateway.health_check.interval", "30s")
}

// Load reads the JSON configuration document at path, or config.json from the
// working directory or ./config when path is empty. A missing or invalid
// document is an error: the gateway cannot route without it.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.SetConfigType("json")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		slog.Error("failed to read config file", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	raw, err := os.ReadFile(v.ConfigFileUsed())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}
	if err := cfg.setDocument(raw); err != nil {
		slog.Error("failed to decode config document", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	return &cfg, nil
}

func (c *Config) setDocument(raw []byte) error {
	doc := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	c.document = doc

	services := make(map[string]string)
	if entry, ok := doc[ServicesKey]; ok {
		if err := json.Unmarshal(entry, &services); err != nil {
			return fmt.Errorf("%s must map service names to URL strings: %w", ServicesKey, err)
		}
	}
	c.Services = services
	return nil
}

// Lookup returns the raw value stored under name at the top level of the
// configuration document. Names are matched exactly.
func (c *Config) Lookup(name string) (json.RawMessage, bool) {
	value, ok := c.document[name]
	return value, ok
}

// Addr is the host:port the gateway listens on.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.API, strconv.Itoa(c.Port))
}

// RequestTimeout bounds one outbound call end to end.
func (u UpstreamConfig) RequestTimeout() time.Duration {
	return mustDuration(u.Timeout)
}

// DialTimeout bounds connection establishment.
func (u UpstreamConfig) DialTimeout() time.Duration {
	return mustDuration(u.ConnectTimeout)
}

// IdleConnTimeout is how long an unused pooled connection is kept.
func (u UpstreamConfig) IdleConnTimeout() time.Duration {
	return mustDuration(u.IdleTimeout)
}

// IntervalDuration is the check period; zero disables checking.
func (h HealthCheckConfig) IntervalDuration() time.Duration {
	return mustDuration(h.Interval)
}

// mustDuration is only used on values that passed Validate.
func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.API,
			validation.Required,
			validation.By(validateHost),
		),
		validation.Field(&c.Port,
			validation.Required,
			validation.Min(1),
			validation.Max(65535),
		),
		validation.Field(&c.Environment,
			validation.Required,
			validation.In(EnvDev, EnvStaging, EnvProd),
		),
		validation.Field(&c.LogLevel,
			validation.Required,
			validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
		),
		validation.Field(&c.Services,
			validation.Required.Error(ServicesKey+" must list at least one service"),
			validation.Each(validation.By(validateServerURL)),
		),
		validation.Field(&c.Gateway,
			validation.Required,
			validation.By(func(value interface{}) error {
				gc, ok := value.(GatewayConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a GatewayConfig")
				}
				return c.validateGateway(&gc)
			}),
		),
	)
}

func (c *Config) validateGateway(gc *GatewayConfig) error {
	return validation.ValidateStruct(gc,
		validation.Field(&gc.Routes,
			validation.Required,
			validation.Length(1, 0),
			validation.Each(validation.By(c.validateRoute)),
		),
		validation.Field(&gc.Upstream,
			validation.Required,
			validation.By(validateUpstream),
		),
		validation.Field(&gc.CORS,
			validation.By(func(value interface{}) error {
				cc, ok := value.(CORSConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a CORSConfig")
				}
				return validation.ValidateStruct(&cc,
					validation.Field(&cc.AllowOrigins, validation.Each(validation.Required)),
					validation.Field(&cc.MaxAge, validation.Min(0)),
				)
			}),
		),
		validation.Field(&gc.HealthCheck,
			validation.By(func(value interface{}) error {
				hc, ok := value.(HealthCheckConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a HealthCheckConfig")
				}
				return validation.ValidateStruct(&hc,
					validation.Field(&hc.Interval,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
	)
}

func (c *Config) validateRoute(value interface{}) error {
	rc, ok := value.(RouteConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a RouteConfig")
	}

	if !strings.HasPrefix(rc.Prefix, "/") || !strings.HasSuffix(rc.Prefix, "/") || len(rc.Prefix) < 2 {
		return validation.NewError("validation_invalid_prefix", "route prefix must start and end with '/'")
	}

	if rc.Service == "" {
		return validation.NewError("validation_empty_service", "route service cannot be empty")
	}

	if _, ok := c.Services[rc.Service]; !ok {
		return validation.NewError("validation_unknown_service",
			fmt.Sprintf("service %q is not defined in %s", rc.Service, ServicesKey))
	}

	return nil
}

func validateUpstream(value interface{}) error {
	uc, ok := value.(UpstreamConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be an UpstreamConfig")
	}

	err := validation.ValidateStruct(&uc,
		validation.Field(&uc.Timeout, validation.Required, validation.By(validateDuration)),
		validation.Field(&uc.ConnectTimeout, validation.Required, validation.By(validateDuration)),
		validation.Field(&uc.IdleTimeout, validation.Required, validation.By(validateDuration)),
		validation.Field(&uc.MaxConns, validation.Required, validation.Min(1)),
		validation.Field(&uc.MaxIdleConns, validation.Min(0)),
	)
	if err != nil {
		return err
	}

	if uc.DialTimeout() >= uc.RequestTimeout() {
		return validation.NewError("validation_invalid_timeouts", "connect_timeout must be shorter than timeout")
	}
	if uc.MaxIdleConns > uc.MaxConns {
		return validation.NewError("validation_invalid_pool", "max_idle_conns cannot exceed max_conns")
	}

	return nil
}

func validateHost(value interface{}) error {
	host, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if err := is.Host.Validate(host); err != nil {
		return validation.NewError("validation_invalid_host", "invalid host")
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}
	if d < 0 {
		return validation.NewError("validation_negative_duration", "duration cannot be negative")
	}

	return nil
}

func validateServerURL(value interface{}) error {
	serverURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if serverURL == "" {
		return validation.NewError("validation_empty_url", "server URL cannot be empty")
	}

	parsedURL, err := url.Parse(serverURL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}
