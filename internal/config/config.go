package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Web           WebConfig
	DB            DBConfig
	LLM           LLMConfig
	Redact        RedactConfig
	History       HistoryConfig
	Gateway       GatewayConfig
	Observability ObservabilityConfig
	Auth          AuthConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type WebConfig struct {
	Address string
}

type DBConfig struct {
	Driver          string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	RawDSN          string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	QueryTimeout    time.Duration
	MaxRows         int
}

type LLMConfig struct {
	Model          string
	BaseURL        string
	APIKey         string
	Temperature    float64
	Timeout        time.Duration
	FewShot        bool
	SchemaInPrompt bool
}

type RedactConfig struct {
	SensitiveFields []string
}

type HistoryConfig struct {
	Path string
}

// GatewayConfig is the client-side view of the execution gateway: where to
// reach it and which credential to present.
type GatewayConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

type AuthConfig struct {
	Required   bool
	StaticKeys string
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("ASKDB_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid ASKDB_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	if err := applyString(lookup, "ASKDB_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_HTTP_ADDR", &cfg.HTTP.Address); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ASKDB_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ASKDB_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ASKDB_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_WEB_ADDR", &cfg.Web.Address); err != nil {
		return Config{}, err
	}

	if err := applyString(lookup, "ASKDB_DB_DRIVER", &cfg.DB.Driver); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DB_HOST", &cfg.DB.Host); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "DB_PORT", &cfg.DB.Port); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DB_USER", &cfg.DB.User); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DB_PASSWORD", &cfg.DB.Password); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DB_NAME", &cfg.DB.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_DB_DSN", &cfg.DB.RawDSN); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "ASKDB_DB_MAX_OPEN_CONNS", &cfg.DB.MaxOpenConns); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "ASKDB_DB_MAX_IDLE_CONNS", &cfg.DB.MaxIdleConns); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ASKDB_DB_CONN_MAX_IDLE_TIME", &cfg.DB.ConnMaxIdleTime); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ASKDB_DB_CONN_MAX_LIFETIME", &cfg.DB.ConnMaxLifetime); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ASKDB_QUERY_TIMEOUT", &cfg.DB.QueryTimeout); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "ASKDB_MAX_ROWS", &cfg.DB.MaxRows); err != nil {
		return Config{}, err
	}

	if err := applyString(lookup, "model_name", &cfg.LLM.Model); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "api_base", &cfg.LLM.BaseURL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "api_key", &cfg.LLM.APIKey); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "ASKDB_LLM_TEMPERATURE", &cfg.LLM.Temperature); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ASKDB_LLM_TIMEOUT", &cfg.LLM.Timeout); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "ASKDB_FEW_SHOT", &cfg.LLM.FewShot); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "ASKDB_SCHEMA_IN_PROMPT", &cfg.LLM.SchemaInPrompt); err != nil {
		return Config{}, err
	}

	if err := applyFieldList(lookup, "SENSITIVE_FIELDS", &cfg.Redact.SensitiveFields); err != nil {
		return Config{}, err
	}

	if err := applyString(lookup, "ASKDB_HISTORY_FILE", &cfg.History.Path); err != nil {
		return Config{}, err
	}

	if err := applyString(lookup, "ASKDB_GATEWAY_URL", &cfg.Gateway.URL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_GATEWAY_API_KEY", &cfg.Gateway.APIKey); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ASKDB_GATEWAY_TIMEOUT", &cfg.Gateway.Timeout); err != nil {
		return Config{}, err
	}

	if err := applyBool(lookup, "ASKDB_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "ASKDB_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "ASKDB_AUTH_REQUIRED", &cfg.Auth.Required); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ASKDB_GATEWAY_API_KEYS", &cfg.Auth.StaticKeys); err != nil {
		return Config{}, err
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	if !isValidDriver(cfg.DB.Driver) {
		return Config{}, fmt.Errorf("invalid ASKDB_DB_DRIVER: %q", cfg.DB.Driver)
	}
	if cfg.DB.Port <= 0 || cfg.DB.Port > 65535 {
		return Config{}, fmt.Errorf("invalid DB_PORT: %d", cfg.DB.Port)
	}
	if cfg.DB.MaxRows <= 0 {
		return Config{}, fmt.Errorf("invalid ASKDB_MAX_ROWS: %d", cfg.DB.MaxRows)
	}
	return cfg, nil
}

// RequireDB reports whether the configuration is sufficient to open the
// target database. The gateway calls this at startup.
func (c Config) RequireDB() error {
	if c.DB.RawDSN != "" {
		return nil
	}
	switch c.DB.Driver {
	case "sqlite", "duckdb":
		if c.DB.Name == "" {
			return fmt.Errorf("DB_NAME is required for driver %q", c.DB.Driver)
		}
	default:
		if c.DB.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}
		if c.DB.User == "" {
			return fmt.Errorf("DB_USER is required")
		}
	}
	return nil
}

// RequireLLM reports whether the configuration carries a usable completion
// endpoint. The terminal and web front ends call this at startup.
func (c Config) RequireLLM() error {
	if c.LLM.Model == "" {
		return fmt.Errorf("model_name is required")
	}
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("api_base is required")
	}
	if _, err := url.Parse(c.LLM.BaseURL); err != nil {
		return fmt.Errorf("invalid api_base: %w", err)
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("api_key is required")
	}
	return nil
}

// DSN assembles the driver-specific connection string, unless ASKDB_DB_DSN
// overrides it outright.
func (c DBConfig) DSN() string {
	if c.RawDSN != "" {
		return c.RawDSN
	}
	switch c.Driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4", c.User, c.Password, c.Host, c.Port, c.Name)
	case "postgres":
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", url.QueryEscape(c.User), url.QueryEscape(c.Password), c.Host, c.Port, c.Name)
	case "sqlite", "duckdb":
		return c.Name
	default:
		return ""
	}
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "askdb"},
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Web: WebConfig{
			Address: ":8090",
		},
		DB: DBConfig{
			Driver:          "mysql",
			Host:            "127.0.0.1",
			Port:            3306,
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: 30 * time.Minute,
			QueryTimeout:    30 * time.Second,
			MaxRows:         200,
		},
		LLM: LLMConfig{
			Model:          "qwen-plus",
			BaseURL:        "https://dashscope.aliyuncs.com/compatible-mode/v1",
			Temperature:    0.1,
			Timeout:        30 * time.Second,
			FewShot:        true,
			SchemaInPrompt: true,
		},
		History: HistoryConfig{
			Path: "askdb-history.jsonl",
		},
		Gateway: GatewayConfig{
			URL:     "http://127.0.0.1:8080",
			Timeout: 45 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
		Auth: AuthConfig{
			Required:   false,
			StaticKeys: "",
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18080"
		cfg.Web.Address = ":18090"
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.Auth.Required = false
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Auth.Required = true
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func isValidDriver(driver string) bool {
	switch driver {
	case "mysql", "postgres", "sqlite", "duckdb":
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

// applyFieldList splits a semicolon-separated value, trimming entries and
// dropping empty ones.
func applyFieldList(lookup LookupFunc, key string, dst *[]string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	fields := make([]string, 0)
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields = append(fields, part)
	}
	*dst = fields
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
