// Package config carga la configuración del servicio desde YAML y la pisa
// con variables de entorno (cargadas previamente con godotenv en main).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env      string `yaml:"env"`
		LogLevel string `yaml:"log_level"`
		// BaseURL se usa para armar links de magic link / verificación / reset.
		BaseURL string `yaml:"base_url"`
	} `yaml:"app"`

	Server struct {
		Addr         string        `yaml:"addr"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		IdleTimeout  time.Duration `yaml:"idle_timeout"`
		// TrustProxyHeaders habilita X-Forwarded-For / X-Forwarded-Host.
		TrustProxyHeaders bool `yaml:"trust_proxy_headers"`
	} `yaml:"server"`

	Storage struct {
		// postgres | memory
		Driver          string `yaml:"driver"`
		DSN             string `yaml:"dsn"`
		MaxConns        int32  `yaml:"max_conns"`
		MinConns        int32  `yaml:"min_conns"`
		ConnectAttempts uint   `yaml:"connect_attempts"`
		AutoMigrate     bool   `yaml:"auto_migrate"`
	} `yaml:"storage"`

	Cache struct {
		// memory | redis
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
		// TenantTTL es el TTL del cache de tenant+schema resuelto.
		TenantTTL time.Duration `yaml:"tenant_ttl"`
	} `yaml:"cache"`

	JWT struct {
		AccessTTL  time.Duration `yaml:"access_ttl"`
		RefreshTTL time.Duration `yaml:"refresh_ttl"`
	} `yaml:"jwt"`

	Security struct {
		// bcrypt | argon2id
		PasswordHasher        string        `yaml:"password_hasher"`
		BcryptCost            int           `yaml:"bcrypt_cost"`
		LockoutThreshold      int           `yaml:"lockout_threshold"`
		OpTimeout             time.Duration `yaml:"op_timeout"`
		PasswordBlacklistPath string        `yaml:"password_blacklist_path"`
		// SecretKey (base64 32 bytes) cifra client secrets en reposo. Vacío = sin cifrado.
		SecretKey string `yaml:"secret_key"`
	} `yaml:"security"`

	Auth struct {
		MagicLinkTTL      time.Duration `yaml:"magic_link_ttl"`
		SMSCodeLength     int           `yaml:"sms_code_length"`
		SMSCodeTTL        time.Duration `yaml:"sms_code_ttl"`
		VerifyTTL         time.Duration `yaml:"verify_ttl"`
		ResetTTL          time.Duration `yaml:"reset_ttl"`
		StateTTL          time.Duration `yaml:"state_ttl"`
		DisplayNamePrefix string        `yaml:"display_name_prefix"`
		// DebugEchoTokens devuelve tokens/códigos en las respuestas HTTP (solo dev).
		DebugEchoTokens bool `yaml:"debug_echo_tokens"`
	} `yaml:"auth"`

	Rate struct {
		Enabled bool          `yaml:"enabled"`
		Limit   int           `yaml:"limit"`
		Window  time.Duration `yaml:"window"`
	} `yaml:"rate"`

	SMTP struct {
		Host      string `yaml:"host"`
		Port      int    `yaml:"port"`
		Username  string `yaml:"username"`
		Password  string `yaml:"password"`
		FromEmail string `yaml:"from"`
		// auto | starttls | ssl | none
		TLS                string `yaml:"tls"`
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	} `yaml:"smtp"`

	SMS struct {
		// log | none
		Driver string `yaml:"driver"`
	} `yaml:"sms"`

	Providers struct {
		// RedirectBaseURL: {base}/v1/auth/social/{provider}/callback
		RedirectBaseURL string        `yaml:"redirect_base_url"`
		HTTPTimeout     time.Duration `yaml:"http_timeout"`
	} `yaml:"providers"`
}

// Default retorna una config con todos los defaults aplicados.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load lee path (si no es vacío), aplica defaults y overrides de entorno.
func Load(path string) (*Config, error) {
	c := &Config{}
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	c.applyEnvOverrides()
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.BaseURL == "" {
		c.App.BaseURL = "http://localhost:8080"
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 120 * time.Second
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.ConnectAttempts == 0 {
		c.Storage.ConnectAttempts = 5
	}

	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "tenantauth:"
	}
	if c.Cache.TenantTTL == 0 {
		c.Cache.TenantTTL = 30 * time.Second
	}

	if c.JWT.AccessTTL == 0 {
		c.JWT.AccessTTL = time.Hour
	}
	if c.JWT.RefreshTTL == 0 {
		c.JWT.RefreshTTL = 7 * 24 * time.Hour
	}

	if c.Security.PasswordHasher == "" {
		c.Security.PasswordHasher = "bcrypt"
	}
	if c.Security.BcryptCost == 0 {
		c.Security.BcryptCost = 10
	}
	if c.Security.LockoutThreshold == 0 {
		c.Security.LockoutThreshold = 5
	}
	if c.Security.OpTimeout == 0 {
		c.Security.OpTimeout = 5 * time.Second
	}

	if c.Auth.MagicLinkTTL == 0 {
		c.Auth.MagicLinkTTL = 24 * time.Hour
	}
	if c.Auth.SMSCodeLength == 0 {
		c.Auth.SMSCodeLength = 6
	}
	if c.Auth.SMSCodeTTL == 0 {
		c.Auth.SMSCodeTTL = 5 * time.Minute
	}
	if c.Auth.VerifyTTL == 0 {
		c.Auth.VerifyTTL = 24 * time.Hour
	}
	if c.Auth.ResetTTL == 0 {
		c.Auth.ResetTTL = time.Hour
	}
	if c.Auth.StateTTL == 0 {
		c.Auth.StateTTL = 10 * time.Minute
	}
	if c.Auth.DisplayNamePrefix == "" {
		c.Auth.DisplayNamePrefix = "user"
	}

	if c.Rate.Limit == 0 {
		c.Rate.Limit = 20
	}
	if c.Rate.Window == 0 {
		c.Rate.Window = time.Minute
	}

	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "auto"
	}
	if c.SMS.Driver == "" {
		c.SMS.Driver = "log"
	}

	if c.Providers.RedirectBaseURL == "" {
		c.Providers.RedirectBaseURL = c.App.BaseURL
	}
	if c.Providers.HTTPTimeout == 0 {
		c.Providers.HTTPTimeout = 10 * time.Second
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}

// applyEnvOverrides pisa el YAML con variables de entorno.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.App.LogLevel = v
	}
	if v, ok := getEnvStr("APP_BASE_URL"); ok {
		c.App.BaseURL = strings.TrimRight(v, "/")
	}

	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvBool("SERVER_TRUST_PROXY_HEADERS"); ok {
		c.Server.TrustProxyHeaders = v
	}

	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvInt("STORAGE_MAX_CONNS"); ok {
		c.Storage.MaxConns = int32(v)
	}
	if v, ok := getEnvBool("STORAGE_AUTO_MIGRATE"); ok {
		c.Storage.AutoMigrate = v
	}

	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}

	if v, ok := getEnvDur("JWT_ACCESS_TTL"); ok {
		c.JWT.AccessTTL = v
	}
	if v, ok := getEnvDur("JWT_REFRESH_TTL"); ok {
		c.JWT.RefreshTTL = v
	}

	if v, ok := getEnvStr("SECURITY_PASSWORD_HASHER"); ok {
		c.Security.PasswordHasher = v
	}
	if v, ok := getEnvInt("SECURITY_BCRYPT_COST"); ok {
		c.Security.BcryptCost = v
	}
	if v, ok := getEnvInt("SECURITY_LOCKOUT_THRESHOLD"); ok {
		c.Security.LockoutThreshold = v
	}
	if v, ok := getEnvDur("SECURITY_OP_TIMEOUT"); ok {
		c.Security.OpTimeout = v
	}
	if v, ok := getEnvStr("SECURITY_PASSWORD_BLACKLIST_PATH"); ok {
		c.Security.PasswordBlacklistPath = v
	}
	if v, ok := getEnvStr("SECURITY_SECRET_KEY"); ok {
		c.Security.SecretKey = v
	}

	if v, ok := getEnvDur("AUTH_MAGIC_LINK_TTL"); ok {
		c.Auth.MagicLinkTTL = v
	}
	if v, ok := getEnvInt("AUTH_SMS_CODE_LENGTH"); ok {
		c.Auth.SMSCodeLength = v
	}
	if v, ok := getEnvDur("AUTH_SMS_CODE_TTL"); ok {
		c.Auth.SMSCodeTTL = v
	}
	if v, ok := getEnvBool("AUTH_DEBUG_ECHO_TOKENS"); ok {
		c.Auth.DebugEchoTokens = v
	}

	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvInt("RATE_LIMIT"); ok {
		c.Rate.Limit = v
	}
	if v, ok := getEnvDur("RATE_WINDOW"); ok {
		c.Rate.Window = v
	}

	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_FROM"); ok {
		c.SMTP.FromEmail = v
	}
	if v, ok := getEnvStr("SMTP_TLS"); ok {
		c.SMTP.TLS = strings.ToLower(v)
	}

	if v, ok := getEnvStr("SMS_DRIVER"); ok {
		c.SMS.Driver = v
	}
	if v, ok := getEnvStr("PROVIDERS_REDIRECT_BASE_URL"); ok {
		c.Providers.RedirectBaseURL = strings.TrimRight(v, "/")
	}

	// En prod nunca se devuelven tokens en respuestas.
	if c.App.Env == "prod" {
		c.Auth.DebugEchoTokens = false
	}
}

// Validate chequea combinaciones inválidas.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("storage.dsn is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q not supported", c.Storage.Driver))
	}
	switch c.Cache.Kind {
	case "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			errs = append(errs, errors.New("cache.redis.addr is required for redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.kind %q not supported", c.Cache.Kind))
	}
	if c.Auth.SMSCodeLength < 4 || c.Auth.SMSCodeLength > 10 {
		errs = append(errs, fmt.Errorf("auth.sms_code_length must be between 4 and 10"))
	}
	if c.Security.LockoutThreshold < 1 {
		errs = append(errs, errors.New("security.lockout_threshold must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
