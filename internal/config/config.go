package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
		// debug | info | warn | error
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Storage struct {
		Driver   string `yaml:"driver"` // postgres | memory
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxConns        int    `yaml:"max_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	JWT struct {
		Issuer     string `yaml:"issuer"`
		SigningKey string `yaml:"signing_key"` // secreto HMAC; en prod va por JWT_SIGNING_KEY
		AccessTTL  string `yaml:"access_ttl"`
		RefreshTTL string `yaml:"refresh_ttl"`
	} `yaml:"jwt"`

	Session struct {
		TTL string `yaml:"ttl"`
	} `yaml:"session"`

	// OTP: configuración por propósito. Ausencia de un propósito => defaults.
	OTP struct {
		Length         int               `yaml:"length"` // default global: 6 dígitos
		MaxAttempts    int               `yaml:"max_attempts"`
		TTL            string            `yaml:"ttl"` // default global
		ResendCooldown string            `yaml:"resend_cooldown"`
		Purposes       map[string]OtpCfg `yaml:"purposes"` // override por propósito
	} `yaml:"otp"`

	// Rate limiting por categoría de endpoint. La clasificación por path la
	// decide el router; acá solo viven capacidad y ventana.
	Rate struct {
		Enabled bool   `yaml:"enabled"`
		Backend string `yaml:"backend"` // memory | redis

		Auth struct {
			Capacity int    `yaml:"capacity"`
			Window   string `yaml:"window"`
		} `yaml:"auth"`
		OTP struct {
			Capacity int    `yaml:"capacity"`
			Window   string `yaml:"window"`
		} `yaml:"otp"`
		General struct {
			Capacity int    `yaml:"capacity"`
			Window   string `yaml:"window"`
		} `yaml:"general"`
	} `yaml:"rate"`

	Security struct {
		PasswordPolicy struct {
			MinLength    int  `yaml:"min_length"`
			RequireUpper bool `yaml:"require_upper"`
			RequireLower bool `yaml:"require_lower"`
			RequireDigit bool `yaml:"require_digit"`
		} `yaml:"password_policy"`
		// Si true, el middleware de auth re-verifica user.IsActive contra el
		// store en cada request (tradeoff latencia vs revocación instantánea).
		RecheckUserStatus bool `yaml:"recheck_user_status"`
	} `yaml:"security"`

	SMTP struct {
		Host               string `yaml:"host"`
		Port               int    `yaml:"port"`
		Username           string `yaml:"username"`
		Password           string `yaml:"password"`
		From               string `yaml:"from"`
		TLS                string `yaml:"tls"`                  // auto | starttls | ssl | none
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify"` // sólo dev
	} `yaml:"smtp"`

	Sweep struct {
		Enabled  bool   `yaml:"enabled"`
		Interval string `yaml:"interval"`
		// Cuánto conservar tokens revocados antes de borrarlos (auditoría).
		RevokedRetention string `yaml:"revoked_retention"`
	} `yaml:"sweep"`
}

// OtpCfg es la configuración de un propósito OTP concreto.
type OtpCfg struct {
	Length      int    `yaml:"length"`
	MaxAttempts int    `yaml:"max_attempts"`
	TTL         string `yaml:"ttl"`
}

func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, err
		}
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Storage.Postgres.MaxConns == 0 {
		c.Storage.Postgres.MaxConns = 10
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == "" {
		c.Cache.Memory.DefaultTTL = "2m"
	}
	if c.JWT.AccessTTL == "" {
		c.JWT.AccessTTL = "15m"
	}
	if c.JWT.RefreshTTL == "" {
		c.JWT.RefreshTTL = "720h" // 30d
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "authcore"
	}
	if c.Session.TTL == "" {
		c.Session.TTL = "720h"
	}
	if c.OTP.Length == 0 {
		c.OTP.Length = 6
	}
	if c.OTP.MaxAttempts == 0 {
		c.OTP.MaxAttempts = 5
	}
	if c.OTP.TTL == "" {
		c.OTP.TTL = "5m"
	}
	if c.OTP.ResendCooldown == "" {
		c.OTP.ResendCooldown = "60s"
	}
	// Rate: auth estricto, otp más estricto, general laxo
	if c.Rate.Backend == "" {
		c.Rate.Backend = "memory"
	}
	if c.Rate.Auth.Capacity == 0 {
		c.Rate.Auth.Capacity = 5
	}
	if c.Rate.Auth.Window == "" {
		c.Rate.Auth.Window = "1m"
	}
	if c.Rate.OTP.Capacity == 0 {
		c.Rate.OTP.Capacity = 3
	}
	if c.Rate.OTP.Window == "" {
		c.Rate.OTP.Window = "1m"
	}
	if c.Rate.General.Capacity == 0 {
		c.Rate.General.Capacity = 100
	}
	if c.Rate.General.Window == "" {
		c.Rate.General.Window = "1m"
	}
	if c.Security.PasswordPolicy.MinLength == 0 {
		c.Security.PasswordPolicy.MinLength = 8
	}
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "auto"
	}
	if c.Sweep.Interval == "" {
		c.Sweep.Interval = "10m"
	}
	if c.Sweep.RevokedRetention == "" {
		c.Sweep.RevokedRetention = "168h" // 7d
	}

	c.applyEnvOverrides()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// ───────── Duraciones parseadas (los strings ya pasaron Validate) ─────────

func (c *Config) AccessTTL() time.Duration  { return mustDur(c.JWT.AccessTTL) }
func (c *Config) RefreshTTL() time.Duration { return mustDur(c.JWT.RefreshTTL) }
func (c *Config) SessionTTL() time.Duration { return mustDur(c.Session.TTL) }

func mustDur(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// ───────── Env overrides ─────────

func getEnvStr(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	v, ok := getEnvStr(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

func getEnvBool(key string) (bool, bool) {
	v, ok := getEnvStr(key)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	return b, err == nil
}

func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = v
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.App.LogLevel = v
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("DATABASE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("JWT_SIGNING_KEY"); ok {
		c.JWT.SigningKey = v
	}
	if v, ok := getEnvStr("JWT_ISSUER"); ok {
		c.JWT.Issuer = v
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
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
}

// Validate verifica coherencia mínima de la configuración.
func (c *Config) Validate() error {
	if c.JWT.SigningKey == "" {
		return fmt.Errorf("config: jwt.signing_key is required (or JWT_SIGNING_KEY)")
	}
	durs := []string{
		c.JWT.AccessTTL, c.JWT.RefreshTTL, c.Session.TTL,
		c.OTP.TTL, c.OTP.ResendCooldown,
		c.Rate.Auth.Window, c.Rate.OTP.Window, c.Rate.General.Window,
		c.Sweep.Interval, c.Sweep.RevokedRetention,
	}
	if c.Storage.Postgres.ConnMaxLifetime != "" {
		durs = append(durs, c.Storage.Postgres.ConnMaxLifetime)
	}
	for _, p := range c.OTP.Purposes {
		if p.TTL != "" {
			durs = append(durs, p.TTL)
		}
	}
	for _, d := range durs {
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("config: invalid duration %q: %w", d, err)
		}
	}
	switch c.Storage.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}
