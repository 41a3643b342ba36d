package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/viper"
)

// Config holds the full application configuration.
type Config struct {
	App     AppConfig      `json:"app"`
	Sources []SourceConfig `json:"sources"` // board sources to scan
	Sectors []SectorConfig `json:"sectors"` // category pages to scan
	Filter  FilterConfig   `json:"filter"`
	Browser BrowserConfig  `json:"browser"`
	Cookies []CookieConfig `json:"cookies"` // authenticated session, supplied externally
	MySQL   MySQLConfig    `json:"mysql"`
	Redis   RedisConfig    `json:"redis"`
	Email   EmailConfig    `json:"email"`
}

// AppConfig holds engine-wide settings.
type AppConfig struct {
	Env                string        `json:"env"`                  // local / prod
	LogLevel           string        `json:"log_level"`            // debug / info / warn / error
	HTTPAddr           string        `json:"http_addr"`            // control API listen address
	MetricsAddr        string        `json:"metrics_addr"`         // prometheus listen address
	CycleDelay         time.Duration `json:"cycle_delay"`          // pause between scan cycles
	MaxDissectAttempts int           `json:"max_dissect_attempts"` // attempts per link before terminal failure
	HistoryCap         int           `json:"history_cap"`          // bounded extracted-link history
	RateLimit          float64       `json:"rate_limit"`           // navigations per second
	RateBurst          float64       `json:"rate_burst"`           // token bucket capacity
	DedupWindow        int           `json:"dedup_window"`         // URL dedup window in seconds
	PaymentPassword    string        `json:"payment_password"`     // empty disables purchase attempts
	NotifyEmail        string        `json:"notify_email"`         // deal notification recipient
}

// SourceConfig is one community board to scan for keyword-matching posts.
type SourceConfig struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	ListURL string `json:"list_url"`
	Keyword string `json:"keyword"`
	Enabled bool   `json:"enabled"`
}

// SectorConfig is one commerce category page to scan directly.
type SectorConfig struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CategoryURL string `json:"category_url"`
	Enabled     bool   `json:"enabled"`
}

// FilterConfig decides which scanned products count as deals.
type FilterConfig struct {
	MinPrice           int64    `json:"min_price"`
	TargetDiscountRate int      `json:"target_discount_rate"`
	ExcludeKeywords    []string `json:"exclude_keywords"`
}

// BrowserConfig controls how the page driver is acquired and used.
type BrowserConfig struct {
	DebugURL    string        `json:"debug_url"` // remote debugging base URL; empty launches locally
	BinPath     string        `json:"bin_path"`
	Headless    bool          `json:"headless"`
	PageTimeout time.Duration `json:"page_timeout"` // per-navigation budget
	SettleDelay time.Duration `json:"settle_delay"` // wait after DOMContentLoaded
}

// CookieConfig is one session cookie injected into the browser.
type CookieConfig struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain"`
}

// MySQLConfig holds the trade-log database connection string.
type MySQLConfig struct {
	DSN string `json:"dsn"`
}

// RedisConfig holds the dedup/rate-limit backing store address.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
}

// EmailConfig holds SMTP settings for deal notifications.
type EmailConfig struct {
	SMTPHost  string `json:"smtp_host"`
	SMTPPort  int    `json:"smtp_port"`
	SMTPUser  string `json:"smtp_user"`
	SMTPPass  string `json:"smtp_pass"`
	FromEmail string `json:"from_email"`
}

// Load reads configuration from a JSON file, falling back to defaults
// when the file does not exist. Environment variables win over both.
func Load(configPath ...string) (*Config, error) {
	path := "configs/config.json"
	if len(configPath) > 0 && configPath[0] != "" {
		path = configPath[0]
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := getDefaultConfig()
		applyEnvOverrides(cfg)
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// LoadOrDefault loads configuration and falls back to defaults on error.
func LoadOrDefault(configPath ...string) *Config {
	cfg, err := Load(configPath...)
	if err != nil {
		fallback := getDefaultConfig()
		applyEnvOverrides(fallback)
		return fallback
	}
	return cfg
}

// Default returns the built-in configuration without reading any file
// or environment.
func Default() *Config {
	return getDefaultConfig()
}

// Save writes the configuration back to a JSON file.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

func getDefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Env:                "local",
			LogLevel:           "info",
			HTTPAddr:           ":8082",
			MetricsAddr:        ":9102",
			CycleDelay:         15 * time.Second,
			MaxDissectAttempts: 5,
			HistoryCap:         200,
			RateLimit:          1,
			RateBurst:          2,
			DedupWindow:        3600,
		},
		Filter: FilterConfig{
			MinPrice:           100000,
			TargetDiscountRate: 50,
		},
		Browser: BrowserConfig{
			DebugURL:    "",
			BinPath:     "",
			Headless:    true,
			PageTimeout: 20 * time.Second,
			SettleDelay: 2 * time.Second,
		},
		MySQL: MySQLConfig{
			DSN: "root:password@tcp(localhost:3306)/catchdeal?parseTime=true&loc=Local",
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
		},
		Email: EmailConfig{
			SMTPHost:  "smtp.gmail.com",
			SMTPPort:  587,
			SMTPUser:  "",
			SMTPPass:  "",
			FromEmail: "",
		},
	}
}

func applyDefaults(cfg *Config) {
	defaults := getDefaultConfig()

	if cfg.App.Env == "" {
		cfg.App.Env = defaults.App.Env
	}
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = defaults.App.LogLevel
	}
	if cfg.App.HTTPAddr == "" {
		cfg.App.HTTPAddr = defaults.App.HTTPAddr
	}
	if cfg.App.MetricsAddr == "" {
		cfg.App.MetricsAddr = defaults.App.MetricsAddr
	}
	if cfg.App.CycleDelay == 0 {
		cfg.App.CycleDelay = defaults.App.CycleDelay
	}
	if cfg.App.MaxDissectAttempts == 0 {
		cfg.App.MaxDissectAttempts = defaults.App.MaxDissectAttempts
	}
	if cfg.App.HistoryCap == 0 {
		cfg.App.HistoryCap = defaults.App.HistoryCap
	}
	if cfg.App.RateLimit == 0 {
		cfg.App.RateLimit = defaults.App.RateLimit
	}
	if cfg.App.RateBurst == 0 {
		cfg.App.RateBurst = defaults.App.RateBurst
	}
	if cfg.App.DedupWindow == 0 {
		cfg.App.DedupWindow = defaults.App.DedupWindow
	}
	if cfg.Filter.MinPrice == 0 {
		cfg.Filter.MinPrice = defaults.Filter.MinPrice
	}
	if cfg.Filter.TargetDiscountRate == 0 {
		cfg.Filter.TargetDiscountRate = defaults.Filter.TargetDiscountRate
	}
	if cfg.Browser.PageTimeout == 0 {
		cfg.Browser.PageTimeout = defaults.Browser.PageTimeout
	}
	if cfg.Browser.SettleDelay == 0 {
		cfg.Browser.SettleDelay = defaults.Browser.SettleDelay
	}
	if cfg.Email.SMTPPort == 0 {
		cfg.Email.SMTPPort = defaults.Email.SMTPPort
	}
}

func applyEnvOverrides(cfg *Config) {
	viper.AutomaticEnv()

	_ = viper.BindEnv("db_host", "DB_HOST")
	_ = viper.BindEnv("db_password", "DB_PASSWORD")
	_ = viper.BindEnv("redis_addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis_password", "REDIS_PASSWORD")
	_ = viper.BindEnv("smtp_pass", "SMTP_PASS")
	_ = viper.BindEnv("chrome_bin", "CHROME_BIN")
	_ = viper.BindEnv("chrome_debug_url", "CHROME_DEBUG_URL")

	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.App.Env = v
	}
	if v := os.Getenv("APP_LOG_LEVEL"); v != "" {
		cfg.App.LogLevel = v
	}
	if v := os.Getenv("APP_HTTP_ADDR"); v != "" {
		cfg.App.HTTPAddr = v
	}
	if v := os.Getenv("APP_METRICS_ADDR"); v != "" {
		cfg.App.MetricsAddr = v
	}
	if v := os.Getenv("APP_CYCLE_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.App.CycleDelay = d
		}
	}
	if v := os.Getenv("APP_MAX_DISSECT_ATTEMPTS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.App.MaxDissectAttempts = i
		}
	}
	if v := os.Getenv("APP_HISTORY_CAP"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.App.HistoryCap = i
		}
	}
	if v := os.Getenv("APP_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.App.RateLimit = f
		}
	}
	if v := os.Getenv("APP_RATE_BURST"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.App.RateBurst = f
		}
	}
	if v := os.Getenv("APP_DEDUP_WINDOW"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.App.DedupWindow = i
		}
	}
	if v := os.Getenv("PAYMENT_PASSWORD"); v != "" {
		cfg.App.PaymentPassword = v
	}
	if v := os.Getenv("NOTIFY_EMAIL"); v != "" {
		cfg.App.NotifyEmail = v
	}

	if v := os.Getenv("FILTER_MIN_PRICE"); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Filter.MinPrice = i
		}
	}
	if v := os.Getenv("FILTER_TARGET_DISCOUNT_RATE"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Filter.TargetDiscountRate = i
		}
	}

	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.MySQL.DSN = v
	} else if hasAnyEnv("DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME") || viper.GetString("db_host") != "" || viper.GetString("db_password") != "" {
		parsed := parseMySQLDSN(cfg.MySQL.DSN)
		if v := viper.GetString("db_host"); v != "" {
			host := v
			port := getenvDefault("DB_PORT", parsed.Addr, "3306")
			parsed.Addr = host + ":" + port
		} else if v := os.Getenv("DB_PORT"); v != "" {
			host := parsed.Addr
			if strings.Contains(host, ":") {
				host = strings.Split(host, ":")[0]
			}
			parsed.Addr = host + ":" + v
		}
		if v := os.Getenv("DB_USER"); v != "" {
			parsed.User = v
		}
		if v := viper.GetString("db_password"); v != "" {
			parsed.Passwd = v
		}
		if v := os.Getenv("DB_NAME"); v != "" {
			parsed.DBName = v
		}
		cfg.MySQL.DSN = parsed.FormatDSN()
	}

	if v := viper.GetString("redis_addr"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := viper.GetString("redis_password"); v != "" {
		cfg.Redis.Password = v
	}

	if v := viper.GetString("chrome_bin"); v != "" {
		cfg.Browser.BinPath = v
	}
	if v := viper.GetString("chrome_debug_url"); v != "" {
		cfg.Browser.DebugURL = v
	}
	if v := os.Getenv("BROWSER_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Browser.Headless = b
		}
	}
	if v := os.Getenv("BROWSER_PAGE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Browser.PageTimeout = d
		}
	}
	if v := os.Getenv("BROWSER_SETTLE_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Browser.SettleDelay = d
		}
	}

	if v := os.Getenv("SMTP_HOST"); v != "" {
		cfg.Email.SMTPHost = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Email.SMTPPort = i
		}
	}
	if v := os.Getenv("SMTP_USER"); v != "" {
		cfg.Email.SMTPUser = v
	}
	if v := viper.GetString("smtp_pass"); v != "" {
		cfg.Email.SMTPPass = v
	}
	if v := os.Getenv("SMTP_FROM"); v != "" {
		cfg.Email.FromEmail = v
	}
}

func hasAnyEnv(keys ...string) bool {
	for _, key := range keys {
		if os.Getenv(key) != "" {
			return true
		}
	}
	return false
}

func getenvDefault(envKey, fallbackAddr, defaultValue string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	if fallbackAddr == "" {
		return defaultValue
	}
	if strings.Contains(fallbackAddr, ":") {
		parts := strings.Split(fallbackAddr, ":")
		if len(parts) == 2 && parts[1] != "" {
			return parts[1]
		}
	}
	return defaultValue
}

func parseMySQLDSN(dsn string) *mysql.Config {
	fallback := &mysql.Config{
		User:   "root",
		Passwd: "",
		Net:    "tcp",
		Addr:   "localhost:3306",
		DBName: "catchdeal",
		Params: map[string]string{
			"parseTime": "true",
			"loc":       "Local",
		},
	}
	if dsn == "" {
		return fallback
	}
	parsed, err := mysql.ParseDSN(dsn)
	if err != nil {
		return fallback
	}
	return parsed
}

// UnmarshalJSON accepts duration fields as strings like "15s".
func (a *AppConfig) UnmarshalJSON(data []byte) error {
	type Alias AppConfig
	aux := &struct {
		CycleDelay string `json:"cycle_delay"`
		*Alias
	}{
		Alias: (*Alias)(a),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.CycleDelay != "" {
		duration, err := time.ParseDuration(aux.CycleDelay)
		if err != nil {
			return fmt.Errorf("invalid cycle_delay format: %w", err)
		}
		a.CycleDelay = duration
	}

	return nil
}

// MarshalJSON writes duration fields as strings.
func (a AppConfig) MarshalJSON() ([]byte, error) {
	type Alias AppConfig
	return json.Marshal(&struct {
		CycleDelay string `json:"cycle_delay"`
		*Alias
	}{
		CycleDelay: a.CycleDelay.String(),
		Alias:      (*Alias)(&a),
	})
}

// UnmarshalJSON accepts duration fields as strings like "20s".
func (b *BrowserConfig) UnmarshalJSON(data []byte) error {
	type Alias BrowserConfig
	aux := &struct {
		PageTimeout string `json:"page_timeout"`
		SettleDelay string `json:"settle_delay"`
		*Alias
	}{
		Alias: (*Alias)(b),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if aux.PageTimeout != "" {
		duration, err := time.ParseDuration(aux.PageTimeout)
		if err != nil {
			return fmt.Errorf("invalid page_timeout format: %w", err)
		}
		b.PageTimeout = duration
	}
	if aux.SettleDelay != "" {
		duration, err := time.ParseDuration(aux.SettleDelay)
		if err != nil {
			return fmt.Errorf("invalid settle_delay format: %w", err)
		}
		b.SettleDelay = duration
	}

	return nil
}

// MarshalJSON writes duration fields as strings.
func (b BrowserConfig) MarshalJSON() ([]byte, error) {
	type Alias BrowserConfig
	return json.Marshal(&struct {
		PageTimeout string `json:"page_timeout"`
		SettleDelay string `json:"settle_delay"`
		*Alias
	}{
		PageTimeout: b.PageTimeout.String(),
		SettleDelay: b.SettleDelay.String(),
		Alias:       (*Alias)(&b),
	})
}
