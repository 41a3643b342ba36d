package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.App.CycleDelay != 15*time.Second {
		t.Errorf("expected 15s cycle delay, got %v", cfg.App.CycleDelay)
	}
	if cfg.App.MaxDissectAttempts != 5 {
		t.Errorf("expected 5 dissect attempts, got %d", cfg.App.MaxDissectAttempts)
	}
	if cfg.App.HistoryCap != 200 {
		t.Errorf("expected history cap 200, got %d", cfg.App.HistoryCap)
	}
	if cfg.Filter.MinPrice != 100000 || cfg.Filter.TargetDiscountRate != 50 {
		t.Errorf("unexpected filter defaults %+v", cfg.Filter)
	}
	if cfg.Browser.PageTimeout != 20*time.Second || cfg.Browser.SettleDelay != 2*time.Second {
		t.Errorf("unexpected browser defaults %+v", cfg.Browser)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := Default()
	cfg.App.CycleDelay = 45 * time.Second
	cfg.Browser.PageTimeout = 7 * time.Second
	cfg.Sources = []SourceConfig{
		{ID: "s1", Name: "dealcafe", ListURL: "https://cafe.naver.com/dealcafe", Keyword: "특가", Enabled: true},
	}

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.App.CycleDelay != 45*time.Second {
		t.Errorf("cycle delay lost in round trip: %v", loaded.App.CycleDelay)
	}
	if loaded.Browser.PageTimeout != 7*time.Second {
		t.Errorf("page timeout lost in round trip: %v", loaded.Browser.PageTimeout)
	}
	if len(loaded.Sources) != 1 || loaded.Sources[0].Keyword != "특가" {
		t.Errorf("sources lost in round trip: %+v", loaded.Sources)
	}
}

func TestDurationFieldsAcceptStrings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	raw := `{
		"app": {"cycle_delay": "90s"},
		"browser": {"page_timeout": "5s", "settle_delay": "500ms"}
	}`
	if err := os.WriteFile(path, []byte(raw), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.CycleDelay != 90*time.Second {
		t.Errorf("expected 90s, got %v", cfg.App.CycleDelay)
	}
	if cfg.Browser.PageTimeout != 5*time.Second || cfg.Browser.SettleDelay != 500*time.Millisecond {
		t.Errorf("unexpected browser durations %+v", cfg.Browser)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("APP_CYCLE_DELAY", "2m")
	t.Setenv("FILTER_MIN_PRICE", "250000")
	t.Setenv("PAYMENT_PASSWORD", "000000")
	t.Setenv("DB_DSN", "user:pw@tcp(db:3306)/catchdeal?parseTime=true")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.CycleDelay != 2*time.Minute {
		t.Errorf("cycle delay override lost: %v", cfg.App.CycleDelay)
	}
	if cfg.Filter.MinPrice != 250000 {
		t.Errorf("min price override lost: %d", cfg.Filter.MinPrice)
	}
	if cfg.App.PaymentPassword != "000000" {
		t.Errorf("payment password override lost")
	}
	if cfg.MySQL.DSN != "user:pw@tcp(db:3306)/catchdeal?parseTime=true" {
		t.Errorf("dsn override lost: %s", cfg.MySQL.DSN)
	}
}

func TestDBPartsOverrideRewritesDSN(t *testing.T) {
	t.Setenv("DB_HOST", "mysql.internal")
	t.Setenv("DB_PASSWORD", "secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	parsed := parseMySQLDSN(cfg.MySQL.DSN)
	if parsed.Addr != "mysql.internal:3306" {
		t.Errorf("expected host override in DSN, got addr %s", parsed.Addr)
	}
	if parsed.Passwd != "secret" {
		t.Errorf("expected password override in DSN")
	}
}
