package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "atlas.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Fatalf("unexpected address: %s", cfg.Server.Address)
	}
	if cfg.Assistant.SupportEmail != "priority.desk@settlex.com" || cfg.Assistant.MaxHistory != 50 {
		t.Fatalf("unexpected assistant defaults: %+v", cfg.Assistant)
	}
	if cfg.Rates.Source != RateSourceStatic || cfg.Rates.Pricing == nil || cfg.Rates.Pricing.BankFee != 2500 {
		t.Fatalf("unexpected rates defaults: %+v", cfg.Rates)
	}
	if !cfg.HasTicketDriver(TicketDriverMemory) {
		t.Fatalf("memory ticket driver should be the default")
	}
	if cfg.Sessions.IdleTimeout != 30*time.Minute {
		t.Fatalf("unexpected idle timeout: %v", cfg.Sessions.IdleTimeout)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  address: ":9090"
  read_timeout: 3s
assistant:
  support_email: ops@example.com
  max_history: 10
  lexicon_path: lexicon.yaml
sessions:
  idle_timeout: 5m
  max_sessions: 100
rates:
  source: redis
  refresh_interval: 15s
  redis:
    address: localhost:6379
    key: fx:mid
tickets:
  drivers: [Memory, redis, mysql]
  redis:
    address: localhost:6379
  mysql:
    dsn: "atlas:secret@tcp(localhost:3306)/atlas?parseTime=true"
logging:
  level: debug
  audit:
    enabled: true
metrics:
  enabled: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":9090" || cfg.Server.ReadTimeout != 3*time.Second {
		t.Fatalf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Assistant.LexiconPath != filepath.Join(filepath.Dir(path), "lexicon.yaml") {
		t.Fatalf("lexicon path should be resolved against config dir: %s", cfg.Assistant.LexiconPath)
	}
	if cfg.Sessions.IdleTimeout != 5*time.Minute || cfg.Sessions.MaxSessions != 100 {
		t.Fatalf("unexpected sessions config: %+v", cfg.Sessions)
	}
	if cfg.Rates.Source != RateSourceRedis || cfg.Rates.Redis.Key != "fx:mid" || cfg.Rates.RefreshInterval != 15*time.Second {
		t.Fatalf("unexpected rates config: %+v", cfg.Rates)
	}
	if !cfg.HasTicketDriver(TicketDriverMemory) || !cfg.HasTicketDriver(TicketDriverMySQL) {
		t.Fatalf("unexpected ticket drivers: %v", cfg.Tickets.Drivers)
	}
	if !strings.HasSuffix(cfg.Logging.Audit.Path, filepath.Join("data", "audit", "turns.log")) {
		t.Fatalf("unexpected audit path: %s", cfg.Logging.Audit.Path)
	}
	if !cfg.Metrics.Enabled {
		t.Fatalf("metrics should be enabled")
	}
}

func TestLoadAcceptsJSON(t *testing.T) {
	path := writeConfig(t, `{"server": {"address": ":7070"}, "tickets": {"drivers": ["memory"]}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Address != ":7070" {
		t.Fatalf("unexpected address: %s", cfg.Server.Address)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cases := map[string]string{
		"bad email":       "assistant:\n  support_email: not-an-email\n",
		"unknown source":  "rates:\n  source: carrier-pigeon\n",
		"redis no addr":   "rates:\n  source: redis\n",
		"unknown driver":  "tickets:\n  drivers: [kafka]\n",
		"mysql no dsn":    "tickets:\n  drivers: [mysql]\n",
		"negative rate":   "rates:\n  static:\n    USD: -1\n",
		"duplicate sinks": "tickets:\n  drivers: [memory, memory]\n",
		"alert channel":   "tickets:\n  alerts:\n    webhooks:\n      - url: http://hooks.local\n        channel: pager\n",
		"alert no url":    "tickets:\n  alerts:\n    webhooks:\n      - channel: slack\n",
	}
	for name, content := range cases {
		if _, err := Load(writeConfig(t, content)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		"ATLAS_SUPPORT_EMAIL":   "desk@example.com",
		"ATLAS_MYSQL_DSN":       "u:p@tcp(db:3306)/atlas",
		"ATLAS_TICKET_DRIVERS":  "memory, mysql",
		"ATLAS_METRICS_ENABLED": "true",
	}
	var cfg Config
	cfg.applyEnv(func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	cfg.applyDefaults(".")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Assistant.SupportEmail != "desk@example.com" || cfg.Tickets.MySQL.DSN == "" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if len(cfg.Tickets.Drivers) != 2 || !cfg.HasTicketDriver(TicketDriverMySQL) {
		t.Fatalf("unexpected drivers: %v", cfg.Tickets.Drivers)
	}
	if !cfg.Metrics.Enabled {
		t.Fatalf("metrics flag not applied")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadAlerts(t *testing.T) {
	path := writeConfig(t, `
tickets:
  alerts:
    enabled: true
    webhooks:
      - url: https://hooks.slack.example/T000
        channel: slack
      - url: https://ops.example/alerts
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	alerts := cfg.Tickets.Alerts
	if !alerts.Enabled || len(alerts.Webhooks) != 2 {
		t.Fatalf("unexpected alerts config: %+v", alerts)
	}
	if alerts.Webhooks[1].Channel != "webhook" {
		t.Fatalf("channel should default to webhook: %+v", alerts.Webhooks[1])
	}
	if len(alerts.Sentiments) != 1 || alerts.Sentiments[0] != "urgent" {
		t.Fatalf("unexpected sentiments: %v", alerts.Sentiments)
	}
}

func TestLoadShippedConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "atlas.yaml"))
	if err != nil {
		t.Fatalf("load shipped config: %v", err)
	}
	if cfg.Rates.Static["USD"] != 83.50 || cfg.Tickets.MySQL.ConnMaxLifetime != 30*time.Minute {
		t.Fatalf("unexpected shipped config: %+v", cfg)
	}
}
