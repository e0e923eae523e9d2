package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"SettleX-Atlas/internal/observability/alerting"
	"SettleX-Atlas/internal/quote"
	"SettleX-Atlas/internal/validate"
	"SettleX-Atlas/pkg/logger"
)

// Config 描述了 Atlas 在启动阶段需要加载的全部配置。
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Assistant AssistantConfig `yaml:"assistant"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	Rates     RatesConfig     `yaml:"rates"`
	Tickets   TicketsConfig   `yaml:"tickets"`
	Logging   logger.Config   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig 控制 HTTP 接口的监听地址与超时。
type ServerConfig struct {
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AssistantConfig 描述对话核心的可调参数。
type AssistantConfig struct {
	SupportEmail string `yaml:"support_email"`
	MaxHistory   int    `yaml:"max_history"`
	// LexiconPath 指向可选的词库覆盖文件。
	LexiconPath string `yaml:"lexicon_path"`
	// RandomSeed 非零时问候语与工单号可复现，仅用于演示与排障。
	RandomSeed uint64 `yaml:"random_seed"`
}

// SessionsConfig 控制 HTTP 会话的容量与过期。
type SessionsConfig struct {
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	MaxSessions   int           `yaml:"max_sessions"`
}

// RatesConfig 描述中间价来源。
type RatesConfig struct {
	// Source 取值 static 或 redis。
	Source          string             `yaml:"source"`
	RefreshInterval time.Duration      `yaml:"refresh_interval"`
	Static          map[string]float64 `yaml:"static"`
	Pricing         *quote.Pricing     `yaml:"pricing"`
	Redis           RedisConfig        `yaml:"redis"`
}

// RedisConfig 是 Redis 连接参数，汇率与工单队列共用该结构。
type RedisConfig struct {
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Key      string        `yaml:"key"`
	TTL      time.Duration `yaml:"ttl"`
}

// TicketsConfig 描述完成的工单投递到哪里，可以同时启用多个目标。
type TicketsConfig struct {
	Drivers  []string       `yaml:"drivers"`
	Timeout  time.Duration  `yaml:"timeout"`
	Redis    RedisConfig    `yaml:"redis"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	MySQL    MySQLConfig    `yaml:"mysql"`
	Alerts   AlertsConfig   `yaml:"alerts"`
}

// AlertsConfig 控制高优先级工单的告警推送。
type AlertsConfig struct {
	Enabled bool `yaml:"enabled"`
	// Sentiments 列出需要升级的工单情绪，默认只有 urgent。
	Sentiments []string        `yaml:"sentiments"`
	Webhooks   []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig 是单个告警回调。Channel 取值 webhook、slack 或 dingtalk。
type WebhookConfig struct {
	URL     string `yaml:"url"`
	Channel string `yaml:"channel"`
}

// RabbitMQConfig 是 RabbitMQ 工单队列的连接参数。
type RabbitMQConfig struct {
	URL   string `yaml:"url"`
	Queue string `yaml:"queue"`
}

// MySQLConfig 是工单库的连接参数。
type MySQLConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// MetricsConfig 控制 Prometheus 指标。
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	// Address 非空时在独立端口暴露 /metrics，否则挂在 API 服务上。
	Address           string `yaml:"address"`
	ProcessCollectors bool   `yaml:"process_collectors"`
}

// 支持的驱动名称。
const (
	RateSourceStatic = "static"
	RateSourceRedis  = "redis"

	TicketDriverMemory   = "memory"
	TicketDriverRedis    = "redis"
	TicketDriverRabbitMQ = "rabbitmq"
	TicketDriverMySQL    = "mysql"
)

// Load 负责解析指定路径的配置文件。path 为空时返回默认配置。
func Load(path string) (*Config, error) {
	var cfg Config
	baseDir := "."

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return nil, fmt.Errorf("解析配置失败: %w", err)
		}
		baseDir = filepath.Dir(path)
	}

	cfg.applyEnv(os.LookupEnv)
	cfg.applyDefaults(baseDir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv 用 ATLAS_* 环境变量覆盖连接类配置。
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("ATLAS_SERVER_ADDRESS", &c.Server.Address)
	str("ATLAS_SUPPORT_EMAIL", &c.Assistant.SupportEmail)
	str("ATLAS_RATES_SOURCE", &c.Rates.Source)
	str("ATLAS_REDIS_ADDRESS", &c.Rates.Redis.Address)
	str("ATLAS_REDIS_PASSWORD", &c.Rates.Redis.Password)
	str("ATLAS_TICKETS_REDIS_ADDRESS", &c.Tickets.Redis.Address)
	str("ATLAS_RABBITMQ_URL", &c.Tickets.RabbitMQ.URL)
	str("ATLAS_MYSQL_DSN", &c.Tickets.MySQL.DSN)
	str("ATLAS_LOG_LEVEL", &c.Logging.Level)

	if v, ok := lookup("ATLAS_ALERT_WEBHOOK_URL"); ok && strings.TrimSpace(v) != "" {
		c.Tickets.Alerts.Enabled = true
		c.Tickets.Alerts.Webhooks = append(c.Tickets.Alerts.Webhooks, WebhookConfig{URL: strings.TrimSpace(v)})
	}

	if v, ok := lookup("ATLAS_TICKET_DRIVERS"); ok && strings.TrimSpace(v) != "" {
		c.Tickets.Drivers = splitList(v)
	}
	if v, ok := lookup("ATLAS_METRICS_ENABLED"); ok {
		if enabled, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			c.Metrics.Enabled = enabled
		}
	}
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 5 * time.Second
	}

	if c.Assistant.SupportEmail == "" {
		c.Assistant.SupportEmail = "priority.desk@settlex.com"
	}
	if c.Assistant.MaxHistory <= 0 {
		c.Assistant.MaxHistory = 50
	}
	if c.Assistant.LexiconPath != "" && !filepath.IsAbs(c.Assistant.LexiconPath) {
		c.Assistant.LexiconPath = filepath.Join(baseDir, c.Assistant.LexiconPath)
	}

	if c.Sessions.IdleTimeout <= 0 {
		c.Sessions.IdleTimeout = 30 * time.Minute
	}
	if c.Sessions.SweepInterval <= 0 {
		c.Sessions.SweepInterval = time.Minute
	}

	c.Rates.Source = strings.ToLower(strings.TrimSpace(c.Rates.Source))
	if c.Rates.Source == "" {
		c.Rates.Source = RateSourceStatic
	}
	if c.Rates.RefreshInterval <= 0 {
		c.Rates.RefreshInterval = 30 * time.Second
	}
	if c.Rates.Pricing == nil {
		pricing := quote.DefaultPricing
		c.Rates.Pricing = &pricing
	}

	if len(c.Tickets.Drivers) == 0 {
		c.Tickets.Drivers = []string{TicketDriverMemory}
	}
	for i, driver := range c.Tickets.Drivers {
		c.Tickets.Drivers[i] = strings.ToLower(strings.TrimSpace(driver))
	}
	if c.Tickets.Timeout <= 0 {
		c.Tickets.Timeout = 5 * time.Second
	}
	if len(c.Tickets.Alerts.Sentiments) == 0 {
		c.Tickets.Alerts.Sentiments = []string{"urgent"}
	}
	for i, hook := range c.Tickets.Alerts.Webhooks {
		if hook.Channel == "" {
			c.Tickets.Alerts.Webhooks[i].Channel = string(alerting.ChannelWebhook)
		}
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Audit.Enabled && c.Logging.Audit.Path == "" {
		c.Logging.Audit.Path = filepath.Join(baseDir, "data", "audit", "turns.log")
	} else if c.Logging.Audit.Path != "" && !filepath.IsAbs(c.Logging.Audit.Path) {
		c.Logging.Audit.Path = filepath.Join(baseDir, c.Logging.Audit.Path)
	}
}

// Validate 检查配置的一致性。
func (c *Config) Validate() error {
	var errs []error

	if !validate.Email(c.Assistant.SupportEmail) {
		errs = append(errs, fmt.Errorf("assistant.support_email 格式错误: %q", c.Assistant.SupportEmail))
	}

	switch c.Rates.Source {
	case RateSourceStatic:
	case RateSourceRedis:
		if c.Rates.Redis.Address == "" {
			errs = append(errs, errors.New("rates.redis.address 不能为空"))
		}
	default:
		errs = append(errs, fmt.Errorf("未知的汇率来源: %s", c.Rates.Source))
	}
	for code, rate := range c.Rates.Static {
		if rate <= 0 {
			errs = append(errs, fmt.Errorf("rates.static.%s 必须为正数", code))
		}
	}
	if p := c.Rates.Pricing; p != nil && (p.BankSpread < 0 || p.WholesaleSpread < 0 || p.BankFee < 0 || p.WholesaleFee < 0) {
		errs = append(errs, errors.New("rates.pricing 不能包含负数"))
	}

	seen := make(map[string]struct{}, len(c.Tickets.Drivers))
	for _, driver := range c.Tickets.Drivers {
		if _, dup := seen[driver]; dup {
			errs = append(errs, fmt.Errorf("工单驱动重复: %s", driver))
			continue
		}
		seen[driver] = struct{}{}

		switch driver {
		case TicketDriverMemory:
		case TicketDriverRedis:
			if c.Tickets.Redis.Address == "" {
				errs = append(errs, errors.New("tickets.redis.address 不能为空"))
			}
		case TicketDriverRabbitMQ:
			if c.Tickets.RabbitMQ.URL == "" {
				errs = append(errs, errors.New("tickets.rabbitmq.url 不能为空"))
			}
		case TicketDriverMySQL:
			if c.Tickets.MySQL.DSN == "" {
				errs = append(errs, errors.New("tickets.mysql.dsn 不能为空"))
			}
		default:
			errs = append(errs, fmt.Errorf("未知的工单驱动: %s", driver))
		}
	}

	for i, hook := range c.Tickets.Alerts.Webhooks {
		if hook.URL == "" {
			errs = append(errs, fmt.Errorf("tickets.alerts.webhooks[%d].url 不能为空", i))
		}
		if ch := alerting.Channel(hook.Channel); ch == alerting.ChannelLog || !alerting.KnownChannel(ch) {
			errs = append(errs, fmt.Errorf("未知的告警渠道: %s", hook.Channel))
		}
	}

	if c.Sessions.MaxSessions < 0 {
		errs = append(errs, errors.New("sessions.max_sessions 不能为负数"))
	}
	return errors.Join(errs...)
}

// HasTicketDriver 报告是否启用了指定的工单驱动。
func (c *Config) HasTicketDriver(name string) bool {
	for _, driver := range c.Tickets.Drivers {
		if driver == name {
			return true
		}
	}
	return false
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
