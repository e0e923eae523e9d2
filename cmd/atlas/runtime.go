package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"SettleX-Atlas/internal/agent"
	"SettleX-Atlas/internal/config"
	"SettleX-Atlas/internal/lexicon"
	"SettleX-Atlas/internal/observability/alerting"
	"SettleX-Atlas/internal/observability/metrics"
	"SettleX-Atlas/internal/quote"
	"SettleX-Atlas/internal/storage/mysql"
	redisstore "SettleX-Atlas/internal/storage/redis"
	"SettleX-Atlas/internal/ticket"
	"SettleX-Atlas/pkg/logger"
)

// runtime 持有一次进程生命周期内装配好的全部组件。
type runtime struct {
	cfg     *config.Config
	agent   *agent.Agent
	quotes  *quote.Table
	rates   *redisstore.RateStore
	sink    ticket.Sink
	lister  ticket.Lister
	metrics *metrics.Collector
	closers []func() error
}

func buildRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	lex, err := lexicon.Load(cfg.Assistant.LexiconPath)
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg}
	if err := rt.buildQuotes(ctx); err != nil {
		_ = rt.Close()
		return nil, err
	}
	if err := rt.buildTickets(ctx); err != nil {
		_ = rt.Close()
		return nil, err
	}

	if cfg.Metrics.Enabled {
		var opts []metrics.Option
		if cfg.Metrics.ProcessCollectors {
			opts = append(opts, metrics.WithProcessCollectors())
		}
		rt.metrics = metrics.New(opts...)
	}

	agentOpts := []agent.Option{
		agent.WithSupportEmail(cfg.Assistant.SupportEmail),
		agent.WithTicketSink(rt.sink),
		agent.WithTicketTimeout(cfg.Tickets.Timeout),
		agent.WithMetrics(rt.metrics),
		agent.WithLogger(logger.Named("agent")),
	}
	if seed := cfg.Assistant.RandomSeed; seed != 0 {
		agentOpts = append(agentOpts, agent.WithRandom(rand.New(rand.NewPCG(seed, seed))))
	}
	rt.agent = agent.New(lex, rt.quotes, agentOpts...)
	return rt, nil
}

func (rt *runtime) buildQuotes(ctx context.Context) error {
	cfg := rt.cfg.Rates
	opts := []quote.TableOption{quote.WithPricing(*cfg.Pricing)}

	switch cfg.Source {
	case config.RateSourceRedis:
		store, err := redisstore.NewRateStore(ctx, redisstore.Config{
			Address:  cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.Key,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			return err
		}
		rt.rates = store
		rt.closers = append(rt.closers, store.Close)
	default:
		rates := cfg.Static
		if len(rates) == 0 {
			rates = quote.FallbackRates()
		}
		opts = append(opts, quote.WithRates(rates))
	}

	rt.quotes = quote.NewTable(opts...)
	return nil
}

func (rt *runtime) buildTickets(ctx context.Context) error {
	cfg := rt.cfg.Tickets
	sinks := make([]ticket.Sink, 0, len(cfg.Drivers))
	fail := func(err error) error {
		for _, sink := range sinks {
			_ = sink.Close()
		}
		return err
	}
	for _, driver := range cfg.Drivers {
		var sink ticket.Sink
		switch driver {
		case config.TicketDriverMemory:
			sink = ticket.NewMemorySink()
		case config.TicketDriverRedis:
			s, err := ticket.NewRedisSink(ctx, ticket.RedisConfig{
				Address:  cfg.Redis.Address,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
				Queue:    cfg.Redis.Key,
			})
			if err != nil {
				return fail(err)
			}
			sink = s
		case config.TicketDriverRabbitMQ:
			s, err := ticket.NewRabbitMQSink(ticket.RabbitMQConfig{
				URL:     cfg.RabbitMQ.URL,
				Queue:   cfg.RabbitMQ.Queue,
				Durable: true,
			})
			if err != nil {
				return fail(err)
			}
			sink = s
		case config.TicketDriverMySQL:
			repo, err := mysql.NewTicketRepository(ctx, mysqlConfig(cfg.MySQL))
			if err != nil {
				return fail(err)
			}
			sink = repo
		default:
			return fail(fmt.Errorf("未知的工单驱动: %s", driver))
		}
		sinks = append(sinks, sink)
		if l, ok := sink.(ticket.Lister); ok && rt.lister == nil {
			rt.lister = l
		}
	}

	if len(sinks) == 1 {
		rt.sink = sinks[0]
	} else {
		rt.sink = ticket.NewFanout(sinks...)
	}
	if cfg.Alerts.Enabled {
		rt.sink = alerting.NewEscalationSink(rt.sink, buildNotifiers(cfg.Alerts), cfg.Alerts.Sentiments...)
	}
	rt.closers = append(rt.closers, rt.sink.Close)
	return nil
}

// buildNotifiers 总是包含日志渠道，再追加配置中的回调。
func buildNotifiers(cfg config.AlertsConfig) *alerting.FanoutDispatcher {
	notifiers := []alerting.Notifier{&alerting.LogNotifier{Logger: logger.Named("alerting")}}
	for _, hook := range cfg.Webhooks {
		notifiers = append(notifiers, &alerting.WebhookNotifier{
			URL:  hook.URL,
			Kind: alerting.Channel(hook.Channel),
		})
	}
	return alerting.NewFanout(notifiers...)
}

// refreshRates 在 Redis 汇率源下持续刷新报价表，静态来源直接返回。
func (rt *runtime) refreshRates(ctx context.Context) {
	if rt.rates == nil {
		return
	}
	log := logger.Named("quote")
	err := rt.quotes.Run(ctx, rt.rates, rt.cfg.Rates.RefreshInterval, func(err error) {
		log.WarnContext(ctx, "刷新汇率失败", "error", err, "ready", rt.quotes.Ready())
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("汇率刷新循环异常退出", "error", err)
	}
}

// Close 按创建的逆序释放资源。
func (rt *runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

func mysqlConfig(cfg config.MySQLConfig) mysql.Config {
	return mysql.Config{
		DSN:             cfg.DSN,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}
}
