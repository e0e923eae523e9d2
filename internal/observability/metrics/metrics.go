// Package metrics 汇总 Atlas 的 Prometheus 指标：对话轮次、流程事件、
// 工单投递以及 HTTP 请求。所有方法对 nil 接收者安全，未启用指标时可直接传 nil。
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "atlas"

// Collector 持有独立的 Registry，避免与进程内其他组件的默认注册表冲突。
type Collector struct {
	registry *prometheus.Registry

	turns          *prometheus.CounterVec
	workflowEvents *prometheus.CounterVec
	tickets        *prometheus.CounterVec
	activeSessions prometheus.Gauge
	httpRequests   *prometheus.CounterVec
	httpErrors     *prometheus.CounterVec
	httpLatency    *prometheus.HistogramVec
}

// Option 定义可选配置。
type Option func(*options)

type options struct {
	processCollectors bool
}

// WithProcessCollectors 额外注册 Go 运行时与进程指标。
func WithProcessCollectors() Option {
	return func(o *options) {
		o.processCollectors = true
	}
}

// New 创建并注册全部指标。
func New(opts ...Option) *Collector {
	var o options
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Conversation turns processed, by detected intent and handling route.",
		}, []string{"intent", "route"}),
		workflowEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_events_total",
			Help:      "Workflow state machine events.",
		}, []string{"workflow", "event"}),
		tickets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tickets_total",
			Help:      "Support tickets handed to the ticket sink, by outcome.",
		}, []string{"outcome"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently held by the session registry.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests processed.",
		}, []string{"handler", "method", "code"}),
		httpErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_request_errors_total",
			Help:      "Total number of HTTP requests that resulted in a server error.",
		}, []string{"handler", "method"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"handler", "method"}),
	}

	c.registry.MustRegister(
		c.turns,
		c.workflowEvents,
		c.tickets,
		c.activeSessions,
		c.httpRequests,
		c.httpErrors,
		c.httpLatency,
	)
	if o.processCollectors {
		c.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return c
}

// Registry 返回底层注册表，便于测试或挂载额外指标。
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// ObserveTurn 记录一轮对话。
func (c *Collector) ObserveTurn(intent, route string) {
	if c == nil {
		return
	}
	c.turns.WithLabelValues(intent, route).Inc()
}

// ObserveWorkflowEvent 记录一次流程事件。
func (c *Collector) ObserveWorkflowEvent(workflow, event string) {
	if c == nil {
		return
	}
	c.workflowEvents.WithLabelValues(workflow, event).Inc()
}

// ObserveTicket 记录工单投递结果，outcome 为 submitted、failed 或 timeout。
func (c *Collector) ObserveTicket(outcome string) {
	if c == nil {
		return
	}
	c.tickets.WithLabelValues(outcome).Inc()
}

// SetActiveSessions 更新当前会话数。
func (c *Collector) SetActiveSessions(n int) {
	if c == nil {
		return
	}
	c.activeSessions.Set(float64(n))
}

// ObserveHTTPRequest records metrics about an HTTP request lifecycle.
func (c *Collector) ObserveHTTPRequest(handler, method string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(handler, method, strconv.Itoa(status)).Inc()
	if status >= 500 {
		c.httpErrors.WithLabelValues(handler, method).Inc()
	}
	c.httpLatency.WithLabelValues(handler, method).Observe(duration.Seconds())
}

// Handler exposes the metrics in Prometheus text exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// StartServer launches a standalone HTTP server exposing the /metrics endpoint.
func StartServer(ctx context.Context, addr string, handler http.Handler) error {
	if addr == "" {
		return errors.New("metrics address is empty")
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return err
	}
}
