package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"SettleX-Atlas/internal/agent"
	"SettleX-Atlas/internal/dialogue"
	xerrors "SettleX-Atlas/internal/errors"
	"SettleX-Atlas/internal/observability/metrics"
	"SettleX-Atlas/internal/session"
	"SettleX-Atlas/internal/ticket"
	"SettleX-Atlas/pkg/logger"
)

const maxBodyBytes = 64 << 10

// Server 负责暴露 REST 接口。
type Server struct {
	addr     string
	agent    *agent.Agent
	sessions *session.Manager
	tickets  ticket.Lister
	metrics  *metrics.Collector
	// serveMetrics 为 false 时 /metrics 由独立端口提供。
	serveMetrics bool

	readTimeout     time.Duration
	writeTimeout    time.Duration
	shutdownTimeout time.Duration
	log             *slog.Logger
}

// Option 定义可选的服务配置。
type Option func(*Server)

// WithMetrics 记录 HTTP 指标；serve 为 true 时同时挂载 /metrics。
func WithMetrics(c *metrics.Collector, serve bool) Option {
	return func(s *Server) {
		s.metrics = c
		s.serveMetrics = serve
	}
}

// WithTicketLister 启用 /api/v1/tickets 查询接口。
func WithTicketLister(l ticket.Lister) Option {
	return func(s *Server) {
		s.tickets = l
	}
}

// WithTimeouts 设置读写与优雅关闭的超时，非正数保持默认值。
func WithTimeouts(read, write, shutdown time.Duration) Option {
	return func(s *Server) {
		if read > 0 {
			s.readTimeout = read
		}
		if write > 0 {
			s.writeTimeout = write
		}
		if shutdown > 0 {
			s.shutdownTimeout = shutdown
		}
	}
}

// NewServer 构造 API 服务实例。
func NewServer(addr string, ag *agent.Agent, sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		addr:            addr,
		agent:           ag,
		sessions:        sessions,
		readTimeout:     10 * time.Second,
		writeTimeout:    15 * time.Second,
		shutdownTimeout: 5 * time.Second,
		log:             logger.Named("api"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Handler 返回完整的路由。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /api/v1/sessions", s.instrument("create_session", s.handleCreateSession))
	mux.Handle("POST /api/v1/sessions/{id}/messages", s.instrument("send_message", s.handleSendMessage))
	mux.Handle("GET /api/v1/sessions/{id}", s.instrument("inspect_session", s.handleInspectSession))
	mux.Handle("DELETE /api/v1/sessions/{id}", s.instrument("delete_session", s.handleDeleteSession))
	mux.Handle("GET /api/v1/tickets", s.instrument("list_tickets", s.handleListTickets))
	mux.Handle("GET /healthz", s.instrument("healthz", s.handleHealth))
	if s.serveMetrics && s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return mux
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, s.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.readTimeout,
		WriteTimeout:      s.writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.log.Info("API 服务已启动", "address", s.addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

type messageRequest struct {
	Message string `json:"message"`
}

type messageResponse struct {
	Reply     string `json:"reply"`
	Sentiment string `json:"sentiment"`
	Context   string `json:"context,omitempty"`
	Workflow  string `json:"workflow,omitempty"`
	Step      int    `json:"step"`
}

type healthResponse struct {
	Status      string `json:"status"`
	QuotesReady bool   `json:"quotes_ready"`
	Sessions    int    `json:"sessions"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	id, err := s.sessions.Create()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createSessionResponse{SessionID: id})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req messageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "请求体解析失败"))
		return
	}

	ctx := agent.WithSessionID(r.Context(), id)
	var resp messageResponse
	err := s.sessions.Do(ctx, id, func(sess *dialogue.Session) error {
		resp = messageResponse{
			Reply: s.agent.Process(ctx, sess, req.Message),
		}
		resp.Sentiment = string(sess.Sentiment)
		resp.Context = sess.Context.String()
		resp.Workflow = sess.Workflow.String()
		resp.Step = sess.Step
		return nil
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleInspectSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sessions.Snapshot(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	if s.tickets == nil {
		s.writeError(w, xerrors.New(xerrors.CodeUnavailable, "未配置可查询的工单存储"))
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	list, err := s.tickets.ListLatest(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if list == nil {
		list = []ticket.Ticket{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok", Sessions: s.sessions.Len()}
	if s.agent != nil {
		resp.QuotesReady = s.agent.Quotes().Ready()
	}
	if !resp.QuotesReady {
		resp.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, resp)
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := xerrors.HTTPStatusOf(err)
	detail := errorDetail{
		Code:      string(xerrors.CodeOf(err)),
		Message:   err.Error(),
		Retryable: xerrors.RetryableError(err),
	}
	if e, ok := xerrors.From(err); ok {
		detail.Message = e.Message()
	}
	if status >= http.StatusInternalServerError {
		s.log.Error("请求处理失败", "code", detail.Code, "error", err)
	}
	writeJSON(w, status, errorBody{Error: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// instrument 记录每个路由的请求数、错误数与耗时。
func (s *Server) instrument(name string, fn http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		fn(rec, r)
		s.metrics.ObserveHTTPRequest(name, r.Method, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			http.Error(w, "服务已关闭", http.StatusServiceUnavailable)
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
