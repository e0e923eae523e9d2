package agent

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"SettleX-Atlas/internal/analyzer"
	"SettleX-Atlas/internal/dialogue"
	xerrors "SettleX-Atlas/internal/errors"
	"SettleX-Atlas/internal/lexicon"
	"SettleX-Atlas/internal/observability/metrics"
	"SettleX-Atlas/internal/quote"
	"SettleX-Atlas/internal/ticket"
	"SettleX-Atlas/internal/workflow"
	"SettleX-Atlas/pkg/logger"
)

// DefaultSupportEmail 是未配置时回复中给出的运营邮箱。
const DefaultSupportEmail = "priority.desk@settlex.com"

const defaultTicketTimeout = 5 * time.Second

// 处理一轮消息的路径，用于指标与审计日志。
const (
	RouteWorkflow  = "workflow"
	RouteResolver  = "resolver"
	RouteGenerator = "generator"
)

// Agent 协调分析器、上下文解析、回复生成与流程引擎，是对话的业务核心。
// Agent 可被多个会话并发使用，会话状态全部保存在 *dialogue.Session 中。
type Agent struct {
	analyzer      *analyzer.Analyzer
	quotes        quote.Provider
	engine        *workflow.Engine
	sink          ticket.Sink
	random        workflow.Random
	supportEmail  string
	metrics       *metrics.Collector
	log           *slog.Logger
	ticketTimeout time.Duration
}

// Option 定义可选的 Agent 配置。
type Option func(*Agent)

// WithRandom 注入问候语与工单号共用的随机源。
func WithRandom(r workflow.Random) Option {
	return func(a *Agent) {
		if r != nil {
			a.random = &lockedRandom{r: r}
		}
	}
}

// WithWorkflowEngine 替换流程引擎。
func WithWorkflowEngine(engine *workflow.Engine) Option {
	return func(a *Agent) {
		a.engine = engine
	}
}

// WithTicketSink 配置完成的工单投递目标。
func WithTicketSink(sink ticket.Sink) Option {
	return func(a *Agent) {
		a.sink = sink
	}
}

// WithSupportEmail 设置回复中给出的运营邮箱。
func WithSupportEmail(email string) Option {
	return func(a *Agent) {
		if email = strings.TrimSpace(email); email != "" {
			a.supportEmail = email
		}
	}
}

// WithMetrics 启用指标记录。
func WithMetrics(c *metrics.Collector) Option {
	return func(a *Agent) {
		a.metrics = c
	}
}

// WithLogger 替换应用日志器。
func WithLogger(l *slog.Logger) Option {
	return func(a *Agent) {
		if l != nil {
			a.log = l
		}
	}
}

// WithTicketTimeout 设置单次工单投递的超时时间。
func WithTicketTimeout(timeout time.Duration) Option {
	return func(a *Agent) {
		if timeout > 0 {
			a.ticketTimeout = timeout
		}
	}
}

// New 创建一个 Agent。lex 为 nil 时使用内置词库；quotes 为 nil 时所有报价类意图
// 都会得到"正在连接"的提示。
func New(lex *lexicon.Lexicon, quotes quote.Provider, opts ...Option) *Agent {
	if quotes == nil {
		quotes = quote.NewTable()
	}
	a := &Agent{
		analyzer:      analyzer.New(lex),
		quotes:        quotes,
		supportEmail:  DefaultSupportEmail,
		log:           logger.Named("agent"),
		ticketTimeout: defaultTicketTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	if a.random == nil {
		a.random = &lockedRandom{r: rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0xa71a5))}
	}
	if a.engine == nil {
		a.engine = workflow.NewEngine(workflow.WithRandom(a.random))
	}
	return a
}

// Analyzer 返回 Agent 使用的分析器。
func (a *Agent) Analyzer() *analyzer.Analyzer {
	return a.analyzer
}

// Quotes 返回报价协作方。
func (a *Agent) Quotes() quote.Provider {
	return a.quotes
}

// Process 处理一条用户消息并返回回复。空消息返回空串且不修改会话。
func (a *Agent) Process(ctx context.Context, s *dialogue.Session, message string) string {
	text := strings.TrimSpace(message)
	if text == "" || s == nil {
		return ""
	}
	s.Record(text)

	if s.InWorkflow() {
		return a.processWorkflow(ctx, s, text)
	}

	result := a.analyzer.Analyze(text)
	s.Sentiment = result.Sentiment

	if s.Context != dialogue.ContextNone {
		if reply, ok := a.resolve(s, result, text); ok {
			a.finishTurn(ctx, s, result.Intent, RouteResolver)
			return reply
		}
	}

	reply := adjustTone(a.respond(s, result), result.Sentiment)
	a.finishTurn(ctx, s, result.Intent, RouteGenerator)
	return reply
}

func (a *Agent) processWorkflow(ctx context.Context, s *dialogue.Session, text string) string {
	flow := s.Workflow
	step := s.Step
	res := a.engine.Handle(s, text)
	a.metrics.ObserveWorkflowEvent(flow.String(), string(res.Event))

	if res.Completion != nil && res.Completion.Workflow == dialogue.WorkflowTicket {
		a.submitTicket(ctx, s, res.Completion)
	}

	a.log.DebugContext(ctx, "流程推进",
		"session_id", SessionIDFromContext(ctx),
		"workflow", flow.String(),
		"step", step,
		"event", string(res.Event),
	)
	a.finishTurn(ctx, s, "", RouteWorkflow)
	return res.Reply
}

func (a *Agent) startWorkflow(s *dialogue.Session, w dialogue.Workflow) {
	s.StartWorkflow(w)
	a.metrics.ObserveWorkflowEvent(w.String(), "started")
}

// submitTicket 把完成的工单交给投递目标。投递失败只记录日志，不影响回复。
func (a *Agent) submitTicket(ctx context.Context, s *dialogue.Session, c *workflow.Completion) {
	if a.sink == nil {
		return
	}
	t := ticket.Ticket{
		ID:             c.TicketID,
		SessionID:      SessionIDFromContext(ctx),
		Issue:          c.Slots.TicketIssue,
		TransactionRef: c.Slots.TransactionRef,
		Sentiment:      string(s.Sentiment),
		CreatedAt:      c.CompletedAt,
	}

	submitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.ticketTimeout)
	defer cancel()
	if err := a.sink.Submit(submitCtx, t); err != nil {
		outcome := "failed"
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
			err = xerrors.Wrap(xerrors.CodeTimeout, err, "ticket submission timed out",
				xerrors.WithMetadata("timeout", a.ticketTimeout.String()))
		}
		a.metrics.ObserveTicket(outcome)
		a.log.WarnContext(ctx, "投递工单失败", "ticket_id", t.ID, "error", err)
		return
	}
	a.metrics.ObserveTicket("submitted")
	a.log.InfoContext(ctx, "工单已投递", "ticket_id", t.ID, "session_id", t.SessionID)
}

func (a *Agent) finishTurn(ctx context.Context, s *dialogue.Session, intent lexicon.Intent, route string) {
	label := string(intent)
	if label == "" {
		label = "none"
	}
	a.metrics.ObserveTurn(label, route)
	logger.Audit().InfoContext(ctx, "turn processed",
		"session_id", SessionIDFromContext(ctx),
		"route", route,
		"intent", label,
		"sentiment", string(s.Sentiment),
		"context", s.Context.String(),
		"workflow", s.Workflow.String(),
		"step", s.Step,
		"history", len(s.History()),
	)
}

func (a *Agent) pick(options []string) string {
	if len(options) == 0 {
		return ""
	}
	return options[a.random.IntN(len(options))]
}

// lockedRandom 让非并发安全的随机源可以被多个会话共享。
type lockedRandom struct {
	mu sync.Mutex
	r  workflow.Random
}

func (l *lockedRandom) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}
