// Package dialogue 保存单个会话的可变状态：上下文标签、进行中的流程、
// 已收集的槽位与有界的交互历史。
//
// Session 不是并发安全的，同一会话的消息必须串行处理。
package dialogue

import (
	"time"

	"SettleX-Atlas/internal/lexicon"
)

// DefaultMaxHistory 是未指定容量时保留的历史条数。
const DefaultMaxHistory = 50

// ContextTag 标记会话正在等待补全的某一项信息。
type ContextTag int

const (
	ContextNone ContextTag = iota
	ContextAwaitingCurrencyForRate
	ContextAwaitingCalculationDetails
	ContextAwaitingTermDefinition
)

func (c ContextTag) String() string {
	switch c {
	case ContextAwaitingCurrencyForRate:
		return "awaiting_currency_for_rate"
	case ContextAwaitingCalculationDetails:
		return "awaiting_calculation_details"
	case ContextAwaitingTermDefinition:
		return "awaiting_term_definition"
	default:
		return ""
	}
}

// Workflow 是多步流程的名称。
type Workflow int

const (
	WorkflowNone Workflow = iota
	WorkflowOnboarding
	WorkflowTicket
)

func (w Workflow) String() string {
	switch w {
	case WorkflowOnboarding:
		return "onboarding"
	case WorkflowTicket:
		return "ticket"
	default:
		return ""
	}
}

// Slots 保存跨轮次收集的信息。
type Slots struct {
	PendingAmount   float64 `json:"pending_amount,omitempty"`
	PendingCurrency string  `json:"pending_currency,omitempty"`
	CompanyName     string  `json:"company_name,omitempty"`
	PAN             string  `json:"pan,omitempty"`
	GSTIN           string  `json:"gstin,omitempty"`
	TicketIssue     string  `json:"ticket_issue,omitempty"`
	TransactionRef  string  `json:"transaction_ref,omitempty"`
}

// Entry 是一条历史消息。
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
}

// Session 是一次对话的全部状态，由调用方创建并在每轮传入。
type Session struct {
	Context   ContextTag
	Workflow  Workflow
	Step      int
	Slots     Slots
	Sentiment lexicon.Sentiment
	StartedAt time.Time

	history    []Entry
	maxHistory int
	now        func() time.Time
}

// Option 定义可选的会话配置。
type Option func(*Session)

// WithClock 替换会话使用的时钟，主要用于测试。
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSession 创建一个新会话。maxHistory <= 0 时使用 DefaultMaxHistory。
func NewSession(maxHistory int, opts ...Option) *Session {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	s := &Session{
		Sentiment:  lexicon.SentimentNeutral,
		maxHistory: maxHistory,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.StartedAt = s.now()
	return s
}

// Record 追加一条历史，超过容量时淘汰最早的记录。
func (s *Session) Record(text string) {
	s.history = append(s.history, Entry{Timestamp: s.now(), Text: text})
	if over := len(s.history) - s.maxHistory; over > 0 {
		s.history = append(s.history[:0], s.history[over:]...)
	}
}

// History 返回历史记录的副本，按时间先后排列。
func (s *Session) History() []Entry {
	out := make([]Entry, len(s.history))
	copy(out, s.history)
	return out
}

// MaxHistory 返回历史容量。
func (s *Session) MaxHistory() int {
	return s.maxHistory
}

// InWorkflow 报告是否有进行中的流程。
func (s *Session) InWorkflow() bool {
	return s.Workflow != WorkflowNone
}

// StartWorkflow 启动流程：步骤归零，槽位与上下文清空。
func (s *Session) StartWorkflow(w Workflow) {
	s.Workflow = w
	s.Step = 0
	s.Slots = Slots{}
	s.Context = ContextNone
}

// Advance 把流程推进一步。
func (s *Session) Advance() {
	s.Step++
}

// EndWorkflow 结束流程并清理流程相关的全部状态。
func (s *Session) EndWorkflow() {
	s.Workflow = WorkflowNone
	s.Step = 0
	s.Context = ContextNone
	s.Slots = Slots{}
}

// ClearPending 清除换算相关的暂存槽位。
func (s *Session) ClearPending() {
	s.Slots.PendingAmount = 0
	s.Slots.PendingCurrency = ""
}
