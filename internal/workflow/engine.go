// Package workflow 实现开户预检与支持工单两个多步流程的状态机。
//
// 每个流程由按步骤编号索引的 step 表描述，步骤 0 始终是确认环节。
// 步骤只会前进一步、原地停留或整体结束，不会回退。
package workflow

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"SettleX-Atlas/internal/dialogue"
)

// Event 描述一轮流程处理的结果类型，用于指标与审计日志。
type Event string

const (
	EventAdvanced  Event = "advanced"
	EventRejected  Event = "rejected"
	EventCompleted Event = "completed"
	EventAbandoned Event = "abandoned"
	EventCancelled Event = "cancelled"
)

// Random 是生成工单号所需的随机源，*rand.Rand 满足该接口。
type Random interface {
	IntN(n int) int
}

// Completion 记录一次完成的流程。
type Completion struct {
	Workflow    dialogue.Workflow `json:"workflow"`
	Slots       dialogue.Slots    `json:"slots"`
	TicketID    string            `json:"ticket_id,omitempty"`
	CompletedAt time.Time         `json:"completed_at"`
}

// Result 是流程引擎处理一条消息后的输出。
type Result struct {
	Reply      string
	Event      Event
	Completion *Completion
}

const (
	cancelReply = "Workflow cancelled. How else can I help?"
	resetReply  = "Workflow Error. Resetting."
)

var cancelWords = map[string]struct{}{
	"cancel": {},
	"stop":   {},
	"exit":   {},
}

// Engine 驱动流程状态机。Engine 本身可被多个会话共享。
type Engine struct {
	flows map[dialogue.Workflow][]step

	mu   sync.Mutex
	rand Random
	now  func() time.Time
}

// Option 定义可选的引擎配置。
type Option func(*Engine)

// WithRandom 注入生成工单号的随机源。
func WithRandom(r Random) Option {
	return func(e *Engine) {
		if r != nil {
			e.rand = r
		}
	}
}

// WithClock 替换完成时间使用的时钟。
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine 创建流程引擎。
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		flows: map[dialogue.Workflow][]step{
			dialogue.WorkflowOnboarding: onboardingSteps(),
			dialogue.WorkflowTicket:     ticketSteps(),
		},
		rand: rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5e771e)),
		now:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// IsCancel 判断输入是否为取消指令。
func IsCancel(input string) bool {
	_, ok := cancelWords[strings.ToLower(strings.TrimSpace(input))]
	return ok
}

// Handle 用当前步骤处理输入。会话没有进行中的流程时返回零值。
func (e *Engine) Handle(s *dialogue.Session, input string) Result {
	if s == nil || !s.InWorkflow() {
		return Result{}
	}
	input = strings.TrimSpace(input)

	if IsCancel(input) {
		s.EndWorkflow()
		return Result{Reply: cancelReply, Event: EventCancelled}
	}

	steps := e.flows[s.Workflow]
	if s.Step < 0 || s.Step >= len(steps) {
		s.EndWorkflow()
		return Result{Reply: resetReply, Event: EventAbandoned}
	}
	current := steps[s.Step]

	if current.accepts != nil && !current.accepts(input) {
		if current.onReject == stay {
			return Result{Reply: current.rejectReply, Event: EventRejected}
		}
		s.EndWorkflow()
		return Result{Reply: current.rejectReply, Event: EventAbandoned}
	}

	if current.capture != nil {
		current.capture(&s.Slots, input)
	}

	if current.onAccept == advance {
		s.Advance()
		return Result{Reply: current.acceptReply(turn{input: input, slots: s.Slots}), Event: EventAdvanced}
	}

	completion := &Completion{
		Workflow:    s.Workflow,
		Slots:       s.Slots,
		CompletedAt: e.now(),
	}
	if s.Workflow == dialogue.WorkflowTicket {
		completion.TicketID = e.ticketID()
	}
	reply := current.acceptReply(turn{input: input, slots: s.Slots, ticketID: completion.TicketID})
	s.EndWorkflow()
	return Result{Reply: reply, Event: EventCompleted, Completion: completion}
}

// Steps 返回流程的步骤数。
func (e *Engine) Steps(w dialogue.Workflow) int {
	return len(e.flows[w])
}

func (e *Engine) ticketID() string {
	e.mu.Lock()
	n := e.rand.IntN(10000)
	e.mu.Unlock()
	return fmt.Sprintf("TKT-%04d", n)
}
