// Package ticket 负责把对话中创建的支持工单投递给运营团队。
package ticket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	xerrors "SettleX-Atlas/internal/errors"
)

// CodeSubmitFailed 表示工单投递失败。
const CodeSubmitFailed xerrors.Code = "TICKET_SUBMIT_FAILED"

func init() {
	xerrors.Register(CodeSubmitFailed, xerrors.Attributes{
		Message:    "ticket submission failed",
		Severity:   xerrors.SeverityCritical,
		Retryable:  true,
		HTTPStatus: 502,
	})
}

// Ticket 是一张已创建的支持工单。
type Ticket struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"session_id,omitempty"`
	Issue          string    `json:"issue"`
	TransactionRef string    `json:"transaction_ref"`
	Sentiment      string    `json:"sentiment,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Encode 以 JSON 编码工单，供队列类投递使用。
func (t Ticket) Encode() ([]byte, error) {
	return json.Marshal(t)
}

// Sink 接收完成的工单。
type Sink interface {
	Submit(ctx context.Context, t Ticket) error
	Close() error
}

// Lister 是可以回查最近工单的投递目标。
type Lister interface {
	ListLatest(ctx context.Context, limit int) ([]Ticket, error)
}

// MemorySink 把工单保存在内存中，主要用于测试与单机演示。
type MemorySink struct {
	mu      sync.RWMutex
	tickets []Ticket
}

// NewMemorySink 创建内存投递目标。
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Submit 记录工单。
func (m *MemorySink) Submit(ctx context.Context, t Ticket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.tickets = append(m.tickets, t)
	m.mu.Unlock()
	return nil
}

// Tickets 返回已记录工单的副本。
func (m *MemorySink) Tickets() []Ticket {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Ticket, len(m.tickets))
	copy(out, m.tickets)
	return out
}

// ListLatest 按创建顺序倒序返回最多 limit 条工单，limit <= 0 时默认 20。
func (m *MemorySink) ListLatest(_ context.Context, limit int) ([]Ticket, error) {
	if limit <= 0 {
		limit = 20
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Ticket, 0, min(limit, len(m.tickets)))
	for i := len(m.tickets) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.tickets[i])
	}
	return out, nil
}

// Close 实现 Sink。
func (m *MemorySink) Close() error { return nil }

// Fanout 把工单同时投递给多个目标，任一失败都会返回合并后的错误。
type Fanout struct {
	sinks []Sink
}

// NewFanout 创建多路投递目标，nil 会被忽略。
func NewFanout(sinks ...Sink) *Fanout {
	list := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			list = append(list, s)
		}
	}
	return &Fanout{sinks: list}
}

// Submit 投递到全部目标。
func (f *Fanout) Submit(ctx context.Context, t Ticket) error {
	var errs []error
	for i, sink := range f.sinks {
		if err := sink.Submit(ctx, t); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	if len(errs) > 0 {
		return xerrors.Wrap(CodeSubmitFailed, errors.Join(errs...), "工单投递失败",
			xerrors.WithMetadata("ticket_id", t.ID))
	}
	return nil
}

// Close 关闭全部目标。
func (f *Fanout) Close() error {
	var errs []error
	for _, sink := range f.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ Sink   = (*MemorySink)(nil)
	_ Lister = (*MemorySink)(nil)
	_ Sink   = (*Fanout)(nil)
)
