package alerting

import (
	"context"
	"log/slog"
	"strings"
	"time"

	xerrors "SettleX-Atlas/internal/errors"
	"SettleX-Atlas/internal/ticket"
	"SettleX-Atlas/pkg/logger"
)

// EscalationSink 包装一个工单投递目标：投递成功后，情绪命中升级名单的
// 工单会额外触发一次告警。告警失败只记录日志，不影响工单本身。
type EscalationSink struct {
	next       ticket.Sink
	dispatcher Dispatcher
	sentiments map[string]struct{}
	now        func() time.Time
}

// NewEscalationSink 创建升级包装器。sentiments 为空时只升级 urgent 工单。
func NewEscalationSink(next ticket.Sink, dispatcher Dispatcher, sentiments ...string) *EscalationSink {
	set := make(map[string]struct{}, len(sentiments))
	for _, s := range sentiments {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			set[s] = struct{}{}
		}
	}
	if len(set) == 0 {
		set["urgent"] = struct{}{}
	}
	return &EscalationSink{next: next, dispatcher: dispatcher, sentiments: set, now: time.Now}
}

// Submit 实现 ticket.Sink。
func (s *EscalationSink) Submit(ctx context.Context, t ticket.Ticket) error {
	if err := s.next.Submit(ctx, t); err != nil {
		return err
	}
	if _, ok := s.sentiments[strings.ToLower(t.Sentiment)]; !ok || s.dispatcher == nil {
		return nil
	}

	severity := xerrors.SeverityWarning
	if t.Sentiment == "urgent" {
		severity = xerrors.SeverityCritical
	}
	event := Event{
		Title:      "需要优先处理的支持工单",
		Message:    t.Issue,
		Severity:   severity,
		TicketID:   t.ID,
		SessionID:  t.SessionID,
		Metadata:   map[string]string{"transaction_ref": t.TransactionRef, "sentiment": t.Sentiment},
		OccurredAt: s.now(),
	}
	if err := s.dispatcher.Notify(ctx, event); err != nil {
		logger.L().Error("告警通知失败",
			slog.Any("error", err),
			slog.String("ticket_id", t.ID),
		)
	}
	return nil
}

// Close 关闭被包装的目标。
func (s *EscalationSink) Close() error {
	return s.next.Close()
}

var _ ticket.Sink = (*EscalationSink)(nil)
