// Package alerting 把需要人工优先处理的事件推送到值班渠道。
package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	xerrors "SettleX-Atlas/internal/errors"
	"SettleX-Atlas/pkg/logger"
)

// Channel 表示通知渠道。
type Channel string

// 支持的通知渠道
const (
	ChannelLog      Channel = "log"
	ChannelWebhook  Channel = "webhook"
	ChannelDingTalk Channel = "dingtalk"
	ChannelSlack    Channel = "slack"
)

// KnownChannel 判断渠道名称是否受支持。
func KnownChannel(c Channel) bool {
	switch c {
	case ChannelLog, ChannelWebhook, ChannelDingTalk, ChannelSlack:
		return true
	}
	return false
}

// Event 描述一次需要告警的事件。
type Event struct {
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	Severity   xerrors.Severity  `json:"severity"`
	TicketID   string            `json:"ticket_id,omitempty"`
	SessionID  string            `json:"session_id,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Text 把事件渲染为纯文本，元数据按键排序。
func (e Event) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n%s", e.Severity, e.Title, e.Message)
	if e.TicketID != "" {
		fmt.Fprintf(&b, "\n工单: %s", e.TicketID)
	}
	if e.SessionID != "" {
		fmt.Fprintf(&b, "\n会话: %s", e.SessionID)
	}
	if len(e.Metadata) > 0 {
		keys := make([]string, 0, len(e.Metadata))
		for k := range e.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "\n- %s: %s", k, e.Metadata[k])
		}
	}
	return b.String()
}

// Notifier 负责将事件发送到指定渠道。
type Notifier interface {
	Channel() Channel
	Notify(ctx context.Context, event Event) error
}

// Dispatcher 将事件广播给多个通知器。
type Dispatcher interface {
	Notify(ctx context.Context, event Event) error
}

// FanoutDispatcher 实现将事件投递到多个通知器的逻辑。
type FanoutDispatcher struct {
	notifiers []Notifier
}

// NewFanout 创建一个新的 FanoutDispatcher。
func NewFanout(notifiers ...Notifier) *FanoutDispatcher {
	list := make([]Notifier, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			list = append(list, n)
		}
	}
	return &FanoutDispatcher{notifiers: list}
}

// Len 返回已注册的通知器数量。
func (d *FanoutDispatcher) Len() int {
	if d == nil {
		return 0
	}
	return len(d.notifiers)
}

// Notify 将事件广播至所有注册渠道。
func (d *FanoutDispatcher) Notify(ctx context.Context, event Event) error {
	if d == nil {
		return nil
	}
	var errs []error
	for _, notifier := range d.notifiers {
		if err := notifier.Notify(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("channel %s: %w", notifier.Channel(), err))
		}
	}
	return errors.Join(errs...)
}

// LogNotifier 把告警写入应用日志，适合没有外部渠道的部署。
type LogNotifier struct {
	Logger *slog.Logger
}

// Channel 返回日志渠道。
func (n *LogNotifier) Channel() Channel { return ChannelLog }

// Notify 以 warn 级别记录事件。
func (n *LogNotifier) Notify(ctx context.Context, event Event) error {
	log := logger.Named("alerting")
	if n != nil && n.Logger != nil {
		log = n.Logger
	}
	log.WarnContext(ctx, event.Title,
		slog.String("severity", string(event.Severity)),
		slog.String("ticket_id", event.TicketID),
		slog.String("session_id", event.SessionID),
		slog.String("message", event.Message),
	)
	return nil
}

// WebhookNotifier 通过 HTTP 回调发送告警。钉钉与 Slack 使用各自机器人的
// 消息格式，普通 webhook 直接发送事件 JSON。
type WebhookNotifier struct {
	URL    string
	Kind   Channel
	Client *http.Client
}

// Channel 返回 webhook 的渠道类型。
func (n *WebhookNotifier) Channel() Channel {
	if n == nil || n.Kind == "" {
		return ChannelWebhook
	}
	return n.Kind
}

// Notify 发送一次回调，非 2xx 响应视为失败。
func (n *WebhookNotifier) Notify(ctx context.Context, event Event) error {
	if n == nil || n.URL == "" {
		logger.L().Warn("WebhookNotifier 未正确配置，跳过发送", slog.String("ticket_id", event.TicketID))
		return nil
	}

	var payload any
	switch n.Channel() {
	case ChannelDingTalk:
		payload = map[string]any{
			"msgtype": "text",
			"text":    map[string]string{"content": event.Text()},
		}
	case ChannelSlack:
		payload = map[string]string{"text": event.Text()}
	default:
		payload = event
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := n.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send alert: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("alert webhook returned %d", resp.StatusCode)
	}
	return nil
}
