package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	xerrors "SettleX-Atlas/internal/errors"
	"SettleX-Atlas/internal/ticket"
)

type recordingNotifier struct {
	channel Channel
	events  []Event
	err     error
}

func (n *recordingNotifier) Channel() Channel { return n.channel }

func (n *recordingNotifier) Notify(_ context.Context, event Event) error {
	n.events = append(n.events, event)
	return n.err
}

func TestFanoutJoinsErrors(t *testing.T) {
	ok := &recordingNotifier{channel: ChannelLog}
	bad := &recordingNotifier{channel: ChannelSlack, err: errors.New("boom")}
	d := NewFanout(ok, nil, bad)
	if d.Len() != 2 {
		t.Fatalf("nil notifier should be skipped, got %d", d.Len())
	}

	err := d.Notify(context.Background(), Event{Title: "t"})
	if err == nil || !strings.Contains(err.Error(), "channel slack") {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ok.events) != 1 || len(bad.events) != 1 {
		t.Fatalf("every notifier should be called")
	}

	var nilDispatcher *FanoutDispatcher
	if err := nilDispatcher.Notify(context.Background(), Event{}); err != nil {
		t.Fatalf("nil dispatcher should be a no-op: %v", err)
	}
}

func TestWebhookNotifierPayloads(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content type")
		}
		got = nil
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	event := Event{Title: "priority ticket", Message: "payout stuck", Severity: xerrors.SeverityCritical, TicketID: "TKT-0042"}

	slack := &WebhookNotifier{URL: srv.URL, Kind: ChannelSlack, Client: srv.Client()}
	if err := slack.Notify(context.Background(), event); err != nil {
		t.Fatalf("slack notify: %v", err)
	}
	if text, _ := got["text"].(string); !strings.Contains(text, "TKT-0042") {
		t.Fatalf("unexpected slack payload: %v", got)
	}

	ding := &WebhookNotifier{URL: srv.URL, Kind: ChannelDingTalk, Client: srv.Client()}
	if err := ding.Notify(context.Background(), event); err != nil {
		t.Fatalf("dingtalk notify: %v", err)
	}
	if got["msgtype"] != "text" {
		t.Fatalf("unexpected dingtalk payload: %v", got)
	}

	plain := &WebhookNotifier{URL: srv.URL, Client: srv.Client()}
	if plain.Channel() != ChannelWebhook {
		t.Fatalf("default channel should be webhook")
	}
	if err := plain.Notify(context.Background(), event); err != nil {
		t.Fatalf("webhook notify: %v", err)
	}
	if got["ticket_id"] != "TKT-0042" || got["severity"] != "critical" {
		t.Fatalf("unexpected webhook payload: %v", got)
	}
}

func TestWebhookNotifierRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	n := &WebhookNotifier{URL: srv.URL, Client: srv.Client()}
	if err := n.Notify(context.Background(), Event{}); err == nil {
		t.Fatalf("expected error for 502")
	}
}

func TestEventTextSortsMetadata(t *testing.T) {
	text := Event{Title: "t", Message: "m", Severity: xerrors.SeverityWarning, Metadata: map[string]string{"b": "2", "a": "1"}}.Text()
	if strings.Index(text, "- a: 1") > strings.Index(text, "- b: 2") {
		t.Fatalf("metadata not sorted: %s", text)
	}
}

func TestEscalationSink(t *testing.T) {
	mem := ticket.NewMemorySink()
	rec := &recordingNotifier{channel: ChannelLog}
	sink := NewEscalationSink(mem, NewFanout(rec))
	fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	sink.now = func() time.Time { return fixed }

	ctx := context.Background()
	if err := sink.Submit(ctx, ticket.Ticket{ID: "TKT-0001", Sentiment: "neutral"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := sink.Submit(ctx, ticket.Ticket{ID: "TKT-0002", Sentiment: "urgent", Issue: "funds blocked", TransactionRef: "TX-1"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if len(mem.Tickets()) != 2 {
		t.Fatalf("both tickets should reach the wrapped sink")
	}
	if len(rec.events) != 1 {
		t.Fatalf("expected one escalation, got %d", len(rec.events))
	}
	ev := rec.events[0]
	if ev.TicketID != "TKT-0002" || ev.Severity != xerrors.SeverityCritical || !ev.OccurredAt.Equal(fixed) {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.Metadata["transaction_ref"] != "TX-1" {
		t.Fatalf("metadata missing: %+v", ev.Metadata)
	}
}

func TestEscalationSinkIgnoresNotifierFailure(t *testing.T) {
	mem := ticket.NewMemorySink()
	rec := &recordingNotifier{channel: ChannelSlack, err: errors.New("down")}
	sink := NewEscalationSink(mem, NewFanout(rec), "negative", "urgent")

	if err := sink.Submit(context.Background(), ticket.Ticket{ID: "TKT-0003", Sentiment: "negative"}); err != nil {
		t.Fatalf("notifier failure must not fail submit: %v", err)
	}
	if len(rec.events) != 1 || rec.events[0].Severity != xerrors.SeverityWarning {
		t.Fatalf("unexpected events: %+v", rec.events)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
