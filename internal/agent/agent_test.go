package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"SettleX-Atlas/internal/dialogue"
	"SettleX-Atlas/internal/lexicon"
	"SettleX-Atlas/internal/observability/metrics"
	"SettleX-Atlas/internal/quote"
	"SettleX-Atlas/internal/ticket"
)

type fixedRandom int

func (f fixedRandom) IntN(n int) int { return int(f) % n }

// switchableQuotes 包装 Table，可以在测试中切换就绪状态。
type switchableQuotes struct {
	*quote.Table
	ready bool
}

func (s *switchableQuotes) Ready() bool { return s.ready && s.Table.Ready() }

func (s *switchableQuotes) Quote(amount float64, currency string, direction quote.Direction) (*quote.Quote, error) {
	if !s.ready {
		return nil, quote.ErrNotReady
	}
	return s.Table.Quote(amount, currency, direction)
}

type failingSink struct{}

func (failingSink) Submit(context.Context, ticket.Ticket) error { return errors.New("queue down") }
func (failingSink) Close() error                                { return nil }

// blockingSink 一直阻塞到投递上下文结束。
type blockingSink struct{}

func (blockingSink) Submit(ctx context.Context, _ ticket.Ticket) error {
	<-ctx.Done()
	return ctx.Err()
}
func (blockingSink) Close() error { return nil }

func readyTable() *quote.Table {
	return quote.NewTable(quote.WithRates(quote.FallbackRates()))
}

func newTestAgent(opts ...Option) *Agent {
	opts = append([]Option{WithRandom(fixedRandom(42))}, opts...)
	return New(nil, readyTable(), opts...)
}

func send(t *testing.T, a *Agent, s *dialogue.Session, msgs ...string) string {
	t.Helper()
	var reply string
	for _, msg := range msgs {
		reply = a.Process(context.Background(), s, msg)
	}
	return reply
}

func TestGreetingIsOneOfFixedReplies(t *testing.T) {
	a := New(nil, readyTable())
	s := dialogue.NewSession(0)

	reply := send(t, a, s, "hi")
	for _, g := range greetings {
		if reply == g {
			return
		}
	}
	t.Fatalf("unexpected greeting: %q", reply)
}

func TestRateInquiryUsesCurrencyContext(t *testing.T) {
	a := newTestAgent()
	s := dialogue.NewSession(0)

	if reply := send(t, a, s, "rate"); reply != ratePrompt {
		t.Fatalf("unexpected prompt: %q", reply)
	}
	if s.Context != dialogue.ContextAwaitingCurrencyForRate {
		t.Fatalf("expected awaiting currency, got %v", s.Context)
	}

	reply := send(t, a, s, "USD")
	if !strings.Contains(reply, "**USD Live Wholesale**: ₹83.67") {
		t.Fatalf("unexpected rate reply: %q", reply)
	}
	if !strings.Contains(reply, "~2.3% per unit") {
		t.Fatalf("unexpected savings percent: %q", reply)
	}
	if s.Context != dialogue.ContextNone {
		t.Fatalf("context should be cleared, got %v", s.Context)
	}
}

func TestCurrencyContextIsOneShot(t *testing.T) {
	a := newTestAgent()
	s := dialogue.NewSession(0)

	reply := send(t, a, s, "rate", "bitcoin")
	if reply != "I didn't catch that currency. We support EUR, GBP, SGD, USD, or VND. Which one are you interested in?" {
		t.Fatalf("unexpected retry reply: %q", reply)
	}
	if s.Context != dialogue.ContextNone {
		t.Fatalf("context should stay cleared after a failed retry")
	}

	if reply := send(t, a, s, "rate", "bye"); reply != "No problem. Let me know if you need rates later." {
		t.Fatalf("unexpected goodbye reply: %q", reply)
	}
}

func TestUnsupportedCurrencyNamesSupportedList(t *testing.T) {
	a := newTestAgent()
	s := dialogue.NewSession(0)

	reply := send(t, a, s, "yen rate")
	if reply != "I don't have live data for JPY right now. Please try EUR, GBP, SGD, USD, or VND." {
		t.Fatalf("unexpected reply: %q", reply)
	}
}

func TestConvertProducesCostBreakdown(t *testing.T) {
	a := newTestAgent()
	s := dialogue.NewSession(0)

	reply := send(t, a, s, "convert 1000 sgd")
	for _, want := range []string{
		"Cost Analysis for 1000 SGD",
		"Traditional Bank Cost: ₹66,460",
		"SettleX Wholesale Cost: ₹62,525",
		"Total Profit Recovered: ₹3,935",
	} {
		if !strings.Contains(reply, want) {
			t.Fatalf("reply missing %q: %q", want, reply)
		}
	}
	if s.Context != dialogue.ContextNone {
		t.Fatalf("context should remain empty, got %v", s.Context)
	}
}

func TestCalculationContextCollectsMissingDetails(t *testing.T) {
	a := newTestAgent()
	s := dialogue.NewSession(0)

	if reply := send(t, a, s, "convert"); reply != calculatorPrompt {
		t.Fatalf("unexpected prompt: %q", reply)
	}
	if reply := send(t, a, s, "5000"); reply != "Got the amount (5000). Now, which currency? (e.g. USD)" {
		t.Fatalf("unexpected amount reply: %q", reply)
	}
	if s.Context != dialogue.ContextAwaitingCalculationDetails || s.Slots.PendingAmount != 5000 {
		t.Fatalf("amount should be kept: %+v %v", s.Slots, s.Context)
	}
	if reply := send(t, a, s, "hmm"); reply != "Got the amount (5000). Now, which currency? (e.g. USD)" {
		t.Fatalf("pending amount should be reused: %q", reply)
	}

	reply := send(t, a, s, "usd")
	if !strings.Contains(reply, "Cost Analysis for 5000 USD") {
		t.Fatalf("unexpected conversion: %q", reply)
	}
	if s.Context != dialogue.ContextNone || s.Slots.PendingAmount != 0 || s.Slots.PendingCurrency != "" {
		t.Fatalf("pending slots should be cleared: %+v", s.Slots)
	}
}

func TestCalculationContextWithNothingUseful(t *testing.T) {
	a := newTestAgent()
	s := dialogue.NewSession(0)

	reply := send(t, a, s, "convert", "no idea")
	if reply != "I still need an amount and a currency to help (e.g., '1000 USD')." {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if s.Context != dialogue.ContextNone {
		t.Fatalf("context should be consumed")
	}
}

func TestOnboardingDeclinedAtIEC(t *testing.T) {
	a := newTestAgent()
	s := dialogue.NewSession(0)

	if reply := send(t, a, s, "sign up"); reply != onboardingPrompt {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if s.Workflow != dialogue.WorkflowOnboarding || s.Step != 0 {
		t.Fatalf("onboarding should start at step 0: %v %d", s.Workflow, s.Step)
	}

	send(t, a, s, "yes")
	if s.Step != 1 {
		t.Fatalf("expected step 1, got %d", s.Step)
	}

	send(t, a, s, "no")
	if s.InWorkflow() || s.Context != dialogue.ContextNone {
		t.Fatalf("workflow should be cleared: %v %v", s.Workflow, s.Context)
	}
}

func TestTicketWorkflowSubmitsToSink(t *testing.T) {
	sink := ticket.NewMemorySink()
	a := newTestAgent(WithTicketSink(sink))
	s := dialogue.NewSession(0)
	ctx := WithSessionID(context.Background(), "s-42")

	reply := a.Process(ctx, s, "I have an urgent problem")
	if reply != priorityBanner+ticketPrompt {
		t.Fatalf("unexpected reply: %q", reply)
	}
	a.Process(ctx, s, "yes")
	a.Process(ctx, s, "Payout stuck since Monday")
	reply = a.Process(ctx, s, "TX-991")

	if !strings.Contains(reply, "Ticket Created: TKT-0042") {
		t.Fatalf("unexpected completion: %q", reply)
	}
	tickets := sink.Tickets()
	if len(tickets) != 1 {
		t.Fatalf("expected one ticket, got %d", len(tickets))
	}
	got := tickets[0]
	if got.ID != "TKT-0042" || got.SessionID != "s-42" || got.Issue != "Payout stuck since Monday" || got.TransactionRef != "TX-991" {
		t.Fatalf("unexpected ticket: %+v", got)
	}
	if s.InWorkflow() || s.Slots != (dialogue.Slots{}) {
		t.Fatalf("workflow state should be cleared")
	}
}

func TestTicketSinkFailureDoesNotChangeReply(t *testing.T) {
	collector := metrics.New()
	a := newTestAgent(WithTicketSink(failingSink{}), WithMetrics(collector))
	s := dialogue.NewSession(0)

	reply := send(t, a, s, "urgent problem", "yes", "payout stuck", "NA")
	if !strings.Contains(reply, "Ticket Created: TKT-0042") {
		t.Fatalf("unexpected reply: %q", reply)
	}

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`atlas_tickets_total{outcome="failed"} 1`,
		`atlas_workflow_events_total{event="completed",workflow="ticket"} 1`,
		`atlas_workflow_events_total{event="started",workflow="ticket"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
}

func TestTicketSubmitTimeoutIsCounted(t *testing.T) {
	collector := metrics.New()
	a := newTestAgent(WithTicketSink(blockingSink{}), WithTicketTimeout(10*time.Millisecond), WithMetrics(collector))
	s := dialogue.NewSession(0)

	reply := send(t, a, s, "urgent problem", "yes", "payout stuck", "NA")
	if !strings.Contains(reply, "Ticket Created: TKT-0042") {
		t.Fatalf("unexpected reply: %q", reply)
	}

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if want := `atlas_tickets_total{outcome="timeout"} 1`; !strings.Contains(rec.Body.String(), want) {
		t.Fatalf("metrics missing %q:\n%s", want, rec.Body.String())
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	a := newTestAgent()
	s := dialogue.NewSession(0)

	send(t, a, s, "open account", "yes")
	if reply := send(t, a, s, "Cancel"); reply != "Workflow cancelled. How else can I help?" {
		t.Fatalf("unexpected cancel reply: %q", reply)
	}
	if s.InWorkflow() || s.Step != 0 || s.Context != dialogue.ContextNone {
		t.Fatalf("cancel should clear workflow state")
	}

	send(t, a, s, "cancel")
	if s.InWorkflow() || s.Context != dialogue.ContextNone {
		t.Fatalf("second cancel should leave state unchanged")
	}
}

func TestNotReadyDegradesOnlyQuoteIntents(t *testing.T) {
	quotes := &switchableQuotes{Table: readyTable()}
	a := New(nil, quotes, WithRandom(fixedRandom(0)))
	s := dialogue.NewSession(0)

	if reply := send(t, a, s, "usd rate"); reply != notReadyReply {
		t.Fatalf("expected not-ready reply, got %q", reply)
	}
	if reply := send(t, a, s, "convert 100 usd"); reply != notReadyReply {
		t.Fatalf("expected not-ready reply, got %q", reply)
	}
	if s.Context != dialogue.ContextNone {
		t.Fatalf("not-ready must not change context")
	}
	if reply := send(t, a, s, "hi"); reply != greetings[0] {
		t.Fatalf("greeting should still work, got %q", reply)
	}
	if reply := send(t, a, s, "what is fema"); !strings.HasPrefix(reply, "📖 **FEMA**") {
		t.Fatalf("dictionary should still work, got %q", reply)
	}
}

func TestNotReadyKeepsPendingContext(t *testing.T) {
	quotes := &switchableQuotes{Table: readyTable(), ready: true}
	a := New(nil, quotes, WithRandom(fixedRandom(0)))
	s := dialogue.NewSession(0)

	send(t, a, s, "convert 250")
	quotes.ready = false
	if reply := send(t, a, s, "gbp"); reply != notReadyReply {
		t.Fatalf("expected not-ready reply, got %q", reply)
	}
	if s.Context != dialogue.ContextAwaitingCalculationDetails || s.Slots.PendingAmount != 250 {
		t.Fatalf("pending calculation should survive: %v %+v", s.Context, s.Slots)
	}

	quotes.ready = true
	if reply := send(t, a, s, "gbp"); !strings.Contains(reply, "Cost Analysis for 250 GBP") {
		t.Fatalf("unexpected conversion: %q", reply)
	}
}

func TestToneAppliesOnlyToGeneratorReplies(t *testing.T) {
	a := newTestAgent()

	s := dialogue.NewSession(0)
	reply := send(t, a, s, "my payment failed, this is bad")
	if reply != apologyPrefix+ticketPrompt {
		t.Fatalf("expected apology prefix, got %q", reply)
	}

	s = dialogue.NewSession(0)
	send(t, a, s, "rate")
	reply = send(t, a, s, "usd now")
	if strings.HasPrefix(reply, priorityBanner) {
		t.Fatalf("resolver replies must not be tone adjusted: %q", reply)
	}
	if s.Sentiment != lexicon.SentimentUrgent {
		t.Fatalf("sentiment should still be recorded, got %s", s.Sentiment)
	}

	s = dialogue.NewSession(0)
	send(t, a, s, "I have an urgent problem")
	reply = send(t, a, s, "yes now")
	if strings.HasPrefix(reply, priorityBanner) {
		t.Fatalf("workflow replies must not be tone adjusted: %q", reply)
	}
}

func TestTermDefinitionContext(t *testing.T) {
	a := newTestAgent()
	s := dialogue.NewSession(0)

	if reply := send(t, a, s, "what is"); reply != termPrompt {
		t.Fatalf("unexpected prompt: %q", reply)
	}
	reply := send(t, a, s, "HS Code")
	if !strings.HasPrefix(reply, "📖 **HS_CODE**: Harmonized System Code") {
		t.Fatalf("unexpected definition: %q", reply)
	}

	send(t, a, s, "define")
	if reply := send(t, a, s, "letter of credit"); reply != termNotFoundReply {
		t.Fatalf("unexpected not-found reply: %q", reply)
	}
	if s.Context != dialogue.ContextNone {
		t.Fatalf("context should be cleared either way")
	}
}

func TestSupportRoutesToGuides(t *testing.T) {
	a := newTestAgent(WithSupportEmail("ops@example.com"))
	lex := lexicon.Default()

	cases := map[string]string{
		"how do i contact support":         fmt.Sprintf(supportReplyFmt, "ops@example.com"),
		"help with login":                  lex.Troubleshooting[lexicon.GuideLoginIssue],
		"transfer declined as rejected":    lex.Troubleshooting[lexicon.GuidePaymentFailed],
		"my document upload was rejected":  lex.Troubleshooting[lexicon.GuideDocRejected],
		"transfer not received, need help": lex.Troubleshooting[lexicon.GuideFiraMissing],
	}
	for msg, want := range cases {
		s := dialogue.NewSession(0)
		if reply := send(t, a, s, msg); reply != want {
			t.Fatalf("%q: got %q want %q", msg, reply, want)
		}
	}
}

func TestEmptyInputLeavesSessionUntouched(t *testing.T) {
	a := newTestAgent()
	s := dialogue.NewSession(0)

	if reply := send(t, a, s, "   "); reply != "" {
		t.Fatalf("expected empty reply, got %q", reply)
	}
	if len(s.History()) != 0 {
		t.Fatalf("history should stay empty")
	}
}

func TestHistoryEvictsOldestEntries(t *testing.T) {
	a := newTestAgent()
	s := dialogue.NewSession(3)

	send(t, a, s, "m1", "m2", "m3", "m4", "m5")
	history := s.History()
	if len(history) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(history))
	}
	for i, want := range []string{"m3", "m4", "m5"} {
		if history[i].Text != want {
			t.Fatalf("entry %d = %q, want %q", i, history[i].Text, want)
		}
	}
}

func TestFallbackForUnknownIntent(t *testing.T) {
	a := newTestAgent()
	s := dialogue.NewSession(0)
	if reply := send(t, a, s, "qwerty"); reply != fallbackReply {
		t.Fatalf("unexpected fallback: %q", reply)
	}
}
