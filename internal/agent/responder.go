package agent

import (
	"fmt"
	"strconv"
	"strings"

	"SettleX-Atlas/internal/analyzer"
	"SettleX-Atlas/internal/dialogue"
	xerrors "SettleX-Atlas/internal/errors"
	"SettleX-Atlas/internal/lexicon"
	"SettleX-Atlas/internal/quote"
)

const (
	notReadyReply = "I'm currently establishing a secure handshake with the GIFT City server to get live rates. Please try again in 2 seconds."

	ratePrompt        = "I can check live wholesale rates for you. Which currency? (USD, SGD, GBP, EUR)"
	calculatorPrompt  = "I can calculate that instant savings for you. How much do you want to convert? (e.g., '5000 USD')"
	onboardingPrompt  = "Opening an account is fully digital. Would you like me to guide you through the requirements? (Type 'Yes' to start)"
	ticketPrompt      = "I detect this is urgent. Would you like to raise a **Priority Support Ticket** right now? (Type 'Yes')"
	termPrompt        = "I have a full trade dictionary. Which term do you want defined? (e.g., 'EEFC', 'HS Code', 'FEMA')"
	termNotFoundReply = "I couldn't find a definition for that specific term in my trade dictionary. Try 'FEMA', 'HS Code', or 'BRC'."
	thanksReply       = "You're very welcome! SettleX is always here to help."
	goodbyeReply      = "Goodbye! Keep your margins high and your compliance clean. 👋"
	personalityReply  = "I'm Atlas, a digital assistant built on the SettleX infrastructure. I process trade data faster than you can say 'Letter of Credit'."
	fallbackReply     = "I'm trained on Trade Finance, Live FX Rates, and Compliance rules. You can ask: 'Current USD Rate', 'What is RoDTEP?', 'Convert 5000 SGD', or 'Help with login'."
	supportReplyFmt   = "You can reach our human Ops Team at %s. Or I can help you debug 'failed payments' or 'login issues' here."

	// 报价表尚未加载时，列举货币使用的默认集合。
	defaultCurrencyList = "USD, SGD, GBP, EUR"
)

var greetings = []string{
	"Hello! I'm Atlas, your SettleX Trade Assistant. I'm connected to the Live Interbank Market. How can I optimize your cash flow?",
	"Hi there! Ready to save on FX spreads? Ask me about live rates, compliance, or transfers.",
	"Greetings from the SettleX team. What can I help you clear today?",
}

// respond 按意图优先级生成回复，可能设置上下文标签或启动流程。
func (a *Agent) respond(s *dialogue.Session, r analyzer.Result) string {
	lex := a.analyzer.Lexicon()

	switch r.Intent {
	case lexicon.IntentGreeting:
		return a.pick(greetings)

	case lexicon.IntentRateInquiry:
		if !a.quotes.Ready() {
			return notReadyReply
		}
		if r.HasCurrency {
			return a.rateReply(r.Currency)
		}
		s.Context = dialogue.ContextAwaitingCurrencyForRate
		return ratePrompt

	case lexicon.IntentCalculator:
		if !a.quotes.Ready() {
			return notReadyReply
		}
		if r.KnownAmount() && r.HasCurrency {
			return a.conversionReply(r.Amount, r.Currency)
		}
		s.Context = dialogue.ContextAwaitingCalculationDetails
		if r.KnownAmount() {
			s.Slots.PendingAmount = r.Amount
		}
		if r.HasCurrency {
			s.Slots.PendingCurrency = r.Currency
		}
		return calculatorPrompt

	case lexicon.IntentComplianceFIRA:
		return lex.FAQ[lexicon.FAQFira]
	case lexicon.IntentComplianceRoD:
		return lex.FAQ[lexicon.FAQRodtep]
	case lexicon.IntentComplianceBoE:
		return lex.FAQ[lexicon.FAQBoe]
	case lexicon.IntentLimits:
		return lex.FAQ[lexicon.FAQLimit]
	case lexicon.IntentSpeed:
		return lex.FAQ[lexicon.FAQSpeed]
	case lexicon.IntentSecurity:
		return lex.FAQ[lexicon.FAQSecurity]

	case lexicon.IntentOnboarding:
		a.startWorkflow(s, dialogue.WorkflowOnboarding)
		return onboardingPrompt

	case lexicon.IntentSupport, lexicon.IntentTroubleshoot:
		return a.supportReply(s, r)

	case lexicon.IntentExplainConcept:
		fields := strings.Fields(r.Raw)
		if len(fields) > 0 {
			if key, definition, ok := lex.Define(fields[len(fields)-1]); ok {
				return definitionReply(key, definition)
			}
		}
		s.Context = dialogue.ContextAwaitingTermDefinition
		return termPrompt

	case lexicon.IntentThanks:
		return thanksReply
	case lexicon.IntentGoodbye:
		return goodbyeReply
	case lexicon.IntentPersonality:
		return personalityReply
	}
	return fallbackReply
}

func (a *Agent) supportReply(s *dialogue.Session, r analyzer.Result) string {
	if r.Sentiment == lexicon.SentimentUrgent || r.Sentiment == lexicon.SentimentNegative {
		a.startWorkflow(s, dialogue.WorkflowTicket)
		return ticketPrompt
	}

	guides := a.analyzer.Lexicon().Troubleshooting
	lower := strings.ToLower(r.Raw)
	switch {
	case strings.Contains(lower, "document") || strings.Contains(lower, "upload"):
		return guides[lexicon.GuideDocRejected]
	case strings.Contains(lower, "fail") || strings.Contains(lower, "reject"):
		return guides[lexicon.GuidePaymentFailed]
	case strings.Contains(lower, "login") || strings.Contains(lower, "password"):
		return guides[lexicon.GuideLoginIssue]
	case strings.Contains(lower, "missing") || strings.Contains(lower, "not received"):
		return guides[lexicon.GuideFiraMissing]
	}
	return fmt.Sprintf(supportReplyFmt, a.supportEmail)
}

// rateReply 以 1000 单位外币的付汇报价给出单位汇率对比。
func (a *Agent) rateReply(currency string) string {
	q, err := a.quotes.Quote(1000, currency, quote.Outflow)
	if err != nil {
		return a.quoteFailureReply(currency, err)
	}
	return fmt.Sprintf("🎯 **%s Live Wholesale**: ₹%.2f \n\nCompare that to your bank's rate (approx ₹%.2f). We save you ~%.1f%% per unit.",
		q.Currency, q.WholesaleRate, q.BankRate, q.UnitSavingsPercent())
}

func (a *Agent) conversionReply(amount float64, currency string) string {
	q, err := a.quotes.Quote(amount, currency, quote.Outflow)
	if err != nil {
		return a.quoteFailureReply(currency, err)
	}
	return fmt.Sprintf("🧮 **Cost Analysis for %s %s**\n"+
		"• Traditional Bank Cost: %s\n"+
		"• SettleX Wholesale Cost: %s\n"+
		"----------------------------------\n"+
		"✅ **Total Profit Recovered: %s**",
		formatAmount(amount), q.Currency,
		a.quotes.FormatCurrency(q.BankTotal),
		a.quotes.FormatCurrency(q.WholesaleTotal),
		a.quotes.FormatCurrency(q.Savings))
}

func (a *Agent) quoteFailureReply(currency string, err error) string {
	if xerrors.CodeOf(err) == quote.CodeNotReady {
		return notReadyReply
	}
	a.log.Debug("报价失败", "currency", currency, "error", err)
	return fmt.Sprintf("I don't have live data for %s right now. Please try %s.", currency, a.supportedList())
}

// supportedList 把可报价货币拼成 "A, B, or C" 形式。
func (a *Agent) supportedList() string {
	codes := a.quotes.Supported()
	switch len(codes) {
	case 0:
		return defaultCurrencyList
	case 1:
		return codes[0]
	case 2:
		return codes[0] + " or " + codes[1]
	}
	return strings.Join(codes[:len(codes)-1], ", ") + ", or " + codes[len(codes)-1]
}

func definitionReply(key, definition string) string {
	return fmt.Sprintf("📖 **%s**: %s", strings.ToUpper(key), definition)
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}
