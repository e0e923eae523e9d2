package agent

import (
	"fmt"

	"SettleX-Atlas/internal/analyzer"
	"SettleX-Atlas/internal/dialogue"
	"SettleX-Atlas/internal/lexicon"
)

// resolve 处理上一轮留下的上下文标签。标签在处理前被消费，必要时重新设置。
// 返回 false 表示没有对应的处理器，调用方应回落到回复生成器。
func (a *Agent) resolve(s *dialogue.Session, r analyzer.Result, raw string) (string, bool) {
	tag := s.Context
	s.Context = dialogue.ContextNone

	switch tag {
	case dialogue.ContextAwaitingCurrencyForRate:
		if !a.quotes.Ready() {
			s.Context = tag
			return notReadyReply, true
		}
		if code, ok := a.analyzer.Lexicon().NormalizeCurrency(raw); ok {
			return a.rateReply(code), true
		}
		if r.Intent == lexicon.IntentGoodbye {
			return "No problem. Let me know if you need rates later.", true
		}
		return fmt.Sprintf("I didn't catch that currency. We support %s. Which one are you interested in?", a.supportedList()), true

	case dialogue.ContextAwaitingCalculationDetails:
		if !a.quotes.Ready() {
			s.Context = tag
			return notReadyReply, true
		}
		amount := s.Slots.PendingAmount
		if r.KnownAmount() {
			amount = r.Amount
		}
		currency := s.Slots.PendingCurrency
		if r.HasCurrency {
			currency = r.Currency
		}

		switch {
		case amount > 0 && currency != "":
			s.ClearPending()
			return a.conversionReply(amount, currency), true
		case amount > 0:
			s.Slots.PendingAmount = amount
			s.Context = tag
			return fmt.Sprintf("Got the amount (%s). Now, which currency? (e.g. USD)", formatAmount(amount)), true
		case currency != "":
			s.Slots.PendingCurrency = currency
			s.Context = tag
			return fmt.Sprintf("Got the currency (%s). How much do you want to convert?", currency), true
		}
		return "I still need an amount and a currency to help (e.g., '1000 USD').", true

	case dialogue.ContextAwaitingTermDefinition:
		if key, definition, ok := a.analyzer.Lexicon().Define(raw); ok {
			return definitionReply(key, definition), true
		}
		return termNotFoundReply, true
	}
	return "", false
}
