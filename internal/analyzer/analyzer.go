// Package analyzer 把一条原始消息解析为意图、实体与情绪。
package analyzer

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"SettleX-Atlas/internal/lexicon"
)

// Result 是单条消息的分析结果，每轮重新生成，生成后不再修改。
type Result struct {
	Intent      lexicon.Intent    `json:"intent"`
	Score       int               `json:"score"`
	Currency    string            `json:"currency,omitempty"`
	HasCurrency bool              `json:"has_currency"`
	Amount      float64           `json:"amount,omitempty"`
	HasAmount   bool              `json:"has_amount"`
	Sentiment   lexicon.Sentiment `json:"sentiment"`
	Raw         string            `json:"raw"`
}

// KnownAmount 报告是否识别到可用于换算的金额，0 视为未提供。
func (r Result) KnownAmount() bool {
	return r.HasAmount && r.Amount > 0
}

var (
	amountPattern = regexp.MustCompile(`(\d+(?:,\d{3})*(?:\.\d+)?)(k|m|b)?`)

	magnitudes = map[string]float64{
		"k": 1e3,
		"m": 1e6,
		"b": 1e9,
	}

	// 出现这些词时无论打分如何都转人工支持。
	supportOverrides = []string{"ticket", "complaint"}
)

// Analyzer 基于词库做关键词打分，本身无状态，可被多个会话共享。
type Analyzer struct {
	lex      *lexicon.Lexicon
	currency *regexp.Regexp
}

// New 根据词库构造分析器。lex 为 nil 时使用内置词库。
func New(lex *lexicon.Lexicon) *Analyzer {
	if lex == nil {
		lex = lexicon.Default()
	}
	tokens := make([]string, 0, len(lex.CurrencyTokens))
	for _, token := range lex.CurrencyTokens {
		if token = strings.TrimSpace(token); token != "" {
			tokens = append(tokens, regexp.QuoteMeta(strings.ToLower(token)))
		}
	}
	a := &Analyzer{lex: lex}
	if len(tokens) > 0 {
		a.currency = regexp.MustCompile("(" + strings.Join(tokens, "|") + ")")
	}
	return a
}

// Lexicon 返回分析器使用的词库。
func (a *Analyzer) Lexicon() *lexicon.Lexicon {
	return a.lex
}

// Analyze 解析一条消息。任何输入都会得到结果，未命中关键词时意图为 unknown。
func (a *Analyzer) Analyze(text string) Result {
	lower := strings.ToLower(text)

	result := Result{
		Intent:    lexicon.IntentUnknown,
		Sentiment: lexicon.SentimentNeutral,
		Raw:       text,
	}

	best, score := a.classify(lower)
	if score > 0 {
		result.Intent = best
		result.Score = score
	}

	if a.currency != nil {
		if match := a.currency.FindString(lower); match != "" {
			result.Currency, result.HasCurrency = a.lex.NormalizeCurrency(match)
		}
	}

	result.Amount, result.HasAmount = extractAmount(lower)
	result.Sentiment = a.sentiment(lower)

	for _, word := range supportOverrides {
		if strings.Contains(lower, word) {
			result.Intent = lexicon.IntentSupport
			break
		}
	}
	return result
}

// classify 按声明顺序累加权重，只有严格更高的分数才会替换当前最优意图。
func (a *Analyzer) classify(lower string) (lexicon.Intent, int) {
	best := lexicon.IntentUnknown
	top := 0
	for _, spec := range a.lex.Intents {
		score := 0
		for _, keyword := range spec.Keywords {
			if keyword != "" && strings.Contains(lower, keyword) {
				score += spec.Weight
			}
		}
		if score > top {
			top = score
			best = spec.Name
		}
	}
	return best, top
}

func extractAmount(lower string) (float64, bool) {
	match := amountPattern.FindStringSubmatch(lower)
	if match == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(match[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	if factor, ok := magnitudes[match[2]]; ok {
		value *= factor
	}
	// 溢出的数值按未给出金额处理。
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, false
	}
	return value, true
}

func (a *Analyzer) sentiment(lower string) lexicon.Sentiment {
	words := a.lex.Sentiment
	score := 0
	score -= countMatches(lower, words.Negative)
	score += countMatches(lower, words.Positive)
	score -= 2 * countMatches(lower, words.Urgent)

	result := lexicon.SentimentNeutral
	switch {
	case score > 0:
		result = lexicon.SentimentPositive
	case score < 0:
		result = lexicon.SentimentNegative
	}
	if countMatches(lower, words.Markers) > 0 {
		result = lexicon.SentimentUrgent
	}
	return result
}

func countMatches(lower string, words []string) int {
	n := 0
	for _, word := range words {
		if word != "" && strings.Contains(lower, word) {
			n++
		}
	}
	return n
}
