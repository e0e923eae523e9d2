package lexicon

import (
	"strings"
	"unicode"
)

// Intent 是一条消息被归类后的意图。
type Intent string

const (
	IntentUnknown        Intent = "unknown"
	IntentGreeting       Intent = "greeting"
	IntentGoodbye        Intent = "goodbye"
	IntentThanks         Intent = "thanks"
	IntentCalculator     Intent = "calculator"
	IntentRateInquiry    Intent = "rate_inquiry"
	IntentComplianceFIRA Intent = "compliance_fira"
	IntentComplianceRoD  Intent = "compliance_rodtep"
	IntentComplianceBoE  Intent = "compliance_boe"
	IntentOnboarding     Intent = "onboarding"
	IntentSpeed          Intent = "speed"
	IntentSecurity       Intent = "security"
	IntentSupport        Intent = "support"
	IntentTroubleshoot   Intent = "troubleshoot"
	IntentExplainConcept Intent = "explain_concept"
	IntentPersonality    Intent = "personality"
	IntentLimits         Intent = "limits"
)

// Sentiment 是消息的粗粒度情绪分类，只影响回复语气。
type Sentiment string

const (
	SentimentNeutral  Sentiment = "neutral"
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentUrgent   Sentiment = "urgent"
)

// FAQ 与排障条目的键。
const (
	FAQFira       = "fira"
	FAQRodtep     = "rodtep"
	FAQBoe        = "boe"
	FAQLimit      = "limit"
	FAQSecurity   = "security"
	FAQOnboarding = "onboarding"
	FAQSpeed      = "speed"

	GuidePaymentFailed = "payment_failed"
	GuideLoginIssue    = "login_issue"
	GuideFiraMissing   = "fira_missing"
	GuideDocRejected   = "doc_rejected"
)

// IntentSpec 描述一个意图的关键词与权重。
type IntentSpec struct {
	Name     Intent
	Keywords []string
	Weight   int
}

// SentimentLexicon 保存情绪打分所需的词表。
type SentimentLexicon struct {
	Negative []string
	Positive []string
	Urgent   []string
	// Markers 命中任意一项时情绪被强制为 urgent。
	Markers []string
}

// Currency 是一种货币的展示元数据。
type Currency struct {
	Code   string
	Name   string
	Region string
	Symbol string
	Tier   string
}

// CurrencyAlias 把若干子串映射到货币代码，按声明顺序匹配。
type CurrencyAlias struct {
	Code    string
	Matches []string
}

// Lexicon 是分析器与回复生成器共享的静态词库，加载后只读。
type Lexicon struct {
	Intents         []IntentSpec
	Sentiment       SentimentLexicon
	CurrencyTokens  []string
	CurrencyAliases []CurrencyAlias
	Currencies      map[string]Currency
	Dictionary      map[string]string
	FAQ             map[string]string
	Troubleshooting map[string]string
}

// KnownIntent 判断给定名称是否为已定义的意图。
func KnownIntent(name Intent) bool {
	for _, spec := range defaultIntents() {
		if spec.Name == name {
			return true
		}
	}
	return false
}

// NormalizeCurrency 将任意文本映射为货币代码。
func (l *Lexicon) NormalizeCurrency(text string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return "", false
	}
	for _, alias := range l.CurrencyAliases {
		for _, match := range alias.Matches {
			if strings.Contains(lower, match) {
				return alias.Code, true
			}
		}
	}
	return "", false
}

// Define 在贸易词典中查找术语。term 会先经过 NormalizeTerm，查不到时再用
// 去掉分隔符的键重试。
func (l *Lexicon) Define(term string) (string, string, bool) {
	key := NormalizeTerm(term)
	if key == "" {
		return "", "", false
	}
	if definition, ok := l.Dictionary[key]; ok {
		return key, definition, true
	}
	if compact := strings.ReplaceAll(key, "_", ""); compact != key {
		if definition, ok := l.Dictionary[compact]; ok {
			return compact, definition, true
		}
	}
	return key, "", false
}

// NormalizeTerm 把用户输入转为词典键：小写，空白与连字符折叠为下划线，
// 其余非字母字符全部去掉。
func NormalizeTerm(raw string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(raw)) {
		switch {
		case r >= 'a' && r <= 'z':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		case r == '_' || r == '-' || unicode.IsSpace(r):
			pendingSep = true
		}
	}
	return b.String()
}

// CurrencyName 返回货币代码的展示名称，未知代码原样返回。
func (l *Lexicon) CurrencyName(code string) string {
	if c, ok := l.Currencies[code]; ok {
		return c.Name
	}
	return code
}
