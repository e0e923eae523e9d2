package agent

import "SettleX-Atlas/internal/lexicon"

const (
	apologyPrefix  = "I apologize if you're facing issues. "
	priorityBanner = "🚨 **Priority Response**: "
)

// adjustTone 按情绪给回复加前缀，每条回复只调用一次。
func adjustTone(reply string, sentiment lexicon.Sentiment) string {
	switch sentiment {
	case lexicon.SentimentNegative:
		return apologyPrefix + reply
	case lexicon.SentimentUrgent:
		return priorityBanner + reply
	default:
		return reply
	}
}
