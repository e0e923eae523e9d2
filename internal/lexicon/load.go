package lexicon

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Overlay 是词库覆盖文件的结构，未出现的字段保持内置值。
type Overlay struct {
	Intents         map[string]IntentOverlay `yaml:"intents"`
	Sentiment       SentimentOverlay         `yaml:"sentiment"`
	Dictionary      map[string]string        `yaml:"dictionary"`
	FAQ             map[string]string        `yaml:"faq"`
	Troubleshooting map[string]string        `yaml:"troubleshooting"`
}

// IntentOverlay 替换某个意图的关键词或权重。
type IntentOverlay struct {
	Keywords []string `yaml:"keywords"`
	Weight   int      `yaml:"weight"`
}

// SentimentOverlay 中非空的列表会整体替换内置列表。
type SentimentOverlay struct {
	Negative []string `yaml:"negative"`
	Positive []string `yaml:"positive"`
	Urgent   []string `yaml:"urgent"`
	Markers  []string `yaml:"markers"`
}

// Load 读取 YAML 覆盖文件并叠加到内置词库上。path 为空时直接返回内置词库。
func Load(path string) (*Lexicon, error) {
	lex := Default()
	if strings.TrimSpace(path) == "" {
		return lex, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取词库文件失败: %w", err)
	}

	var overlay Overlay
	if err := yaml.Unmarshal(content, &overlay); err != nil {
		return nil, fmt.Errorf("解析词库文件失败: %w", err)
	}
	if err := lex.Apply(overlay); err != nil {
		return nil, err
	}
	return lex, nil
}

// Apply 把覆盖内容合并进词库。意图顺序不会改变。
func (l *Lexicon) Apply(overlay Overlay) error {
	for name, patch := range overlay.Intents {
		intent := Intent(name)
		if !KnownIntent(intent) {
			return fmt.Errorf("词库文件包含未知意图: %s", name)
		}
		if patch.Weight < 0 {
			return fmt.Errorf("意图 %s 的权重不能为负数", name)
		}
		for i := range l.Intents {
			if l.Intents[i].Name != intent {
				continue
			}
			if len(patch.Keywords) > 0 {
				l.Intents[i].Keywords = lowerAll(patch.Keywords)
			}
			if patch.Weight > 0 {
				l.Intents[i].Weight = patch.Weight
			}
		}
	}

	replace(&l.Sentiment.Negative, overlay.Sentiment.Negative)
	replace(&l.Sentiment.Positive, overlay.Sentiment.Positive)
	replace(&l.Sentiment.Urgent, overlay.Sentiment.Urgent)
	replace(&l.Sentiment.Markers, overlay.Sentiment.Markers)

	for term, definition := range overlay.Dictionary {
		key := NormalizeTerm(term)
		if key == "" {
			return fmt.Errorf("词典术语不能为空")
		}
		l.Dictionary[key] = definition
	}
	for key, text := range overlay.FAQ {
		l.FAQ[key] = text
	}
	for key, text := range overlay.Troubleshooting {
		l.Troubleshooting[key] = text
	}
	return nil
}

func replace(dst *[]string, src []string) {
	if len(src) > 0 {
		*dst = lowerAll(src)
	}
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
