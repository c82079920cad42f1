package node

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Idea 单条内容创意
type Idea struct {
	Headline    string `json:"headline"`
	Description string `json:"description,omitempty"`
}

// ParseStrategy 成功解析所使用的策略
type ParseStrategy string

const (
	StrategyDirect   ParseStrategy = "direct"
	StrategyFenced   ParseStrategy = "fenced_block"
	StrategyEmbedded ParseStrategy = "embedded_array"
	StrategyRawText  ParseStrategy = "raw_text"
)

// IdeaParse 创意解析结果。Degraded 为 true 表示模型输出无法解析，Ideas 仅包含原文。
type IdeaParse struct {
	Ideas    []Idea
	Strategy ParseStrategy
	Degraded bool
}

// ParseIdeas 依次尝试：整体解析 JSON、提取 ```json 代码块、原文兜底。
// 不会返回错误。
func ParseIdeas(text string) IdeaParse {
	if v, ok := decodeValue(text); ok {
		return IdeaParse{Ideas: ideasFromValue(v), Strategy: StrategyDirect}
	}
	if block, ok := ExtractFencedJSON(text); ok {
		if v, ok := decodeValue(block); ok {
			return IdeaParse{Ideas: ideasFromValue(v), Strategy: StrategyFenced}
		}
	}
	return IdeaParse{
		Ideas:    []Idea{{Headline: text}},
		Strategy: StrategyRawText,
		Degraded: true,
	}
}

// ideasFromValue 数组逐项转换，非数组包装为单元素列表
func ideasFromValue(v any) []Idea {
	items, ok := v.([]any)
	if !ok {
		items = []any{v}
	}
	ideas := make([]Idea, 0, len(items))
	for _, item := range items {
		ideas = append(ideas, ideaFromItem(item))
	}
	return ideas
}

func ideaFromItem(item any) Idea {
	switch t := item.(type) {
	case string:
		return Idea{Headline: t}
	case map[string]any:
		idea := Idea{
			Headline:    stringField(t, "headline"),
			Description: stringField(t, "description"),
		}
		if idea.Headline == "" {
			idea.Headline = jsonText(t)
		}
		return idea
	default:
		return Idea{Headline: jsonText(t)}
	}
}

func stringField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return jsonText(v)
}

func jsonText(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
