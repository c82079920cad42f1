package node

import (
	"fmt"
	"strings"
)

// HashtagPrompt 根据帖子正文构造生成标签的指令
func HashtagPrompt(message string) string {
	return fmt.Sprintf("Given the following social media post content, generate a JSON array of 5-10 relevant and popular hashtags. Only return the array, no explanation.\n\nContent:\n%s", message)
}

// HashtagParse 标签解析结果
type HashtagParse struct {
	Hashtags []string
	Strategy ParseStrategy
	Degraded bool
}

// ParseHashtags 解析模型返回的标签数组。
// 依次尝试整体解析、```json 代码块、正文中嵌入的数组；全部失败时返回空列表。
// 结果去空白、补全 # 前缀并按出现顺序去重，非字符串元素被丢弃。
func ParseHashtags(text string) HashtagParse {
	if tags, ok := hashtagsFrom(text); ok {
		return HashtagParse{Hashtags: tags, Strategy: StrategyDirect}
	}
	if block, ok := ExtractFencedJSON(text); ok {
		if tags, ok := hashtagsFrom(block); ok {
			return HashtagParse{Hashtags: tags, Strategy: StrategyFenced}
		}
	}
	if embedded := ExtractJSONObject(text); strings.HasPrefix(embedded, "[") {
		if tags, ok := hashtagsFrom(embedded); ok {
			return HashtagParse{Hashtags: tags, Strategy: StrategyEmbedded}
		}
	}
	return HashtagParse{Hashtags: []string{}, Strategy: StrategyRawText, Degraded: true}
}

func hashtagsFrom(s string) ([]string, bool) {
	v, ok := decodeValue(s)
	if !ok {
		return nil, false
	}
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}

	seen := make(map[string]struct{}, len(items))
	tags := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		tag := normalizeHashtag(s)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags, true
}

func normalizeHashtag(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "#")
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return ""
	}
	return "#" + s
}
