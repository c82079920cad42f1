package node

import "strings"

// Preview 模型输出的日志预览：空白折叠为单个空格，超过 maxRunes 时截断并追加 "..."
func Preview(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	s = strings.Join(strings.Fields(s), " ")

	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
