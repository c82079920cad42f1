// Package prompt 提供提示词模板渲染与缓存
package prompt

import (
	"sort"
	"strings"
)

// Render 将模板中每个 {{key}} 原样替换为对应值，值为空时替换为空串。
// values 中未出现的占位符保持不变，不做任何转义。
func Render(template string, values map[string]string) string {
	if len(values) == 0 {
		return template
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{{"+k+"}}", values[k])
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
