package prompt

import (
	"fmt"
	"path"
	"strings"

	"github.com/aymerick/raymond"
)

// TemplateID 模板在模板文件系统中的相对路径
type TemplateID string

// 根目录模板 (Handlebars)
const (
	CreateContent TemplateID = "create-content.md"
	GenerateIdea  TemplateID = "generate-idea.md"
)

// 命名空间模板文件名 (简单占位符替换)
const (
	PostContent = "post-content.md"
	PostImage   = "post-image.md"
	CreateIdea  = "create-idea.md"
	CreateImage = "create-image.md"
)

// Namespaced 返回命名空间下的模板 ID
func Namespaced(namespace, name string) TemplateID {
	return TemplateID(path.Join(namespace, name))
}

// handlebars 根目录模板使用 Handlebars，命名空间模板使用简单替换
func (id TemplateID) handlebars() bool {
	return !strings.Contains(string(id), "/")
}

// Compiled 已编译模板
type Compiled interface {
	Render(values map[string]string) (string, error)
}

// compile 按模板类型编译源文本
func compile(id TemplateID, source string) (Compiled, error) {
	if !id.handlebars() {
		return simpleTemplate(source), nil
	}
	tpl, err := raymond.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parse template %s: %w", id, err)
	}
	return &handlebarsTemplate{tpl: tpl}, nil
}

type simpleTemplate string

func (t simpleTemplate) Render(values map[string]string) (string, error) {
	return Render(string(t), values), nil
}

type handlebarsTemplate struct {
	tpl *raymond.Template
}

// Render 所有值以 SafeString 传入，{{key}} 不做 HTML 转义
func (t *handlebarsTemplate) Render(values map[string]string) (string, error) {
	ctx := make(map[string]any, len(values))
	for k, v := range values {
		ctx[k] = raymond.SafeString(v)
	}
	out, err := t.tpl.Exec(ctx)
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return out, nil
}
