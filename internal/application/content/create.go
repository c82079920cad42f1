package content

import (
	"context"

	"social-content-api/internal/infrastructure/llm"
	"social-content-api/internal/workflow/node"
	"social-content-api/internal/workflow/pipeline"
	"social-content-api/internal/workflow/prompt"
	apperrors "social-content-api/pkg/errors"
	"social-content-api/pkg/logger"
)

// MissingPromptMessage 缺少 prompt 字段时的错误信息
const MissingPromptMessage = "Missing required field: prompt"

type ContentRequest struct {
	Namespace string
	Prompt    string
	Persona   string
	Sentiment string
}

type ContentResult struct {
	Message  string
	Hashtags []string
	// ImagePrompt 仅命名空间流水线生成
	ImagePrompt string
}

// CreateContent 根目录模板：生成正文与标签
func (s *Service) CreateContent(ctx context.Context, req ContentRequest) (*ContentResult, error) {
	req.Namespace = ""
	res, err := s.createContent(ctx, req, prompt.CreateContent)
	if err != nil {
		return nil, failWith(err, "Failed to contact OpenAI")
	}
	return res, nil
}

// CreatePostContent 命名空间模板：生成正文、标签与配图提示词
func (s *Service) CreatePostContent(ctx context.Context, req ContentRequest) (*ContentResult, error) {
	if err := s.requireNamespace(req.Namespace); err != nil {
		return nil, err
	}
	ctx = logger.WithContext(ctx, logger.NamespaceKey, req.Namespace)

	res, err := s.createContent(ctx, req, prompt.Namespaced(req.Namespace, prompt.PostContent))
	if err != nil {
		return nil, failWith(err, "Failed to create content")
	}

	imagePrompt := pipeline.Step[string, string]{
		Name:       "generate_image_prompt",
		Run:        s.imagePrompt(req.Namespace),
		BestEffort: true,
	}
	res.ImagePrompt, _ = imagePrompt.Exec(ctx, res.Message)
	return res, nil
}

func (s *Service) createContent(ctx context.Context, req ContentRequest, tpl prompt.TemplateID) (*ContentResult, error) {
	if req.Prompt == "" {
		return nil, apperrors.Validation(MissingPromptMessage)
	}

	values := map[string]string{
		"prompt":    req.Prompt,
		"persona":   firstNonEmpty(req.Persona, s.defaults.DefaultPersona, DefaultContentPersona),
		"sentiment": firstNonEmpty(req.Sentiment, s.defaults.DefaultSentiment, DefaultContentSentiment),
	}

	render := pipeline.Step[map[string]string, string]{
		Name: "render_prompt",
		Run: func(_ context.Context, values map[string]string) (string, error) {
			return s.templates.Render(tpl, values)
		},
	}
	generate := pipeline.Step[string, string]{
		Name: "generate_text",
		Run:  s.complete(s.llmCfg.ContentModel),
	}

	message, err := pipeline.Then(render, generate).Exec(ctx, values)
	if err != nil {
		return nil, err
	}

	hashtags := pipeline.Step[string, []string]{
		Name:       "generate_hashtags",
		Run:        s.hashtags,
		BestEffort: true,
		Fallback:   func(string, error) []string { return []string{} },
	}
	tags, _ := hashtags.Exec(ctx, message)

	return &ContentResult{Message: message, Hashtags: tags}, nil
}

func (s *Service) complete(model string) func(ctx context.Context, text string) (string, error) {
	return func(ctx context.Context, text string) (string, error) {
		out, err := s.completer.Complete(ctx, text, llm.CompleteOptions{Model: model})
		if err != nil {
			return "", err
		}
		return out.Text, nil
	}
}

func (s *Service) hashtags(ctx context.Context, message string) ([]string, error) {
	text, err := s.complete(s.llmCfg.ContentModel)(ctx, node.HashtagPrompt(message))
	if err != nil {
		return nil, err
	}
	parsed := node.ParseHashtags(text)
	if parsed.Degraded {
		logger.Warn(ctx, "hashtag output not parseable, returning empty list",
			"output", node.Preview(text, 200))
	}
	return parsed.Hashtags, nil
}

func (s *Service) imagePrompt(namespace string) func(ctx context.Context, message string) (string, error) {
	return func(ctx context.Context, message string) (string, error) {
		text, err := s.templates.Render(prompt.Namespaced(namespace, prompt.PostImage), map[string]string{
			"postText": message,
		})
		if err != nil {
			return "", err
		}
		return s.complete(s.llmCfg.ContentModel)(ctx, text)
	}
}
