package content

import (
	"context"
	"strconv"

	"social-content-api/internal/workflow/node"
	"social-content-api/internal/workflow/pipeline"
	"social-content-api/internal/workflow/prompt"
	"social-content-api/pkg/logger"
	"social-content-api/pkg/metrics"
)

// ideaShapeInstruction 追加在创意提示词末尾的 JSON 结构说明
const ideaShapeInstruction = "\n\nReturn the response as a JSON array with this structure:\n" +
	" ```[{\n" +
	"        \"headline\": \"Compelling hook or title\",\n" +
	"        \"description\": \"Brief description of the content concept and execution\"\n" +
	"    }]\n" +
	" ```"

type IdeaRequest struct {
	Namespace string
	Platform  string
	Topic     string
	Count     int
	Persona   string
	Sentiment string
}

type IdeaResult struct {
	Ideas    []node.Idea
	Strategy node.ParseStrategy
	Degraded bool
}

// GenerateIdeas 根目录模板生成创意列表
func (s *Service) GenerateIdeas(ctx context.Context, req IdeaRequest) (*IdeaResult, error) {
	req.Namespace = ""
	res, err := s.generateIdeas(ctx, req, prompt.GenerateIdea)
	if err != nil {
		return nil, failWith(err, "Failed to contact OpenAI")
	}
	return res, nil
}

// CreateIdeas 命名空间模板生成创意列表，命名空间不存在时不调用模型
func (s *Service) CreateIdeas(ctx context.Context, req IdeaRequest) (*IdeaResult, error) {
	if err := s.requireNamespace(req.Namespace); err != nil {
		return nil, err
	}
	ctx = logger.WithContext(ctx, logger.NamespaceKey, req.Namespace)

	res, err := s.generateIdeas(ctx, req, prompt.Namespaced(req.Namespace, prompt.CreateIdea))
	if err != nil {
		return nil, failWith(err, "Failed to generate ideas")
	}
	return res, nil
}

func (s *Service) generateIdeas(ctx context.Context, req IdeaRequest, tpl prompt.TemplateID) (*IdeaResult, error) {
	count := req.Count
	if count <= 0 {
		count = DefaultIdeaCount
	}
	values := map[string]string{
		"platform":     firstNonEmpty(req.Platform, DefaultPlatform),
		"topic":        firstNonEmpty(req.Topic, DefaultTopic),
		"count":        strconv.Itoa(count),
		"persona":      firstNonEmpty(req.Persona, s.defaults.DefaultPersona, DefaultIdeaPersona),
		"sentiment":    firstNonEmpty(req.Sentiment, s.defaults.DefaultSentiment, DefaultIdeaSentiment),
		"current_date": s.now().Format("2006-01-02"),
	}

	render := pipeline.Step[map[string]string, string]{
		Name: "render_prompt",
		Run: func(_ context.Context, values map[string]string) (string, error) {
			text, err := s.templates.Render(tpl, values)
			if err != nil {
				return "", err
			}
			return text + ideaShapeInstruction, nil
		},
	}
	generate := pipeline.Step[string, string]{
		Name: "generate_ideas",
		Run:  s.complete(s.llmCfg.IdeaModel),
	}

	text, err := pipeline.Then(render, generate).Exec(ctx, values)
	if err != nil {
		return nil, err
	}

	parsed := node.ParseIdeas(text)
	if parsed.Degraded {
		metrics.StepDegradedTotal.WithLabelValues("parse_ideas").Inc()
		logger.Warn(ctx, "idea output not parseable, returning raw text",
			"output", node.Preview(text, 200))
	}
	logger.Info(ctx, "ideas generated",
		"count", len(parsed.Ideas),
		"strategy", string(parsed.Strategy),
		"platform", values["platform"],
	)
	return &IdeaResult{Ideas: parsed.Ideas, Strategy: parsed.Strategy, Degraded: parsed.Degraded}, nil
}
