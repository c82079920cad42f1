package dto

import (
	"social-content-api/internal/application/content"
	"social-content-api/internal/workflow/node"
)

// CreateContentRequest 内容生成请求
type CreateContentRequest struct {
	Prompt    string `json:"prompt"`
	Persona   string `json:"persona"`
	Sentiment string `json:"sentiment"`
}

// ToContentRequest 转换为流水线请求
func (r *CreateContentRequest) ToContentRequest(namespace string) content.ContentRequest {
	return content.ContentRequest{
		Namespace: namespace,
		Prompt:    r.Prompt,
		Persona:   r.Persona,
		Sentiment: r.Sentiment,
	}
}

// ContentResponse /create-content 响应
type ContentResponse struct {
	Message  string   `json:"message"`
	Hashtags []string `json:"hashtags"`
}

// PostContentResponse 命名空间版本响应，附带配图提示词
type PostContentResponse struct {
	Message     string   `json:"message"`
	Hashtags    []string `json:"hashtags"`
	ImagePrompt string   `json:"image_prompt"`
}

// ToContentResponse 转换为响应
func ToContentResponse(res *content.ContentResult) ContentResponse {
	return ContentResponse{Message: res.Message, Hashtags: nonNil(res.Hashtags)}
}

// ToPostContentResponse 转换为命名空间版本响应
func ToPostContentResponse(res *content.ContentResult) PostContentResponse {
	return PostContentResponse{
		Message:     res.Message,
		Hashtags:    nonNil(res.Hashtags),
		ImagePrompt: res.ImagePrompt,
	}
}

// IdeaRequest 选题生成请求，所有字段可选
type IdeaRequest struct {
	Platform  string `json:"platform"`
	Topic     string `json:"topic"`
	Count     int    `json:"count"`
	Persona   string `json:"persona"`
	Sentiment string `json:"sentiment"`
}

// ToIdeaRequest 转换为流水线请求
func (r *IdeaRequest) ToIdeaRequest(namespace string) content.IdeaRequest {
	return content.IdeaRequest{
		Namespace: namespace,
		Platform:  r.Platform,
		Topic:     r.Topic,
		Count:     r.Count,
		Persona:   r.Persona,
		Sentiment: r.Sentiment,
	}
}

// IdeaListResponse 选题列表响应
type IdeaListResponse struct {
	Ideas []node.Idea `json:"ideas"`
}

// ToIdeaListResponse 转换为响应
func ToIdeaListResponse(res *content.IdeaResult) IdeaListResponse {
	ideas := res.Ideas
	if ideas == nil {
		ideas = []node.Idea{}
	}
	return IdeaListResponse{Ideas: ideas}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
