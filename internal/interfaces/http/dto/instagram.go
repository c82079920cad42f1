package dto

import "social-content-api/internal/application/content"

// PostInstagramRequest 发布请求
type PostInstagramRequest struct {
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
}

// ToPublishRequest 转换为流水线请求
func (r *PostInstagramRequest) ToPublishRequest() content.PublishRequest {
	return content.PublishRequest{Description: r.Description, ImageURL: r.ImageURL}
}

// PostInstagramResponse 发布成功响应
type PostInstagramResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	PostID    string `json:"postId"`
	Permalink string `json:"permalink"`
}

// ToPostInstagramResponse 转换为响应
func ToPostInstagramResponse(res *content.PublishResult) PostInstagramResponse {
	return PostInstagramResponse{
		Success:   true,
		Message:   "Post published successfully",
		PostID:    res.PostID,
		Permalink: res.Permalink,
	}
}
