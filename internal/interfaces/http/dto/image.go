package dto

import "social-content-api/internal/application/content"

// ContentImageRequest 配图生成请求
type ContentImageRequest struct {
	Message    string `json:"message"`
	Size       string `json:"size"`
	Subject    string `json:"subject"`
	Style      string `json:"style"`
	Lighting   string `json:"lighting"`
	Mood       string `json:"mood"`
	Resolution string `json:"resolution"`
}

// ToImageRequest 转换为流水线请求
func (r *ContentImageRequest) ToImageRequest(namespace string) content.ImageRequest {
	return content.ImageRequest{
		Namespace:  namespace,
		Message:    r.Message,
		Size:       r.Size,
		Subject:    r.Subject,
		Style:      r.Style,
		Lighting:   r.Lighting,
		Mood:       r.Mood,
		Resolution: r.Resolution,
	}
}

// ImageResponse 图片地址
type ImageResponse struct {
	OriginalURL  string `json:"originalUrl"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Folder       string `json:"folder"`
}

// ImageListResponse 图片分页列表
type ImageListResponse struct {
	Images     []ImageResponse `json:"images"`
	NextCursor *string         `json:"nextCursor"`
	Total      int             `json:"total"`
}

// ToImageResponse 转换为响应
func ToImageResponse(res *content.ImageResult) ImageResponse {
	return ImageResponse{
		OriginalURL:  res.OriginalURL,
		ThumbnailURL: res.ThumbnailURL,
		Folder:       res.Folder,
	}
}

// ToImageListResponse 转换为列表响应
func ToImageListResponse(page *content.ImagePage) ImageListResponse {
	images := make([]ImageResponse, 0, len(page.Images))
	for i := range page.Images {
		images = append(images, ToImageResponse(&page.Images[i]))
	}
	return ImageListResponse{Images: images, NextCursor: page.NextCursor, Total: page.Total}
}
