// Package messaging 通过 Redis Streams 发布内容事件
package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// 事件类型
const (
	TypeImageStored   = "image.stored"
	TypePostPublished = "post.published"
)

// DefaultStream 默认事件流
const DefaultStream = "stream:content:events"

// Message 消息结构
type Message struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Namespace string            `json:"namespace,omitempty"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// NewMessage 创建新消息
func NewMessage(msgType, namespace string, payload any) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Namespace: namespace,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// SetMetadata 设置元数据
func (m *Message) SetMetadata(key, value string) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]string)
	}
	m.Metadata[key] = value
}

// UnmarshalPayload 解析消息载荷
func (m *Message) UnmarshalPayload(v any) error {
	return json.Unmarshal(m.Payload, v)
}

// ImageStored 图片上传完成事件
type ImageStored struct {
	Folder       string `json:"folder"`
	OriginalURL  string `json:"originalUrl"`
	ThumbnailURL string `json:"thumbnailUrl"`
	Provider     string `json:"provider"`
}

// PostPublished 帖子发布完成事件
type PostPublished struct {
	Platform  string `json:"platform"`
	PostID    string `json:"postId"`
	Permalink string `json:"permalink"`
	ImageURL  string `json:"imageUrl"`
}
