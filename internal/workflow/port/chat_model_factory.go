package port

import (
	"context"

	"github.com/cloudwego/eino/components/model"
)

// ChatModelFactory 定义补全客户端对 LLM ChatModel 的最小依赖（port）。
// name 为模型名，为空时由实现选择默认模型。
type ChatModelFactory interface {
	Get(ctx context.Context, name string) (model.BaseChatModel, error)
}
