package dto

import (
	stderrors "errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// BindJSON 绑定 JSON 请求体并返回解码后的原始内容，空请求体视为 {}
func BindJSON(c *gin.Context, dst any) (map[string]any, error) {
	received := map[string]any{}
	if err := c.ShouldBindBodyWith(&received, binding.JSON); err != nil {
		if stderrors.Is(err, io.EOF) {
			return received, nil
		}
		return nil, err
	}
	if err := c.ShouldBindBodyWith(dst, binding.JSON); err != nil {
		return received, err
	}
	return received, nil
}

// BindNamespace 获取路径中的命名空间 ID
func BindNamespace(c *gin.Context) string {
	return c.Param("id")
}

// BindLimit 解析 limit 查询参数，缺省时返回默认值
func BindLimit(c *gin.Context, defaultValue int) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(raw)
}
