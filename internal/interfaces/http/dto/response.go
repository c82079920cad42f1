// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"social-content-api/pkg/errors"
)

// ErrorResponse 错误响应结构
type ErrorResponse struct {
	Error    string `json:"error"`
	Details  string `json:"details,omitempty"`
	Received any    `json:"received,omitempty"`
}

// PublishErrorResponse 发布接口的错误响应，带 success 标记
type PublishErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// BadRequest 返回 400 错误
func BadRequest(c *gin.Context, message, details string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Details: details})
}

// Unauthorized 返回 401 错误
func Unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized"})
}

// AppError 按 AppError 的状态码返回 {error, details}
func AppError(c *gin.Context, err error) {
	appErr := errors.AsAppError(err)
	c.JSON(status(appErr), ErrorResponse{Error: appErr.Message, Details: appErr.Detail})
}

// AppErrorWithReceived 校验失败时回显原始请求体
func AppErrorWithReceived(c *gin.Context, err error, received any) {
	appErr := errors.AsAppError(err)
	resp := ErrorResponse{Error: appErr.Message, Details: appErr.Detail}
	if errors.IsCode(err, errors.CodeInvalidParam) {
		resp.Received = received
	}
	c.JSON(status(appErr), resp)
}

// PublishError 返回发布接口错误
func PublishError(c *gin.Context, err error) {
	appErr := errors.AsAppError(err)
	c.JSON(status(appErr), PublishErrorResponse{
		Success: false,
		Error:   appErr.Message,
		Details: appErr.Detail,
	})
}

func status(appErr *errors.AppError) int {
	if appErr.HTTPStatus == 0 {
		return http.StatusInternalServerError
	}
	return appErr.HTTPStatus
}
