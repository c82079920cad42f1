// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"social-content-api/internal/application/content"
	"social-content-api/internal/interfaces/http/dto"
	"social-content-api/pkg/errors"
	"social-content-api/pkg/logger"
)

// ContentHandler 内容生成处理器
type ContentHandler struct {
	svc *content.Service
}

// NewContentHandler 创建内容生成处理器
func NewContentHandler(svc *content.Service) *ContentHandler {
	return &ContentHandler{svc: svc}
}

// CreateContent 生成帖子正文与标签
// @Summary 生成帖子内容
// @Tags Content
// @Accept json
// @Produce json
// @Param body body dto.CreateContentRequest true "内容请求"
// @Success 200 {object} dto.ContentResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /create-content [post]
func (h *ContentHandler) CreateContent(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateContentRequest
	received, err := dto.BindJSON(c, &req)
	if err != nil {
		dto.BadRequest(c, "Invalid request", err.Error())
		return
	}

	res, err := h.svc.CreateContent(ctx, req.ToContentRequest(""))
	if err != nil {
		logFailure(ctx, "create content failed", err, "received", received)
		dto.AppErrorWithReceived(c, err, received)
		return
	}
	c.JSON(http.StatusOK, dto.ToContentResponse(res))
}

// CreatePostContent 使用命名空间模板生成正文、标签与配图提示词
// @Summary 生成命名空间帖子内容
// @Tags Content
// @Accept json
// @Produce json
// @Param id path string true "命名空间 ID"
// @Param body body dto.CreateContentRequest true "内容请求"
// @Success 200 {object} dto.PostContentResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/content/{id}/post-content [post]
func (h *ContentHandler) CreatePostContent(c *gin.Context) {
	ctx := c.Request.Context()
	namespace := dto.BindNamespace(c)

	var req dto.CreateContentRequest
	received, err := dto.BindJSON(c, &req)
	if err != nil {
		dto.BadRequest(c, "Invalid request", err.Error())
		return
	}

	res, err := h.svc.CreatePostContent(ctx, req.ToContentRequest(namespace))
	if err != nil {
		logFailure(ctx, "create post content failed", err, "namespace", namespace)
		dto.AppErrorWithReceived(c, err, received)
		return
	}
	c.JSON(http.StatusOK, dto.ToPostContentResponse(res))
}

// logFailure 客户端错误记 warn，其余记 error
func logFailure(ctx context.Context, msg string, err error, args ...any) {
	appErr := errors.AsAppError(err)
	if appErr.HTTPStatus >= 400 && appErr.HTTPStatus < 500 {
		logger.Warn(ctx, msg, append(args, "error", appErr.Message)...)
		return
	}
	logger.Error(ctx, msg, err, args...)
}
