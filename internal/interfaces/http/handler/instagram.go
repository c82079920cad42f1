package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"social-content-api/internal/application/content"
	"social-content-api/internal/interfaces/http/dto"
	"social-content-api/pkg/errors"
	"social-content-api/pkg/logger"
)

// InstagramHandler Instagram 发布处理器
type InstagramHandler struct {
	svc *content.Service
}

// NewInstagramHandler 创建发布处理器
func NewInstagramHandler(svc *content.Service) *InstagramHandler {
	return &InstagramHandler{svc: svc}
}

// PostInstagram 下载图片并发布到 Instagram
// @Summary 发布到 Instagram
// @Tags Publishing
// @Accept json
// @Produce json
// @Param body body dto.PostInstagramRequest true "发布请求"
// @Success 200 {object} dto.PostInstagramResponse
// @Failure 400 {object} dto.PublishErrorResponse
// @Failure 500 {object} dto.PublishErrorResponse
// @Router /post-instagram [post]
func (h *InstagramHandler) PostInstagram(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.PostInstagramRequest
	if _, err := dto.BindJSON(c, &req); err != nil {
		dto.PublishError(c, errors.Validation("Invalid request").WithDetail(err.Error()))
		return
	}
	logger.Info(ctx, "publish requested", "description_length", len([]rune(req.Description)), "image_url", req.ImageURL)

	res, err := h.svc.PublishToInstagram(ctx, req.ToPublishRequest())
	if err != nil {
		logFailure(ctx, "publish to instagram failed", err)
		dto.PublishError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToPostInstagramResponse(res))
}
