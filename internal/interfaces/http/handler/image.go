package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"social-content-api/internal/application/content"
	"social-content-api/internal/interfaces/http/dto"
)

// ImageHandler 配图处理器
type ImageHandler struct {
	svc *content.Service
}

// NewImageHandler 创建配图处理器
func NewImageHandler(svc *content.Service) *ImageHandler {
	return &ImageHandler{svc: svc}
}

// ContentImage 生成配图并上传原图与缩略图
// @Summary 生成配图
// @Tags Images
// @Accept json
// @Produce json
// @Param id path string true "命名空间 ID"
// @Param body body dto.ContentImageRequest true "配图请求"
// @Success 200 {object} dto.ImageResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/content/{id}/content-image [post]
func (h *ImageHandler) ContentImage(c *gin.Context) {
	ctx := c.Request.Context()
	namespace := dto.BindNamespace(c)

	var req dto.ContentImageRequest
	if _, err := dto.BindJSON(c, &req); err != nil {
		dto.BadRequest(c, "Invalid request", err.Error())
		return
	}

	res, err := h.svc.GenerateImage(ctx, req.ToImageRequest(namespace))
	if err != nil {
		logFailure(ctx, "generate image failed", err, "namespace", namespace)
		dto.AppError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToImageResponse(res))
}

// ListImages 分页列出已生成的图片
// @Summary 图片列表
// @Tags Images
// @Produce json
// @Param cursor query string false "分页游标"
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} dto.ImageListResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /content-image/list [get]
func (h *ImageHandler) ListImages(c *gin.Context) {
	ctx := c.Request.Context()

	limit, err := dto.BindLimit(c, content.DefaultListLimit)
	if err != nil {
		dto.BadRequest(c, "Invalid request", "limit must be an integer")
		return
	}

	page, err := h.svc.ListImages(ctx, c.Query("cursor"), limit)
	if err != nil {
		logFailure(ctx, "list images failed", err)
		dto.AppError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToImageListResponse(page))
}
