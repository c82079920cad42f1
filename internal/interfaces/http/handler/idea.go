package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"social-content-api/internal/application/content"
	"social-content-api/internal/interfaces/http/dto"
	"social-content-api/pkg/logger"
)

// IdeaHandler 选题生成处理器
type IdeaHandler struct {
	svc *content.Service
}

// NewIdeaHandler 创建选题生成处理器
func NewIdeaHandler(svc *content.Service) *IdeaHandler {
	return &IdeaHandler{svc: svc}
}

// GenerateIdea 生成帖子选题
// @Summary 生成选题
// @Tags Ideas
// @Accept json
// @Produce json
// @Param body body dto.IdeaRequest false "选题请求"
// @Success 200 {object} dto.IdeaListResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /generate-idea [post]
func (h *IdeaHandler) GenerateIdea(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.IdeaRequest
	if _, err := dto.BindJSON(c, &req); err != nil {
		dto.BadRequest(c, "Invalid request", err.Error())
		return
	}

	res, err := h.svc.GenerateIdeas(ctx, req.ToIdeaRequest(""))
	if err != nil {
		logFailure(ctx, "generate ideas failed", err)
		dto.AppError(c, err)
		return
	}
	if res.Degraded {
		logger.Warn(ctx, "ideas returned as raw text", "strategy", string(res.Strategy))
	}
	c.JSON(http.StatusOK, dto.ToIdeaListResponse(res))
}

// CreateIdea 使用命名空间模板生成选题
// @Summary 生成命名空间选题
// @Tags Ideas
// @Accept json
// @Produce json
// @Param id path string true "命名空间 ID"
// @Param body body dto.IdeaRequest false "选题请求"
// @Success 200 {object} dto.IdeaListResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /v1/content/{id}/create-idea [post]
func (h *IdeaHandler) CreateIdea(c *gin.Context) {
	ctx := c.Request.Context()
	namespace := dto.BindNamespace(c)

	var req dto.IdeaRequest
	if _, err := dto.BindJSON(c, &req); err != nil {
		dto.BadRequest(c, "Invalid request", err.Error())
		return
	}

	res, err := h.svc.CreateIdeas(ctx, req.ToIdeaRequest(namespace))
	if err != nil {
		logFailure(ctx, "create ideas failed", err, "namespace", namespace)
		dto.AppError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToIdeaListResponse(res))
}
