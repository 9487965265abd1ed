package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kaiwu-tech/pm-backend/internal/middleware"
	"github.com/kaiwu-tech/pm-backend/internal/model"
	"github.com/kaiwu-tech/pm-backend/internal/service"
	"github.com/kaiwu-tech/pm-backend/pkg/response"
)

// AiHandler AI 辅助功能处理器
type AiHandler struct {
	aiService service.AiService
}

// NewAiHandler 创建 AI 处理器
func NewAiHandler(aiSvc service.AiService) *AiHandler {
	return &AiHandler{aiService: aiSvc}
}

// ListSettings 列出 AI 配置项
// GET /api/v1/ai/settings
func (h *AiHandler) ListSettings(c *gin.Context) {
	settings, err := h.aiService.ListSettings(c.Request.Context())
	if err != nil {
		response.Error(c, response.CodeServerError)
		return
	}
	response.Success(c, gin.H{"list": settings, "total": len(settings)})
}

// UpsertSettingRequest 写入 AI 配置项请求
type UpsertSettingRequest struct {
	Key         string `json:"key" binding:"required"`
	Value       string `json:"value" binding:"required"`
	Description string `json:"description"`
}

// UpsertSetting 写入 AI 配置项
// PUT /api/v1/ai/settings
func (h *AiHandler) UpsertSetting(c *gin.Context) {
	var req UpsertSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidRequest, "参数错误: "+err.Error())
		return
	}

	setting := &model.AiSetting{
		Key:         req.Key,
		Value:       req.Value,
		Description: req.Description,
	}
	if err := h.aiService.UpsertSetting(c.Request.Context(), setting); err != nil {
		response.Error(c, response.CodeServerError)
		return
	}
	response.Success(c, setting)
}

// RecordUsageRequest 用量上报请求
type RecordUsageRequest struct {
	Feature      string `json:"feature" binding:"required"`
	PromptTokens int64  `json:"prompt_tokens"`
	OutputTokens int64  `json:"output_tokens"`
	Succeeded    *bool  `json:"succeeded"`
}

// RecordUsage 上报一次 AI 调用用量
// POST /api/v1/ai/usage
func (h *AiHandler) RecordUsage(c *gin.Context) {
	var req RecordUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidRequest, "参数错误: "+err.Error())
		return
	}

	userID, _ := middleware.CurrentUserID(c)

	// 先检查配额，超额调用不入账直接拒绝
	if err := h.aiService.CheckQuota(c.Request.Context(), userID); err != nil {
		switch {
		case errors.Is(err, service.ErrAiDisabled), errors.Is(err, service.ErrAiQuotaExceeded):
			response.ErrorWithMsg(c, response.CodeForbidden, err.Error())
		default:
			response.Error(c, response.CodeServerError)
		}
		return
	}

	succeeded := true
	if req.Succeeded != nil {
		succeeded = *req.Succeeded
	}
	if err := h.aiService.RecordUsage(c.Request.Context(), userID, req.Feature, req.PromptTokens, req.OutputTokens, succeeded); err != nil {
		response.Error(c, response.CodeServerError)
		return
	}
	response.SuccessWithMsg(c, "用量已记录", nil)
}

// MyUsage 查询当前用户近 30 天的用量汇总
// GET /api/v1/ai/usage/me
func (h *AiHandler) MyUsage(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	since := time.Now().AddDate(0, 0, -30)
	summary, err := h.aiService.SummarizeUsage(c.Request.Context(), userID, since)
	if err != nil {
		response.Error(c, response.CodeServerError)
		return
	}
	response.Success(c, summary)
}
