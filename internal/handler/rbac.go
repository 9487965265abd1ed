// Package handler HTTP 处理器
package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kaiwu-tech/pm-backend/internal/middleware"
	"github.com/kaiwu-tech/pm-backend/internal/model"
	"github.com/kaiwu-tech/pm-backend/internal/repository"
	"github.com/kaiwu-tech/pm-backend/internal/service"
	"github.com/kaiwu-tech/pm-backend/pkg/response"
)

// RBACHandler 权限管理处理器
type RBACHandler struct {
	catalog    service.PermissionCatalogService
	assignment service.RoleAssignmentService
	resolver   service.PermissionResolver
	membership service.MembershipService
	auditRepo  repository.AuditLogRepository
}

// NewRBACHandler 创建权限管理处理器
func NewRBACHandler(
	catalog service.PermissionCatalogService,
	assignment service.RoleAssignmentService,
	resolver service.PermissionResolver,
	membership service.MembershipService,
	auditRepo repository.AuditLogRepository,
) *RBACHandler {
	return &RBACHandler{
		catalog:    catalog,
		assignment: assignment,
		resolver:   resolver,
		membership: membership,
		auditRepo:  auditRepo,
	}
}

// CreatePermissionRequest 注册权限请求
type CreatePermissionRequest struct {
	Code        string `json:"code" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category" binding:"required"`
}

// CreatePermission 注册权限到目录
// POST /api/v1/rbac/permissions
func (h *RBACHandler) CreatePermission(c *gin.Context) {
	var req CreatePermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidRequest, "参数错误: "+err.Error())
		return
	}

	perm := &model.Permission{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
	}
	if err := h.catalog.Register(c.Request.Context(), perm); err != nil {
		switch {
		case errors.Is(err, service.ErrPermissionExists):
			response.Error(c, response.CodePermissionExists)
		case errors.Is(err, service.ErrInvalidCategory), errors.Is(err, service.ErrPermissionCodeEmpty):
			response.ErrorWithMsg(c, response.CodeInvalidRequest, err.Error())
		default:
			response.Error(c, response.CodeServerError)
		}
		return
	}

	response.Success(c, perm)
}

// ListPermissions 列出目录中的权限
// GET /api/v1/rbac/permissions
func (h *RBACHandler) ListPermissions(c *gin.Context) {
	category := c.Query("category")

	var (
		perms []*model.Permission
		err   error
	)
	if category != "" {
		perms, err = h.catalog.ListByCategory(c.Request.Context(), category)
	} else {
		perms, err = h.catalog.List(c.Request.Context())
	}
	if err != nil {
		response.Error(c, response.CodeServerError)
		return
	}

	response.Success(c, gin.H{
		"list":  perms,
		"total": len(perms),
	})
}

// GetPermission 获取权限详情
// GET /api/v1/rbac/permissions/:code
func (h *RBACHandler) GetPermission(c *gin.Context) {
	perm, err := h.catalog.Lookup(c.Request.Context(), c.Param("code"))
	if err != nil {
		if errors.Is(err, service.ErrPermissionNotFound) {
			response.Error(c, response.CodePermissionNotFound)
		} else {
			response.Error(c, response.CodeServerError)
		}
		return
	}
	response.Success(c, perm)
}

// UpdatePermissionStatusRequest 变更权限状态请求
type UpdatePermissionStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active inactive"`
}

// UpdatePermissionStatus 启用或停用权限
// PUT /api/v1/rbac/permissions/:code/status
func (h *RBACHandler) UpdatePermissionStatus(c *gin.Context) {
	var req UpdatePermissionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidRequest, "参数错误: "+err.Error())
		return
	}

	code := c.Param("code")
	var err error
	if req.Status == model.StatusActive {
		err = h.catalog.Activate(c.Request.Context(), code)
	} else {
		err = h.catalog.Deactivate(c.Request.Context(), code)
	}
	if err != nil {
		if errors.Is(err, service.ErrPermissionNotFound) {
			response.Error(c, response.CodePermissionNotFound)
		} else {
			response.Error(c, response.CodeServerError)
		}
		return
	}

	response.SuccessWithMsg(c, "权限状态已更新", nil)
}

// AssignmentRequest 分配变更请求
type AssignmentRequest struct {
	RoleType        string                 `json:"role_type" binding:"required"`
	RoleName        string                 `json:"role_name" binding:"required"`
	PermissionCode  string                 `json:"permission_code" binding:"required"`
	ConditionType   string                 `json:"condition_type"`
	ConditionConfig map[string]interface{} `json:"condition_config"`
	TargetUserID    string                 `json:"target_user_id"`
	Reason          string                 `json:"reason"`
}

func (r *AssignmentRequest) toInput() service.AssignmentInput {
	return service.AssignmentInput{
		RoleType:        r.RoleType,
		RoleName:        r.RoleName,
		PermissionCode:  r.PermissionCode,
		ConditionType:   r.ConditionType,
		ConditionConfig: model.ConditionConfig(r.ConditionConfig),
		TargetUserID:    r.TargetUserID,
		Reason:          r.Reason,
	}
}

func actorFrom(c *gin.Context) service.AuditActor {
	userID, _ := middleware.CurrentUserID(c)
	return service.AuditActor{
		UserID:    userID,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// GrantPermission 为角色授予权限
// POST /api/v1/rbac/assignments
func (h *RBACHandler) GrantPermission(c *gin.Context) {
	var req AssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidRequest, "参数错误: "+err.Error())
		return
	}

	assignment, err := h.assignment.Assign(c.Request.Context(), actorFrom(c), req.toInput())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAssignmentExists):
			response.Error(c, response.CodeAssignmentExists)
		case errors.Is(err, service.ErrPermissionNotFound), errors.Is(err, service.ErrPermissionInactive):
			response.Error(c, response.CodePermissionNotFound)
		case errors.Is(err, service.ErrInvalidRoleType), errors.Is(err, service.ErrRoleNameEmpty),
			errors.Is(err, service.ErrConditionNoType):
			response.ErrorWithMsg(c, response.CodeInvalidRequest, err.Error())
		default:
			response.Error(c, response.CodeServerError)
		}
		return
	}

	response.Success(c, assignment)
}

// RevokePermission 撤销角色的权限
// DELETE /api/v1/rbac/assignments
func (h *RBACHandler) RevokePermission(c *gin.Context) {
	var req AssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidRequest, "参数错误: "+err.Error())
		return
	}

	if err := h.assignment.Revoke(c.Request.Context(), actorFrom(c), req.toInput()); err != nil {
		switch {
		case errors.Is(err, service.ErrAssignmentNotFound):
			response.Error(c, response.CodeAssignmentNotFound)
		case errors.Is(err, service.ErrPermissionNotFound), errors.Is(err, service.ErrPermissionInactive):
			response.Error(c, response.CodePermissionNotFound)
		default:
			response.Error(c, response.CodeServerError)
		}
		return
	}

	response.SuccessWithMsg(c, "权限已撤销", nil)
}

// ModifyAssignment 修改分配的条件
// PUT /api/v1/rbac/assignments
func (h *RBACHandler) ModifyAssignment(c *gin.Context) {
	var req AssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidRequest, "参数错误: "+err.Error())
		return
	}

	assignment, err := h.assignment.Modify(c.Request.Context(), actorFrom(c), req.toInput())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAssignmentNotFound):
			response.Error(c, response.CodeAssignmentNotFound)
		case errors.Is(err, service.ErrPermissionNotFound), errors.Is(err, service.ErrPermissionInactive):
			response.Error(c, response.CodePermissionNotFound)
		default:
			response.Error(c, response.CodeServerError)
		}
		return
	}

	response.Success(c, assignment)
}

// ListRoleAssignments 列出角色的全部分配
// GET /api/v1/rbac/roles/:type/:name/assignments
func (h *RBACHandler) ListRoleAssignments(c *gin.Context) {
	assignments, err := h.assignment.ListForRole(c.Request.Context(), c.Param("type"), c.Param("name"))
	if err != nil {
		response.Error(c, response.CodeServerError)
		return
	}
	response.Success(c, gin.H{
		"list":  assignments,
		"total": len(assignments),
	})
}

// CheckPermissionRequest 权限检查请求
type CheckPermissionRequest struct {
	UserID          string   `json:"user_id"` // 空则检查当前用户
	PermissionCode  string   `json:"permission_code" binding:"required"`
	ResourceType    string   `json:"resource_type"`
	ResourceID      string   `json:"resource_id"`
	ResourceOwnerID string   `json:"resource_owner_id"`
	Fields          []string `json:"fields"`
}

// CheckPermission 解析一次权限请求并返回决策
// POST /api/v1/rbac/check
func (h *RBACHandler) CheckPermission(c *gin.Context) {
	var req CheckPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidRequest, "参数错误: "+err.Error())
		return
	}

	userID := req.UserID
	if userID == "" {
		userID, _ = middleware.CurrentUserID(c)
	}

	roles, err := h.membership.RolesForUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.Error(c, response.CodeUserNotFound)
		} else {
			response.Error(c, response.CodeServerError)
		}
		return
	}

	accessReq := &service.AccessRequest{
		UserID:          userID,
		ResourceType:    req.ResourceType,
		ResourceID:      req.ResourceID,
		ResourceOwnerID: req.ResourceOwnerID,
		Fields:          req.Fields,
	}

	decision, err := h.resolver.Resolve(c.Request.Context(), roles, req.PermissionCode, accessReq)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownCondition):
			// 拒绝决策照常返回，错误码提示条件无法识别
			response.Error(c, response.CodeUnknownCond)
		case errors.Is(err, service.ErrPermissionNotFound), errors.Is(err, service.ErrPermissionInactive):
			response.Error(c, response.CodePermissionNotFound)
		default:
			response.Error(c, response.CodeServerError)
		}
		return
	}

	response.Success(c, decision)
}

// MyPermissions 列出当前用户的有效权限
// GET /api/v1/rbac/permissions/me
func (h *RBACHandler) MyPermissions(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	roles, err := h.membership.RolesForUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.Error(c, response.CodeUserNotFound)
		} else {
			response.Error(c, response.CodeServerError)
		}
		return
	}

	codes, err := h.resolver.EffectivePermissions(c.Request.Context(), roles)
	if err != nil {
		response.Error(c, response.CodeServerError)
		return
	}

	response.Success(c, gin.H{
		"roles":       roles,
		"permissions": codes,
	})
}

// ListAuditLogs 查询权限变更审计日志
// GET /api/v1/rbac/audit-logs
func (h *RBACHandler) ListAuditLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	pagination := &repository.Pagination{Page: page, PageSize: pageSize}

	var (
		logs  []*model.PermissionAuditLog
		total int64
		err   error
	)
	switch {
	case c.Query("actor_id") != "":
		logs, total, err = h.auditRepo.ListByActor(c.Request.Context(), c.Query("actor_id"), pagination)
	case c.Query("target_user_id") != "":
		logs, total, err = h.auditRepo.ListByTarget(c.Request.Context(), c.Query("target_user_id"), pagination)
	case c.Query("action") != "":
		logs, total, err = h.auditRepo.ListByAction(c.Request.Context(), c.Query("action"), pagination)
	default:
		logs, total, err = h.auditRepo.List(c.Request.Context(), pagination)
	}
	if err != nil {
		response.Error(c, response.CodeServerError)
		return
	}

	response.Success(c, gin.H{
		"list":      logs,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}
