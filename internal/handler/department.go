package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kaiwu-tech/pm-backend/internal/model"
	"github.com/kaiwu-tech/pm-backend/internal/service"
	"github.com/kaiwu-tech/pm-backend/pkg/response"
)

// DepartmentHandler 部门管理处理器
type DepartmentHandler struct {
	deptService service.DepartmentService
	teamService service.TeamService
}

// NewDepartmentHandler 创建部门管理处理器
func NewDepartmentHandler(deptSvc service.DepartmentService, teamSvc service.TeamService) *DepartmentHandler {
	return &DepartmentHandler{deptService: deptSvc, teamService: teamSvc}
}

// CreateDepartmentRequest 创建部门请求
type CreateDepartmentRequest struct {
	Code        string `json:"code" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	ParentID    string `json:"parent_id"`
	ManagerID   string `json:"manager_id"`
}

// CreateDepartment 创建部门
// POST /api/v1/departments
func (h *DepartmentHandler) CreateDepartment(c *gin.Context) {
	var req CreateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidRequest, "参数错误: "+err.Error())
		return
	}

	dept := &model.Department{
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		ManagerID:   req.ManagerID,
		Status:      model.StatusActive,
	}
	if req.ParentID != "" {
		dept.ParentID = &req.ParentID
	}

	if err := h.deptService.Create(c.Request.Context(), dept); err != nil {
		switch {
		case errors.Is(err, service.ErrDeptCodeExists):
			response.Error(c, response.CodeDeptCodeExists)
		case errors.Is(err, service.ErrParentNotFound):
			response.Error(c, response.CodeDeptNotFound)
		default:
			response.Error(c, response.CodeServerError)
		}
		return
	}

	response.Success(c, dept)
}

// GetDepartment 获取部门详情
// GET /api/v1/departments/:id
func (h *DepartmentHandler) GetDepartment(c *gin.Context) {
	dept, err := h.deptService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrDeptNotFound) {
			response.Error(c, response.CodeDeptNotFound)
		} else {
			response.Error(c, response.CodeServerError)
		}
		return
	}
	response.Success(c, dept)
}

// UpdateDepartmentRequest 更新部门请求
type UpdateDepartmentRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ParentID    string `json:"parent_id"`
	ManagerID   string `json:"manager_id"`
	Status      string `json:"status"`
}

// UpdateDepartment 更新部门
// PUT /api/v1/departments/:id
func (h *DepartmentHandler) UpdateDepartment(c *gin.Context) {
	var req UpdateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidRequest, "参数错误: "+err.Error())
		return
	}

	dept, err := h.deptService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrDeptNotFound) {
			response.Error(c, response.CodeDeptNotFound)
		} else {
			response.Error(c, response.CodeServerError)
		}
		return
	}

	if req.Name != "" {
		dept.Name = req.Name
	}
	if req.Description != "" {
		dept.Description = req.Description
	}
	if req.ManagerID != "" {
		dept.ManagerID = req.ManagerID
	}
	if req.Status != "" {
		dept.Status = req.Status
	}
	if req.ParentID != "" {
		dept.ParentID = &req.ParentID
	}

	if err := h.deptService.Update(c.Request.Context(), dept); err != nil {
		switch {
		case errors.Is(err, service.ErrDeptCycle):
			response.Error(c, response.CodeDeptCycle)
		case errors.Is(err, service.ErrParentNotFound), errors.Is(err, service.ErrDeptNotFound):
			response.Error(c, response.CodeDeptNotFound)
		default:
			response.Error(c, response.CodeServerError)
		}
		return
	}

	response.Success(c, dept)
}

// DeleteDepartment 删除部门
// DELETE /api/v1/departments/:id
func (h *DepartmentHandler) DeleteDepartment(c *gin.Context) {
	if err := h.deptService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		switch {
		case errors.Is(err, service.ErrDeptNotFound):
			response.Error(c, response.CodeDeptNotFound)
		case errors.Is(err, service.ErrDeptHasChildren):
			response.ErrorWithMsg(c, response.CodeInvalidRequest, err.Error())
		default:
			response.Error(c, response.CodeServerError)
		}
		return
	}
	response.SuccessWithMsg(c, "部门已删除", nil)
}

// ListDepartments 列出部门
// GET /api/v1/departments
func (h *DepartmentHandler) ListDepartments(c *gin.Context) {
	if parentID := c.Query("parent_id"); parentID != "" {
		depts, err := h.deptService.ListChildren(c.Request.Context(), parentID)
		if err != nil {
			response.Error(c, response.CodeServerError)
			return
		}
		response.Success(c, gin.H{"list": depts, "total": len(depts)})
		return
	}

	depts, err := h.deptService.List(c.Request.Context())
	if err != nil {
		response.Error(c, response.CodeServerError)
		return
	}
	response.Success(c, gin.H{"list": depts, "total": len(depts)})
}

// GetHierarchyPath 获取部门的层级路径
// GET /api/v1/departments/:id/path
func (h *DepartmentHandler) GetHierarchyPath(c *gin.Context) {
	path, err := h.deptService.GetHierarchyPath(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrDeptCycle):
			// 部分路径连同错误码一起返回，便于排查脏数据
			c.JSON(http.StatusConflict, response.Response{
				Code: response.CodeDeptCycle,
				Msg:  "部门层级存在循环引用",
				Data: gin.H{"partial_path": path},
			})
		case errors.Is(err, service.ErrDeptNotFound):
			response.Error(c, response.CodeDeptNotFound)
		default:
			response.Error(c, response.CodeServerError)
		}
		return
	}
	response.Success(c, gin.H{"path": path})
}

// CreateTeamRequest 创建团队请求
type CreateTeamRequest struct {
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	DepartmentID string `json:"department_id"`
	LeadID       string `json:"lead_id"`
}

// CreateTeam 创建团队
// POST /api/v1/teams
func (h *DepartmentHandler) CreateTeam(c *gin.Context) {
	var req CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidRequest, "参数错误: "+err.Error())
		return
	}

	team := &model.Team{
		Name:        req.Name,
		Description: req.Description,
		LeadID:      req.LeadID,
		Status:      model.StatusActive,
	}
	if req.DepartmentID != "" {
		team.DepartmentID = &req.DepartmentID
	}

	if err := h.teamService.Create(c.Request.Context(), team); err != nil {
		if errors.Is(err, service.ErrDeptNotFound) {
			response.Error(c, response.CodeDeptNotFound)
		} else {
			response.Error(c, response.CodeServerError)
		}
		return
	}

	response.Success(c, team)
}

// GetTeam 获取团队详情
// GET /api/v1/teams/:id
func (h *DepartmentHandler) GetTeam(c *gin.Context) {
	team, err := h.teamService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrTeamNotFound) {
			response.Error(c, response.CodeTeamNotFound)
		} else {
			response.Error(c, response.CodeServerError)
		}
		return
	}
	response.Success(c, team)
}

// TeamMemberRequest 团队成员变更请求
type TeamMemberRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	RoleName string `json:"role_name"`
}

// AddTeamMember 添加团队成员
// POST /api/v1/teams/:id/members
func (h *DepartmentHandler) AddTeamMember(c *gin.Context) {
	var req TeamMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidRequest, "参数错误: "+err.Error())
		return
	}

	if err := h.teamService.AddMember(c.Request.Context(), c.Param("id"), req.UserID, req.RoleName); err != nil {
		if errors.Is(err, service.ErrMemberExists) {
			response.ErrorWithMsg(c, response.CodeInvalidRequest, err.Error())
		} else {
			response.Error(c, response.CodeServerError)
		}
		return
	}
	response.SuccessWithMsg(c, "成员已添加", nil)
}

// RemoveTeamMember 移除团队成员
// DELETE /api/v1/teams/:id/members/:user_id
func (h *DepartmentHandler) RemoveTeamMember(c *gin.Context) {
	if err := h.teamService.RemoveMember(c.Request.Context(), c.Param("id"), c.Param("user_id")); err != nil {
		if errors.Is(err, service.ErrMemberNotFound) {
			response.ErrorWithMsg(c, response.CodeInvalidRequest, err.Error())
		} else {
			response.Error(c, response.CodeServerError)
		}
		return
	}
	response.SuccessWithMsg(c, "成员已移除", nil)
}

// ListTeamMembers 列出团队成员
// GET /api/v1/teams/:id/members
func (h *DepartmentHandler) ListTeamMembers(c *gin.Context) {
	members, err := h.teamService.ListMembers(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, response.CodeServerError)
		return
	}
	response.Success(c, gin.H{"list": members, "total": len(members)})
}
