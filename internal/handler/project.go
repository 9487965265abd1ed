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

// ProjectHandler 项目管理处理器
type ProjectHandler struct {
	projectService service.ProjectService
	sprintService  service.SprintService
	taskService    service.TaskService
}

// NewProjectHandler 创建项目管理处理器
func NewProjectHandler(projectSvc service.ProjectService, sprintSvc service.SprintService, taskSvc service.TaskService) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectSvc,
		sprintService:  sprintSvc,
		taskService:    taskSvc,
	}
}

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Key         string `json:"key" binding:"required"`
	Description string `json:"description"`
	TeamID      string `json:"team_id"`
}

// CreateProject 创建项目
// POST /api/v1/projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidRequest, "参数错误: "+err.Error())
		return
	}

	userID, _ := middleware.CurrentUserID(c)
	project := &model.Project{
		Name:        req.Name,
		Key:         req.Key,
		Description: req.Description,
		OwnerID:     userID,
		Status:      model.StatusActive,
	}
	if req.TeamID != "" {
		project.TeamID = &req.TeamID
	}

	if err := h.projectService.Create(c.Request.Context(), project); err != nil {
		if errors.Is(err, service.ErrProjectKeyExists) {
			response.ErrorWithMsg(c, response.CodeInvalidRequest, err.Error())
		} else {
			response.Error(c, response.CodeServerError)
		}
		return
	}

	response.Success(c, project)
}

// GetProject 获取项目详情
// GET /api/v1/projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, err := h.projectService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrProjectNotFound) {
			response.Error(c, response.CodeProjectNotFound)
		} else {
			response.Error(c, response.CodeServerError)
		}
		return
	}
	response.Success(c, project)
}

// ListProjects 列出项目
// GET /api/v1/projects
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	pagination := &repository.Pagination{Page: page, PageSize: pageSize}

	projects, total, err := h.projectService.List(c.Request.Context(), pagination)
	if err != nil {
		response.Error(c, response.CodeServerError)
		return
	}

	response.Success(c, gin.H{
		"list":      projects,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ProjectMemberRequest 项目成员变更请求
type ProjectMemberRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	RoleName string `json:"role_name"`
}

// AddProjectMember 添加项目成员
// POST /api/v1/projects/:id/members
func (h *ProjectHandler) AddProjectMember(c *gin.Context) {
	var req ProjectMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidRequest, "参数错误: "+err.Error())
		return
	}

	if err := h.projectService.AddMember(c.Request.Context(), c.Param("id"), req.UserID, req.RoleName); err != nil {
		response.Error(c, response.CodeServerError)
		return
	}
	response.SuccessWithMsg(c, "成员已添加", nil)
}

// RemoveProjectMember 移除项目成员
// DELETE /api/v1/projects/:id/members/:user_id
func (h *ProjectHandler) RemoveProjectMember(c *gin.Context) {
	if err := h.projectService.RemoveMember(c.Request.Context(), c.Param("id"), c.Param("user_id")); err != nil {
		response.Error(c, response.CodeServerError)
		return
	}
	response.SuccessWithMsg(c, "成员已移除", nil)
}

// CreateSprintRequest 创建迭代请求
type CreateSprintRequest struct {
	Name string `json:"name" binding:"required"`
	Goal string `json:"goal"`
}

// CreateSprint 创建迭代
// POST /api/v1/projects/:id/sprints
func (h *ProjectHandler) CreateSprint(c *gin.Context) {
	var req CreateSprintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidRequest, "参数错误: "+err.Error())
		return
	}

	sprint := &model.Sprint{
		ProjectID: c.Param("id"),
		Name:      req.Name,
		Goal:      req.Goal,
		Status:    model.StatusActive,
	}
	if err := h.sprintService.Create(c.Request.Context(), sprint); err != nil {
		response.Error(c, response.CodeServerError)
		return
	}
	response.Success(c, sprint)
}

// ListSprints 列出项目的迭代
// GET /api/v1/projects/:id/sprints
func (h *ProjectHandler) ListSprints(c *gin.Context) {
	sprints, err := h.sprintService.ListByProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, response.CodeServerError)
		return
	}
	response.Success(c, gin.H{"list": sprints, "total": len(sprints)})
}

// TaskHandler 任务处理器
type TaskHandler struct {
	taskService service.TaskService
}

// NewTaskHandler 创建任务处理器
func NewTaskHandler(taskSvc service.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskSvc}
}

// TaskAccessRequest 构造任务路由的访问请求
// 加载任务并填充归属人与本次变更触碰的字段，供条件分配评估
func (h *TaskHandler) TaskAccessRequest(c *gin.Context, userID string) (*service.AccessRequest, error) {
	task, err := h.taskService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			// 资源不存在交给权限判定后的处理器响应
			return &service.AccessRequest{UserID: userID}, nil
		}
		return nil, err
	}

	req := &service.AccessRequest{
		UserID:          userID,
		ResourceType:    "task",
		ResourceID:      task.ID,
		ResourceOwnerID: task.OwnerID(),
	}

	// 写请求解析请求体，取出本次触碰的字段名
	if c.Request.Method == "PUT" || c.Request.Method == "PATCH" {
		var body map[string]interface{}
		if err := c.ShouldBindBodyWithJSON(&body); err == nil {
			for field := range body {
				req.Fields = append(req.Fields, field)
			}
		}
	}
	return req, nil
}

// CreateTaskRequest 创建任务请求
type CreateTaskRequest struct {
	ProjectID   string `json:"project_id" binding:"required"`
	SprintID    string `json:"sprint_id"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	AssigneeID  string `json:"assignee_id"`
	Priority    int    `json:"priority"`
}

// CreateTask 创建任务
// POST /api/v1/tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidRequest, "参数错误: "+err.Error())
		return
	}

	userID, _ := middleware.CurrentUserID(c)
	task := &model.Task{
		ProjectID:   req.ProjectID,
		Title:       req.Title,
		Description: req.Description,
		CreatorID:   userID,
		Priority:    req.Priority,
	}
	if req.SprintID != "" {
		task.SprintID = &req.SprintID
	}
	if req.AssigneeID != "" {
		task.AssigneeID = &req.AssigneeID
	}
	if task.Priority == 0 {
		task.Priority = 3
	}

	if err := h.taskService.Create(c.Request.Context(), task); err != nil {
		response.Error(c, response.CodeServerError)
		return
	}
	response.Success(c, task)
}

// GetTask 获取任务详情
// GET /api/v1/tasks/:id
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, err := h.taskService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			response.Error(c, response.CodeTaskNotFound)
		} else {
			response.Error(c, response.CodeServerError)
		}
		return
	}
	response.Success(c, task)
}

// ListTasks 列出项目的任务
// GET /api/v1/projects/:id/tasks
func (h *TaskHandler) ListTasks(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	pagination := &repository.Pagination{Page: page, PageSize: pageSize}

	tasks, total, err := h.taskService.ListByProject(c.Request.Context(), c.Param("id"), pagination)
	if err != nil {
		response.Error(c, response.CodeServerError)
		return
	}

	response.Success(c, gin.H{
		"list":      tasks,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// UpdateTaskRequest 更新任务请求
type UpdateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	SprintID    *string `json:"sprint_id"`
	AssigneeID  *string `json:"assignee_id"`
	Priority    *int    `json:"priority"`
	Status      *string `json:"status"`
}

// UpdateTask 更新任务
// PUT /api/v1/tasks/:id
// 解析结果带字段限制时，只应用限制内的字段，其余字段忽略
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	var req UpdateTaskRequest
	if err := c.ShouldBindBodyWithJSON(&req); err != nil {
		response.ErrorWithMsg(c, response.CodeInvalidRequest, "参数错误: "+err.Error())
		return
	}

	task, err := h.taskService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			response.Error(c, response.CodeTaskNotFound)
		} else {
			response.Error(c, response.CodeServerError)
		}
		return
	}

	allowed := func(string) bool { return true }
	if decision, ok := middleware.DecisionFrom(c); ok && len(decision.Restriction) > 0 {
		fields := decision.Restriction.Fields()
		set := make(map[string]bool, len(fields))
		for _, f := range fields {
			set[f] = true
		}
		allowed = func(field string) bool { return set[field] }
	}

	if req.Title != nil && allowed("title") {
		task.Title = *req.Title
	}
	if req.Description != nil && allowed("description") {
		task.Description = *req.Description
	}
	if req.SprintID != nil && allowed("sprint_id") {
		task.SprintID = req.SprintID
	}
	if req.Priority != nil && allowed("priority") {
		task.Priority = *req.Priority
	}
	if req.Status != nil && allowed("status") {
		task.Status = *req.Status
	}
	if req.AssigneeID != nil && allowed("assignee_id") {
		if err := h.taskService.Assign(c.Request.Context(), task.ID, *req.AssigneeID); err != nil {
			response.Error(c, response.CodeServerError)
			return
		}
		task.AssigneeID = req.AssigneeID
	}

	if err := h.taskService.Update(c.Request.Context(), task); err != nil {
		response.Error(c, response.CodeServerError)
		return
	}
	response.Success(c, task)
}

// DeleteTask 删除任务
// DELETE /api/v1/tasks/:id
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	if err := h.taskService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, service.ErrTaskNotFound) {
			response.Error(c, response.CodeTaskNotFound)
		} else {
			response.Error(c, response.CodeServerError)
		}
		return
	}
	response.SuccessWithMsg(c, "任务已删除", nil)
}
