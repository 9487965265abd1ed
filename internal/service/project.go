package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/kaiwu-tech/pm-backend/internal/model"
	"github.com/kaiwu-tech/pm-backend/internal/repository"
	"go.uber.org/zap"
)

var (
	ErrProjectNotFound  = errors.New("项目不存在")
	ErrProjectKeyExists = errors.New("项目标识已存在")
	ErrTaskNotFound     = errors.New("任务不存在")
	ErrSprintNotFound   = errors.New("迭代不存在")
)

// ProjectService 项目服务
type ProjectService interface {
	Create(ctx context.Context, project *model.Project) error
	Get(ctx context.Context, id string) (*model.Project, error)
	GetByKey(ctx context.Context, key string) (*model.Project, error)
	Update(ctx context.Context, project *model.Project) error
	List(ctx context.Context, page *repository.Pagination) ([]*model.Project, int64, error)
	AddMember(ctx context.Context, projectID, userID, roleName string) error
	RemoveMember(ctx context.Context, projectID, userID string) error
}

// TaskService 任务服务
// 任务被指派时向被指派人发送站内通知
type TaskService interface {
	Create(ctx context.Context, task *model.Task) error
	Get(ctx context.Context, id string) (*model.Task, error)
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, id string) error
	ListByProject(ctx context.Context, projectID string, page *repository.Pagination) ([]*model.Task, int64, error)
	Assign(ctx context.Context, taskID, assigneeID string) error
}

// SprintService 迭代服务
type SprintService interface {
	Create(ctx context.Context, sprint *model.Sprint) error
	Get(ctx context.Context, id string) (*model.Sprint, error)
	Update(ctx context.Context, sprint *model.Sprint) error
	ListByProject(ctx context.Context, projectID string) ([]*model.Sprint, error)
}

type projectService struct {
	projectRepo repository.ProjectRepository
	logger      *zap.Logger
}

// NewProjectService 创建项目服务
func NewProjectService(projectRepo repository.ProjectRepository, logger *zap.Logger) ProjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &projectService{projectRepo: projectRepo, logger: logger}
}

func (s *projectService) Create(ctx context.Context, project *model.Project) error {
	if err := s.projectRepo.Create(ctx, project); err != nil {
		if errors.Is(err, repository.ErrProjectKeyExists) {
			return ErrProjectKeyExists
		}
		return err
	}
	// 负责人默认加入项目成员
	member := &model.ProjectMember{
		ProjectID: project.ID,
		UserID:    project.OwnerID,
		RoleName:  "owner",
	}
	if err := s.projectRepo.AddMember(ctx, member); err != nil {
		s.logger.Warn("项目负责人加入成员失败",
			zap.String("project_id", project.ID),
			zap.Error(err),
		)
	}
	return nil
}

func (s *projectService) Get(ctx context.Context, id string) (*model.Project, error) {
	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return project, nil
}

func (s *projectService) GetByKey(ctx context.Context, key string) (*model.Project, error) {
	project, err := s.projectRepo.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return project, nil
}

func (s *projectService) Update(ctx context.Context, project *model.Project) error {
	return s.projectRepo.Update(ctx, project)
}

func (s *projectService) List(ctx context.Context, page *repository.Pagination) ([]*model.Project, int64, error) {
	return s.projectRepo.List(ctx, page)
}

func (s *projectService) AddMember(ctx context.Context, projectID, userID, roleName string) error {
	if roleName == "" {
		roleName = "member"
	}
	return s.projectRepo.AddMember(ctx, &model.ProjectMember{
		ProjectID: projectID,
		UserID:    userID,
		RoleName:  roleName,
	})
}

func (s *projectService) RemoveMember(ctx context.Context, projectID, userID string) error {
	return s.projectRepo.RemoveMember(ctx, projectID, userID)
}

type taskService struct {
	taskRepo  repository.TaskRepository
	notifRepo repository.NotificationRepository
	logger    *zap.Logger
}

// NewTaskService 创建任务服务
func NewTaskService(taskRepo repository.TaskRepository, notifRepo repository.NotificationRepository, logger *zap.Logger) TaskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &taskService{taskRepo: taskRepo, notifRepo: notifRepo, logger: logger}
}

func (s *taskService) Create(ctx context.Context, task *model.Task) error {
	if task.Status == "" {
		task.Status = model.TaskStatusTodo
	}
	if err := s.taskRepo.Create(ctx, task); err != nil {
		return err
	}
	if task.AssigneeID != nil && *task.AssigneeID != "" && *task.AssigneeID != task.CreatorID {
		s.notifyAssigned(ctx, task, *task.AssigneeID)
	}
	return nil
}

func (s *taskService) Get(ctx context.Context, id string) (*model.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

func (s *taskService) Update(ctx context.Context, task *model.Task) error {
	return s.taskRepo.Update(ctx, task)
}

func (s *taskService) Delete(ctx context.Context, id string) error {
	if err := s.taskRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return ErrTaskNotFound
		}
		return err
	}
	return nil
}

func (s *taskService) ListByProject(ctx context.Context, projectID string, page *repository.Pagination) ([]*model.Task, int64, error) {
	return s.taskRepo.ListByProject(ctx, projectID, page)
}

// Assign 指派任务并通知被指派人
func (s *taskService) Assign(ctx context.Context, taskID, assigneeID string) error {
	task, err := s.Get(ctx, taskID)
	if err != nil {
		return err
	}
	task.AssigneeID = &assigneeID
	if err := s.taskRepo.Update(ctx, task); err != nil {
		return err
	}
	s.notifyAssigned(ctx, task, assigneeID)
	return nil
}

// 通知发送失败不阻断主流程
func (s *taskService) notifyAssigned(ctx context.Context, task *model.Task, assigneeID string) {
	n := &model.Notification{
		UserID:   assigneeID,
		Type:     model.NotifyTaskAssigned,
		Title:    "新任务指派",
		Content:  fmt.Sprintf("任务「%s」已指派给你", task.Title),
		SourceID: task.ID,
	}
	if err := s.notifRepo.Create(ctx, n); err != nil {
		s.logger.Warn("任务指派通知发送失败",
			zap.String("task_id", task.ID),
			zap.String("assignee_id", assigneeID),
			zap.Error(err),
		)
	}
}

type sprintService struct {
	sprintRepo repository.SprintRepository
}

// NewSprintService 创建迭代服务
func NewSprintService(sprintRepo repository.SprintRepository) SprintService {
	return &sprintService{sprintRepo: sprintRepo}
}

func (s *sprintService) Create(ctx context.Context, sprint *model.Sprint) error {
	return s.sprintRepo.Create(ctx, sprint)
}

func (s *sprintService) Get(ctx context.Context, id string) (*model.Sprint, error) {
	sprint, err := s.sprintRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrSprintNotFound) {
			return nil, ErrSprintNotFound
		}
		return nil, err
	}
	return sprint, nil
}

func (s *sprintService) Update(ctx context.Context, sprint *model.Sprint) error {
	return s.sprintRepo.Update(ctx, sprint)
}

func (s *sprintService) ListByProject(ctx context.Context, projectID string) ([]*model.Sprint, error) {
	return s.sprintRepo.ListByProject(ctx, projectID)
}
