package repository

import (
	"context"
	"errors"

	"github.com/kaiwu-tech/pm-backend/internal/model"
	"gorm.io/gorm"
)

// 错误定义
var (
	ErrProjectNotFound  = errors.New("项目不存在")
	ErrProjectKeyExists = errors.New("项目标识已存在")
	ErrSprintNotFound   = errors.New("迭代不存在")
	ErrTaskNotFound     = errors.New("任务不存在")
)

// ProjectRepository 项目数据访问接口
type ProjectRepository interface {
	Create(ctx context.Context, project *model.Project) error
	GetByID(ctx context.Context, id string) (*model.Project, error)
	GetByKey(ctx context.Context, key string) (*model.Project, error)
	Update(ctx context.Context, project *model.Project) error
	List(ctx context.Context, page *Pagination) ([]*model.Project, int64, error)
	AddMember(ctx context.Context, member *model.ProjectMember) error
	RemoveMember(ctx context.Context, projectID, userID string) error
	ListMembershipsByUser(ctx context.Context, userID string) ([]*model.ProjectMember, error)
}

// SprintRepository 迭代数据访问接口
type SprintRepository interface {
	Create(ctx context.Context, sprint *model.Sprint) error
	GetByID(ctx context.Context, id string) (*model.Sprint, error)
	Update(ctx context.Context, sprint *model.Sprint) error
	ListByProject(ctx context.Context, projectID string) ([]*model.Sprint, error)
}

// TaskRepository 任务数据访问接口
type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, id string) (*model.Task, error)
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, id string) error
	ListByProject(ctx context.Context, projectID string, page *Pagination) ([]*model.Task, int64, error)
}

// projectRepository 项目数据访问实现
type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository 创建项目数据访问实例
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &projectRepository{db: db}
}

func (r *projectRepository) Create(ctx context.Context, project *model.Project) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Project{}).
		Where("project_key = ?", project.Key).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrProjectKeyExists
	}
	return r.db.WithContext(ctx).Create(project).Error
}

func (r *projectRepository) GetByID(ctx context.Context, id string) (*model.Project, error) {
	var project model.Project
	err := r.db.WithContext(ctx).Preload("Members").Where("id = ?", id).First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &project, nil
}

func (r *projectRepository) GetByKey(ctx context.Context, key string) (*model.Project, error) {
	var project model.Project
	err := r.db.WithContext(ctx).Where("project_key = ?", key).First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &project, nil
}

func (r *projectRepository) Update(ctx context.Context, project *model.Project) error {
	return r.db.WithContext(ctx).Save(project).Error
}

func (r *projectRepository) List(ctx context.Context, page *Pagination) ([]*model.Project, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Project{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var projects []*model.Project
	if err := page.apply(query).Order("created_at DESC").Find(&projects).Error; err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

func (r *projectRepository) AddMember(ctx context.Context, member *model.ProjectMember) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", member.ProjectID, member.UserID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrMemberExists
	}
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *projectRepository) RemoveMember(ctx context.Context, projectID, userID string) error {
	result := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&model.ProjectMember{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMemberNotFound
	}
	return nil
}

func (r *projectRepository) ListMembershipsByUser(ctx context.Context, userID string) ([]*model.ProjectMember, error) {
	var members []*model.ProjectMember
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// sprintRepository 迭代数据访问实现
type sprintRepository struct {
	db *gorm.DB
}

// NewSprintRepository 创建迭代数据访问实例
func NewSprintRepository(db *gorm.DB) SprintRepository {
	return &sprintRepository{db: db}
}

func (r *sprintRepository) Create(ctx context.Context, sprint *model.Sprint) error {
	return r.db.WithContext(ctx).Create(sprint).Error
}

func (r *sprintRepository) GetByID(ctx context.Context, id string) (*model.Sprint, error) {
	var sprint model.Sprint
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&sprint).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSprintNotFound
		}
		return nil, err
	}
	return &sprint, nil
}

func (r *sprintRepository) Update(ctx context.Context, sprint *model.Sprint) error {
	return r.db.WithContext(ctx).Save(sprint).Error
}

func (r *sprintRepository) ListByProject(ctx context.Context, projectID string) ([]*model.Sprint, error) {
	var sprints []*model.Sprint
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).
		Order("created_at").Find(&sprints).Error; err != nil {
		return nil, err
	}
	return sprints, nil
}

// taskRepository 任务数据访问实现
type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository 创建任务数据访问实例
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) Update(ctx context.Context, task *model.Task) error {
	return r.db.WithContext(ctx).Save(task).Error
}

func (r *taskRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&model.Task{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (r *taskRepository) ListByProject(ctx context.Context, projectID string, page *Pagination) ([]*model.Task, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Task{}).Where("project_id = ?", projectID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tasks []*model.Task
	if err := page.apply(query).Order("priority, created_at").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}
