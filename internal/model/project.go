package model

import (
	"time"
)

// 任务状态
const (
	TaskStatusTodo       = "todo"        // 待处理
	TaskStatusInProgress = "in_progress" // 进行中
	TaskStatusInReview   = "in_review"   // 评审中
	TaskStatusDone       = "done"        // 已完成
)

// Project 项目模型
type Project struct {
	BaseModel
	Name        string  `gorm:"type:varchar(100);not null" json:"name"`             // 项目名称
	Key         string  `gorm:"column:project_key;type:varchar(20);uniqueIndex;not null" json:"key"` // 项目标识，如 PM
	Description string  `gorm:"type:text" json:"description"`                       // 项目描述
	TeamID      *string `gorm:"type:char(36);index" json:"team_id,omitempty"`       // 承接团队
	OwnerID     string  `gorm:"type:char(36);index;not null" json:"owner_id"`       // 项目负责人
	Status      string  `gorm:"type:varchar(20);default:active" json:"status"`      // 状态：active, archived

	// 关联
	Members []ProjectMember `gorm:"foreignKey:ProjectID" json:"members,omitempty"`
}

// TableName 指定表名
func (Project) TableName() string {
	return "projects"
}

// ProjectMember 项目成员
// role_name 为该成员在项目作用域内的角色名，供权限解析使用
type ProjectMember struct {
	BaseModel
	ProjectID string `gorm:"type:char(36);not null;uniqueIndex:idx_project_user" json:"project_id"`
	UserID    string `gorm:"type:char(36);not null;uniqueIndex:idx_project_user;index" json:"user_id"`
	RoleName  string `gorm:"type:varchar(100);not null;default:member" json:"role_name"` // 项目内角色，如 owner, developer
}

// TableName 指定表名
func (ProjectMember) TableName() string {
	return "project_members"
}

// Sprint 迭代模型
type Sprint struct {
	BaseModel
	ProjectID string     `gorm:"type:char(36);index;not null" json:"project_id"`
	Name      string     `gorm:"type:varchar(100);not null" json:"name"`
	Goal      string     `gorm:"type:varchar(500)" json:"goal"`
	StartAt   *time.Time `json:"start_at,omitempty"`
	EndAt     *time.Time `json:"end_at,omitempty"`
	Status    string     `gorm:"type:varchar(20);default:active" json:"status"`
}

// TableName 指定表名
func (Sprint) TableName() string {
	return "sprints"
}

// Task 任务模型
// creator_id 为任务归属者，own_only 条件据此判断资源所有权
type Task struct {
	BaseModel
	ProjectID   string  `gorm:"type:char(36);index;not null" json:"project_id"`
	SprintID    *string `gorm:"type:char(36);index" json:"sprint_id,omitempty"`
	Title       string  `gorm:"type:varchar(200);not null" json:"title"`
	Description string  `gorm:"type:text" json:"description"`
	CreatorID   string  `gorm:"type:char(36);index;not null" json:"creator_id"`
	AssigneeID  *string `gorm:"type:char(36);index" json:"assignee_id,omitempty"`
	Priority    int     `gorm:"default:3" json:"priority"` // 1 最高，5 最低
	Status      string  `gorm:"type:varchar(20);default:todo" json:"status"`
}

// TableName 指定表名
func (Task) TableName() string {
	return "tasks"
}

// OwnerID 返回任务归属者，用于资源所有权判断
func (t *Task) OwnerID() string {
	return t.CreatorID
}
