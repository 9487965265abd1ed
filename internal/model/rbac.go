// Package model 定义数据模型
package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 角色作用域（role_type）
const (
	RoleTypeSystem   = "system"   // 系统级
	RoleTypeDivision = "division" // 部门级
	RoleTypeTeam     = "team"     // 团队级
	RoleTypeProject  = "project"  // 项目级
)

// scopeRanks 作用域优先级，数值越大越具体
// 解析时项目级覆盖团队级，团队级覆盖部门级，部门级覆盖系统级
var scopeRanks = map[string]int{
	RoleTypeSystem:   1,
	RoleTypeDivision: 2,
	RoleTypeTeam:     3,
	RoleTypeProject:  4,
}

// ScopeRank 返回作用域优先级，未知作用域返回 0
func ScopeRank(roleType string) int {
	return scopeRanks[roleType]
}

// IsValidRoleType 检查作用域是否合法
func IsValidRoleType(roleType string) bool {
	_, ok := scopeRanks[roleType]
	return ok
}

// 权限分类（category）
const (
	CategorySystem   = "system"
	CategoryDivision = "division"
	CategoryTeam     = "team"
	CategoryProject  = "project"
	CategoryCommon   = "common"
)

// 条件类型（condition_type）
const (
	ConditionOwnOnly      = "own_only"       // 仅限本人资源
	ConditionPartial      = "partial"        // 允许访问，调用方需按配置做字段级限制
	ConditionQAFieldsOnly = "qa_fields_only" // 仅允许修改配置中列出的 QA 字段
)

// 审计动作
const (
	AuditActionGrant  = "grant"  // 授予权限
	AuditActionRevoke = "revoke" // 撤销权限
	AuditActionModify = "modify" // 修改权限条件
)

// Permission 权限模型
// code 全局唯一，一旦被分配引用即不可变更
type Permission struct {
	BaseModel
	Code        string `gorm:"type:varchar(150);uniqueIndex;not null" json:"code"` // 权限代码，如 task.edit
	Name        string `gorm:"type:varchar(100);not null" json:"name"`             // 权限名称
	Description string `gorm:"type:varchar(500)" json:"description"`               // 权限描述
	Category    string `gorm:"type:varchar(20);not null" json:"category"`          // 分类：system, division, team, project, common
	Status      string `gorm:"type:varchar(20);default:active" json:"status"`      // 状态：active, inactive
}

// TableName 指定表名
func (Permission) TableName() string {
	return "permissions"
}

// IsActive 检查权限是否启用
func (p *Permission) IsActive() bool {
	return p.Status == StatusActive
}

// ConditionConfig 条件配置
// 由条件评估器按 condition_type 解释的结构化数据
type ConditionConfig map[string]interface{}

// Value 实现 driver.Valuer 接口，用于数据库存储
func (c ConditionConfig) Value() (driver.Value, error) {
	if c == nil {
		return json.Marshal(ConditionConfig{})
	}
	return json.Marshal(c)
}

// Scan 实现 sql.Scanner 接口，用于数据库读取
func (c *ConditionConfig) Scan(value interface{}) error {
	if value == nil {
		*c = ConditionConfig{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("无法将值转换为 []byte")
	}
	return json.Unmarshal(bytes, c)
}

// Fields 提取配置中的 fields 字段列表
func (c ConditionConfig) Fields() []string {
	raw, ok := c["fields"]
	if !ok {
		return nil
	}

	switch v := raw.(type) {
	case []string:
		return v
	case []interface{}:
		fields := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				fields = append(fields, s)
			}
		}
		return fields
	default:
		return nil
	}
}

// RoleAssignment 角色权限分配
// (role_type, role_name, permission_id) 三元组唯一，同一角色不能重复分配同一权限
type RoleAssignment struct {
	BaseModel
	RoleType        string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_role_perm" json:"role_type"`
	RoleName        string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_role_perm" json:"role_name"`
	PermissionID    string          `gorm:"type:char(36);not null;uniqueIndex:idx_role_perm;index" json:"permission_id"`
	IsConditional   bool            `gorm:"default:false" json:"is_conditional"`
	ConditionType   string          `gorm:"type:varchar(50)" json:"condition_type,omitempty"`
	ConditionConfig ConditionConfig `gorm:"type:json" json:"condition_config,omitempty"`

	// 关联
	Permission *Permission `gorm:"foreignKey:PermissionID" json:"permission,omitempty"`
}

// TableName 指定表名
func (RoleAssignment) TableName() string {
	return "role_assignments"
}

// AssignmentSnapshot 分配快照，用于审计日志的变更前后记录
type AssignmentSnapshot struct {
	RoleType        string          `json:"role_type"`
	RoleName        string          `json:"role_name"`
	PermissionCode  string          `json:"permission_code"`
	IsConditional   bool            `json:"is_conditional"`
	ConditionType   string          `json:"condition_type,omitempty"`
	ConditionConfig ConditionConfig `json:"condition_config,omitempty"`
}

// Value 实现 driver.Valuer 接口，用于数据库存储
func (s AssignmentSnapshot) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan 实现 sql.Scanner 接口，用于数据库读取
func (s *AssignmentSnapshot) Scan(value interface{}) error {
	if value == nil {
		*s = AssignmentSnapshot{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("无法将值转换为 []byte")
	}
	return json.Unmarshal(bytes, s)
}

// SnapshotOf 根据分配记录生成快照
func SnapshotOf(a *RoleAssignment, permissionCode string) AssignmentSnapshot {
	return AssignmentSnapshot{
		RoleType:        a.RoleType,
		RoleName:        a.RoleName,
		PermissionCode:  permissionCode,
		IsConditional:   a.IsConditional,
		ConditionType:   a.ConditionType,
		ConditionConfig: a.ConditionConfig,
	}
}

// PermissionAuditLog 权限变更审计日志
// 只追加，创建后不再更新或删除，created_at 为权威排序键
type PermissionAuditLog struct {
	ID             string              `gorm:"type:char(36);primaryKey" json:"id"`
	ActorID        string              `gorm:"type:char(36);not null;index:idx_audit_actor,priority:1" json:"actor_id"`
	TargetUserID   string              `gorm:"type:char(36);index:idx_audit_target,priority:1" json:"target_user_id,omitempty"`
	Action         string              `gorm:"type:varchar(20);not null;index" json:"action"`
	RoleType       string              `gorm:"type:varchar(20);not null" json:"role_type"`
	RoleName       string              `gorm:"type:varchar(100);not null" json:"role_name"`
	PermissionCode string              `gorm:"type:varchar(150);not null" json:"permission_code"`
	OldRole        *AssignmentSnapshot `gorm:"type:json" json:"old_role,omitempty"`
	NewRole        *AssignmentSnapshot `gorm:"type:json" json:"new_role,omitempty"`
	Reason         string              `gorm:"type:varchar(500)" json:"reason,omitempty"`
	IPAddress      string              `gorm:"type:varchar(45)" json:"ip_address,omitempty"`
	UserAgent      string              `gorm:"type:varchar(500)" json:"user_agent,omitempty"`
	CreatedAt      time.Time           `gorm:"index:idx_audit_actor,priority:2;index:idx_audit_target,priority:2" json:"created_at"`
}

// TableName 指定表名
func (PermissionAuditLog) TableName() string {
	return "permission_audit_logs"
}

// BeforeCreate 创建前自动生成 UUID
func (l *PermissionAuditLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return nil
}

// DefaultSystemPermissions 系统默认权限目录
func DefaultSystemPermissions() []Permission {
	return []Permission{
		{Code: "rbac.manage", Name: "权限管理", Category: CategorySystem, Description: "管理权限目录与角色权限分配"},
		{Code: "user.manage", Name: "用户管理", Category: CategorySystem, Description: "管理用户账号"},
		{Code: "dept.manage", Name: "部门管理", Category: CategoryDivision, Description: "管理部门与层级结构"},
		{Code: "team.manage", Name: "团队管理", Category: CategoryTeam, Description: "管理团队与成员"},
		{Code: "project.view", Name: "查看项目", Category: CategoryProject, Description: "查看项目信息"},
		{Code: "project.manage", Name: "项目管理", Category: CategoryProject, Description: "创建、编辑、归档项目"},
		{Code: "sprint.manage", Name: "迭代管理", Category: CategoryProject, Description: "管理项目迭代"},
		{Code: "task.view", Name: "查看任务", Category: CategoryProject, Description: "查看任务内容"},
		{Code: "task.create", Name: "创建任务", Category: CategoryProject, Description: "创建任务"},
		{Code: "task.edit", Name: "编辑任务", Category: CategoryProject, Description: "编辑任务内容"},
		{Code: "task.delete", Name: "删除任务", Category: CategoryProject, Description: "删除任务"},
		{Code: "notification.view", Name: "查看通知", Category: CategoryCommon, Description: "查看站内通知"},
		{Code: "ai.use", Name: "AI 辅助", Category: CategoryCommon, Description: "使用 AI 辅助功能"},
	}
}
