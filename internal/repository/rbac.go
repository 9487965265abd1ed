// Package repository 数据访问层
package repository

import (
	"context"
	"errors"

	"github.com/kaiwu-tech/pm-backend/internal/model"
	"gorm.io/gorm"
)

// 错误定义
var (
	ErrPermissionNotFound   = errors.New("权限不存在")
	ErrPermissionCodeExists = errors.New("权限代码已存在")
	ErrAssignmentNotFound   = errors.New("角色权限分配不存在")
	ErrAssignmentExists     = errors.New("该角色已拥有此权限")
)

// RoleRef 用户持有的一个角色引用（作用域 + 角色名）
type RoleRef struct {
	RoleType string `json:"role_type"`
	RoleName string `json:"role_name"`
}

// PermissionRepository 权限目录数据访问接口
type PermissionRepository interface {
	Create(ctx context.Context, perm *model.Permission) error
	GetByID(ctx context.Context, id string) (*model.Permission, error)
	GetByCode(ctx context.Context, code string) (*model.Permission, error)
	List(ctx context.Context) ([]*model.Permission, error)
	ListByCategory(ctx context.Context, category string) ([]*model.Permission, error)
	UpdateStatus(ctx context.Context, code, status string) error
}

// RoleAssignmentRepository 角色权限分配数据访问接口
// 所有写操作与对应审计日志在同一事务内完成，二者要么同时持久化要么都不持久化
type RoleAssignmentRepository interface {
	CreateWithAudit(ctx context.Context, assignment *model.RoleAssignment, log *model.PermissionAuditLog) error
	UpdateWithAudit(ctx context.Context, assignment *model.RoleAssignment, log *model.PermissionAuditLog) error
	DeleteWithAudit(ctx context.Context, roleType, roleName, permissionID string, log *model.PermissionAuditLog) error
	Get(ctx context.Context, roleType, roleName, permissionID string) (*model.RoleAssignment, error)
	ListForRole(ctx context.Context, roleType, roleName string) ([]*model.RoleAssignment, error)
	ListForRoles(ctx context.Context, refs []RoleRef) ([]*model.RoleAssignment, error)
	ListByPermission(ctx context.Context, permissionID string) ([]*model.RoleAssignment, error)
}

// AuditLogRepository 审计日志数据访问接口
// 只读加追加，不提供更新与删除
type AuditLogRepository interface {
	ListByActor(ctx context.Context, actorID string, page *Pagination) ([]*model.PermissionAuditLog, int64, error)
	ListByTarget(ctx context.Context, targetUserID string, page *Pagination) ([]*model.PermissionAuditLog, int64, error)
	ListByAction(ctx context.Context, action string, page *Pagination) ([]*model.PermissionAuditLog, int64, error)
	List(ctx context.Context, page *Pagination) ([]*model.PermissionAuditLog, int64, error)
}

// Pagination 分页参数
type Pagination struct {
	Page     int // 页码，从 1 开始
	PageSize int // 每页数量
}

func (p *Pagination) apply(query *gorm.DB) *gorm.DB {
	if p == nil {
		return query
	}
	return query.Offset((p.Page - 1) * p.PageSize).Limit(p.PageSize)
}

// permissionRepository 权限目录数据访问实现
type permissionRepository struct {
	db *gorm.DB
}

// NewPermissionRepository 创建权限目录数据访问实例
func NewPermissionRepository(db *gorm.DB) PermissionRepository {
	return &permissionRepository{db: db}
}

func (r *permissionRepository) Create(ctx context.Context, perm *model.Permission) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Permission{}).
		Where("code = ?", perm.Code).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrPermissionCodeExists
	}
	return r.db.WithContext(ctx).Create(perm).Error
}

func (r *permissionRepository) GetByID(ctx context.Context, id string) (*model.Permission, error) {
	var perm model.Permission
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&perm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPermissionNotFound
		}
		return nil, err
	}
	return &perm, nil
}

func (r *permissionRepository) GetByCode(ctx context.Context, code string) (*model.Permission, error) {
	var perm model.Permission
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&perm).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPermissionNotFound
		}
		return nil, err
	}
	return &perm, nil
}

func (r *permissionRepository) List(ctx context.Context) ([]*model.Permission, error) {
	var perms []*model.Permission
	if err := r.db.WithContext(ctx).Order("code").Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}

func (r *permissionRepository) ListByCategory(ctx context.Context, category string) ([]*model.Permission, error) {
	var perms []*model.Permission
	if err := r.db.WithContext(ctx).Where("category = ?", category).
		Order("code").Find(&perms).Error; err != nil {
		return nil, err
	}
	return perms, nil
}

func (r *permissionRepository) UpdateStatus(ctx context.Context, code, status string) error {
	result := r.db.WithContext(ctx).Model(&model.Permission{}).
		Where("code = ?", code).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPermissionNotFound
	}
	return nil
}

// roleAssignmentRepository 角色权限分配数据访问实现
type roleAssignmentRepository struct {
	db *gorm.DB
}

// NewRoleAssignmentRepository 创建角色权限分配数据访问实例
func NewRoleAssignmentRepository(db *gorm.DB) RoleAssignmentRepository {
	return &roleAssignmentRepository{db: db}
}

func (r *roleAssignmentRepository) CreateWithAudit(ctx context.Context, assignment *model.RoleAssignment, log *model.PermissionAuditLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 事务内检测三元组重复，避免并发分配互相覆盖
		var count int64
		if err := tx.Model(&model.RoleAssignment{}).
			Where("role_type = ? AND role_name = ? AND permission_id = ?",
				assignment.RoleType, assignment.RoleName, assignment.PermissionID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAssignmentExists
		}

		if err := tx.Create(assignment).Error; err != nil {
			return err
		}
		return tx.Create(log).Error
	})
}

func (r *roleAssignmentRepository) UpdateWithAudit(ctx context.Context, assignment *model.RoleAssignment, log *model.PermissionAuditLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(assignment).Error; err != nil {
			return err
		}
		return tx.Create(log).Error
	})
}

func (r *roleAssignmentRepository) DeleteWithAudit(ctx context.Context, roleType, roleName, permissionID string, log *model.PermissionAuditLog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("role_type = ? AND role_name = ? AND permission_id = ?",
			roleType, roleName, permissionID).
			Delete(&model.RoleAssignment{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrAssignmentNotFound
		}
		return tx.Create(log).Error
	})
}

func (r *roleAssignmentRepository) Get(ctx context.Context, roleType, roleName, permissionID string) (*model.RoleAssignment, error) {
	var assignment model.RoleAssignment
	err := r.db.WithContext(ctx).Preload("Permission").
		Where("role_type = ? AND role_name = ? AND permission_id = ?", roleType, roleName, permissionID).
		First(&assignment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}
	return &assignment, nil
}

func (r *roleAssignmentRepository) ListForRole(ctx context.Context, roleType, roleName string) ([]*model.RoleAssignment, error) {
	var assignments []*model.RoleAssignment
	err := r.db.WithContext(ctx).Preload("Permission").
		Where("role_type = ? AND role_name = ?", roleType, roleName).
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *roleAssignmentRepository) ListForRoles(ctx context.Context, refs []RoleRef) ([]*model.RoleAssignment, error) {
	if len(refs) == 0 {
		return nil, nil
	}

	cond := r.db.Where("role_type = ? AND role_name = ?", refs[0].RoleType, refs[0].RoleName)
	for _, ref := range refs[1:] {
		cond = cond.Or("role_type = ? AND role_name = ?", ref.RoleType, ref.RoleName)
	}

	var assignments []*model.RoleAssignment
	err := r.db.WithContext(ctx).Preload("Permission").
		Where(cond).Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *roleAssignmentRepository) ListByPermission(ctx context.Context, permissionID string) ([]*model.RoleAssignment, error) {
	var assignments []*model.RoleAssignment
	err := r.db.WithContext(ctx).Preload("Permission").
		Where("permission_id = ?", permissionID).
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

// auditLogRepository 审计日志数据访问实现
type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository 创建审计日志数据访问实例
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) list(ctx context.Context, where string, arg string, page *Pagination) ([]*model.PermissionAuditLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.PermissionAuditLog{})
	if where != "" {
		query = query.Where(where, arg)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []*model.PermissionAuditLog
	if err := page.apply(query).Order("created_at DESC").Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

func (r *auditLogRepository) ListByActor(ctx context.Context, actorID string, page *Pagination) ([]*model.PermissionAuditLog, int64, error) {
	return r.list(ctx, "actor_id = ?", actorID, page)
}

func (r *auditLogRepository) ListByTarget(ctx context.Context, targetUserID string, page *Pagination) ([]*model.PermissionAuditLog, int64, error) {
	return r.list(ctx, "target_user_id = ?", targetUserID, page)
}

func (r *auditLogRepository) ListByAction(ctx context.Context, action string, page *Pagination) ([]*model.PermissionAuditLog, int64, error) {
	return r.list(ctx, "action = ?", action, page)
}

func (r *auditLogRepository) List(ctx context.Context, page *Pagination) ([]*model.PermissionAuditLog, int64, error) {
	return r.list(ctx, "", "", page)
}
