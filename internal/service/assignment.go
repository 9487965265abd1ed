package service

import (
	"context"
	"errors"

	"github.com/kaiwu-tech/pm-backend/internal/database"
	"github.com/kaiwu-tech/pm-backend/internal/model"
	"github.com/kaiwu-tech/pm-backend/internal/repository"
	"go.uber.org/zap"
)

var (
	ErrAssignmentNotFound = errors.New("角色权限分配不存在")
	ErrAssignmentExists   = errors.New("角色权限分配已存在")
	ErrInvalidRoleType    = errors.New("无效的角色作用域")
	ErrRoleNameEmpty      = errors.New("角色名称不能为空")
	ErrConditionNoType    = errors.New("有条件分配必须指定条件类型")
)

// AuditActor 发起分配变更的操作者信息，写入审计日志
type AuditActor struct {
	UserID    string
	IPAddress string
	UserAgent string
}

// AssignmentInput 分配变更入参
type AssignmentInput struct {
	RoleType        string
	RoleName        string
	PermissionCode  string
	ConditionType   string // 为空表示无条件分配
	ConditionConfig model.ConditionConfig
	TargetUserID    string // 变更涉及的目标用户，可为空
	Reason          string
}

// RoleAssignmentService 角色权限分配服务
// 所有变更与审计日志在同一事务内落库，变更后失效对应角色的权限缓存
type RoleAssignmentService interface {
	Assign(ctx context.Context, actor AuditActor, input AssignmentInput) (*model.RoleAssignment, error)
	Revoke(ctx context.Context, actor AuditActor, input AssignmentInput) error
	Modify(ctx context.Context, actor AuditActor, input AssignmentInput) (*model.RoleAssignment, error)
	ListForRole(ctx context.Context, roleType, roleName string) ([]*model.RoleAssignment, error)
}

type roleAssignmentService struct {
	permRepo   repository.PermissionRepository
	assignRepo repository.RoleAssignmentRepository
	cache      *EffectivePermissionCache // 可为 nil
	retry      database.RetryPolicy
	logger     *zap.Logger
}

// NewRoleAssignmentService 创建角色权限分配服务
func NewRoleAssignmentService(
	permRepo repository.PermissionRepository,
	assignRepo repository.RoleAssignmentRepository,
	cache *EffectivePermissionCache,
	logger *zap.Logger,
) RoleAssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &roleAssignmentService{
		permRepo:   permRepo,
		assignRepo: assignRepo,
		cache:      cache,
		retry:      database.DefaultRetryPolicy(),
		logger:     logger,
	}
}

func (s *roleAssignmentService) validate(input *AssignmentInput) error {
	if !model.IsValidRoleType(input.RoleType) {
		return ErrInvalidRoleType
	}
	if input.RoleName == "" {
		return ErrRoleNameEmpty
	}
	return nil
}

// lookupPermission 解析权限代码，目录中不存在或已停用的权限不允许参与分配
func (s *roleAssignmentService) lookupPermission(ctx context.Context, code string) (*model.Permission, error) {
	perm, err := s.permRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrPermissionNotFound) {
			return nil, ErrPermissionNotFound
		}
		return nil, err
	}
	if !perm.IsActive() {
		return nil, ErrPermissionInactive
	}
	return perm, nil
}

// Assign 为角色授予权限，分配与 grant 审计日志同事务写入
// 条件类型不限于内置集合，未知类型在解析阶段会被拒绝访问
func (s *roleAssignmentService) Assign(ctx context.Context, actor AuditActor, input AssignmentInput) (*model.RoleAssignment, error) {
	if err := s.validate(&input); err != nil {
		return nil, err
	}
	if input.ConditionType == "" && len(input.ConditionConfig) > 0 {
		return nil, ErrConditionNoType
	}
	perm, err := s.lookupPermission(ctx, input.PermissionCode)
	if err != nil {
		return nil, err
	}

	assignment := &model.RoleAssignment{
		RoleType:        input.RoleType,
		RoleName:        input.RoleName,
		PermissionID:    perm.ID,
		IsConditional:   input.ConditionType != "",
		ConditionType:   input.ConditionType,
		ConditionConfig: input.ConditionConfig,
	}

	snapshot := model.SnapshotOf(assignment, perm.Code)
	log := &model.PermissionAuditLog{
		ActorID:        actor.UserID,
		TargetUserID:   input.TargetUserID,
		Action:         model.AuditActionGrant,
		RoleType:       input.RoleType,
		RoleName:       input.RoleName,
		PermissionCode: perm.Code,
		NewRole:        &snapshot,
		Reason:         input.Reason,
		IPAddress:      actor.IPAddress,
		UserAgent:      actor.UserAgent,
	}

	err = database.WithRetry(ctx, s.retry, func() error {
		return s.assignRepo.CreateWithAudit(ctx, assignment, log)
	})
	if err != nil {
		if errors.Is(err, repository.ErrAssignmentExists) {
			return nil, ErrAssignmentExists
		}
		return nil, err
	}

	s.invalidate(ctx, input.RoleType, input.RoleName)
	s.logger.Info("权限已授予",
		zap.String("role_type", input.RoleType),
		zap.String("role_name", input.RoleName),
		zap.String("permission_code", perm.Code),
		zap.String("actor_id", actor.UserID),
	)
	return assignment, nil
}

// Revoke 撤销角色的权限，删除与 revoke 审计日志同事务写入
func (s *roleAssignmentService) Revoke(ctx context.Context, actor AuditActor, input AssignmentInput) error {
	if err := s.validate(&input); err != nil {
		return err
	}
	perm, err := s.lookupPermission(ctx, input.PermissionCode)
	if err != nil {
		return err
	}

	existing, err := s.assignRepo.Get(ctx, input.RoleType, input.RoleName, perm.ID)
	if err != nil {
		if errors.Is(err, repository.ErrAssignmentNotFound) {
			return ErrAssignmentNotFound
		}
		return err
	}

	snapshot := model.SnapshotOf(existing, perm.Code)
	log := &model.PermissionAuditLog{
		ActorID:        actor.UserID,
		TargetUserID:   input.TargetUserID,
		Action:         model.AuditActionRevoke,
		RoleType:       input.RoleType,
		RoleName:       input.RoleName,
		PermissionCode: perm.Code,
		OldRole:        &snapshot,
		Reason:         input.Reason,
		IPAddress:      actor.IPAddress,
		UserAgent:      actor.UserAgent,
	}

	err = database.WithRetry(ctx, s.retry, func() error {
		return s.assignRepo.DeleteWithAudit(ctx, input.RoleType, input.RoleName, perm.ID, log)
	})
	if err != nil {
		if errors.Is(err, repository.ErrAssignmentNotFound) {
			return ErrAssignmentNotFound
		}
		return err
	}

	s.invalidate(ctx, input.RoleType, input.RoleName)
	s.logger.Info("权限已撤销",
		zap.String("role_type", input.RoleType),
		zap.String("role_name", input.RoleName),
		zap.String("permission_code", perm.Code),
		zap.String("actor_id", actor.UserID),
	)
	return nil
}

// Modify 修改现有分配的条件，变更前后快照与 modify 审计日志同事务写入
func (s *roleAssignmentService) Modify(ctx context.Context, actor AuditActor, input AssignmentInput) (*model.RoleAssignment, error) {
	if err := s.validate(&input); err != nil {
		return nil, err
	}
	if input.ConditionType == "" && len(input.ConditionConfig) > 0 {
		return nil, ErrConditionNoType
	}
	perm, err := s.lookupPermission(ctx, input.PermissionCode)
	if err != nil {
		return nil, err
	}

	existing, err := s.assignRepo.Get(ctx, input.RoleType, input.RoleName, perm.ID)
	if err != nil {
		if errors.Is(err, repository.ErrAssignmentNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, err
	}

	oldSnapshot := model.SnapshotOf(existing, perm.Code)
	existing.IsConditional = input.ConditionType != ""
	existing.ConditionType = input.ConditionType
	existing.ConditionConfig = input.ConditionConfig
	newSnapshot := model.SnapshotOf(existing, perm.Code)

	log := &model.PermissionAuditLog{
		ActorID:        actor.UserID,
		TargetUserID:   input.TargetUserID,
		Action:         model.AuditActionModify,
		RoleType:       input.RoleType,
		RoleName:       input.RoleName,
		PermissionCode: perm.Code,
		OldRole:        &oldSnapshot,
		NewRole:        &newSnapshot,
		Reason:         input.Reason,
		IPAddress:      actor.IPAddress,
		UserAgent:      actor.UserAgent,
	}

	err = database.WithRetry(ctx, s.retry, func() error {
		return s.assignRepo.UpdateWithAudit(ctx, existing, log)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, input.RoleType, input.RoleName)
	return existing, nil
}

func (s *roleAssignmentService) ListForRole(ctx context.Context, roleType, roleName string) ([]*model.RoleAssignment, error) {
	return s.assignRepo.ListForRole(ctx, roleType, roleName)
}

// 缓存失效失败只记日志，TTL 兜底
func (s *roleAssignmentService) invalidate(ctx context.Context, roleType, roleName string) {
	if s.cache == nil {
		return
	}
	ref := repository.RoleRef{RoleType: roleType, RoleName: roleName}
	if err := s.cache.Invalidate(ctx, ref); err != nil {
		s.logger.Warn("权限缓存失效失败",
			zap.String("role_type", roleType),
			zap.String("role_name", roleName),
			zap.Error(err),
		)
	}
}
