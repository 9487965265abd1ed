// Package service 业务逻辑层
package service

import (
	"context"
	"errors"

	"github.com/kaiwu-tech/pm-backend/internal/model"
	"github.com/kaiwu-tech/pm-backend/internal/repository"
)

var (
	ErrPermissionNotFound  = errors.New("权限不存在")
	ErrPermissionExists    = errors.New("权限代码已存在")
	ErrPermissionInactive  = errors.New("权限已停用")
	ErrInvalidCategory     = errors.New("无效的权限分类")
	ErrPermissionCodeEmpty = errors.New("权限代码不能为空")
)

// validCategories 合法的权限分类
var validCategories = map[string]bool{
	model.CategorySystem:   true,
	model.CategoryDivision: true,
	model.CategoryTeam:     true,
	model.CategoryProject:  true,
	model.CategoryCommon:   true,
}

// PermissionCatalogService 权限目录服务接口
// 维护系统可用的权限代码集合；停用的权限不参与解析但保留历史
type PermissionCatalogService interface {
	Register(ctx context.Context, perm *model.Permission) error
	Lookup(ctx context.Context, code string) (*model.Permission, error)
	List(ctx context.Context) ([]*model.Permission, error)
	ListByCategory(ctx context.Context, category string) ([]*model.Permission, error)
	Deactivate(ctx context.Context, code string) error
	Activate(ctx context.Context, code string) error

	// 初始化
	InitDefaultCatalog(ctx context.Context) error
}

type permissionCatalogService struct {
	permRepo repository.PermissionRepository
}

// NewPermissionCatalogService 创建权限目录服务
func NewPermissionCatalogService(permRepo repository.PermissionRepository) PermissionCatalogService {
	return &permissionCatalogService{permRepo: permRepo}
}

func (s *permissionCatalogService) Register(ctx context.Context, perm *model.Permission) error {
	if perm.Code == "" {
		return ErrPermissionCodeEmpty
	}
	if !validCategories[perm.Category] {
		return ErrInvalidCategory
	}
	if perm.Status == "" {
		perm.Status = model.StatusActive
	}

	if err := s.permRepo.Create(ctx, perm); err != nil {
		if errors.Is(err, repository.ErrPermissionCodeExists) {
			return ErrPermissionExists
		}
		return err
	}
	return nil
}

func (s *permissionCatalogService) Lookup(ctx context.Context, code string) (*model.Permission, error) {
	perm, err := s.permRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrPermissionNotFound) {
			return nil, ErrPermissionNotFound
		}
		return nil, err
	}
	return perm, nil
}

func (s *permissionCatalogService) List(ctx context.Context) ([]*model.Permission, error) {
	return s.permRepo.List(ctx)
}

func (s *permissionCatalogService) ListByCategory(ctx context.Context, category string) ([]*model.Permission, error) {
	if !validCategories[category] {
		return nil, ErrInvalidCategory
	}
	return s.permRepo.ListByCategory(ctx, category)
}

func (s *permissionCatalogService) Deactivate(ctx context.Context, code string) error {
	if err := s.permRepo.UpdateStatus(ctx, code, model.StatusInactive); err != nil {
		if errors.Is(err, repository.ErrPermissionNotFound) {
			return ErrPermissionNotFound
		}
		return err
	}
	return nil
}

func (s *permissionCatalogService) Activate(ctx context.Context, code string) error {
	if err := s.permRepo.UpdateStatus(ctx, code, model.StatusActive); err != nil {
		if errors.Is(err, repository.ErrPermissionNotFound) {
			return ErrPermissionNotFound
		}
		return err
	}
	return nil
}

// InitDefaultCatalog 初始化默认权限目录，已存在的代码跳过
func (s *permissionCatalogService) InitDefaultCatalog(ctx context.Context) error {
	for _, perm := range model.DefaultSystemPermissions() {
		existing, _ := s.permRepo.GetByCode(ctx, perm.Code)
		if existing != nil {
			continue
		}
		p := perm
		p.Status = model.StatusActive
		if err := s.permRepo.Create(ctx, &p); err != nil {
			return err
		}
	}
	return nil
}
