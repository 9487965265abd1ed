package service

import (
	"context"
	"testing"

	"github.com/kaiwu-tech/pm-backend/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestCatalogService_Register(t *testing.T) {
	svc := NewPermissionCatalogService(newFakePermissionRepository())

	perm := &model.Permission{Code: "task.edit", Name: "编辑任务", Category: model.CategoryProject}
	assert.NoError(t, svc.Register(context.Background(), perm))
	assert.Equal(t, model.StatusActive, perm.Status)

	found, err := svc.Lookup(context.Background(), "task.edit")
	assert.NoError(t, err)
	assert.Equal(t, "编辑任务", found.Name)
}

func TestCatalogService_Register_Duplicate(t *testing.T) {
	svc := NewPermissionCatalogService(newFakePermissionRepository())

	perm := &model.Permission{Code: "task.edit", Name: "编辑任务", Category: model.CategoryProject}
	assert.NoError(t, svc.Register(context.Background(), perm))

	dup := &model.Permission{Code: "task.edit", Name: "重复", Category: model.CategoryProject}
	assert.ErrorIs(t, svc.Register(context.Background(), dup), ErrPermissionExists)
}

func TestCatalogService_Register_Validation(t *testing.T) {
	svc := NewPermissionCatalogService(newFakePermissionRepository())

	err := svc.Register(context.Background(), &model.Permission{Name: "无代码", Category: model.CategoryProject})
	assert.ErrorIs(t, err, ErrPermissionCodeEmpty)

	err = svc.Register(context.Background(), &model.Permission{Code: "x.y", Name: "分类错误", Category: "galaxy"})
	assert.ErrorIs(t, err, ErrInvalidCategory)
}

func TestCatalogService_Lookup_NotFound(t *testing.T) {
	svc := NewPermissionCatalogService(newFakePermissionRepository())

	_, err := svc.Lookup(context.Background(), "no.such")
	assert.ErrorIs(t, err, ErrPermissionNotFound)
}

func TestCatalogService_DeactivateActivate(t *testing.T) {
	repo := newFakePermissionRepository()
	svc := NewPermissionCatalogService(repo)
	repo.mustRegister("task.edit", model.CategoryProject, model.StatusActive)

	assert.NoError(t, svc.Deactivate(context.Background(), "task.edit"))
	found, err := svc.Lookup(context.Background(), "task.edit")
	assert.NoError(t, err)
	assert.False(t, found.IsActive())

	assert.NoError(t, svc.Activate(context.Background(), "task.edit"))
	found, err = svc.Lookup(context.Background(), "task.edit")
	assert.NoError(t, err)
	assert.True(t, found.IsActive())

	assert.ErrorIs(t, svc.Deactivate(context.Background(), "no.such"), ErrPermissionNotFound)
}

func TestCatalogService_ListByCategory(t *testing.T) {
	repo := newFakePermissionRepository()
	svc := NewPermissionCatalogService(repo)
	repo.mustRegister("task.edit", model.CategoryProject, model.StatusActive)
	repo.mustRegister("task.view", model.CategoryProject, model.StatusActive)
	repo.mustRegister("rbac.manage", model.CategorySystem, model.StatusActive)

	perms, err := svc.ListByCategory(context.Background(), model.CategoryProject)
	assert.NoError(t, err)
	assert.Len(t, perms, 2)
}

func TestCatalogService_InitDefaultCatalog(t *testing.T) {
	repo := newFakePermissionRepository()
	svc := NewPermissionCatalogService(repo)

	assert.NoError(t, svc.InitDefaultCatalog(context.Background()))

	perms, err := svc.List(context.Background())
	assert.NoError(t, err)
	assert.Len(t, perms, len(model.DefaultSystemPermissions()))

	// 重复初始化不报错也不重复写入
	assert.NoError(t, svc.InitDefaultCatalog(context.Background()))
	perms, err = svc.List(context.Background())
	assert.NoError(t, err)
	assert.Len(t, perms, len(model.DefaultSystemPermissions()))
}
