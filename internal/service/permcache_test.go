package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kaiwu-tech/pm-backend/internal/model"
	"github.com/kaiwu-tech/pm-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestCache(t *testing.T) (*EffectivePermissionCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewEffectivePermissionCache(client, time.Minute), mr
}

func TestPermissionCache_SetGet(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	ref := repository.RoleRef{RoleType: model.RoleTypeProject, RoleName: "member"}

	// 未写入时未命中
	_, ok := cache.Get(ctx, ref)
	assert.False(t, ok)

	assert.NoError(t, cache.Set(ctx, ref, []string{"task.view", "task.edit"}))

	codes, ok := cache.Get(ctx, ref)
	assert.True(t, ok)
	assert.Equal(t, []string{"task.edit", "task.view"}, codes)
}

func TestPermissionCache_EmptySet(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	ref := repository.RoleRef{RoleType: model.RoleTypeTeam, RoleName: "viewer"}

	// 空权限集也算命中，与未命中区分开
	assert.NoError(t, cache.Set(ctx, ref, nil))

	codes, ok := cache.Get(ctx, ref)
	assert.True(t, ok)
	assert.Empty(t, codes)
}

func TestPermissionCache_Invalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	ref := repository.RoleRef{RoleType: model.RoleTypeSystem, RoleName: "admin"}

	assert.NoError(t, cache.Set(ctx, ref, []string{"rbac.manage"}))
	assert.NoError(t, cache.Invalidate(ctx, ref))

	_, ok := cache.Get(ctx, ref)
	assert.False(t, ok)
}

func TestPermissionCache_TTLExpiry(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	ref := repository.RoleRef{RoleType: model.RoleTypeProject, RoleName: "member"}

	assert.NoError(t, cache.Set(ctx, ref, []string{"task.view"}))

	mr.FastForward(2 * time.Minute)

	_, ok := cache.Get(ctx, ref)
	assert.False(t, ok)
}

func TestPermissionCache_RoleIsolation(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	memberRef := repository.RoleRef{RoleType: model.RoleTypeProject, RoleName: "member"}
	ownerRef := repository.RoleRef{RoleType: model.RoleTypeProject, RoleName: "owner"}

	assert.NoError(t, cache.Set(ctx, memberRef, []string{"task.view"}))
	assert.NoError(t, cache.Set(ctx, ownerRef, []string{"task.view", "task.delete"}))

	// 失效一个角色不影响另一个
	assert.NoError(t, cache.Invalidate(ctx, memberRef))

	_, ok := cache.Get(ctx, memberRef)
	assert.False(t, ok)
	codes, ok := cache.Get(ctx, ownerRef)
	assert.True(t, ok)
	assert.Len(t, codes, 2)
}

func TestResolver_EffectivePermissionsUsesCache(t *testing.T) {
	cache, _ := newTestCache(t)
	permRepo := newFakePermissionRepository()
	assignRepo := newFakeRoleAssignmentRepository(permRepo)
	resolver := NewPermissionResolver(permRepo, assignRepo, cache, zap.NewNop())

	view := permRepo.mustRegister("task.view", model.CategoryProject, model.StatusActive)
	grant(t, assignRepo, model.RoleTypeProject, "member", view.ID)

	roles := []repository.RoleRef{{RoleType: model.RoleTypeProject, RoleName: "member"}}

	// 首次回源数据库并回填缓存
	codes, err := resolver.EffectivePermissions(context.Background(), roles)
	assert.NoError(t, err)
	assert.Equal(t, []string{"task.view"}, codes)

	cached, ok := cache.Get(context.Background(), roles[0])
	assert.True(t, ok)
	assert.Equal(t, []string{"task.view"}, cached)

	// 数据库侧新增分配但缓存未失效，读取仍走缓存
	edit := permRepo.mustRegister("task.edit", model.CategoryProject, model.StatusActive)
	grant(t, assignRepo, model.RoleTypeProject, "member", edit.ID)

	codes, err = resolver.EffectivePermissions(context.Background(), roles)
	assert.NoError(t, err)
	assert.Equal(t, []string{"task.view"}, codes)

	// 失效后读到新集合
	assert.NoError(t, cache.Invalidate(context.Background(), roles[0]))
	codes, err = resolver.EffectivePermissions(context.Background(), roles)
	assert.NoError(t, err)
	assert.Equal(t, []string{"task.edit", "task.view"}, codes)
}
