package service

import (
	"context"
	"testing"

	"github.com/kaiwu-tech/pm-backend/internal/model"
	"github.com/kaiwu-tech/pm-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestResolver(t *testing.T) (PermissionResolver, *fakePermissionRepository, *fakeRoleAssignmentRepository) {
	t.Helper()
	permRepo := newFakePermissionRepository()
	assignRepo := newFakeRoleAssignmentRepository(permRepo)
	resolver := NewPermissionResolver(permRepo, assignRepo, nil, zap.NewNop())
	return resolver, permRepo, assignRepo
}

func grant(t *testing.T, repo *fakeRoleAssignmentRepository, roleType, roleName, permID string) {
	t.Helper()
	err := repo.CreateWithAudit(context.Background(), &model.RoleAssignment{
		RoleType:     roleType,
		RoleName:     roleName,
		PermissionID: permID,
	}, &model.PermissionAuditLog{Action: model.AuditActionGrant})
	assert.NoError(t, err)
}

func grantConditional(t *testing.T, repo *fakeRoleAssignmentRepository, roleType, roleName, permID, condType string, config model.ConditionConfig) {
	t.Helper()
	err := repo.CreateWithAudit(context.Background(), &model.RoleAssignment{
		RoleType:        roleType,
		RoleName:        roleName,
		PermissionID:    permID,
		IsConditional:   true,
		ConditionType:   condType,
		ConditionConfig: config,
	}, &model.PermissionAuditLog{Action: model.AuditActionGrant})
	assert.NoError(t, err)
}

func TestResolver_DefaultDeny(t *testing.T) {
	resolver, permRepo, _ := newTestResolver(t)
	permRepo.mustRegister("task.edit", model.CategoryProject, model.StatusActive)

	roles := []repository.RoleRef{{RoleType: model.RoleTypeProject, RoleName: "member"}}
	decision, err := resolver.Resolve(context.Background(), roles, "task.edit", &AccessRequest{UserID: "user-1"})

	// 无任何分配时拒绝且不报错
	assert.NoError(t, err)
	assert.False(t, decision.Allowed)
}

func TestResolver_PermissionNotFound(t *testing.T) {
	resolver, _, _ := newTestResolver(t)

	roles := []repository.RoleRef{{RoleType: model.RoleTypeSystem, RoleName: "admin"}}
	decision, err := resolver.Resolve(context.Background(), roles, "no.such.permission", &AccessRequest{UserID: "user-1"})

	assert.ErrorIs(t, err, ErrPermissionNotFound)
	assert.False(t, decision.Allowed)
}

func TestResolver_InactivePermissionDenied(t *testing.T) {
	resolver, permRepo, assignRepo := newTestResolver(t)
	perm := permRepo.mustRegister("task.edit", model.CategoryProject, model.StatusInactive)
	grant(t, assignRepo, model.RoleTypeSystem, "admin", perm.ID)

	roles := []repository.RoleRef{{RoleType: model.RoleTypeSystem, RoleName: "admin"}}
	decision, err := resolver.Resolve(context.Background(), roles, "task.edit", &AccessRequest{UserID: "user-1"})

	// 已停用的权限即使有分配也拒绝
	assert.ErrorIs(t, err, ErrPermissionInactive)
	assert.False(t, decision.Allowed)
}

func TestResolver_UnconditionalAllow(t *testing.T) {
	resolver, permRepo, assignRepo := newTestResolver(t)
	perm := permRepo.mustRegister("task.edit", model.CategoryProject, model.StatusActive)
	grant(t, assignRepo, model.RoleTypeProject, "member", perm.ID)

	roles := []repository.RoleRef{{RoleType: model.RoleTypeProject, RoleName: "member"}}
	decision, err := resolver.Resolve(context.Background(), roles, "task.edit", &AccessRequest{UserID: "user-1"})

	assert.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.False(t, decision.Conditional)
	assert.Equal(t, model.RoleTypeProject, decision.ScopeMatched)
}

func TestResolver_ScopePrecedence(t *testing.T) {
	resolver, permRepo, assignRepo := newTestResolver(t)
	perm := permRepo.mustRegister("task.edit", model.CategoryProject, model.StatusActive)

	// 系统级无条件授予，项目级 own_only 条件授予：项目级更具体，优先生效
	grant(t, assignRepo, model.RoleTypeSystem, "staff", perm.ID)
	grantConditional(t, assignRepo, model.RoleTypeProject, "member", perm.ID, model.ConditionOwnOnly, nil)

	roles := []repository.RoleRef{
		{RoleType: model.RoleTypeSystem, RoleName: "staff"},
		{RoleType: model.RoleTypeProject, RoleName: "member"},
	}

	// 他人的任务：项目级条件拒绝，系统级授予不兜底
	decision, err := resolver.Resolve(context.Background(), roles, "task.edit", &AccessRequest{
		UserID:          "user-1",
		ResourceOwnerID: "user-2",
	})
	assert.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, model.RoleTypeProject, decision.ScopeMatched)
	assert.True(t, decision.Conditional)

	// 本人的任务：项目级条件放行
	decision, err = resolver.Resolve(context.Background(), roles, "task.edit", &AccessRequest{
		UserID:          "user-1",
		ResourceOwnerID: "user-1",
	})
	assert.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestResolver_UnconditionalBeatsConditionalSameScope(t *testing.T) {
	resolver, permRepo, assignRepo := newTestResolver(t)
	perm := permRepo.mustRegister("task.edit", model.CategoryProject, model.StatusActive)

	// 同一层级内，无条件分配优先于有条件分配
	grantConditional(t, assignRepo, model.RoleTypeProject, "qa", perm.ID, model.ConditionOwnOnly, nil)
	grant(t, assignRepo, model.RoleTypeProject, "developer", perm.ID)

	roles := []repository.RoleRef{
		{RoleType: model.RoleTypeProject, RoleName: "qa"},
		{RoleType: model.RoleTypeProject, RoleName: "developer"},
	}
	decision, err := resolver.Resolve(context.Background(), roles, "task.edit", &AccessRequest{
		UserID:          "user-1",
		ResourceOwnerID: "user-2",
	})

	assert.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.False(t, decision.Conditional)
}

func TestResolver_UnknownConditionFailsClosed(t *testing.T) {
	resolver, permRepo, assignRepo := newTestResolver(t)
	perm := permRepo.mustRegister("task.edit", model.CategoryProject, model.StatusActive)
	grantConditional(t, assignRepo, model.RoleTypeProject, "member", perm.ID, "time_window", model.ConditionConfig{"start": "09:00"})

	roles := []repository.RoleRef{{RoleType: model.RoleTypeProject, RoleName: "member"}}
	decision, err := resolver.Resolve(context.Background(), roles, "task.edit", &AccessRequest{UserID: "user-1"})

	// 无法识别的条件类型必须拒绝并透出错误
	assert.ErrorIs(t, err, ErrUnknownCondition)
	assert.False(t, decision.Allowed)
}

func TestResolver_PartialRestrictionPassthrough(t *testing.T) {
	resolver, permRepo, assignRepo := newTestResolver(t)
	perm := permRepo.mustRegister("task.edit", model.CategoryProject, model.StatusActive)
	grantConditional(t, assignRepo, model.RoleTypeTeam, "qa", perm.ID, model.ConditionPartial, model.ConditionConfig{
		"fields": []interface{}{"status", "test_notes"},
	})

	roles := []repository.RoleRef{{RoleType: model.RoleTypeTeam, RoleName: "qa"}}
	decision, err := resolver.Resolve(context.Background(), roles, "task.edit", &AccessRequest{UserID: "user-1"})

	assert.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.True(t, decision.Conditional)
	assert.ElementsMatch(t, []string{"status", "test_notes"}, decision.Restriction.Fields())
}

func TestResolver_QAFieldsOnly(t *testing.T) {
	resolver, permRepo, assignRepo := newTestResolver(t)
	perm := permRepo.mustRegister("task.edit", model.CategoryProject, model.StatusActive)
	grantConditional(t, assignRepo, model.RoleTypeTeam, "qa", perm.ID, model.ConditionQAFieldsOnly, model.ConditionConfig{
		"fields": []interface{}{"status", "test_notes"},
	})

	roles := []repository.RoleRef{{RoleType: model.RoleTypeTeam, RoleName: "qa"}}

	decision, err := resolver.Resolve(context.Background(), roles, "task.edit", &AccessRequest{
		UserID: "user-1",
		Fields: []string{"status"},
	})
	assert.NoError(t, err)
	assert.True(t, decision.Allowed)

	decision, err = resolver.Resolve(context.Background(), roles, "task.edit", &AccessRequest{
		UserID: "user-1",
		Fields: []string{"title"},
	})
	assert.NoError(t, err)
	assert.False(t, decision.Allowed)
}

func TestResolver_NoRoles(t *testing.T) {
	resolver, permRepo, assignRepo := newTestResolver(t)
	perm := permRepo.mustRegister("task.edit", model.CategoryProject, model.StatusActive)
	grant(t, assignRepo, model.RoleTypeSystem, "admin", perm.ID)

	decision, err := resolver.Resolve(context.Background(), nil, "task.edit", &AccessRequest{UserID: "user-1"})

	assert.NoError(t, err)
	assert.False(t, decision.Allowed)
}

func TestResolver_EffectivePermissions(t *testing.T) {
	resolver, permRepo, assignRepo := newTestResolver(t)
	edit := permRepo.mustRegister("task.edit", model.CategoryProject, model.StatusActive)
	view := permRepo.mustRegister("task.view", model.CategoryProject, model.StatusActive)
	inactive := permRepo.mustRegister("task.delete", model.CategoryProject, model.StatusInactive)

	grant(t, assignRepo, model.RoleTypeProject, "member", view.ID)
	grant(t, assignRepo, model.RoleTypeProject, "member", inactive.ID)
	grant(t, assignRepo, model.RoleTypeTeam, "developer", edit.ID)
	grant(t, assignRepo, model.RoleTypeTeam, "developer", view.ID)

	roles := []repository.RoleRef{
		{RoleType: model.RoleTypeProject, RoleName: "member"},
		{RoleType: model.RoleTypeTeam, RoleName: "developer"},
	}
	codes, err := resolver.EffectivePermissions(context.Background(), roles)

	// 去重、排序，停用权限不出现
	assert.NoError(t, err)
	assert.Equal(t, []string{"task.edit", "task.view"}, codes)
}
