package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/kaiwu-tech/pm-backend/internal/model"
	"github.com/kaiwu-tech/pm-backend/internal/repository"
)

// fakePermissionRepository 内存权限仓库，供服务层测试使用
type fakePermissionRepository struct {
	mu    sync.Mutex
	perms map[string]*model.Permission // code -> permission
	seq   int
}

func newFakePermissionRepository() *fakePermissionRepository {
	return &fakePermissionRepository{perms: make(map[string]*model.Permission)}
}

func (f *fakePermissionRepository) Create(ctx context.Context, perm *model.Permission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.perms[perm.Code]; ok {
		return repository.ErrPermissionCodeExists
	}
	if perm.ID == "" {
		f.seq++
		perm.ID = fmt.Sprintf("perm-%d", f.seq)
	}
	cp := *perm
	f.perms[perm.Code] = &cp
	return nil
}

func (f *fakePermissionRepository) GetByID(ctx context.Context, id string) (*model.Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.perms {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrPermissionNotFound
}

func (f *fakePermissionRepository) GetByCode(ctx context.Context, code string) (*model.Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.perms[code]
	if !ok {
		return nil, repository.ErrPermissionNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePermissionRepository) List(ctx context.Context) ([]*model.Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Permission
	for _, p := range f.perms {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakePermissionRepository) ListByCategory(ctx context.Context, category string) ([]*model.Permission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Permission
	for _, p := range f.perms {
		if p.Category == category {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakePermissionRepository) UpdateStatus(ctx context.Context, code, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.perms[code]
	if !ok {
		return repository.ErrPermissionNotFound
	}
	p.Status = status
	return nil
}

// mustRegister 注册权限并返回，测试用
func (f *fakePermissionRepository) mustRegister(code, category, status string) *model.Permission {
	perm := &model.Permission{Code: code, Name: code, Category: category, Status: status}
	if err := f.Create(context.Background(), perm); err != nil {
		panic(err)
	}
	return perm
}

type assignKey struct {
	roleType, roleName, permissionID string
}

// fakeRoleAssignmentRepository 内存分配仓库，写操作同步记录审计日志
type fakeRoleAssignmentRepository struct {
	mu          sync.Mutex
	assignments map[assignKey]*model.RoleAssignment
	auditLogs   []*model.PermissionAuditLog
	perms       *fakePermissionRepository // 不为空时列表查询填充 Permission 关联
	seq         int
	failNext    error // 不为空时下一次写操作返回该错误
}

func newFakeRoleAssignmentRepository(perms *fakePermissionRepository) *fakeRoleAssignmentRepository {
	return &fakeRoleAssignmentRepository{
		assignments: make(map[assignKey]*model.RoleAssignment),
		perms:       perms,
	}
}

func (f *fakeRoleAssignmentRepository) preload(a *model.RoleAssignment) {
	if f.perms == nil {
		return
	}
	if p, err := f.perms.GetByID(context.Background(), a.PermissionID); err == nil {
		a.Permission = p
	}
}

func (f *fakeRoleAssignmentRepository) takeFailure() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeRoleAssignmentRepository) CreateWithAudit(ctx context.Context, assignment *model.RoleAssignment, log *model.PermissionAuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}
	key := assignKey{assignment.RoleType, assignment.RoleName, assignment.PermissionID}
	if _, ok := f.assignments[key]; ok {
		return repository.ErrAssignmentExists
	}
	if assignment.ID == "" {
		f.seq++
		assignment.ID = fmt.Sprintf("assign-%d", f.seq)
	}
	cp := *assignment
	f.assignments[key] = &cp
	f.auditLogs = append(f.auditLogs, log)
	return nil
}

func (f *fakeRoleAssignmentRepository) UpdateWithAudit(ctx context.Context, assignment *model.RoleAssignment, log *model.PermissionAuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}
	key := assignKey{assignment.RoleType, assignment.RoleName, assignment.PermissionID}
	if _, ok := f.assignments[key]; !ok {
		return repository.ErrAssignmentNotFound
	}
	cp := *assignment
	f.assignments[key] = &cp
	f.auditLogs = append(f.auditLogs, log)
	return nil
}

func (f *fakeRoleAssignmentRepository) DeleteWithAudit(ctx context.Context, roleType, roleName, permissionID string, log *model.PermissionAuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}
	key := assignKey{roleType, roleName, permissionID}
	if _, ok := f.assignments[key]; !ok {
		return repository.ErrAssignmentNotFound
	}
	delete(f.assignments, key)
	f.auditLogs = append(f.auditLogs, log)
	return nil
}

func (f *fakeRoleAssignmentRepository) Get(ctx context.Context, roleType, roleName, permissionID string) (*model.RoleAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assignments[assignKey{roleType, roleName, permissionID}]
	if !ok {
		return nil, repository.ErrAssignmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeRoleAssignmentRepository) ListForRole(ctx context.Context, roleType, roleName string) ([]*model.RoleAssignment, error) {
	return f.ListForRoles(ctx, []repository.RoleRef{{RoleType: roleType, RoleName: roleName}})
}

func (f *fakeRoleAssignmentRepository) ListForRoles(ctx context.Context, refs []repository.RoleRef) ([]*model.RoleAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	held := make(map[repository.RoleRef]bool)
	for _, ref := range refs {
		held[ref] = true
	}
	var out []*model.RoleAssignment
	for _, a := range f.assignments {
		if held[repository.RoleRef{RoleType: a.RoleType, RoleName: a.RoleName}] {
			cp := *a
			f.preload(&cp)
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeRoleAssignmentRepository) ListByPermission(ctx context.Context, permissionID string) ([]*model.RoleAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.RoleAssignment
	for _, a := range f.assignments {
		if a.PermissionID == permissionID {
			cp := *a
			f.preload(&cp)
			out = append(out, &cp)
		}
	}
	return out, nil
}
