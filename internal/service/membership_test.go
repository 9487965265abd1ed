package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/kaiwu-tech/pm-backend/internal/model"
	"github.com/kaiwu-tech/pm-backend/internal/repository"
	"github.com/stretchr/testify/assert"
)

// fakeUserRepository 内存用户仓库
type fakeUserRepository struct {
	users map[string]*model.User
	seq   int
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{users: make(map[string]*model.User)}
}

func (f *fakeUserRepository) Create(ctx context.Context, user *model.User) error {
	for _, u := range f.users {
		if u.Username == user.Username || u.Email == user.Email {
			return repository.ErrUserExists
		}
	}
	if user.ID == "" {
		f.seq++
		user.ID = fmt.Sprintf("user-%d", f.seq)
	}
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeUserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUserRepository) Update(ctx context.Context, user *model.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

func (f *fakeUserRepository) List(ctx context.Context, filter *repository.UserFilter, page *repository.Pagination) ([]*model.User, int64, error) {
	var out []*model.User
	for _, u := range f.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

// fakeTeamRepository 内存团队仓库
type fakeTeamRepository struct {
	teams   map[string]*model.Team
	members []*model.TeamMember
	seq     int
}

func newFakeTeamRepository() *fakeTeamRepository {
	return &fakeTeamRepository{teams: make(map[string]*model.Team)}
}

func (f *fakeTeamRepository) Create(ctx context.Context, team *model.Team) error {
	if team.ID == "" {
		f.seq++
		team.ID = fmt.Sprintf("team-%d", f.seq)
	}
	cp := *team
	f.teams[team.ID] = &cp
	return nil
}

func (f *fakeTeamRepository) GetByID(ctx context.Context, id string) (*model.Team, error) {
	t, ok := f.teams[id]
	if !ok {
		return nil, repository.ErrTeamNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTeamRepository) Update(ctx context.Context, team *model.Team) error {
	if _, ok := f.teams[team.ID]; !ok {
		return repository.ErrTeamNotFound
	}
	cp := *team
	f.teams[team.ID] = &cp
	return nil
}

func (f *fakeTeamRepository) Delete(ctx context.Context, id string) error {
	if _, ok := f.teams[id]; !ok {
		return repository.ErrTeamNotFound
	}
	delete(f.teams, id)
	return nil
}

func (f *fakeTeamRepository) ListByDepartment(ctx context.Context, departmentID string) ([]*model.Team, error) {
	var out []*model.Team
	for _, t := range f.teams {
		if t.DepartmentID != nil && *t.DepartmentID == departmentID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeTeamRepository) AddMember(ctx context.Context, member *model.TeamMember) error {
	for _, m := range f.members {
		if m.TeamID == member.TeamID && m.UserID == member.UserID {
			return repository.ErrMemberExists
		}
	}
	cp := *member
	f.members = append(f.members, &cp)
	return nil
}

func (f *fakeTeamRepository) RemoveMember(ctx context.Context, teamID, userID string) error {
	for i, m := range f.members {
		if m.TeamID == teamID && m.UserID == userID {
			f.members = append(f.members[:i], f.members[i+1:]...)
			return nil
		}
	}
	return repository.ErrMemberNotFound
}

func (f *fakeTeamRepository) ListMembers(ctx context.Context, teamID string) ([]*model.TeamMember, error) {
	var out []*model.TeamMember
	for _, m := range f.members {
		if m.TeamID == teamID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeTeamRepository) ListMembershipsByUser(ctx context.Context, userID string) ([]*model.TeamMember, error) {
	var out []*model.TeamMember
	for _, m := range f.members {
		if m.UserID == userID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

// fakeProjectRepository 内存项目仓库，只实现角色展开用到的成员查询
type fakeProjectRepository struct {
	projects map[string]*model.Project
	members  []*model.ProjectMember
	seq      int
}

func newFakeProjectRepository() *fakeProjectRepository {
	return &fakeProjectRepository{projects: make(map[string]*model.Project)}
}

func (f *fakeProjectRepository) Create(ctx context.Context, project *model.Project) error {
	for _, p := range f.projects {
		if p.Key == project.Key {
			return repository.ErrProjectKeyExists
		}
	}
	if project.ID == "" {
		f.seq++
		project.ID = fmt.Sprintf("project-%d", f.seq)
	}
	cp := *project
	f.projects[project.ID] = &cp
	return nil
}

func (f *fakeProjectRepository) GetByID(ctx context.Context, id string) (*model.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return nil, repository.ErrProjectNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProjectRepository) GetByKey(ctx context.Context, key string) (*model.Project, error) {
	for _, p := range f.projects {
		if p.Key == key {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrProjectNotFound
}

func (f *fakeProjectRepository) Update(ctx context.Context, project *model.Project) error {
	if _, ok := f.projects[project.ID]; !ok {
		return repository.ErrProjectNotFound
	}
	cp := *project
	f.projects[project.ID] = &cp
	return nil
}

func (f *fakeProjectRepository) List(ctx context.Context, page *repository.Pagination) ([]*model.Project, int64, error) {
	var out []*model.Project
	for _, p := range f.projects {
		cp := *p
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (f *fakeProjectRepository) AddMember(ctx context.Context, member *model.ProjectMember) error {
	cp := *member
	f.members = append(f.members, &cp)
	return nil
}

func (f *fakeProjectRepository) RemoveMember(ctx context.Context, projectID, userID string) error {
	for i, m := range f.members {
		if m.ProjectID == projectID && m.UserID == userID {
			f.members = append(f.members[:i], f.members[i+1:]...)
			return nil
		}
	}
	return repository.ErrProjectNotFound
}

func (f *fakeProjectRepository) ListMembershipsByUser(ctx context.Context, userID string) ([]*model.ProjectMember, error) {
	var out []*model.ProjectMember
	for _, m := range f.members {
		if m.UserID == userID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func TestMembershipService_RolesForUser(t *testing.T) {
	userRepo := newFakeUserRepository()
	deptRepo := newFakeDepartmentRepository()
	teamRepo := newFakeTeamRepository()
	projectRepo := newFakeProjectRepository()
	svc := NewMembershipService(userRepo, deptRepo, teamRepo, projectRepo)
	ctx := context.Background()

	dept := &model.Department{Code: "ENG", Name: "工程部"}
	assert.NoError(t, deptRepo.Create(ctx, dept))

	user := &model.User{Username: "zhangsan", Email: "zs@example.com", SystemRole: "staff", DepartmentID: &dept.ID}
	assert.NoError(t, userRepo.Create(ctx, user))

	team := &model.Team{Name: "后端组", DepartmentID: &dept.ID, LeadID: user.ID}
	assert.NoError(t, teamRepo.Create(ctx, team))
	assert.NoError(t, teamRepo.AddMember(ctx, &model.TeamMember{TeamID: team.ID, UserID: user.ID, RoleName: "developer"}))

	project := &model.Project{Name: "平台", Key: "PLAT", OwnerID: user.ID}
	assert.NoError(t, projectRepo.Create(ctx, project))
	assert.NoError(t, projectRepo.AddMember(ctx, &model.ProjectMember{ProjectID: project.ID, UserID: user.ID, RoleName: "owner"}))

	refs, err := svc.RolesForUser(ctx, user.ID)
	assert.NoError(t, err)

	assert.Contains(t, refs, repository.RoleRef{RoleType: model.RoleTypeSystem, RoleName: "staff"})
	assert.Contains(t, refs, repository.RoleRef{RoleType: model.RoleTypeDivision, RoleName: "member"})
	assert.Contains(t, refs, repository.RoleRef{RoleType: model.RoleTypeTeam, RoleName: "developer"})
	// 团队负责人额外获得 lead 角色
	assert.Contains(t, refs, repository.RoleRef{RoleType: model.RoleTypeTeam, RoleName: "lead"})
	assert.Contains(t, refs, repository.RoleRef{RoleType: model.RoleTypeProject, RoleName: "owner"})
}

func TestMembershipService_DeptManager(t *testing.T) {
	userRepo := newFakeUserRepository()
	deptRepo := newFakeDepartmentRepository()
	svc := NewMembershipService(userRepo, deptRepo, newFakeTeamRepository(), newFakeProjectRepository())
	ctx := context.Background()

	user := &model.User{Username: "lisi", Email: "ls@example.com"}
	assert.NoError(t, userRepo.Create(ctx, user))

	dept := &model.Department{Code: "QA", Name: "质量部", ManagerID: user.ID}
	assert.NoError(t, deptRepo.Create(ctx, dept))
	user.DepartmentID = &dept.ID
	assert.NoError(t, userRepo.Update(ctx, user))

	refs, err := svc.RolesForUser(ctx, user.ID)
	assert.NoError(t, err)

	assert.Contains(t, refs, repository.RoleRef{RoleType: model.RoleTypeDivision, RoleName: "manager"})
	// 无系统角色时不产生系统层条目
	for _, ref := range refs {
		assert.NotEqual(t, model.RoleTypeSystem, ref.RoleType)
	}
}

func TestMembershipService_UserNotFound(t *testing.T) {
	svc := NewMembershipService(newFakeUserRepository(), newFakeDepartmentRepository(), newFakeTeamRepository(), newFakeProjectRepository())

	_, err := svc.RolesForUser(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMembershipService_NoDuplicateRoles(t *testing.T) {
	userRepo := newFakeUserRepository()
	teamRepo := newFakeTeamRepository()
	svc := NewMembershipService(userRepo, newFakeDepartmentRepository(), teamRepo, newFakeProjectRepository())
	ctx := context.Background()

	user := &model.User{Username: "wangwu", Email: "ww@example.com"}
	assert.NoError(t, userRepo.Create(ctx, user))

	// 同名角色出现在两个团队，只展开一次
	t1 := &model.Team{Name: "组一"}
	t2 := &model.Team{Name: "组二"}
	assert.NoError(t, teamRepo.Create(ctx, t1))
	assert.NoError(t, teamRepo.Create(ctx, t2))
	assert.NoError(t, teamRepo.AddMember(ctx, &model.TeamMember{TeamID: t1.ID, UserID: user.ID, RoleName: "developer"}))
	assert.NoError(t, teamRepo.AddMember(ctx, &model.TeamMember{TeamID: t2.ID, UserID: user.ID, RoleName: "developer"}))

	refs, err := svc.RolesForUser(ctx, user.ID)
	assert.NoError(t, err)
	assert.Len(t, refs, 1)
	assert.Equal(t, repository.RoleRef{RoleType: model.RoleTypeTeam, RoleName: "developer"}, refs[0])
}
