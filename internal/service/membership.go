package service

import (
	"context"
	"errors"

	"github.com/kaiwu-tech/pm-backend/internal/model"
	"github.com/kaiwu-tech/pm-backend/internal/repository"
)

var ErrUserNotFound = errors.New("用户不存在")

// MembershipService 将用户的组织归属展开为各作用域下的角色列表
// 展开结果作为权限解析的输入
type MembershipService interface {
	RolesForUser(ctx context.Context, userID string) ([]repository.RoleRef, error)
}

type membershipService struct {
	userRepo    repository.UserRepository
	deptRepo    repository.DepartmentRepository
	teamRepo    repository.TeamRepository
	projectRepo repository.ProjectRepository
}

// NewMembershipService 创建角色展开服务
func NewMembershipService(
	userRepo repository.UserRepository,
	deptRepo repository.DepartmentRepository,
	teamRepo repository.TeamRepository,
	projectRepo repository.ProjectRepository,
) MembershipService {
	return &membershipService{
		userRepo:    userRepo,
		deptRepo:    deptRepo,
		teamRepo:    teamRepo,
		projectRepo: projectRepo,
	}
}

// RolesForUser 汇总用户在四个作用域下持有的全部角色
//
// 系统层取用户的 system_role；部门层按是否为部门负责人映射为 manager 或 member；
// 团队层取每条团队成员记录的角色名，团队负责人额外获得 lead；
// 项目层取每条项目成员记录的角色名
func (s *membershipService) RolesForUser(ctx context.Context, userID string) ([]repository.RoleRef, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	seen := make(map[repository.RoleRef]bool)
	var refs []repository.RoleRef
	add := func(roleType, roleName string) {
		if roleName == "" {
			return
		}
		ref := repository.RoleRef{RoleType: roleType, RoleName: roleName}
		if !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
	}

	add(model.RoleTypeSystem, user.SystemRole)

	if user.DepartmentID != nil && *user.DepartmentID != "" {
		dept, err := s.deptRepo.GetByID(ctx, *user.DepartmentID)
		if err != nil && !errors.Is(err, repository.ErrDeptNotFound) {
			return nil, err
		}
		if dept != nil {
			if dept.ManagerID == user.ID {
				add(model.RoleTypeDivision, "manager")
			} else {
				add(model.RoleTypeDivision, "member")
			}
		}
	}

	teamMemberships, err := s.teamRepo.ListMembershipsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, m := range teamMemberships {
		add(model.RoleTypeTeam, m.RoleName)
		team, err := s.teamRepo.GetByID(ctx, m.TeamID)
		if err != nil {
			if errors.Is(err, repository.ErrTeamNotFound) {
				continue
			}
			return nil, err
		}
		if team.LeadID == user.ID {
			add(model.RoleTypeTeam, "lead")
		}
	}

	projectMemberships, err := s.projectRepo.ListMembershipsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, m := range projectMemberships {
		add(model.RoleTypeProject, m.RoleName)
	}

	return refs, nil
}
