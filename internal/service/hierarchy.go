package service

import (
	"context"
	"errors"

	"github.com/kaiwu-tech/pm-backend/internal/model"
	"github.com/kaiwu-tech/pm-backend/internal/repository"
	"go.uber.org/zap"
)

var (
	ErrDeptNotFound    = errors.New("部门不存在")
	ErrDeptCodeExists  = errors.New("部门代码已存在")
	ErrDeptCycle       = errors.New("部门层级存在循环引用")
	ErrDeptHasChildren = errors.New("部门下存在子部门，无法删除")
	ErrParentNotFound  = errors.New("上级部门不存在")
)

// DepartmentService 部门层级服务
// 写入时校验父子关系不成环，读取时再做一次环检测兜底（脏数据可能绕过写入校验）
type DepartmentService interface {
	Create(ctx context.Context, dept *model.Department) error
	Get(ctx context.Context, id string) (*model.Department, error)
	Update(ctx context.Context, dept *model.Department) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*model.Department, error)
	ListChildren(ctx context.Context, parentID string) ([]*model.Department, error)
	// GetHierarchyPath 返回自根部门到该部门的路径
	// 检测到环时返回已遍历的部分路径和 ErrDeptCycle
	GetHierarchyPath(ctx context.Context, id string) ([]*model.Department, error)
}

type departmentService struct {
	deptRepo repository.DepartmentRepository
	logger   *zap.Logger
}

// NewDepartmentService 创建部门层级服务
func NewDepartmentService(deptRepo repository.DepartmentRepository, logger *zap.Logger) DepartmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &departmentService{deptRepo: deptRepo, logger: logger}
}

func (s *departmentService) Create(ctx context.Context, dept *model.Department) error {
	if dept.ParentID != nil {
		if _, err := s.deptRepo.GetByID(ctx, *dept.ParentID); err != nil {
			if errors.Is(err, repository.ErrDeptNotFound) {
				return ErrParentNotFound
			}
			return err
		}
	}
	if err := s.deptRepo.Create(ctx, dept); err != nil {
		if errors.Is(err, repository.ErrDeptCodeExists) {
			return ErrDeptCodeExists
		}
		return err
	}
	return nil
}

func (s *departmentService) Get(ctx context.Context, id string) (*model.Department, error) {
	dept, err := s.deptRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrDeptNotFound) {
			return nil, ErrDeptNotFound
		}
		return nil, err
	}
	return dept, nil
}

// Update 变更部门，换父部门前先沿新父链向上走一遍，确认不会把自己挂到自己的子树下
func (s *departmentService) Update(ctx context.Context, dept *model.Department) error {
	if dept.ParentID != nil {
		if *dept.ParentID == dept.ID {
			return ErrDeptCycle
		}
		current := *dept.ParentID
		seen := map[string]bool{dept.ID: true}
		for current != "" {
			if seen[current] {
				return ErrDeptCycle
			}
			seen[current] = true
			parent, err := s.deptRepo.GetByID(ctx, current)
			if err != nil {
				if errors.Is(err, repository.ErrDeptNotFound) {
					return ErrParentNotFound
				}
				return err
			}
			if parent.ParentID == nil {
				break
			}
			current = *parent.ParentID
		}
	}
	if err := s.deptRepo.Update(ctx, dept); err != nil {
		if errors.Is(err, repository.ErrDeptNotFound) {
			return ErrDeptNotFound
		}
		return err
	}
	return nil
}

func (s *departmentService) Delete(ctx context.Context, id string) error {
	children, err := s.deptRepo.ListChildren(ctx, id)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return ErrDeptHasChildren
	}
	if err := s.deptRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrDeptNotFound) {
			return ErrDeptNotFound
		}
		return err
	}
	return nil
}

func (s *departmentService) List(ctx context.Context) ([]*model.Department, error) {
	return s.deptRepo.List(ctx)
}

func (s *departmentService) ListChildren(ctx context.Context, parentID string) ([]*model.Department, error) {
	return s.deptRepo.ListChildren(ctx, parentID)
}

// GetHierarchyPath 自该部门沿 ParentID 向上遍历到根，再反转为根到叶的顺序
// 遇到重复节点说明数据成环，中止遍历并连同部分路径一起返回 ErrDeptCycle
func (s *departmentService) GetHierarchyPath(ctx context.Context, id string) ([]*model.Department, error) {
	var chain []*model.Department
	seen := make(map[string]bool)

	current := id
	for {
		if seen[current] {
			s.logger.Error("部门层级检测到循环引用",
				zap.String("department_id", id),
				zap.String("cycle_at", current),
			)
			reverse(chain)
			return chain, ErrDeptCycle
		}
		seen[current] = true

		dept, err := s.deptRepo.GetByID(ctx, current)
		if err != nil {
			if errors.Is(err, repository.ErrDeptNotFound) {
				if current == id {
					return nil, ErrDeptNotFound
				}
				// 父节点悬空，当作到达根处理
				break
			}
			return nil, err
		}
		chain = append(chain, dept)
		if dept.ParentID == nil {
			break
		}
		current = *dept.ParentID
	}

	reverse(chain)
	return chain, nil
}

func reverse(chain []*model.Department) {
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
}

var (
	ErrTeamNotFound   = errors.New("团队不存在")
	ErrMemberExists   = errors.New("成员已在团队中")
	ErrMemberNotFound = errors.New("成员不在团队中")
)

// TeamService 团队服务
type TeamService interface {
	Create(ctx context.Context, team *model.Team) error
	Get(ctx context.Context, id string) (*model.Team, error)
	Update(ctx context.Context, team *model.Team) error
	Delete(ctx context.Context, id string) error
	ListByDepartment(ctx context.Context, departmentID string) ([]*model.Team, error)
	AddMember(ctx context.Context, teamID, userID, roleName string) error
	RemoveMember(ctx context.Context, teamID, userID string) error
	ListMembers(ctx context.Context, teamID string) ([]*model.TeamMember, error)
}

type teamService struct {
	teamRepo repository.TeamRepository
	deptRepo repository.DepartmentRepository
}

// NewTeamService 创建团队服务
func NewTeamService(teamRepo repository.TeamRepository, deptRepo repository.DepartmentRepository) TeamService {
	return &teamService{teamRepo: teamRepo, deptRepo: deptRepo}
}

func (s *teamService) Create(ctx context.Context, team *model.Team) error {
	if team.DepartmentID != nil && *team.DepartmentID != "" {
		if _, err := s.deptRepo.GetByID(ctx, *team.DepartmentID); err != nil {
			if errors.Is(err, repository.ErrDeptNotFound) {
				return ErrDeptNotFound
			}
			return err
		}
	}
	return s.teamRepo.Create(ctx, team)
}

func (s *teamService) Get(ctx context.Context, id string) (*model.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return team, nil
}

func (s *teamService) Update(ctx context.Context, team *model.Team) error {
	return s.teamRepo.Update(ctx, team)
}

func (s *teamService) Delete(ctx context.Context, id string) error {
	if err := s.teamRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrTeamNotFound) {
			return ErrTeamNotFound
		}
		return err
	}
	return nil
}

func (s *teamService) ListByDepartment(ctx context.Context, departmentID string) ([]*model.Team, error) {
	return s.teamRepo.ListByDepartment(ctx, departmentID)
}

func (s *teamService) AddMember(ctx context.Context, teamID, userID, roleName string) error {
	if roleName == "" {
		roleName = "member"
	}
	err := s.teamRepo.AddMember(ctx, &model.TeamMember{
		TeamID:   teamID,
		UserID:   userID,
		RoleName: roleName,
	})
	if errors.Is(err, repository.ErrMemberExists) {
		return ErrMemberExists
	}
	return err
}

func (s *teamService) RemoveMember(ctx context.Context, teamID, userID string) error {
	err := s.teamRepo.RemoveMember(ctx, teamID, userID)
	if errors.Is(err, repository.ErrMemberNotFound) {
		return ErrMemberNotFound
	}
	return err
}

func (s *teamService) ListMembers(ctx context.Context, teamID string) ([]*model.TeamMember, error) {
	return s.teamRepo.ListMembers(ctx, teamID)
}
