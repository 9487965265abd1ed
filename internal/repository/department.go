package repository

import (
	"context"
	"errors"

	"github.com/kaiwu-tech/pm-backend/internal/model"
	"gorm.io/gorm"
)

// 错误定义
var (
	ErrDeptNotFound   = errors.New("部门不存在")
	ErrDeptCodeExists = errors.New("部门编码已存在")
	ErrTeamNotFound   = errors.New("团队不存在")
	ErrMemberExists   = errors.New("该用户已是团队成员")
	ErrMemberNotFound = errors.New("团队成员不存在")
)

// DepartmentRepository 部门数据访问接口
type DepartmentRepository interface {
	Create(ctx context.Context, dept *model.Department) error
	GetByID(ctx context.Context, id string) (*model.Department, error)
	GetByCode(ctx context.Context, code string) (*model.Department, error)
	Update(ctx context.Context, dept *model.Department) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*model.Department, error)
	ListChildren(ctx context.Context, parentID string) ([]*model.Department, error)
}

// TeamRepository 团队数据访问接口
type TeamRepository interface {
	Create(ctx context.Context, team *model.Team) error
	GetByID(ctx context.Context, id string) (*model.Team, error)
	Update(ctx context.Context, team *model.Team) error
	Delete(ctx context.Context, id string) error
	ListByDepartment(ctx context.Context, departmentID string) ([]*model.Team, error)
	AddMember(ctx context.Context, member *model.TeamMember) error
	RemoveMember(ctx context.Context, teamID, userID string) error
	ListMembers(ctx context.Context, teamID string) ([]*model.TeamMember, error)
	ListMembershipsByUser(ctx context.Context, userID string) ([]*model.TeamMember, error)
}

// departmentRepository 部门数据访问实现
type departmentRepository struct {
	db *gorm.DB
}

// NewDepartmentRepository 创建部门数据访问实例
func NewDepartmentRepository(db *gorm.DB) DepartmentRepository {
	return &departmentRepository{db: db}
}

func (r *departmentRepository) Create(ctx context.Context, dept *model.Department) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Department{}).
		Where("code = ?", dept.Code).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrDeptCodeExists
	}
	return r.db.WithContext(ctx).Create(dept).Error
}

func (r *departmentRepository) GetByID(ctx context.Context, id string) (*model.Department, error) {
	var dept model.Department
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&dept).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeptNotFound
		}
		return nil, err
	}
	return &dept, nil
}

func (r *departmentRepository) GetByCode(ctx context.Context, code string) (*model.Department, error) {
	var dept model.Department
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&dept).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeptNotFound
		}
		return nil, err
	}
	return &dept, nil
}

func (r *departmentRepository) Update(ctx context.Context, dept *model.Department) error {
	return r.db.WithContext(ctx).Save(dept).Error
}

func (r *departmentRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&model.Department{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDeptNotFound
	}
	return nil
}

func (r *departmentRepository) List(ctx context.Context) ([]*model.Department, error) {
	var depts []*model.Department
	if err := r.db.WithContext(ctx).Order("code").Find(&depts).Error; err != nil {
		return nil, err
	}
	return depts, nil
}

func (r *departmentRepository) ListChildren(ctx context.Context, parentID string) ([]*model.Department, error) {
	var depts []*model.Department
	if err := r.db.WithContext(ctx).Where("parent_id = ?", parentID).
		Order("code").Find(&depts).Error; err != nil {
		return nil, err
	}
	return depts, nil
}

// teamRepository 团队数据访问实现
type teamRepository struct {
	db *gorm.DB
}

// NewTeamRepository 创建团队数据访问实例
func NewTeamRepository(db *gorm.DB) TeamRepository {
	return &teamRepository{db: db}
}

func (r *teamRepository) Create(ctx context.Context, team *model.Team) error {
	return r.db.WithContext(ctx).Create(team).Error
}

func (r *teamRepository) GetByID(ctx context.Context, id string) (*model.Team, error) {
	var team model.Team
	err := r.db.WithContext(ctx).Preload("Members").Where("id = ?", id).First(&team).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return &team, nil
}

func (r *teamRepository) Update(ctx context.Context, team *model.Team) error {
	return r.db.WithContext(ctx).Save(team).Error
}

func (r *teamRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&model.Team{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTeamNotFound
	}
	return nil
}

func (r *teamRepository) ListByDepartment(ctx context.Context, departmentID string) ([]*model.Team, error) {
	var teams []*model.Team
	if err := r.db.WithContext(ctx).Where("department_id = ?", departmentID).
		Find(&teams).Error; err != nil {
		return nil, err
	}
	return teams, nil
}

func (r *teamRepository) AddMember(ctx context.Context, member *model.TeamMember) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.TeamMember{}).
		Where("team_id = ? AND user_id = ?", member.TeamID, member.UserID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrMemberExists
	}
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *teamRepository) RemoveMember(ctx context.Context, teamID, userID string) error {
	result := r.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Delete(&model.TeamMember{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMemberNotFound
	}
	return nil
}

func (r *teamRepository) ListMembers(ctx context.Context, teamID string) ([]*model.TeamMember, error) {
	var members []*model.TeamMember
	if err := r.db.WithContext(ctx).Preload("User").
		Where("team_id = ?", teamID).Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

func (r *teamRepository) ListMembershipsByUser(ctx context.Context, userID string) ([]*model.TeamMember, error) {
	var members []*model.TeamMember
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}
