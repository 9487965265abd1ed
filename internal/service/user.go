package service

import (
	"context"
	"errors"

	"github.com/kaiwu-tech/pm-backend/internal/model"
	"github.com/kaiwu-tech/pm-backend/internal/repository"
	"go.uber.org/zap"
)

var (
	ErrUserExists        = errors.New("用户名或邮箱已被占用")
	ErrPasswordTooSimple = errors.New("密码长度不能少于 8 位")
)

// RegisterInput 用户注册入参
type RegisterInput struct {
	Username     string `json:"username" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required"`
	DisplayName  string `json:"display_name"`
	DepartmentID string `json:"department_id"`
}

// UserService 用户服务
type UserService interface {
	Register(ctx context.Context, input RegisterInput) (*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	List(ctx context.Context, filter *repository.UserFilter, page *repository.Pagination) ([]*model.User, int64, error)
}

type userService struct {
	userRepo repository.UserRepository
	logger   *zap.Logger
}

// NewUserService 创建用户服务
func NewUserService(userRepo repository.UserRepository, logger *zap.Logger) UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &userService{userRepo: userRepo, logger: logger}
}

func (s *userService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	if len(input.Password) < 8 {
		return nil, ErrPasswordTooSimple
	}

	user := &model.User{
		Username:    input.Username,
		Email:       input.Email,
		DisplayName: input.DisplayName,
		Status:      model.StatusActive,
	}
	if input.DepartmentID != "" {
		user.DepartmentID = &input.DepartmentID
	}
	if err := user.SetPassword(input.Password); err != nil {
		return nil, err
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	s.logger.Info("用户注册成功", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return user, nil
}

func (s *userService) Get(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) Update(ctx context.Context, user *model.User) error {
	return s.userRepo.Update(ctx, user)
}

func (s *userService) List(ctx context.Context, filter *repository.UserFilter, page *repository.Pagination) ([]*model.User, int64, error) {
	return s.userRepo.List(ctx, filter, page)
}
