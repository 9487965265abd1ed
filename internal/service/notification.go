package service

import (
	"context"
	"errors"

	"github.com/kaiwu-tech/pm-backend/internal/model"
	"github.com/kaiwu-tech/pm-backend/internal/repository"
)

var ErrNotificationNotFound = errors.New("通知不存在")

// NotificationService 站内通知服务
type NotificationService interface {
	ListByUser(ctx context.Context, userID string, onlyUnread bool, page *repository.Pagination) ([]*model.Notification, int64, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) error
	CountUnread(ctx context.Context, userID string) (int64, error)
}

type notificationService struct {
	notifRepo repository.NotificationRepository
}

// NewNotificationService 创建通知服务
func NewNotificationService(notifRepo repository.NotificationRepository) NotificationService {
	return &notificationService{notifRepo: notifRepo}
}

func (s *notificationService) ListByUser(ctx context.Context, userID string, onlyUnread bool, page *repository.Pagination) ([]*model.Notification, int64, error) {
	return s.notifRepo.ListByUser(ctx, userID, onlyUnread, page)
}

func (s *notificationService) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.notifRepo.MarkRead(ctx, id, userID); err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return ErrNotificationNotFound
		}
		return err
	}
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID string) error {
	return s.notifRepo.MarkAllRead(ctx, userID)
}

func (s *notificationService) CountUnread(ctx context.Context, userID string) (int64, error) {
	return s.notifRepo.CountUnread(ctx, userID)
}
