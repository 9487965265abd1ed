package service

import (
	"context"
	"errors"
	"time"

	"github.com/kaiwu-tech/pm-backend/internal/config"
	"github.com/kaiwu-tech/pm-backend/internal/model"
	"github.com/kaiwu-tech/pm-backend/internal/repository"
	"go.uber.org/zap"
)

var (
	ErrAiDisabled      = errors.New("AI 辅助功能未启用")
	ErrAiQuotaExceeded = errors.New("今日 AI 调用配额已用完")
	ErrSettingNotFound = errors.New("AI 配置项不存在")
)

// AiService AI 辅助功能的配置管理与用量计量
// 不负责实际的模型调用，只做开关、配额与记账
type AiService interface {
	GetSetting(ctx context.Context, key string) (*model.AiSetting, error)
	UpsertSetting(ctx context.Context, setting *model.AiSetting) error
	ListSettings(ctx context.Context) ([]*model.AiSetting, error)
	// CheckQuota 检查用户今日是否还有调用额度
	CheckQuota(ctx context.Context, userID string) error
	// RecordUsage 记录一次调用的 token 消耗
	RecordUsage(ctx context.Context, userID, feature string, promptTokens, outputTokens int64, succeeded bool) error
	SummarizeUsage(ctx context.Context, userID string, since time.Time) (*repository.AiUsageSummary, error)
}

type aiService struct {
	aiRepo repository.AiRepository
	cfg    config.AIConfig
	logger *zap.Logger
}

// NewAiService 创建 AI 服务
func NewAiService(aiRepo repository.AiRepository, cfg config.AIConfig, logger *zap.Logger) AiService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &aiService{aiRepo: aiRepo, cfg: cfg, logger: logger}
}

func (s *aiService) GetSetting(ctx context.Context, key string) (*model.AiSetting, error) {
	setting, err := s.aiRepo.GetSetting(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrSettingNotFound) {
			return nil, ErrSettingNotFound
		}
		return nil, err
	}
	return setting, nil
}

func (s *aiService) UpsertSetting(ctx context.Context, setting *model.AiSetting) error {
	return s.aiRepo.UpsertSetting(ctx, setting)
}

func (s *aiService) ListSettings(ctx context.Context) ([]*model.AiSetting, error) {
	return s.aiRepo.ListSettings(ctx)
}

// CheckQuota 配额按自然日（本地时区）计算
func (s *aiService) CheckQuota(ctx context.Context, userID string) error {
	if !s.cfg.Enabled {
		return ErrAiDisabled
	}
	if s.cfg.DailyQuota <= 0 {
		return nil
	}
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	count, err := s.aiRepo.CountUsageSince(ctx, userID, dayStart)
	if err != nil {
		return err
	}
	if count >= s.cfg.DailyQuota {
		s.logger.Info("AI 调用配额耗尽",
			zap.String("user_id", userID),
			zap.Int64("daily_quota", s.cfg.DailyQuota),
		)
		return ErrAiQuotaExceeded
	}
	return nil
}

func (s *aiService) RecordUsage(ctx context.Context, userID, feature string, promptTokens, outputTokens int64, succeeded bool) error {
	return s.aiRepo.CreateUsage(ctx, &model.AiUsageLog{
		UserID:       userID,
		Feature:      feature,
		PromptTokens: promptTokens,
		OutputTokens: outputTokens,
		Succeeded:    succeeded,
	})
}

func (s *aiService) SummarizeUsage(ctx context.Context, userID string, since time.Time) (*repository.AiUsageSummary, error) {
	return s.aiRepo.SummarizeUsage(ctx, userID, since)
}
