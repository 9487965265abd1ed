package repository

import (
	"context"
	"errors"
	"time"

	"github.com/kaiwu-tech/pm-backend/internal/model"
	"gorm.io/gorm"
)

// ErrSettingNotFound AI 配置项不存在
var ErrSettingNotFound = errors.New("AI 配置项不存在")

// AiUsageSummary 用量汇总
type AiUsageSummary struct {
	Calls        int64 `json:"calls"`         // 调用次数
	PromptTokens int64 `json:"prompt_tokens"` // 输入 token 总量
	OutputTokens int64 `json:"output_tokens"` // 输出 token 总量
}

// AiRepository AI 配置与用量数据访问接口
type AiRepository interface {
	GetSetting(ctx context.Context, key string) (*model.AiSetting, error)
	UpsertSetting(ctx context.Context, setting *model.AiSetting) error
	ListSettings(ctx context.Context) ([]*model.AiSetting, error)
	CreateUsage(ctx context.Context, log *model.AiUsageLog) error
	CountUsageSince(ctx context.Context, userID string, since time.Time) (int64, error)
	SummarizeUsage(ctx context.Context, userID string, since time.Time) (*AiUsageSummary, error)
}

// aiRepository AI 配置与用量数据访问实现
type aiRepository struct {
	db *gorm.DB
}

// NewAiRepository 创建 AI 数据访问实例
func NewAiRepository(db *gorm.DB) AiRepository {
	return &aiRepository{db: db}
}

func (r *aiRepository) GetSetting(ctx context.Context, key string) (*model.AiSetting, error) {
	var setting model.AiSetting
	err := r.db.WithContext(ctx).Where("setting_key = ?", key).First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSettingNotFound
		}
		return nil, err
	}
	return &setting, nil
}

func (r *aiRepository) UpsertSetting(ctx context.Context, setting *model.AiSetting) error {
	var existing model.AiSetting
	err := r.db.WithContext(ctx).Where("setting_key = ?", setting.Key).First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return r.db.WithContext(ctx).Create(setting).Error
		}
		return err
	}

	existing.Value = setting.Value
	if setting.Description != "" {
		existing.Description = setting.Description
	}
	return r.db.WithContext(ctx).Save(&existing).Error
}

func (r *aiRepository) ListSettings(ctx context.Context) ([]*model.AiSetting, error) {
	var settings []*model.AiSetting
	if err := r.db.WithContext(ctx).Order("setting_key").Find(&settings).Error; err != nil {
		return nil, err
	}
	return settings, nil
}

func (r *aiRepository) CreateUsage(ctx context.Context, log *model.AiUsageLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *aiRepository) CountUsageSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.AiUsageLog{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error
	return count, err
}

func (r *aiRepository) SummarizeUsage(ctx context.Context, userID string, since time.Time) (*AiUsageSummary, error) {
	var summary AiUsageSummary
	err := r.db.WithContext(ctx).Model(&model.AiUsageLog{}).
		Select("COUNT(*) AS calls, COALESCE(SUM(prompt_tokens), 0) AS prompt_tokens, COALESCE(SUM(output_tokens), 0) AS output_tokens").
		Where("user_id = ? AND created_at >= ?", userID, since).
		Scan(&summary).Error
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
