package database

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrRetryExhausted 重试次数耗尽
var ErrRetryExhausted = errors.New("存储操作重试次数已耗尽")

// 瞬时错误特征，命中则认为可以重试
var transientPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"deadlock",
	"timeout",
	"too many connections",
	"try again",
}

// IsTransient 判断是否为瞬时存储错误
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// RetryPolicy 重试策略
type RetryPolicy struct {
	MaxAttempts int           // 最大尝试次数（含首次）
	BaseDelay   time.Duration // 首次重试间隔，之后指数递增
}

// DefaultRetryPolicy 默认重试策略
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   50 * time.Millisecond,
	}
}

// WithRetry 对瞬时存储错误做有界指数退避重试
// 非瞬时错误直接返回；重试耗尽后返回最后一次错误
func WithRetry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	if policy.MaxAttempts < 1 {
		policy = DefaultRetryPolicy()
	}

	delay := policy.BaseDelay
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !IsTransient(lastErr) {
			return lastErr
		}
		if attempt == policy.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return lastErr
}
