package database

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestWithRetry_Transient 瞬时错误应重试直至成功
func TestWithRetry_Transient(t *testing.T) {
	ctx := context.Background()
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	calls := 0
	err := WithRetry(ctx, policy, func() error {
		calls++
		if calls < 3 {
			return errors.New("dial tcp: connection refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("期望成功, 实际错误: %v", err)
	}
	if calls != 3 {
		t.Errorf("期望调用 3 次, 实际 %d 次", calls)
	}
}

// TestWithRetry_NonTransient 非瞬时错误不应重试
func TestWithRetry_NonTransient(t *testing.T) {
	ctx := context.Background()
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	permanent := errors.New("唯一约束冲突")
	calls := 0
	err := WithRetry(ctx, policy, func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("期望返回原始错误, 实际: %v", err)
	}
	if calls != 1 {
		t.Errorf("期望调用 1 次, 实际 %d 次", calls)
	}
}

// TestWithRetry_Exhausted 重试耗尽后返回最后一次错误
func TestWithRetry_Exhausted(t *testing.T) {
	ctx := context.Background()
	policy := RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond}

	calls := 0
	err := WithRetry(ctx, policy, func() error {
		calls++
		return errors.New("read: connection reset by peer")
	})
	if err == nil {
		t.Fatal("期望返回错误")
	}
	if calls != 2 {
		t.Errorf("期望调用 2 次, 实际 %d 次", calls)
	}
}

// TestIsTransient 瞬时错误识别
func TestIsTransient(t *testing.T) {
	if !IsTransient(errors.New("Deadlock found when trying to get lock")) {
		t.Error("死锁应识别为瞬时错误")
	}
	if IsTransient(nil) {
		t.Error("nil 不应识别为瞬时错误")
	}
	if IsTransient(errors.New("record not found")) {
		t.Error("记录不存在不应识别为瞬时错误")
	}
}
