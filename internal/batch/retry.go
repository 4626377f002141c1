// Package batch 分批并发处理：逐项重试、断点续跑、汇总报告
package batch

import (
	"context"
	"time"

	"mathtutor/internal/failure"
)

// SleepFunc 可中断的等待（测试中可替换）
type SleepFunc func(ctx context.Context, d time.Duration) error

// ContextSleep 等待 d 或 ctx 结束
func ContextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryPolicy 单项重试策略：最多 MaxAttempts 次，第 n 次失败后等待 BaseDelay * 2^(n-1)
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy 3 次，基础延迟 1s
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}
}

// Backoff 第 attempt 次失败后的等待时间
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.BaseDelay << (attempt - 1)
}

// ShouldRetry 仅限流与网络类错误会重试
func ShouldRetry(err error) bool {
	switch failure.KindOf(err) {
	case failure.KindRateLimited, failure.KindNetworkUnavailable:
		return true
	default:
		return false
	}
}

// Do 执行 op，可重试错误按退避重试；返回实际尝试次数与最后一次错误
func (p RetryPolicy) Do(ctx context.Context, sleep SleepFunc, op func(ctx context.Context) error) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if sleep == nil {
		sleep = ContextSleep
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return attempt, nil
		}
		if !ShouldRetry(lastErr) || attempt == maxAttempts {
			return attempt, lastErr
		}
		if err := sleep(ctx, p.Backoff(attempt)); err != nil {
			return attempt, lastErr
		}
	}
	return maxAttempts, lastErr
}
