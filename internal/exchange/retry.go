package exchange

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy 定义指数退避重试参数。
// MaxRetries 指首次尝试之外允许的重试次数，延迟从 BaseDelay 开始逐次翻倍，
// 不超过 MaxDelay。
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy 返回默认重试策略：3次重试，1s 起步，60s 封顶。
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		BaseDelay:  time.Second,
		MaxDelay:   60 * time.Second,
	}
}

// RetryExhaustedError 表示重试次数耗尽，内部保留最后一次观察到的错误。
type RetryExhaustedError struct {
	Operation string
	Attempts  int
	Err       error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%s: 尝试 %d 次后仍失败: %v", e.Operation, e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.Err
}

// Retryer 将任意远程调用闭包包装进统一的重试策略。
// 每次调用自带尝试计数，可并发复用。
type Retryer struct {
	policy    RetryPolicy
	retryable func(error) bool
	logger    *zap.Logger
	sleep     func(context.Context, time.Duration) error
}

// NewRetryer 创建重试器，retryable 决定哪些错误值得重试。
func NewRetryer(policy RetryPolicy, retryable func(error) bool, logger *zap.Logger) *Retryer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retryable == nil {
		retryable = func(error) bool { return false }
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = time.Second
	}
	if policy.MaxDelay <= 0 {
		policy.MaxDelay = 60 * time.Second
	}
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	return &Retryer{
		policy:    policy,
		retryable: retryable,
		logger:    logger,
		sleep:     sleepContext,
	}
}

// Do 执行 fn，对可重试错误按指数退避重试。
// 校验类与编程类错误由 retryable 判定为不可重试，立即原样返回;
// 重试耗尽时返回 RetryExhaustedError 包装的最后一次错误。
func (r *Retryer) Do(ctx context.Context, operation string, fn func() error) error {
	delay := r.policy.BaseDelay
	var lastErr error

	for attempt := 0; attempt <= r.policy.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			if attempt > 0 {
				r.logger.Info("重试后调用成功",
					zap.String("component", "retry"),
					zap.String("event", "retry_succeeded"),
					zap.String("operation", operation),
					zap.Int("attempts", attempt+1),
				)
			}
			return nil
		}
		lastErr = err

		if !r.retryable(err) {
			r.logger.Error("调用失败且不可重试",
				zap.String("component", "retry"),
				zap.String("event", "non_retryable_error"),
				zap.String("operation", operation),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			return err
		}

		if attempt == r.policy.MaxRetries {
			break
		}

		wait := delay
		if wait > r.policy.MaxDelay {
			wait = r.policy.MaxDelay
		}

		r.logger.Warn("调用失败，等待重试",
			zap.String("component", "retry"),
			zap.String("event", "retry_attempt"),
			zap.String("operation", operation),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", wait),
			zap.Error(err),
		)

		if err := r.sleep(ctx, wait); err != nil {
			return err
		}

		delay *= 2
	}

	r.logger.Error("重试次数耗尽",
		zap.String("component", "retry"),
		zap.String("event", "max_retries_exceeded"),
		zap.String("operation", operation),
		zap.Int("attempts", r.policy.MaxRetries+1),
		zap.Error(lastErr),
	)

	return &RetryExhaustedError{
		Operation: operation,
		Attempts:  r.policy.MaxRetries + 1,
		Err:       lastErr,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
