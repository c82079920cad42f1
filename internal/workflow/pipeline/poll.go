package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ErrPollTimeout 达到最大检查次数时任务仍在进行中
var ErrPollTimeout = errors.New("poll attempts exhausted while still in progress")

// errPending 表示本次检查仍在进行中，需要继续轮询
var errPending = errors.New("still in progress")

// PollState 单次检查结果
type PollState int

const (
	// PollPending 仍在处理中，间隔后重试
	PollPending PollState = iota
	// PollDone 已完成
	PollDone
)

// CheckFunc 查询一次外部任务状态。返回错误表示终态失败，不再重试。
type CheckFunc func(ctx context.Context, attempt int) (PollState, error)

// PollOptions 轮询参数
type PollOptions struct {
	Interval     time.Duration
	MaxAttempts  int
	InitialDelay time.Duration
	// OnWait 每次进入等待前回调，用于日志与测试
	OnWait func(attempt int, wait time.Duration)
}

// Poll 以固定间隔调用 check，直到完成、终态失败或次数耗尽。
// 返回实际检查次数；次数耗尽时错误为 ErrPollTimeout。
func Poll(ctx context.Context, opts PollOptions, check CheckFunc) (int, error) {
	if opts.MaxAttempts <= 0 {
		return 0, fmt.Errorf("poll max attempts must be positive, got %d", opts.MaxAttempts)
	}

	if opts.InitialDelay > 0 {
		timer := time.NewTimer(opts.InitialDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return 0, ctx.Err()
		case <-timer.C:
		}
	}

	attempts := 0
	op := func() (struct{}, error) {
		attempts++
		state, err := check(ctx, attempts)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		if state == PollPending {
			return struct{}{}, errPending
		}
		return struct{}{}, nil
	}

	retryOpts := []backoff.RetryOption{
		backoff.WithBackOff(backoff.NewConstantBackOff(opts.Interval)),
		backoff.WithMaxTries(uint(opts.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
	}
	if opts.OnWait != nil {
		retryOpts = append(retryOpts, backoff.WithNotify(func(_ error, wait time.Duration) {
			opts.OnWait(attempts, wait)
		}))
	}

	_, err := backoff.Retry(ctx, op, retryOpts...)
	if err == nil {
		return attempts, nil
	}
	if errors.Is(err, errPending) {
		return attempts, ErrPollTimeout
	}
	// 最后一次检查的终态错误不会被 Retry 解包
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return attempts, permanent.Unwrap()
	}
	return attempts, err
}
