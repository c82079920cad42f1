// Package pipeline 提供顺序执行的类型化步骤与有界轮询
package pipeline

import (
	"context"
	"time"

	"social-content-api/pkg/logger"
	"social-content-api/pkg/metrics"
)

// Step 流水线中的单个步骤，输入为上一步的输出。
// BestEffort 为 true 时失败不会中断请求，而是返回 Fallback 的结果。
type Step[In, Out any] struct {
	Name       string
	Run        func(ctx context.Context, in In) (Out, error)
	BestEffort bool
	Fallback   func(in In, err error) Out
}

// Exec 执行步骤并记录耗时；可选步骤失败时降级
func (s Step[In, Out]) Exec(ctx context.Context, in In) (Out, error) {
	start := time.Now()
	out, err := s.Run(ctx, in)
	elapsed := time.Since(start)

	if err == nil {
		logger.Debug(ctx, "pipeline step finished", "step", s.Name, "duration_ms", elapsed.Milliseconds())
		return out, nil
	}

	if !s.BestEffort {
		logger.Error(ctx, "pipeline step failed", err, "step", s.Name, "duration_ms", elapsed.Milliseconds())
		var zero Out
		return zero, err
	}

	logger.Warn(ctx, "best-effort step failed, using fallback",
		"step", s.Name,
		"error", err.Error(),
		"duration_ms", elapsed.Milliseconds(),
	)
	metrics.StepDegradedTotal.WithLabelValues(s.Name).Inc()
	if s.Fallback != nil {
		return s.Fallback(in, err), nil
	}
	var zero Out
	return zero, nil
}

// Then 组合两个步骤，前一步失败时不执行后一步
func Then[A, B, C any](first Step[A, B], second Step[B, C]) Step[A, C] {
	return Step[A, C]{
		Name: first.Name + "->" + second.Name,
		Run: func(ctx context.Context, in A) (C, error) {
			mid, err := first.Exec(ctx, in)
			if err != nil {
				var zero C
				return zero, err
			}
			return second.Exec(ctx, mid)
		},
	}
}
