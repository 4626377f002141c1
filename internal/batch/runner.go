package batch

import (
	"context"
	"fmt"
	"time"

	"mathtutor/internal/failure"
	"mathtutor/internal/metrics"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ItemState 条目状态
type ItemState int

const (
	StatePending ItemState = iota
	StateInFlight
	StateSucceeded
	StateFailed
)

func (s ItemState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateInFlight:
		return "in_flight"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ItemFailure 失败条目
type ItemFailure struct {
	Key      string `json:"key"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Attempts int    `json:"attempts"`
}

// Report 运行汇总
type Report struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Failures  []ItemFailure `json:"failures,omitempty"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Runner 分批并发处理器
// 批内所有条目并发执行，全部结束后写断点；批与批之间严格串行
type Runner[T any] struct {
	Name       string
	Key        func(item T) string
	Process    func(ctx context.Context, item T) error
	AfterBatch func(ctx context.Context, succeeded []T) error // 可选，在写断点之前执行
	Checkpoint CheckpointStore                                // 可选
	BatchSize  int
	BatchDelay time.Duration
	Retry      RetryPolicy
	Logger     *zap.Logger
	Sleep      SleepFunc
}

type itemResult[T any] struct {
	item     T
	key      string
	state    ItemState
	attempts int
	err      error
}

// Run 处理 items，skip 中的键以及断点中已处理的键直接跳过
// 仅在读取/写入断点失败或 ctx 取消时返回错误，单条失败计入报告
func (r *Runner[T]) Run(ctx context.Context, items []T, skip []string) (*Report, error) {
	start := time.Now()
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("pipeline", r.Name))
	sleep := r.Sleep
	if sleep == nil {
		sleep = ContextSleep
	}
	batchSize := r.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}

	progress := &Progress{}
	if r.Checkpoint != nil {
		loaded, err := r.Checkpoint.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("加载断点失败: %w", err)
		}
		progress = loaded
	}

	done := progress.KeySet()
	for _, k := range skip {
		done[k] = struct{}{}
	}

	report := &Report{Total: len(items)}
	pending := make([]T, 0, len(items))
	queued := make(map[string]struct{}, len(items))
	for _, item := range items {
		key := r.Key(item)
		if _, ok := done[key]; ok {
			report.Skipped++
			continue
		}
		if _, ok := queued[key]; ok {
			report.Skipped++
			continue
		}
		queued[key] = struct{}{}
		pending = append(pending, item)
	}
	metrics.BatchItemsTotal.WithLabelValues(r.Name, "skipped").Add(float64(report.Skipped))

	log.Info("开始批处理",
		zap.Int("total", report.Total),
		zap.Int("pending", len(pending)),
		zap.Int("skipped", report.Skipped),
		zap.Int("batch_size", batchSize),
	)

	batches := (len(pending) + batchSize - 1) / batchSize
	for b := 0; b < batches; b++ {
		if err := ctx.Err(); err != nil {
			report.Elapsed = time.Since(start)
			log.Warn("批处理已取消", zap.Int("completed_batches", b))
			return report, err
		}

		lo := b * batchSize
		hi := min(lo+batchSize, len(pending))
		results := r.runBatch(ctx, log, sleep, pending[lo:hi])

		var succeeded []T
		for _, res := range results {
			switch res.state {
			case StateSucceeded:
				report.Succeeded++
				succeeded = append(succeeded, res.item)
				progress.ProcessedKeys = append(progress.ProcessedKeys, res.key)
				metrics.BatchItemsTotal.WithLabelValues(r.Name, "succeeded").Inc()
			case StateFailed:
				report.Failed++
				report.Failures = append(report.Failures, toItemFailure(res))
				metrics.BatchItemsTotal.WithLabelValues(r.Name, "failed").Inc()
			}
		}

		// 已完成批次的结果在取消时也要落盘
		persistCtx := context.WithoutCancel(ctx)
		if r.AfterBatch != nil && len(succeeded) > 0 {
			if err := r.AfterBatch(persistCtx, succeeded); err != nil {
				report.Elapsed = time.Since(start)
				return report, fmt.Errorf("批次后处理失败: %w", err)
			}
		}

		if r.Checkpoint != nil {
			progress.LastUpdated = time.Now().UTC()
			if err := r.Checkpoint.Save(persistCtx, progress); err != nil {
				report.Elapsed = time.Since(start)
				return report, fmt.Errorf("保存断点失败: %w", err)
			}
		}

		log.Info("批次完成",
			zap.Int("batch", b+1),
			zap.Int("batches", batches),
			zap.Int("succeeded", report.Succeeded),
			zap.Int("failed", report.Failed),
		)

		if b < batches-1 && r.BatchDelay > 0 {
			if err := sleep(ctx, r.BatchDelay); err != nil {
				report.Elapsed = time.Since(start)
				log.Warn("批处理已取消", zap.Int("completed_batches", b+1))
				return report, err
			}
		}
	}

	// 有失败条目时保留断点，重跑时只处理未完成的条目
	if r.Checkpoint != nil && report.Failed == 0 {
		if err := r.Checkpoint.Clear(context.WithoutCancel(ctx)); err != nil {
			log.Warn("删除断点失败", zap.Error(err))
		}
	}

	report.Elapsed = time.Since(start)
	log.Info("批处理完成",
		zap.Int("total", report.Total),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
		zap.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}

// runBatch 并发处理一批，已发出的调用不随 ctx 取消
func (r *Runner[T]) runBatch(ctx context.Context, log *zap.Logger, sleep SleepFunc, batch []T) []itemResult[T] {
	results := make([]itemResult[T], len(batch))
	itemCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	for i, item := range batch {
		results[i] = itemResult[T]{item: item, key: r.Key(item), state: StatePending}
		g.Go(func() error {
			res := &results[i]
			res.state = StateInFlight
			attempts, err := r.Retry.Do(itemCtx, r.retrySleep(ctx, log, res.key, sleep), func(ctx context.Context) error {
				return r.Process(ctx, item)
			})
			res.attempts = attempts
			if attempts > 1 {
				metrics.BatchRetriesTotal.WithLabelValues(r.Name).Add(float64(attempts - 1))
			}
			if err != nil {
				res.state = StateFailed
				res.err = err
				log.Warn("条目处理失败",
					zap.String("key", res.key),
					zap.Int("attempts", attempts),
					zap.String("code", failure.KindOf(err).Code()),
					zap.Error(err),
				)
				return nil
			}
			res.state = StateSucceeded
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// retrySleep 退避等待随外层 ctx 取消，取消时条目按失败处理
func (r *Runner[T]) retrySleep(ctx context.Context, log *zap.Logger, key string, sleep SleepFunc) SleepFunc {
	return func(_ context.Context, d time.Duration) error {
		log.Info("条目可重试失败，等待后重试", zap.String("key", key), zap.Duration("delay", d))
		return sleep(ctx, d)
	}
}

func toItemFailure[T any](res itemResult[T]) ItemFailure {
	out := ItemFailure{Key: res.key, Attempts: res.attempts}
	if f, ok := failure.As(res.err); ok {
		out.Code = f.Code()
		out.Message = f.Message
	} else {
		out.Code = failure.KindUnclassified.Code()
		out.Message = res.err.Error()
	}
	return out
}
