package utils

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bsaid97/go-grid-topology/logger"
	"github.com/tj/go-spin"
	"golang.org/x/sync/errgroup"
)

// ProgressTracker tracks progress of concurrent operations
type ProgressTracker struct {
	Total     int64
	Processed int64
	StartTime time.Time
	Name      string
	// Every controls how often progress is logged.
	Every int64

	mu      sync.Mutex
	spinner *spin.Spinner
}

func NewProgressTracker(total int64, name string) *ProgressTracker {
	spinner := spin.New()
	spinner.Set(spin.Box1)
	return &ProgressTracker{
		Total:     total,
		StartTime: time.Now(),
		Name:      name,
		Every:     100,
		spinner:   spinner,
	}
}

// Increment increments the processed count atomically
func (pt *ProgressTracker) Increment() {
	processed := atomic.AddInt64(&pt.Processed, 1)
	if processed%pt.Every != 0 && processed != pt.Total {
		return
	}

	pt.mu.Lock()
	frame := pt.spinner.Next()
	pt.mu.Unlock()

	elapsed := time.Since(pt.StartTime)
	rate := float64(processed) / elapsed.Seconds()
	logger.Debug(fmt.Sprintf("%s %s", frame, pt.Name),
		"processed", processed,
		"total", pt.Total,
		"percent", fmt.Sprintf("%.1f", pt.percentage(processed)),
		"rate", fmt.Sprintf("%.1f/s", rate),
	)
}

func (pt *ProgressTracker) GetProgress() (int64, int64, float64) {
	processed := atomic.LoadInt64(&pt.Processed)
	return processed, pt.Total, pt.percentage(processed)
}

func (pt *ProgressTracker) percentage(processed int64) float64 {
	if pt.Total == 0 {
		return 100
	}
	return float64(processed) / float64(pt.Total) * 100
}

// ParallelProcessor bounds how many jobs run at once.
type ParallelProcessor struct {
	NumWorkers int
}

func NewParallelProcessor(numWorkers int) *ParallelProcessor {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}

	return &ParallelProcessor{
		NumWorkers: numWorkers,
	}
}

// BatchResult is the outcome of one job. Index is the job's position in
// the submitted batch.
type BatchResult[R any] struct {
	Index int
	Value R
	Err   error
}

// ProcessBatch runs work over items on the processor's workers and returns
// one result per item, in item order. A failing or panicking job only
// affects its own result. The returned error is non-nil only when ctx is
// cancelled before every job started.
func ProcessBatch[J, R any](ctx context.Context, pp *ParallelProcessor, items []J,
	work func(context.Context, J) (R, error), progressName string) ([]BatchResult[R], error) {

	results := make([]BatchResult[R], len(items))
	if len(items) == 0 {
		return results, nil
	}

	tracker := NewProgressTracker(int64(len(items)), progressName)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pp.NumWorkers)

	for i, item := range items {
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			results[i] = runJob(gctx, i, item, work)
			tracker.Increment()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	processed, total, pct := tracker.GetProgress()
	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("%s cancelled after %d of %d jobs: %w", progressName, processed, total, err)
	}

	logger.Debug(fmt.Sprintf("%s: completed", progressName), "items", total, "percent", fmt.Sprintf("%.1f", pct))
	return results, nil
}

func runJob[J, R any](ctx context.Context, index int, item J, work func(context.Context, J) (R, error)) (result BatchResult[R]) {
	result.Index = index
	defer func() {
		if r := recover(); r != nil {
			logger.Error("PANIC recovered in worker", "job", index, "panic", r)
			result.Err = fmt.Errorf("job %d panicked: %v", index, r)
		}
	}()
	result.Value, result.Err = work(ctx, item)
	return result
}
