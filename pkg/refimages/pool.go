package refimages

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// PoolConfig configures the fetch pool.
type PoolConfig struct {
	MaxConcurrent int // Maximum concurrent fetches (default: 4)
}

// DefaultPoolConfig returns sensible defaults.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{MaxConcurrent: 4}
}

// Pool runs fetches with bounded parallelism. A semaphore limits outstanding
// work; results are buffered and handed back in submission order.
type Pool struct {
	config PoolConfig
	logger *zap.Logger
}

// NewPool creates a fetch pool.
func NewPool(config PoolConfig, logger *zap.Logger) *Pool {
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = DefaultPoolConfig().MaxConcurrent
	}
	return &Pool{
		config: config,
		logger: logger.Named("refimage-pool"),
	}
}

// Task is a unit of work.
type Task[T any] struct {
	ID      string                               // For logging
	Execute func(ctx context.Context) (T, error) // The work to be executed
}

// Result is the outcome of one task.
type Result[T any] struct {
	ID    string
	Value T
	Err   error
}

type indexedResult[T any] struct {
	index int
	Result[T]
}

// Run executes all tasks and returns their results in submission order,
// whatever order they complete in. Every task produces a result; tasks that
// could not start before ctx was done carry ctx.Err().
func Run[T any](ctx context.Context, pool *Pool, tasks []Task[T]) []Result[T] {
	if len(tasks) == 0 {
		return nil
	}

	resultsChan := make(chan indexedResult[T], len(tasks))
	sem := make(chan struct{}, pool.config.MaxConcurrent)

	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task Task[T]) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				resultsChan <- indexedResult[T]{index: i, Result: Result[T]{ID: task.ID, Err: ctx.Err()}}
				return
			}

			value, err := task.Execute(ctx)
			resultsChan <- indexedResult[T]{index: i, Result: Result[T]{ID: task.ID, Value: value, Err: err}}
		}(i, task)
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	results := make([]Result[T], len(tasks))
	completed := 0
	for r := range resultsChan {
		results[r.index] = r.Result
		completed++
		pool.logger.Debug("Reference task finished",
			zap.String("id", r.ID),
			zap.Int("completed", completed),
			zap.Int("total", len(tasks)),
			zap.Bool("ok", r.Err == nil))
	}
	return results
}
