package filter

import (
	"context"
	"runtime"
	"sync"

	"github.com/s0up4200/spamwatch/spamwatch"
)

// EvaluatorOption configures an evaluator
type EvaluatorOption func(*ConcurrentEvaluator)

// WithWorkers sets the number of worker goroutines
func WithWorkers(workers int) EvaluatorOption {
	return func(e *ConcurrentEvaluator) {
		e.workerCount = workers
	}
}

// WithBatchSize sets the batch size for chunked processing
func WithBatchSize(size int) EvaluatorOption {
	return func(e *ConcurrentEvaluator) {
		if size > 0 {
			e.batchSize = size
		}
	}
}

// ConcurrentEvaluator implements both Evaluator and BatchEvaluator interfaces
type ConcurrentEvaluator struct {
	workerCount int
	batchSize   int
	pool        WorkerPool
}

// NewConcurrentEvaluator creates a new concurrent evaluator
func NewConcurrentEvaluator(opts ...EvaluatorOption) *ConcurrentEvaluator {
	e := &ConcurrentEvaluator{
		workerCount: runtime.GOMAXPROCS(0),
		batchSize:   500,
	}

	for _, opt := range opts {
		opt(e)
	}
	if e.workerCount <= 0 {
		e.workerCount = 1
	}

	e.pool = NewWorkerPool(e.workerCount)

	return e
}

// Evaluate evaluates a single filter against all bans. Matches keep the
// order of the input.
func (e *ConcurrentEvaluator) Evaluate(ctx context.Context, filter CompiledFilter, bans []spamwatch.Ban) ([]spamwatch.Ban, error) {
	if len(bans) == 0 {
		return []spamwatch.Ban{}, nil
	}

	// Small lists and filters that can't run concurrently stay on this goroutine
	if len(bans) < e.batchSize || !filter.IsThreadSafe() {
		return evaluateSequential(filter, bans), nil
	}

	return e.evaluateConcurrent(ctx, filter, bans)
}

// EvaluateBatch evaluates multiple filters against bans concurrently, one
// filter per worker. Filters cancelled by ctx are left out of the result.
func (e *ConcurrentEvaluator) EvaluateBatch(ctx context.Context, filters map[string]CompiledFilter, bans []spamwatch.Ban) (map[string][]spamwatch.Ban, error) {
	results := make(map[string][]spamwatch.Ban, len(filters))
	if len(filters) == 0 {
		return results, nil
	}
	if len(bans) == 0 {
		for name := range filters {
			results[name] = []spamwatch.Ban{}
		}
		return results, nil
	}

	resultChan := make(chan BatchResult, len(filters))

	var wg sync.WaitGroup
	for name, filter := range filters {
		wg.Add(1)

		err := e.pool.Submit(func() {
			defer wg.Done()

			if err := ctx.Err(); err != nil {
				resultChan <- BatchResult{FilterName: name, Error: err}
				return
			}

			// Sequential inside the worker; nested submits could starve the pool
			resultChan <- BatchResult{
				FilterName: name,
				Matches:    evaluateSequential(filter, bans),
			}
		})

		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, err
		}
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	for result := range resultChan {
		if result.Error != nil {
			continue
		}
		results[result.FilterName] = result.Matches
	}

	return results, ctx.Err()
}

// evaluateSequential evaluates a filter against all bans sequentially
func evaluateSequential(filter CompiledFilter, bans []spamwatch.Ban) []spamwatch.Ban {
	matches := make([]spamwatch.Ban, 0, len(bans)/10)
	for _, ban := range bans {
		if filter.Evaluate(ban) {
			matches = append(matches, ban)
		}
	}
	return matches
}

// evaluateConcurrent evaluates a filter against bans using the worker pool
func (e *ConcurrentEvaluator) evaluateConcurrent(ctx context.Context, filter CompiledFilter, bans []spamwatch.Ban) ([]spamwatch.Ban, error) {
	chunkSize := max(len(bans)/e.workerCount, e.batchSize)
	chunks := (len(bans) + chunkSize - 1) / chunkSize

	// each worker writes only its own slot
	results := make([][]spamwatch.Ban, chunks)
	var wg sync.WaitGroup

	for index := range chunks {
		start := index * chunkSize
		chunk := bans[start:min(start+chunkSize, len(bans))]

		wg.Add(1)
		err := e.pool.Submit(func() {
			defer wg.Done()

			if ctx.Err() != nil {
				return
			}
			results[index] = evaluateSequential(filter, chunk)
		})

		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, err
		}
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}

	allMatches := make([]spamwatch.Ban, 0, total)
	for _, r := range results {
		allMatches = append(allMatches, r...)
	}

	return allMatches, nil
}

// Stop gracefully stops the evaluator's worker pool
func (e *ConcurrentEvaluator) Stop(ctx context.Context) error {
	return e.pool.Stop(ctx)
}
