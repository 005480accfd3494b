// Package batch bounds how much work the pipeline runs at once.
package batch

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Operation is one unit of work.
type Operation func(ctx context.Context) error

// Result summarizes a set of operations. Errors holds one entry per failure,
// in no particular order.
type Result struct {
	Succeeded int
	Failed    int
	Errors    []error
}

func (r *Result) merge(other Result) {
	r.Succeeded += other.Succeeded
	r.Failed += other.Failed
	r.Errors = append(r.Errors, other.Errors...)
}

// RunBounded executes ops with at most maxConcurrent in flight and waits for
// all of them. A failing or panicking operation never cancels its siblings.
// Operations not yet started when ctx is done are counted as failed with
// ctx.Err().
// Parameters:
//   - ctx: context passed to every operation.
//   - ops: operations to execute.
//   - maxConcurrent: concurrency cap; values below 1 mean 1.
// Returns:
//   - Result: success and failure counts with the collected errors.
func RunBounded(ctx context.Context, ops []Operation, maxConcurrent int) Result {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	sem := semaphore.NewWeighted(int64(maxConcurrent))
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		res Result
	)
	record := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, err)
			return
		}
		res.Succeeded++
	}

	for _, op := range ops {
		if err := sem.Acquire(ctx, 1); err != nil {
			record(err)
			continue
		}
		wg.Add(1)
		go func(op Operation) {
			defer wg.Done()
			defer sem.Release(1)
			record(safeCall(ctx, op))
		}(op)
	}
	wg.Wait()

	return res
}

func safeCall(ctx context.Context, op Operation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operation panicked: %v", r)
		}
	}()
	return op(ctx)
}

// ProcessInChunks splits items into chunks of chunkSize and runs processOne
// over each chunk with at most maxConcurrent calls in flight. Chunks run one
// after another; onChunk, when set, sees each chunk and its result before the
// next chunk starts and can stop the loop by returning an error.
// Parameters:
//   - ctx: context passed to every call.
//   - items: work items, processed in slice order chunk by chunk.
//   - chunkSize: items per chunk; values below 1 mean one chunk.
//   - maxConcurrent: concurrency cap within a chunk.
//   - processOne: per-item work.
//   - onChunk: optional hook run after each chunk.
// Returns:
//   - Result: totals across the chunks that ran.
//   - error: the first onChunk error, or ctx.Err() if cancelled between chunks.
func ProcessInChunks[T any](
	ctx context.Context,
	items []T,
	chunkSize, maxConcurrent int,
	processOne func(ctx context.Context, item T) error,
	onChunk func(chunk []T, res Result) error,
) (Result, error) {
	if chunkSize < 1 {
		chunkSize = len(items)
	}

	var total Result
	for start := 0; start < len(items); start += chunkSize {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		end := min(start+chunkSize, len(items))
		chunk := items[start:end]

		ops := make([]Operation, len(chunk))
		for i, item := range chunk {
			ops[i] = func(ctx context.Context) error { return processOne(ctx, item) }
		}
		res := RunBounded(ctx, ops, maxConcurrent)
		total.merge(res)

		if onChunk != nil {
			if err := onChunk(chunk, res); err != nil {
				return total, err
			}
		}
	}
	return total, nil
}
