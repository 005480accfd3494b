package batch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunBoundedRespectsLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	ops := make([]Operation, 20)
	for i := range ops {
		ops[i] = func(ctx context.Context) error {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
			return nil
		}
	}

	res := RunBounded(context.Background(), ops, 3)
	assert.Equal(t, 20, res.Succeeded)
	assert.Zero(t, res.Failed)
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Greater(t, peak.Load(), int32(0))
}

func TestRunBoundedCollectsFailuresAndPanics(t *testing.T) {
	boom := errors.New("boom")
	ops := []Operation{
		func(context.Context) error { return nil },
		func(context.Context) error { return boom },
		func(context.Context) error { panic("bad") },
		func(context.Context) error { return nil },
	}

	res := RunBounded(context.Background(), ops, 2)
	assert.Equal(t, 2, res.Succeeded)
	assert.Equal(t, 2, res.Failed)
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors, boom)
}

func TestRunBoundedCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := RunBounded(ctx, []Operation{func(context.Context) error { return nil }}, 1)
	assert.Equal(t, 1, res.Failed)
	assert.ErrorIs(t, res.Errors[0], context.Canceled)
}

func TestProcessInChunks(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	var sum atomic.Int64
	var chunks [][]int

	res, err := ProcessInChunks(context.Background(), items, 2, 2,
		func(_ context.Context, n int) error {
			if n == 4 {
				return errors.New("four")
			}
			sum.Add(int64(n))
			return nil
		},
		func(chunk []int, res Result) error {
			chunks = append(chunks, chunk)
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, chunks)
	assert.Equal(t, 4, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.EqualValues(t, 11, sum.Load())
}

func TestProcessInChunksStopsOnHookError(t *testing.T) {
	stop := errors.New("stop")
	calls := 0

	res, err := ProcessInChunks(context.Background(), []string{"a", "b", "c"}, 1, 1,
		func(context.Context, string) error { calls++; return nil },
		func(chunk []string, _ Result) error {
			if chunk[0] == "b" {
				return stop
			}
			return nil
		})

	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, res.Succeeded)
}
