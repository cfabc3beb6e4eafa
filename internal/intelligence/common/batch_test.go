package common

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinsignal/clinsignal/pkg/errors"
)

func TestRunOrderedPreservesInputOrder(t *testing.T) {
	items := []int{5, 3, 9, 1, 7, 2}
	results := RunOrdered(context.Background(), items, 4, func(_ context.Context, n int) (string, error) {
		// Skew completion order so later items can finish first.
		time.Sleep(time.Duration(n) * time.Millisecond)
		return fmt.Sprintf("v%d", n), nil
	})

	require.Len(t, results, len(items))
	for i, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, i, r.Index)
		assert.Equal(t, fmt.Sprintf("v%d", items[i]), r.Result)
		assert.NoError(t, r.Error)
	}
}

func TestRunOrderedRespectsConcurrencyLimit(t *testing.T) {
	const limit = 3
	var inFlight, peak atomic.Int32

	items := make([]int, 20)
	RunOrdered(context.Background(), items, limit, func(_ context.Context, _ int) (struct{}, error) {
		cur := inFlight.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return struct{}{}, nil
	})

	assert.LessOrEqual(t, peak.Load(), int32(limit))
}

func TestRunOrderedRecordsPerItemFailures(t *testing.T) {
	items := []int{0, 1, 2, 3}
	results := RunOrdered(context.Background(), items, 2, func(_ context.Context, n int) (int, error) {
		if n%2 == 1 {
			return 0, errors.New(errors.ErrCodeInternal, "odd item")
		}
		return n * 10, nil
	})

	assert.NoError(t, results[0].Error)
	assert.Error(t, results[1].Error)
	assert.NoError(t, results[2].Error)
	assert.Error(t, results[3].Error)
	assert.Equal(t, 20, results[2].Result)
}

func TestRunOrderedCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := RunOrdered(ctx, []int{1, 2, 3}, 2, func(_ context.Context, n int) (int, error) {
		return n, nil
	})

	require.Len(t, results, 3)
	for _, r := range results {
		require.NotNil(t, r)
		assert.Error(t, r.Error)
	}
}

func TestCollectResults(t *testing.T) {
	results := RunOrdered(context.Background(), []int{1, 2, 3}, 2, func(_ context.Context, n int) (int, error) {
		return n * n, nil
	})

	vals, err := CollectResults(results)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4, 9}, vals)
}

func TestCollectResultsPropagatesFirstError(t *testing.T) {
	boom := errors.New(errors.ErrCodeInternal, "boom")
	results := RunOrdered(context.Background(), []int{1, 2}, 1, func(_ context.Context, n int) (int, error) {
		if n == 2 {
			return 0, boom
		}
		return n, nil
	})

	_, err := CollectResults(results)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInternal))
}
