package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunExecutesEveryTaskExactlyOnce(t *testing.T) {
	var counter int64
	tasks := make([]ClusterTask, 10)
	for i := range tasks {
		tasks[i] = ClusterTask{
			ClusterID: "c",
			Run: func(ctx context.Context) (interface{}, error) {
				atomic.AddInt64(&counter, 1)
				return "ok", nil
			},
		}
	}

	results := NewBatchRunner(4).Run(context.Background(), tasks)
	require.Len(t, results, 10)
	require.EqualValues(t, 10, counter)
	for _, r := range results {
		require.NoError(t, r.Err)
		require.Equal(t, "ok", r.Output)
	}
}

func TestRunIsolatesFailureToOneCluster(t *testing.T) {
	tasks := []ClusterTask{
		{ClusterID: "good", Run: func(ctx context.Context) (interface{}, error) { return "ok", nil }},
		{ClusterID: "bad", Run: func(ctx context.Context) (interface{}, error) { return nil, errors.New("boom") }},
	}

	results := NewBatchRunner(2).Run(context.Background(), tasks)
	require.Len(t, results, 2)

	byID := map[string]ClusterResult{}
	for _, r := range results {
		byID[r.ClusterID] = r
	}
	require.NoError(t, byID["good"].Err)
	require.Error(t, byID["bad"].Err)
}

func TestRunSkipsUnstartedTasksAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tasks := []ClusterTask{
		{ClusterID: "c1", Run: func(ctx context.Context) (interface{}, error) { return "ok", nil }},
	}
	results := NewBatchRunner(1).Run(ctx, tasks)
	require.Len(t, results, 1)
	if results[0].Skipped {
		require.Error(t, results[0].Err)
	}
}

func TestNewBatchRunnerClampsWorkersToAtLeastOne(t *testing.T) {
	r := NewBatchRunner(0)
	require.Equal(t, 1, r.Workers)
}
