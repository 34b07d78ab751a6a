package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GoldEater/internal/domain/model"
	"GoldEater/internal/domain/repository"
)

func planFor(cells int, platforms ...string) []model.WorkItem {
	return NewTaskPlanner().Plan(testCells(cells), surryHills, platforms, []string{model.PromptGenericBest}, 1, "run-test")
}

func TestConcurrentExecutor_IsolatesFailures(t *testing.T) {
	failCell := testCells(4)[2].H3Index
	chatgpt := &fakeProvider{
		platform: model.PlatformChatGPT,
		names:    []string{"Bistro X"},
		failOn: func(it model.WorkItem) error {
			if it.Cell.H3Index == failCell {
				return errRateLimited
			}
			return nil
		},
	}
	claude := &fakeProvider{platform: model.PlatformClaude, names: []string{"Cafe Y"}}

	exec := NewConcurrentExecutor([]repository.ScanProvider{chatgpt, claude}, 3, nil)
	items := planFor(4, model.PlatformChatGPT, model.PlatformClaude)
	require.Len(t, items, 8)

	report := exec.Execute(context.Background(), items, nil)

	assert.Equal(t, 8, report.Total())
	assert.Len(t, report.Outcomes, 7)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, failCell, report.Failures[0].Item.Cell.H3Index)
	assert.Equal(t, model.PlatformChatGPT, report.Failures[0].Item.Platform)
	assert.True(t, model.IsTransientError(report.Failures[0].Err))
}

func TestConcurrentExecutor_RespectsWidth(t *testing.T) {
	p := &fakeProvider{platform: model.PlatformGemini, delay: 10 * time.Millisecond}
	exec := NewConcurrentExecutor([]repository.ScanProvider{p}, 3, nil)

	report := exec.Execute(context.Background(), planFor(12, model.PlatformGemini), nil)

	assert.Len(t, report.Outcomes, 12)
	assert.LessOrEqual(t, p.maxSeen.Load(), int32(3))
	assert.Equal(t, int32(12), p.calls.Load())
}

func TestConcurrentExecutor_SerialWidth(t *testing.T) {
	p := &fakeProvider{platform: model.PlatformGemini, delay: time.Millisecond}
	exec := NewConcurrentExecutor([]repository.ScanProvider{p}, 1, nil)

	report := exec.Execute(context.Background(), planFor(5, model.PlatformGemini), nil)

	assert.Len(t, report.Outcomes, 5)
	assert.Equal(t, int32(1), p.maxSeen.Load())
}

func TestConcurrentExecutor_OutcomesInInputOrder(t *testing.T) {
	p := &fakeProvider{platform: model.PlatformChatGPT}
	exec := NewConcurrentExecutor([]repository.ScanProvider{p}, 4, nil)
	items := planFor(10, model.PlatformChatGPT)

	report := exec.Execute(context.Background(), items, nil)

	require.Len(t, report.Outcomes, 10)
	for i, o := range report.Outcomes {
		assert.Equal(t, items[i].Cell.H3Index, o.Job.H3Index)
	}
}

func TestConcurrentExecutor_UnknownPlatformAndPanic(t *testing.T) {
	p := &fakeProvider{
		platform: model.PlatformChatGPT,
		panicOn:  func(it model.WorkItem) bool { return it.Cell.H3Index == testCells(2)[1].H3Index },
	}
	exec := NewConcurrentExecutor([]repository.ScanProvider{p}, 2, nil)
	items := planFor(2, model.PlatformChatGPT, model.PlatformPerplexity)

	report := exec.Execute(context.Background(), items, nil)

	assert.Len(t, report.Outcomes, 1)
	require.Len(t, report.Failures, 3)

	var cfgErrs, panics int
	for _, f := range report.Failures {
		var cfgErr *model.ConfigError
		if errors.As(f.Err, &cfgErr) {
			cfgErrs++
			assert.Equal(t, model.PlatformPerplexity, f.Item.Platform)
			continue
		}
		assert.Contains(t, f.Err.Error(), "provider panic")
		panics++
	}
	assert.Equal(t, 2, cfgErrs)
	assert.Equal(t, 1, panics)
}

func TestConcurrentExecutor_ProgressCalledOncePerItem(t *testing.T) {
	p := &fakeProvider{
		platform: model.PlatformChatGPT,
		failOn: func(it model.WorkItem) error {
			if it.Cell.H3Index == testCells(6)[0].H3Index {
				return errRateLimited
			}
			return nil
		},
	}
	exec := NewConcurrentExecutor([]repository.ScanProvider{p}, 3, nil)
	items := planFor(6, model.PlatformChatGPT)

	var mu sync.Mutex
	seen := map[string]int{}
	failed := 0
	exec.Execute(context.Background(), items, func(item model.WorkItem, err error) {
		mu.Lock()
		defer mu.Unlock()
		seen[item.Key()]++
		if err != nil {
			failed++
		}
	})

	assert.Len(t, seen, 6)
	for key, n := range seen {
		assert.Equal(t, 1, n, key)
	}
	assert.Equal(t, 1, failed)
}

func TestConcurrentExecutor_CancelStopsDispatch(t *testing.T) {
	p := &fakeProvider{platform: model.PlatformChatGPT, delay: 20 * time.Millisecond}
	exec := NewConcurrentExecutor([]repository.ScanProvider{p}, 1, nil)
	items := planFor(10, model.PlatformChatGPT)

	ctx, cancel := context.WithCancel(context.Background())
	var once sync.Once
	report := exec.Execute(ctx, items, func(model.WorkItem, error) {
		once.Do(cancel)
	})

	assert.Equal(t, 10, report.Total())
	assert.Less(t, int(p.calls.Load()), 10)
	assert.NotEmpty(t, report.Failures)
	for _, f := range report.Failures {
		assert.ErrorIs(t, f.Err, context.Canceled)
	}
	// 実行中の呼び出しはキャンセルの影響を受けない
	assert.Zero(t, p.ctxErrs.Load())
}

func TestConcurrentExecutor_AlreadyCancelled(t *testing.T) {
	p := &fakeProvider{platform: model.PlatformChatGPT}
	exec := NewConcurrentExecutor([]repository.ScanProvider{p}, 2, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report := exec.Execute(ctx, planFor(4, model.PlatformChatGPT), nil)

	assert.Empty(t, report.Outcomes)
	assert.Len(t, report.Failures, 4)
	assert.Zero(t, p.calls.Load())
}

func TestConcurrentExecutor_Empty(t *testing.T) {
	exec := NewConcurrentExecutor(nil, 0, nil)

	report := exec.Execute(context.Background(), nil, nil)
	assert.Equal(t, 0, report.Total())
	assert.Equal(t, DefaultPoolWidth, exec.Width())
}
