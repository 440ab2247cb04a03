package parallel

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
)

func TestParallelize_CoversAllItems(t *testing.T) {
	const items = 1000
	var mu sync.Mutex
	seen := make([]int, items)

	Parallelize(items, func(start, end int) {
		mu.Lock()
		defer mu.Unlock()
		for i := start; i < end; i++ {
			seen[i]++
		}
	})

	for i, count := range seen {
		if count != 1 {
			t.Fatalf("item %d processed %d times, want exactly once", i, count)
		}
	}
}

func TestParallelize_ZeroItems(t *testing.T) {
	called := false
	Parallelize(0, func(start, end int) {
		if start != end {
			called = true
		}
	})
	if called {
		t.Error("callback received a non-empty range for zero items")
	}
}

func TestForEachTask_RunsEveryTask(t *testing.T) {
	const tasks = 50
	var count atomic.Int64

	err := ForEachTask(tasks, func(task int) error {
		count.Add(1)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if count.Load() != tasks {
		t.Errorf("ran %d tasks, want %d", count.Load(), tasks)
	}
}

func TestForEachTask_ReturnsFirstError(t *testing.T) {
	boom := errors.New("task 3 failed")
	err := ForEachTask(10, func(task int) error {
		if task == 3 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Errorf("got %v, want the task error", err)
	}
}
