package scheduler

import (
	"context"
	"sync"
	"time"
)

// Task is a repeating job. It runs once when started and then on every
// tick of Interval until its context is cancelled.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context)
}

// Start launches the task loop. Each run gets its own goroutine so a hung
// fetch only delays that run; the ticker keeps firing. wg tracks the loop
// and every in-flight run.
func (t Task) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		// Run immediately once at start
		t.spawn(ctx, wg)

		ticker := time.NewTicker(t.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.spawn(ctx, wg)
			}
		}
	}()
}

func (t Task) spawn(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		t.Run(ctx)
	}()
}
