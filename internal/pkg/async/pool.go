// Package async runs independent tasks concurrently and collects their
// results by name. The dashboard stats endpoint uses it to fan out the
// per-metric analytics queries for one render.
package async

import (
	"context"
	"sync"
)

// Task is one named unit of work.
type Task struct {
	Name    string
	Execute func(ctx context.Context) (any, error)
}

// Result pairs a task's name with its outcome.
type Result struct {
	Data any
	Err  error
}

// Run executes all tasks concurrently and returns a result per task name.
// It returns once every task has finished or ctx is done; tasks cut short by
// cancellation report ctx.Err().
func Run(ctx context.Context, tasks []Task) map[string]Result {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]Result, len(tasks))
	)

	for _, task := range tasks {
		wg.Add(1)
		go func(task Task) {
			defer wg.Done()

			if err := ctx.Err(); err != nil {
				mu.Lock()
				results[task.Name] = Result{Err: err}
				mu.Unlock()
				return
			}

			data, err := task.Execute(ctx)
			mu.Lock()
			results[task.Name] = Result{Data: data, Err: err}
			mu.Unlock()
		}(task)
	}

	wg.Wait()
	return results
}
