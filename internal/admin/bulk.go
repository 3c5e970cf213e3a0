package admin

import (
	"fmt"
	"sync"
	"sync/atomic"
)

const maxBulkWorkers = 16

// BulkResult counts the outcome of a bulk action after every item has settled.
type BulkResult struct {
	Succeeded int
	Failed    int
	Errors    map[string]error
}

func (r BulkResult) String() string {
	return fmt.Sprintf("%d succeeded, %d failed", r.Succeeded, r.Failed)
}

// forEachConcurrently runs fn for every id with up to maxBulkWorkers in flight
// and waits for all of them, whatever their outcome.
func forEachConcurrently(ids []string, fn func(id string) error) BulkResult {
	result := BulkResult{Errors: make(map[string]error)}
	n := len(ids)
	if n == 0 {
		return result
	}
	workers := maxBulkWorkers
	if workers > n {
		workers = n
	}

	var succeeded atomic.Int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		w := w
		go func() {
			defer wg.Done()
			for i := w; i < n; i += workers {
				if err := fn(ids[i]); err != nil {
					mu.Lock()
					result.Errors[ids[i]] = err
					mu.Unlock()
					continue
				}
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	result.Succeeded = int(succeeded.Load())
	result.Failed = n - result.Succeeded
	return result
}
