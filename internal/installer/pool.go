package installer

import (
	"context"
	"log/slog"
	"sync"
)

// Pool runs install requests on a bounded set of workers. Requests are
// independent; shared state (registry, trust, catalog) is synchronized
// by its owners, not by the pool.
type Pool struct {
	installer *Installer
	workers   int
}

// NewPool creates a Pool with the given worker count. Counts below one
// are clamped to one.
func NewPool(installer *Installer, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{installer: installer, workers: workers}
}

// InstallAll runs every request through the pipeline with at most the
// pool's worker count in flight. Outcomes are returned in request order.
func (p *Pool) InstallAll(ctx context.Context, requests []InstallRequest) []*Outcome {
	if len(requests) == 0 {
		return nil
	}

	workers := p.workers
	if workers > len(requests) {
		workers = len(requests)
	}

	slog.Debug("Dispatching install requests", "requests", len(requests), "workers", workers)

	jobs := make(chan int)
	outcomes := make([]*Outcome, len(requests))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				outcomes[idx] = p.installer.Install(ctx, requests[idx])
			}
		}()
	}

	for idx := range requests {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	return outcomes
}
