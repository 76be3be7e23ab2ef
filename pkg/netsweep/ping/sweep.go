package ping

import (
	"context"
	"fmt"
	"sync"
)

// Stats counts sweep outcomes.
type Stats struct {
	Probed  int `json:"probed" bson:"probed"`
	Live    int `json:"live" bson:"live"`
	Skipped int `json:"skipped" bson:"skipped"`
}

// SweepResult holds the live addresses in completion order.
type SweepResult struct {
	Live  []*Result
	Stats Stats
}

// Addrs returns the live addresses in completion order.
func (s *SweepResult) Addrs() []string {
	addrs := make([]string, 0, len(s.Live))
	for _, r := range s.Live {
		addrs = append(addrs, r.IP)
	}
	return addrs
}

// Sweep probes every address on a pool of Workers goroutines and returns the
// live ones in the order their probes completed. Per-address failures are
// counted as skipped; an error is returned only when the method cannot run at
// all or ctx ends before every probe has been collected.
func (d *Discovery) Sweep(ctx context.Context, ips []string) (*SweepResult, error) {
	if err := d.Check(); err != nil {
		return nil, err
	}

	out := &SweepResult{Live: []*Result{}}
	if len(ips) == 0 {
		return out, nil
	}

	workers := d.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	debugLog("sweeping %d addresses with %d workers (%s)", len(ips), workers, d.method())

	jobs := make(chan string, len(ips))
	results := make(chan *Result, len(ips))
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for ip := range jobs {
			res, _ := d.LookupAddr(ctx, ip)
			results <- res
		}
	}

	for i := 0; i < workers && i < len(ips); i++ {
		wg.Add(1)
		go worker()
	}

	go func() {
		defer close(jobs)
		for _, ip := range ips {
			select {
			case <-ctx.Done():
				return
			case jobs <- ip:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		out.Stats.Probed++
		if res.Alive {
			out.Live = append(out.Live, res)
			out.Stats.Live++
			continue
		}
		out.Stats.Skipped++
	}

	if err := ctx.Err(); err != nil {
		return out, fmt.Errorf("sweep interrupted after %d/%d probes: %w", out.Stats.Probed, len(ips), err)
	}
	debugLog("sweep complete: %d/%d live", out.Stats.Live, out.Stats.Probed)
	return out, nil
}
