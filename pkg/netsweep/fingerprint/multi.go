package fingerprint

import (
	"context"
	"fmt"

	syncutil "github.com/projectdiscovery/utils/sync"
)

// Stats counts detail-fetch outcomes.
type Stats struct {
	Attempted int `json:"attempted" bson:"attempted"`
	Succeeded int `json:"succeeded" bson:"succeeded"`
	Skipped   int `json:"skipped" bson:"skipped"`
}

// BatchResult holds the fingerprinted devices in completion order.
type BatchResult struct {
	Devices []*Device
	Stats   Stats
}

type lookupOutcome struct {
	ip  string
	dev *Device
	err error
}

// LookupMultiple fingerprints every address with at most Workers scans in
// flight. Hosts whose scan fails are skipped. Enqueueing stops when ctx ends
// and the partial batch is returned with the context error.
func (d *Discovery) LookupMultiple(ctx context.Context, ips []string) (*BatchResult, error) {
	out := &BatchResult{Devices: []*Device{}}
	if len(ips) == 0 {
		return out, nil
	}

	workers := d.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	awg, err := syncutil.New(syncutil.WithSize(workers))
	if err != nil {
		return nil, fmt.Errorf("create worker group: %w", err)
	}

	results := make(chan lookupOutcome, len(ips))
	go func() {
		defer close(results)
		for _, ip := range ips {
			if ctx.Err() != nil {
				break
			}
			awg.Add()
			go func(ip string) {
				defer awg.Done()
				dev, err := d.LookupAddr(ctx, ip)
				results <- lookupOutcome{ip: ip, dev: dev, err: err}
			}(ip)
		}
		awg.Wait()
	}()

	for r := range results {
		out.Stats.Attempted++
		if r.err != nil {
			debugLog("skipping %s: %v", r.ip, r.err)
			out.Stats.Skipped++
			continue
		}
		out.Devices = append(out.Devices, r.dev)
		out.Stats.Succeeded++
	}

	if err := ctx.Err(); err != nil {
		return out, fmt.Errorf("fingerprint interrupted after %d/%d hosts: %w", out.Stats.Attempted, len(ips), err)
	}
	return out, nil
}
