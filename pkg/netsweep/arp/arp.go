// Package arp resolves MAC addresses of hosts on the local segment.
// ARP requests need a raw socket, so lookups usually require elevated
// privileges. Platform support: Linux and BSD only.
package arp

import (
	"context"
	"errors"
	"sync"
	"time"
)

const (
	// DefaultTimeout is the default timeout for ARP lookups.
	DefaultTimeout = 1 * time.Second
	// DefaultWorkers bounds concurrent lookups; the kernel rate-limits ARP.
	DefaultWorkers = 32
)

var (
	// ErrNotSupported is returned when ARP is called on unsupported platforms.
	ErrNotSupported = errors.New("ARP lookup is not supported on this platform")
	// ErrInvalidIP is returned when an invalid IP address is provided.
	ErrInvalidIP = errors.New("invalid IP address")
	// ErrIPv6NotSupported is returned when attempting ARP on an IPv6 address.
	ErrIPv6NotSupported = errors.New("ARP is not supported for IPv6 addresses")
)

// DebugLogger is a callback for debug logging.
// Set this to receive debug messages from ARP operations.
var DebugLogger func(format string, args ...interface{})

func debugLog(format string, args ...interface{}) {
	if DebugLogger != nil {
		DebugLogger(format, args...)
	}
}

// Result contains the result of an ARP lookup.
type Result struct {
	IP       string
	MAC      string
	Duration time.Duration
	Error    error
}

// Discovery performs ARP lookups.
type Discovery struct {
	Timeout time.Duration
	Workers int
}

// NewDiscovery creates a new ARP helper with defaults.
func NewDiscovery() *Discovery {
	return &Discovery{Timeout: DefaultTimeout, Workers: DefaultWorkers}
}

// LookupMultiple performs ARP lookups on multiple IPs concurrently.
// Returns results in the same order as the input IPs.
func (a *Discovery) LookupMultiple(ctx context.Context, ips []string) []*Result {
	results := make([]*Result, len(ips))
	var wg sync.WaitGroup

	workers := a.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	sem := make(chan struct{}, workers)

	for i, ip := range ips {
		wg.Add(1)
		go func(idx int, ipAddr string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			result, _ := a.LookupAddr(ctx, ipAddr)
			results[idx] = result
		}(i, ip)
	}

	wg.Wait()
	return results
}

// MACs returns the resolved MAC address per IP. Hosts that did not answer are absent.
func (a *Discovery) MACs(ctx context.Context, ips []string) map[string]string {
	macs := make(map[string]string, len(ips))
	for _, r := range a.LookupMultiple(ctx, ips) {
		if r != nil && r.Error == nil && r.MAC != "" {
			macs[r.IP] = r.MAC
		}
	}
	debugLog("resolved %d/%d MAC addresses", len(macs), len(ips))
	return macs
}
