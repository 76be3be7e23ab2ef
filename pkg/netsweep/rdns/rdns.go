// Package rdns resolves hostnames with reverse (PTR) lookups against the
// configured unicast DNS servers.
package rdns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/miekg/dns"
)

const (
	// DefaultTimeout is the default timeout for DNS lookups.
	DefaultTimeout = 2 * time.Second
	// DefaultWorkers is the default number of concurrent workers.
	DefaultWorkers = 50
	// ResolvConf is read when no servers are configured.
	ResolvConf = "/etc/resolv.conf"
)

var (
	// ErrInvalidIP is returned for input that is not an IPv4 address.
	ErrInvalidIP = errors.New("invalid IPv4 address")
	// ErrNoRecord is returned when no server had a PTR record for the address.
	ErrNoRecord = errors.New("no PTR record")
	// ErrNoServers is returned when no DNS server is configured.
	ErrNoServers = errors.New("no DNS servers configured")
)

// DebugLogger is a callback for debug logging.
// Set this to receive debug messages from DNS operations.
var DebugLogger func(format string, args ...interface{})

func debugLog(format string, args ...interface{}) {
	if DebugLogger != nil {
		DebugLogger(format, args...)
	}
}

// Result contains the result of a reverse DNS lookup.
type Result struct {
	IP       string
	Hostname string   // Primary hostname (first result)
	All      []string // All returned hostnames
	Error    error
}

// Discovery performs reverse DNS lookups.
type Discovery struct {
	Timeout time.Duration
	Workers int
	// Servers are host:port addresses. ResolvConf is used when empty.
	Servers []string
}

// NewDiscovery creates a new DNS discovery helper with defaults.
func NewDiscovery() *Discovery {
	return &Discovery{
		Timeout: DefaultTimeout,
		Workers: DefaultWorkers,
	}
}

func (d *Discovery) timeout() time.Duration {
	if d.Timeout <= 0 {
		return DefaultTimeout
	}
	return d.Timeout
}

func (d *Discovery) servers() ([]string, error) {
	if len(d.Servers) > 0 {
		return d.Servers, nil
	}
	cfg, err := dns.ClientConfigFromFile(ResolvConf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoServers, err)
	}
	servers := make([]string, 0, len(cfg.Servers))
	for _, s := range cfg.Servers {
		servers = append(servers, net.JoinHostPort(s, cfg.Port))
	}
	if len(servers) == 0 {
		return nil, ErrNoServers
	}
	return servers, nil
}

// LookupAddr performs a reverse DNS (PTR) lookup for the given IP address,
// asking each server in turn until one has an answer.
func (d *Discovery) LookupAddr(ctx context.Context, ip string) (*Result, error) {
	res := &Result{IP: ip}

	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.To4() == nil {
		res.Error = fmt.Errorf("%w: %q", ErrInvalidIP, ip)
		return res, res.Error
	}

	servers, err := d.servers()
	if err != nil {
		res.Error = err
		return res, err
	}
	reverseName, err := dns.ReverseAddr(ip)
	if err != nil {
		res.Error = fmt.Errorf("reverse name for %s: %w", ip, err)
		return res, res.Error
	}

	msg := new(dns.Msg)
	msg.SetQuestion(reverseName, dns.TypePTR)
	client := &dns.Client{Net: "udp", Timeout: d.timeout()}

	lastErr := fmt.Errorf("%w for %s", ErrNoRecord, ip)
	for _, server := range servers {
		in, _, err := client.ExchangeContext(ctx, msg, server)
		if err != nil {
			lastErr = fmt.Errorf("query %s: %w", server, err)
			continue
		}
		if in.Rcode != dns.RcodeSuccess {
			lastErr = fmt.Errorf("%w for %s: %s", ErrNoRecord, ip, dns.RcodeToString[in.Rcode])
			continue
		}
		for _, rr := range in.Answer {
			if ptr, ok := rr.(*dns.PTR); ok {
				res.All = append(res.All, strings.TrimSuffix(ptr.Ptr, "."))
			}
		}
		if len(res.All) > 0 {
			res.Hostname = res.All[0]
			debugLog("%s -> %s (%s)", ip, res.Hostname, server)
			return res, nil
		}
	}

	res.Error = lastErr
	debugLog("%s: lookup failed: %v", ip, lastErr)
	return res, lastErr
}

// LookupMultiple performs reverse DNS lookups on multiple IPs concurrently.
func (d *Discovery) LookupMultiple(ctx context.Context, ips []string) []*Result {
	if len(ips) == 0 {
		return nil
	}

	workers := d.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	results := make([]*Result, len(ips))
	jobs := make(chan int, len(ips))
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for idx := range jobs {
			results[idx], _ = d.LookupAddr(ctx, ips[idx])
		}
	}

	for i := 0; i < workers && i < len(ips); i++ {
		wg.Add(1)
		go worker()
	}

	for i := range ips {
		select {
		case jobs <- i:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return results
		}
	}
	close(jobs)
	wg.Wait()

	return results
}

// Names returns every PTR name per IP. Addresses without a record are absent.
func (d *Discovery) Names(ctx context.Context, ips []string) map[string][]string {
	names := make(map[string][]string, len(ips))
	for _, r := range d.LookupMultiple(ctx, ips) {
		if r != nil && r.Error == nil && len(r.All) > 0 {
			names[r.IP] = r.All
		}
	}
	debugLog("resolved %d/%d PTR records", len(names), len(ips))
	return names
}
