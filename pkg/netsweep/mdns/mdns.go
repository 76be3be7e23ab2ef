// Package mdns resolves hostnames of LAN hosts with reverse (PTR) queries over
// multicast DNS. Most Apple devices, Avahi-enabled Linux hosts, printers and
// many IoT devices answer these queries even when they have no DNS entry.
package mdns

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
	// Port is the mDNS port
	Port = 5353
	// MulticastAddr is the mDNS multicast address
	MulticastAddr = "224.0.0.251"
	// DefaultTimeout is the default timeout for mDNS lookups
	DefaultTimeout = 2 * time.Second
	// DefaultWorkers bounds concurrent lookups.
	DefaultWorkers = 50
)

var (
	// ErrInvalidIP is returned for input that is not an IPv4 address.
	ErrInvalidIP = errors.New("invalid IPv4 address")
	// ErrNoResponse is returned when no host answered the query.
	ErrNoResponse = errors.New("no mDNS response")
)

// DebugLogger is a callback for debug logging.
// Set this to receive debug messages from mDNS operations.
var DebugLogger func(format string, args ...interface{})

func debugLog(format string, args ...interface{}) {
	if DebugLogger != nil {
		DebugLogger(format, args...)
	}
}

// Result contains the result of an mDNS lookup.
type Result struct {
	IP       string
	Hostname string
	Error    error
}

// Discovery performs mDNS reverse lookups.
type Discovery struct {
	Timeout time.Duration
	Workers int
	Port    int
}

// NewDiscovery creates a new mDNS discovery helper with defaults.
func NewDiscovery() *Discovery {
	return &Discovery{Timeout: DefaultTimeout, Workers: DefaultWorkers, Port: Port}
}

func (m *Discovery) port() int {
	if m.Port <= 0 {
		return Port
	}
	return m.Port
}

// LookupAddr queries a specific IP for its mDNS hostname.
// It tries multicast first, then a unicast query to the host itself.
func (m *Discovery) LookupAddr(ctx context.Context, ip string) (*Result, error) {
	res := &Result{IP: ip}

	parsedIP := net.ParseIP(ip)
	if parsedIP == nil || parsedIP.To4() == nil {
		res.Error = fmt.Errorf("%w: %q", ErrInvalidIP, ip)
		return res, res.Error
	}

	reverseName, err := dns.ReverseAddr(ip)
	if err != nil {
		res.Error = fmt.Errorf("reverse name for %s: %w", ip, err)
		return res, res.Error
	}
	query, err := buildQuery(reverseName)
	if err != nil {
		res.Error = err
		return res, err
	}

	if hostname := m.queryMulticast(ctx, query, parsedIP); hostname != "" {
		res.Hostname = hostname
		debugLog("%s -> %s (multicast)", ip, hostname)
		return res, nil
	}

	if hostname := m.queryUnicast(ctx, query, parsedIP); hostname != "" {
		res.Hostname = hostname
		debugLog("%s -> %s (unicast)", ip, hostname)
		return res, nil
	}

	res.Error = fmt.Errorf("%w from %s", ErrNoResponse, ip)
	return res, res.Error
}

func buildQuery(name string) ([]byte, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(name, dns.TypePTR)
	msg.RecursionDesired = false
	data, err := msg.Pack()
	if err != nil {
		return nil, fmt.Errorf("pack query: %w", err)
	}
	return data, nil
}

func (m *Discovery) deadline(ctx context.Context, timeout time.Duration) time.Time {
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	return deadline
}

// queryMulticast sends the query to the multicast group and keeps the first
// answer that comes from the target.
func (m *Discovery) queryMulticast(ctx context.Context, query []byte, targetIP net.IP) string {
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return ""
	}
	defer conn.Close()

	// Leave half of the budget for the unicast attempt.
	_ = conn.SetDeadline(m.deadline(ctx, m.timeout()/2))

	mcastAddr := &net.UDPAddr{IP: net.ParseIP(MulticastAddr), Port: m.port()}
	if _, err := conn.WriteTo(query, mcastAddr); err != nil {
		return ""
	}

	buf := make([]byte, 4096)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			return ""
		}
		if udpAddr, ok := from.(*net.UDPAddr); ok && udpAddr.IP.Equal(targetIP) {
			if hostname := parsePTRResponse(buf[:n]); hostname != "" {
				return hostname
			}
		}
	}
}

// queryUnicast sends the query directly to the target host.
func (m *Discovery) queryUnicast(ctx context.Context, query []byte, targetIP net.IP) string {
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return ""
	}
	defer conn.Close()

	_ = conn.SetDeadline(m.deadline(ctx, m.timeout()/2))

	addr := &net.UDPAddr{IP: targetIP, Port: m.port()}
	if _, err := conn.WriteTo(query, addr); err != nil {
		return ""
	}

	buf := make([]byte, 4096)
	n, _, err := conn.ReadFrom(buf)
	if err != nil {
		return ""
	}
	return parsePTRResponse(buf[:n])
}

func (m *Discovery) timeout() time.Duration {
	if m.Timeout <= 0 {
		return DefaultTimeout
	}
	return m.Timeout
}

// parsePTRResponse returns the first PTR target of a response, without the trailing dot.
func parsePTRResponse(data []byte) string {
	msg := new(dns.Msg)
	if err := msg.Unpack(data); err != nil {
		return ""
	}
	for _, rr := range msg.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			return strings.TrimSuffix(ptr.Ptr, ".")
		}
	}
	return ""
}

// LookupMultiple performs mDNS lookups on multiple IPs concurrently.
// Returns results in the same order as the input IPs.
func (m *Discovery) LookupMultiple(ctx context.Context, ips []string) []*Result {
	if len(ips) == 0 {
		return nil
	}

	workers := m.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	results := make([]*Result, len(ips))
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)

	for i, ip := range ips {
		wg.Add(1)
		go func(idx int, ipAddr string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[idx], _ = m.LookupAddr(ctx, ipAddr)
		}(i, ip)
	}

	wg.Wait()
	return results
}

// Names returns the resolved hostname per IP. Hosts that did not answer are absent.
func (m *Discovery) Names(ctx context.Context, ips []string) map[string]string {
	names := make(map[string]string, len(ips))
	for _, r := range m.LookupMultiple(ctx, ips) {
		if r != nil && r.Error == nil && r.Hostname != "" {
			names[r.IP] = r.Hostname
		}
	}
	debugLog("resolved %d/%d mDNS names", len(names), len(ips))
	return names
}
