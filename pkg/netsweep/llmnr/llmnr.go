// Package llmnr resolves hostnames with reverse (PTR) queries over
// Link-Local Multicast Name Resolution. Windows since Vista and Linux hosts
// running systemd-resolved answer these without a DNS server.
package llmnr

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
	// Port is the LLMNR port
	Port = 5355
	// MulticastAddr is the LLMNR multicast address
	MulticastAddr = "224.0.0.252"
	// DefaultTimeout is the default timeout for LLMNR lookups
	DefaultTimeout = 2 * time.Second
	// DefaultWorkers bounds concurrent lookups.
	DefaultWorkers = 50
)

var (
	// ErrInvalidIP is returned for input that is not an IPv4 address.
	ErrInvalidIP = errors.New("invalid IPv4 address")
	// ErrNoResponse is returned when the host did not answer.
	ErrNoResponse = errors.New("no LLMNR response")
)

// DebugLogger is a callback for debug logging.
// Set this to receive debug messages from LLMNR operations.
var DebugLogger func(format string, args ...interface{})

func debugLog(format string, args ...interface{}) {
	if DebugLogger != nil {
		DebugLogger(format, args...)
	}
}

// Result contains the result of an LLMNR lookup.
type Result struct {
	IP       string
	Hostname string
	Error    error
}

// Discovery performs LLMNR-based hostname discovery.
type Discovery struct {
	Timeout time.Duration
	Workers int
	Port    int
}

// NewDiscovery creates a new LLMNR discovery helper with defaults.
func NewDiscovery() *Discovery {
	return &Discovery{Timeout: DefaultTimeout, Workers: DefaultWorkers, Port: Port}
}

func (l *Discovery) port() int {
	if l.Port <= 0 {
		return Port
	}
	return l.Port
}

func (l *Discovery) timeout() time.Duration {
	if l.Timeout <= 0 {
		return DefaultTimeout
	}
	return l.Timeout
}

// LookupAddr performs a reverse LLMNR lookup for the given IP address.
// LLMNR has no native reverse lookup, so a multicast PTR query is tried
// first and then a unicast one sent to the host itself.
func (l *Discovery) LookupAddr(ctx context.Context, ip string) (*Result, error) {
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
	msg := new(dns.Msg)
	msg.SetQuestion(reverseName, dns.TypePTR)
	msg.RecursionDesired = false
	query, err := msg.Pack()
	if err != nil {
		res.Error = fmt.Errorf("pack query: %w", err)
		return res, res.Error
	}

	mcast := &net.UDPAddr{IP: net.ParseIP(MulticastAddr), Port: l.port()}
	if hostname := l.query(ctx, query, mcast, parsedIP); hostname != "" {
		res.Hostname = hostname
		debugLog("%s -> %s (multicast)", ip, hostname)
		return res, nil
	}

	unicast := &net.UDPAddr{IP: parsedIP, Port: l.port()}
	if hostname := l.query(ctx, query, unicast, parsedIP); hostname != "" {
		res.Hostname = hostname
		debugLog("%s -> %s (unicast)", ip, hostname)
		return res, nil
	}

	res.Error = fmt.Errorf("%w from %s", ErrNoResponse, ip)
	debugLog("%s: no response", ip)
	return res, res.Error
}

// query sends one PTR query to dst and returns the first answer coming from
// target. Each attempt gets half of the timeout.
func (l *Discovery) query(ctx context.Context, query []byte, dst *net.UDPAddr, target net.IP) string {
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return ""
	}
	defer conn.Close()

	deadline := time.Now().Add(l.timeout() / 2)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	if _, err := conn.WriteTo(query, dst); err != nil {
		return ""
	}

	buf := make([]byte, 4096)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			return ""
		}
		udpAddr, ok := from.(*net.UDPAddr)
		if !ok || !udpAddr.IP.Equal(target) {
			continue
		}
		if hostname := parsePTRResponse(buf[:n]); hostname != "" {
			return hostname
		}
	}
}

// parsePTRResponse returns the first PTR target of a response, without the
// trailing dot. Queries echoed back by a responder are ignored.
func parsePTRResponse(data []byte) string {
	msg := new(dns.Msg)
	if err := msg.Unpack(data); err != nil {
		return ""
	}
	if !msg.Response {
		return ""
	}
	for _, rr := range msg.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			return strings.TrimSuffix(ptr.Ptr, ".")
		}
	}
	return ""
}

// LookupMultiple performs LLMNR lookups on multiple IPs concurrently.
// Returns results in the same order as the input IPs.
func (l *Discovery) LookupMultiple(ctx context.Context, ips []string) []*Result {
	if len(ips) == 0 {
		return nil
	}

	workers := l.Workers
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

			results[idx], _ = l.LookupAddr(ctx, ipAddr)
		}(i, ip)
	}

	wg.Wait()
	return results
}

// Names returns the resolved hostname per IP. Hosts that did not answer are absent.
func (l *Discovery) Names(ctx context.Context, ips []string) map[string][]string {
	names := make(map[string][]string, len(ips))
	for _, r := range l.LookupMultiple(ctx, ips) {
		if r != nil && r.Error == nil && r.Hostname != "" {
			names[r.IP] = []string{r.Hostname}
		}
	}
	debugLog("resolved %d/%d LLMNR names", len(names), len(ips))
	return names
}
