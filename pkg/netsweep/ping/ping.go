// Package ping classifies addresses as live with a single ICMP echo and sweeps
// candidate lists with a bounded worker pool.
//
// Two probe methods are available:
//   - MethodExec runs the platform ping binary (one packet, short wait) and
//     treats exit status 0 as live. It needs no privileges.
//   - MethodICMP sends the echo itself through golang.org/x/net/icmp, either on
//     an unprivileged datagram socket (Linux ping_group_range, macOS) or on a
//     raw socket when Privileged is set.
package ping

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"time"

	"golang.org/x/net/icmp"
)

// Method selects how a single probe is performed.
type Method string

const (
	MethodExec Method = "exec"
	MethodICMP Method = "icmp"
)

const (
	// DefaultTimeout is how long a probe waits for the echo reply.
	DefaultTimeout = 1 * time.Second
	// DefaultWorkers is the sweep pool size.
	DefaultWorkers = 20
)

var (
	// ErrPingNotFound is returned when the ping executable is not on PATH.
	ErrPingNotFound = errors.New("ping executable not found")
	// ErrUnknownMethod is returned for an unsupported Method value.
	ErrUnknownMethod = errors.New("unknown ping method")
	// ErrNoReply is returned when no matching echo reply arrived in time.
	ErrNoReply = errors.New("no echo reply")
	// ErrInvalidIP is returned when the probe target is not an IPv4 address.
	ErrInvalidIP = errors.New("invalid IPv4 address")
)

// DebugLogger is a callback for debug logging.
// Set this to receive debug messages from probes and sweeps.
var DebugLogger func(format string, args ...interface{})

func debugLog(format string, args ...interface{}) {
	if DebugLogger != nil {
		DebugLogger(format, args...)
	}
}

// Result is the outcome of probing one address.
type Result struct {
	IP    string
	Alive bool
	TTL   int           // Reply TTL, 0 when unknown
	RTT   time.Duration // Round-trip time, 0 when unknown
	Error error
}

// CommandFunc builds the ping command for one address.
type CommandFunc func(ctx context.Context, ip string, timeout time.Duration) *exec.Cmd

// Discovery performs ping probes and sweeps.
type Discovery struct {
	Timeout    time.Duration
	Workers    int
	Method     Method
	Privileged bool        // MethodICMP: use a raw socket
	Command    CommandFunc // MethodExec: overrides the platform ping command
}

// NewDiscovery creates a new ping helper with defaults.
func NewDiscovery() *Discovery {
	return &Discovery{
		Timeout: DefaultTimeout,
		Workers: DefaultWorkers,
		Method:  MethodExec,
	}
}

func (d *Discovery) timeout() time.Duration {
	if d.Timeout <= 0 {
		return DefaultTimeout
	}
	return d.Timeout
}

func (d *Discovery) method() Method {
	if d.Method == "" {
		return MethodExec
	}
	return d.Method
}

// Check verifies that the configured method can run at all on this host.
func (d *Discovery) Check() error {
	switch d.method() {
	case MethodExec:
		if d.Command != nil {
			return nil
		}
		if _, err := exec.LookPath("ping"); err != nil {
			return fmt.Errorf("%w: %v", ErrPingNotFound, err)
		}
		return nil
	case MethodICMP:
		network, _ := icmpNetwork(d.Privileged)
		conn, err := icmp.ListenPacket(network, "0.0.0.0")
		if err != nil {
			return fmt.Errorf("open %s socket: %w", network, err)
		}
		return conn.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMethod, d.Method)
	}
}

// LookupAddr probes a single address. A non-nil error means the address is not live.
func (d *Discovery) LookupAddr(ctx context.Context, ip string) (*Result, error) {
	res := &Result{IP: ip}

	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.To4() == nil {
		res.Error = fmt.Errorf("%w: %q", ErrInvalidIP, ip)
		return res, res.Error
	}

	var err error
	switch d.method() {
	case MethodExec:
		err = d.execProbe(ctx, res)
	case MethodICMP:
		err = d.icmpProbe(ctx, res, parsed.To4())
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownMethod, d.Method)
	}
	if err != nil {
		res.Alive = false
		res.Error = err
		return res, err
	}
	debugLog("%s is alive (ttl=%d rtt=%v)", ip, res.TTL, res.RTT)
	return res, nil
}
