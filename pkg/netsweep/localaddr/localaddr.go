// Package localaddr determines the local IPv4 address the sweep is centred on.
//
// The default strategy asks the kernel which source address it would use to
// reach a public address: a UDP socket is "connected" to RouteProbeAddr, which
// only performs a routing-table lookup. No datagram is sent.
package localaddr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	psnet "github.com/shirou/gopsutil/v3/net"
)

// RouteProbeAddr is the well-known external address used for the route lookup.
const RouteProbeAddr = "8.8.8.8:80"

var (
	// ErrNoLocalAddress is returned when no usable local IPv4 address was found.
	ErrNoLocalAddress = errors.New("could not determine the local IP address")
	// ErrInvalidAddress is returned when a supplied address is not a valid IPv4 address.
	ErrInvalidAddress = errors.New("invalid IPv4 address")
)

// DebugLogger is a callback for debug logging.
// Set this to receive debug messages from address resolution.
var DebugLogger func(format string, args ...interface{})

func debugLog(format string, args ...interface{}) {
	if DebugLogger != nil {
		DebugLogger(format, args...)
	}
}

// Resolve returns the local IPv4 address used to reach RouteProbeAddr.
func Resolve(ctx context.Context) (string, error) {
	return resolveVia(ctx, RouteProbeAddr)
}

func resolveVia(ctx context.Context, target string) (string, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "udp4", target)
	if err != nil {
		debugLog("route lookup via %s failed: %v", target, err)
		return "", fmt.Errorf("%w: %v", ErrNoLocalAddress, err)
	}
	defer conn.Close()

	udpAddr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || udpAddr.IP.To4() == nil || udpAddr.IP.IsUnspecified() {
		return "", fmt.Errorf("%w: unexpected local address %v", ErrNoLocalAddress, conn.LocalAddr())
	}
	ip := udpAddr.IP.To4().String()
	debugLog("route lookup via %s -> %s", target, ip)
	return ip, nil
}

// FromInterface returns the first IPv4 address assigned to the named interface.
func FromInterface(ctx context.Context, name string) (string, error) {
	ifaces, err := psnet.InterfacesWithContext(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: list interfaces: %v", ErrNoLocalAddress, err)
	}
	for _, iface := range ifaces {
		if iface.Name != name {
			continue
		}
		for _, addr := range iface.Addrs {
			if ip := parseInterfaceAddr(addr.Addr); ip != "" {
				debugLog("interface %s -> %s", name, ip)
				return ip, nil
			}
		}
		return "", fmt.Errorf("%w: interface %s has no IPv4 address", ErrNoLocalAddress, name)
	}
	return "", fmt.Errorf("%w: interface %s not found", ErrNoLocalAddress, name)
}

// parseInterfaceAddr accepts "a.b.c.d/nn" or a bare address and returns the
// IPv4 part, or "" for IPv6 and unparsable entries.
func parseInterfaceAddr(s string) string {
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	ip := net.ParseIP(s)
	if ip == nil || ip.To4() == nil {
		return ""
	}
	return ip.To4().String()
}

// Parse validates a user-supplied local address.
func Parse(addr string) (string, error) {
	ip := net.ParseIP(strings.TrimSpace(addr))
	if ip == nil || ip.To4() == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	return ip.To4().String(), nil
}
