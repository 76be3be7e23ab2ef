//go:build linux || darwin || freebsd || netbsd || openbsd

package arp

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/j-keck/arping"
)

// arping keeps its timeout in a package global.
var timeoutMu sync.Mutex

// LookupAddr sends an ARP request and returns the responder's MAC address.
func (a *Discovery) LookupAddr(ctx context.Context, ip string) (*Result, error) {
	result := &Result{IP: ip}

	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		result.Error = ErrInvalidIP
		return result, ErrInvalidIP
	}
	if parsedIP.To4() == nil {
		result.Error = ErrIPv6NotSupported
		return result, ErrIPv6NotSupported
	}

	timeout := a.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	timeoutMu.Lock()
	arping.SetTimeout(timeout)
	timeoutMu.Unlock()

	type arpResponse struct {
		mac net.HardwareAddr
		dur time.Duration
		err error
	}
	responseChan := make(chan arpResponse, 1)

	start := time.Now()
	go func() {
		mac, dur, err := arping.Ping(parsedIP)
		responseChan <- arpResponse{mac: mac, dur: dur, err: err}
	}()

	select {
	case <-ctx.Done():
		result.Duration = time.Since(start)
		result.Error = ctx.Err()
		return result, ctx.Err()
	case resp := <-responseChan:
		result.Duration = resp.dur
		if resp.err != nil {
			result.Error = resp.err
			debugLog("%s: %v", ip, resp.err)
			return result, resp.err
		}
		result.MAC = resp.mac.String()
		debugLog("%s -> %s (%.2fms)", ip, result.MAC, float64(resp.dur.Microseconds())/1000)
		return result, nil
	}
}

// IsSupported returns true if ARP is supported on this platform.
func IsSupported() bool {
	return true
}
