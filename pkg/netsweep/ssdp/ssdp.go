// Package ssdp finds UPnP devices with an SSDP M-SEARCH and derives an OS hint
// from the SERVER header they announce ("Linux/4.9 UPnP/1.0 ...").
// Smart TVs, media players, NAS boxes, printers and routers usually answer.
//
// This implementation uses github.com/koron/go-ssdp for the SSDP exchange.
package ssdp

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	gossdp "github.com/koron/go-ssdp"
)

// DebugLogger is the callback function for debug logging.
// Set this to enable debug output for SSDP operations.
var DebugLogger func(format string, args ...interface{})

func debugLog(format string, args ...interface{}) {
	if DebugLogger != nil {
		DebugLogger(format, args...)
	}
}

const (
	// DefaultTimeout is the default timeout for SSDP discovery
	DefaultTimeout = 3 * time.Second

	// All searches for all devices and services
	All = gossdp.All // "ssdp:all"
	// RootDevice searches for UPnP root devices only
	RootDevice = gossdp.RootDevice // "upnp:rootdevice"
)

// Result is one SSDP response.
type Result struct {
	IP       string
	Location string // URL to device description XML
	Server   string // SERVER header (OS/device info)
	USN      string // Unique Service Name
	ST       string // Search Target (device type)
	MaxAge   int
}

// Discovery performs SSDP-based device discovery.
type Discovery struct {
	Timeout time.Duration
	// search is swapped out in tests.
	search func(searchType string, waitSec int) ([]gossdp.Service, error)
}

// NewDiscovery creates a new SSDP discovery helper with defaults.
func NewDiscovery() *Discovery {
	return &Discovery{Timeout: DefaultTimeout}
}

func defaultSearch(searchType string, waitSec int) ([]gossdp.Service, error) {
	return gossdp.Search(searchType, waitSec, "")
}

// Discover performs an SSDP M-SEARCH for searchTarget (All when empty).
func (s *Discovery) Discover(ctx context.Context, searchTarget string) ([]*Result, error) {
	if searchTarget == "" {
		searchTarget = All
	}

	waitSec := int(s.Timeout.Seconds())
	if waitSec < 1 {
		waitSec = 1
	}
	search := s.search
	if search == nil {
		search = defaultSearch
	}
	debugLog("SSDP search target=%s wait=%ds", searchTarget, waitSec)

	type searchResult struct {
		services []gossdp.Service
		err      error
	}
	done := make(chan searchResult, 1)
	go func() {
		services, err := search(searchTarget, waitSec)
		done <- searchResult{services: services, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("SSDP search: %w", r.err)
		}
		results := convertServices(r.services)
		debugLog("SSDP search found %d responses", len(results))
		return results, nil
	}
}

// ServerHeaders runs one search and returns the first non-empty SERVER
// header seen per responding IP.
func (s *Discovery) ServerHeaders(ctx context.Context) (map[string]string, error) {
	results, err := s.Discover(ctx, RootDevice)
	if err != nil {
		return nil, err
	}
	servers := make(map[string]string)
	for _, r := range results {
		if r.IP == "" || r.Server == "" {
			continue
		}
		if _, ok := servers[r.IP]; !ok {
			servers[r.IP] = r.Server
		}
	}
	return servers, nil
}

// OSFromServer extracts the operating system from a UPnP SERVER header.
// UPnP mandates "OS/version UPnP/x.y product/version"; vendors often bend it,
// so the first product token that is not UPnP and not obviously a product is
// used. Returns "" when nothing useful is found.
func OSFromServer(server string) string {
	server = strings.TrimSpace(server)
	if server == "" {
		return ""
	}

	// Some stacks separate tokens with commas.
	fields := strings.FieldsFunc(server, func(r rune) bool { return r == ' ' || r == ',' })
	if len(fields) == 0 {
		return ""
	}
	token := fields[0]
	if strings.HasPrefix(strings.ToUpper(token), "UPNP/") {
		return ""
	}

	name, version, _ := strings.Cut(token, "/")
	switch strings.ToLower(name) {
	case "microsoft-windows", "microsoft-windows-nt", "windows", "windows_nt":
		name = "Windows"
	case "linux":
		name = "Linux"
	case "darwin", "macos", "mac os x":
		name = "macOS"
	case "freebsd":
		name = "FreeBSD"
	case "":
		return ""
	}
	if version == "" {
		return name
	}
	return name + " " + version
}

func convertServices(services []gossdp.Service) []*Result {
	results := make([]*Result, 0, len(services))
	for _, svc := range services {
		results = append(results, &Result{
			IP:       extractIPFromURL(svc.Location),
			Location: svc.Location,
			Server:   svc.Server,
			USN:      svc.USN,
			ST:       svc.Type,
			MaxAge:   svc.MaxAge(),
		})
	}
	return results
}

// extractIPFromURL extracts the IP address from a URL like "http://192.168.1.1:8080/desc.xml"
func extractIPFromURL(url string) string {
	url = strings.TrimPrefix(url, "http://")
	url = strings.TrimPrefix(url, "https://")

	if idx := strings.Index(url, "/"); idx > 0 {
		url = url[:idx]
	}

	host, _, err := net.SplitHostPort(url)
	if err != nil {
		host = url
	}

	if ip := net.ParseIP(host); ip != nil {
		return host
	}
	return ""
}
