// Package fingerprint collects hostnames, the best OS guess and open TCP ports
// for live hosts by running the nmap engine against them.
package fingerprint

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"time"

	nmap "github.com/Ullaakut/nmap/v2"
)

const (
	// DefaultPorts is the port window handed to the engine.
	DefaultPorts = "22-443"
	// DefaultWorkers is the detail-fetch pool size.
	DefaultWorkers = 10
	// UnknownOS is reported when the engine has no OS match.
	UnknownOS = "Unknown"
)

var (
	// ErrHostNotInResult is returned when the engine output has no entry for the target.
	ErrHostNotInResult = errors.New("host not in scan result")
	// ErrNmapNotFound is returned by Check when the nmap binary cannot be located.
	ErrNmapNotFound = nmap.ErrNmapNotInstalled
)

// DebugLogger is a callback for debug logging.
var DebugLogger func(format string, args ...interface{})

func debugLog(format string, args ...interface{}) {
	if DebugLogger != nil {
		DebugLogger(format, args...)
	}
}

// Device is the per-host record of the report.
type Device struct {
	IP        string   `json:"IP" bson:"ip"`
	Hostnames []string `json:"Hostnames" bson:"hostnames"`
	OS        string   `json:"OS" bson:"os"`
	OpenPorts []int    `json:"Open Ports" bson:"open_ports"`
	MAC       string   `json:"MAC,omitempty" bson:"mac,omitempty"`
	Vendor    string   `json:"Vendor,omitempty" bson:"vendor,omitempty"`
}

// NewDevice returns a device with no detail, OS "Unknown" and empty lists.
func NewDevice(ip string) *Device {
	return &Device{
		IP:        ip,
		Hostnames: []string{},
		OS:        UnknownOS,
		OpenPorts: []int{},
	}
}

// Engine runs one scan against a single target.
type Engine interface {
	Scan(ctx context.Context, target, ports string) (*nmap.Run, []string, error)
}

// Discovery runs the engine against hosts.
type Discovery struct {
	Ports      string
	Workers    int
	Timeout    time.Duration // 0: the engine runs unbounded
	BinaryPath string        // nmap binary override; PATH lookup when empty
	Engine     Engine        // nil: the nmap binary
}

// NewDiscovery creates a new fingerprinter with defaults.
func NewDiscovery() *Discovery {
	return &Discovery{
		Ports:   DefaultPorts,
		Workers: DefaultWorkers,
	}
}

func (d *Discovery) engine() Engine {
	if d.Engine != nil {
		return d.Engine
	}
	return &NmapEngine{BinaryPath: d.BinaryPath}
}

func (d *Discovery) ports() string {
	if d.Ports == "" {
		return DefaultPorts
	}
	return d.Ports
}

// Check verifies that the engine can be started.
func (d *Discovery) Check() error {
	if d.Engine != nil {
		return nil
	}
	bin := d.BinaryPath
	if bin == "" {
		bin = "nmap"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return fmt.Errorf("%w: %v", ErrNmapNotFound, err)
	}
	return nil
}

// LookupAddr fingerprints a single host.
func (d *Discovery) LookupAddr(ctx context.Context, ip string) (*Device, error) {
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	start := time.Now()
	run, warnings, err := d.engine().Scan(ctx, ip, d.ports())
	for _, w := range warnings {
		debugLog("%s: nmap warning: %s", ip, w)
	}
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", ip, err)
	}

	dev, err := FromRun(run, ip)
	if err != nil {
		return nil, err
	}
	debugLog("%s: os=%q ports=%v hostnames=%v (%v)", ip, dev.OS, dev.OpenPorts, dev.Hostnames, time.Since(start))
	return dev, nil
}

// FromRun extracts the device for ip from an engine result.
func FromRun(run *nmap.Run, ip string) (*Device, error) {
	if run == nil {
		return nil, fmt.Errorf("%s: %w", ip, ErrHostNotInResult)
	}
	for i := range run.Hosts {
		if hostHasAddr(&run.Hosts[i], ip) {
			return fromHost(&run.Hosts[i], ip), nil
		}
	}
	return nil, fmt.Errorf("%s: %w", ip, ErrHostNotInResult)
}

func hostHasAddr(h *nmap.Host, ip string) bool {
	for _, a := range h.Addresses {
		if a.AddrType != "mac" && a.Addr == ip {
			return true
		}
	}
	return false
}

func fromHost(h *nmap.Host, ip string) *Device {
	dev := NewDevice(ip)

	for _, hn := range h.Hostnames {
		if hn.Name != "" {
			dev.Hostnames = append(dev.Hostnames, hn.Name)
		}
	}

	if len(h.OS.Matches) > 0 && h.OS.Matches[0].Name != "" {
		dev.OS = h.OS.Matches[0].Name
	}

	for _, p := range h.Ports {
		if p.Protocol == "tcp" && p.State.State == "open" {
			dev.OpenPorts = append(dev.OpenPorts, int(p.ID))
		}
	}
	sort.Ints(dev.OpenPorts)

	for _, a := range h.Addresses {
		if a.AddrType == "mac" {
			dev.MAC = a.Addr
			dev.Vendor = a.Vendor
			break
		}
	}
	return dev
}
