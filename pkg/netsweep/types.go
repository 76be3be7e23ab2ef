// Package netsweep discovers the devices on the local /24: it resolves the
// host's IPv4 address, pings every neighbour in the subnet, fingerprints the
// hosts that answered with nmap and optionally enriches the result with MAC,
// vendor, hostname (reverse DNS, mDNS, LLMNR) and OS hints.
//
// The probing building blocks live in subpackages (ping, fingerprint, arp,
// oui, rdns, mdns, llmnr, ssdp, osdetect) and can be used on their own.
// Scanner wires them into the two-phase pipeline.
package netsweep

import (
	"github.com/marcuoli/go-netsweep/pkg/netsweep/fingerprint"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/report"
)

// Stage identifies the pipeline step that produced a log message.
type Stage string

const (
	StageResolve     Stage = "resolve"
	StageSweep       Stage = "sweep"
	StageFingerprint Stage = "fingerprint"
	StageARP         Stage = "arp"
	StageVendor      Stage = "vendor"
	StageDNS         Stage = "dns"
	StageMDNS        Stage = "mdns"
	StageLLMNR       Stage = "llmnr"
	StageSSDP        Stage = "ssdp"
	StageOSDetect    Stage = "osdetect"
	StageReport      Stage = "report"
)

// Device is a fingerprinted host.
type Device = fingerprint.Device

// Stats holds the per-phase counters of a run.
type Stats = report.Stats

// Result is the outcome of one Scanner.Run.
type Result struct {
	LocalIP string
	Subnet  string
	Live    []string  // Live addresses in sweep completion order
	Devices []*Device // Devices in fingerprint completion order
	Stats   Stats
}
