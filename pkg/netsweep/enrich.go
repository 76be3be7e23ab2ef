package netsweep

import (
	"context"
	"errors"

	sliceutil "github.com/projectdiscovery/utils/slice"

	"github.com/marcuoli/go-netsweep/pkg/netsweep/arp"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/fingerprint"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/llmnr"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/mdns"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/osdetect"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/oui"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/ping"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/rdns"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/ssdp"
)

// Enricher fills in device fields the fingerprint phase left empty.
// Enrichment is best effort: an error is logged and the run continues.
type Enricher interface {
	Stage() Stage
	Enrich(ctx context.Context, devices []*Device, live map[string]*ping.Result) error
}

func unknownOS(d *Device) bool {
	return d.OS == "" || d.OS == fingerprint.UnknownOS
}

func deviceIPs(devices []*Device) []string {
	ips := make([]string, 0, len(devices))
	for _, d := range devices {
		ips = append(ips, d.IP)
	}
	return ips
}

// addHostnames appends the names d does not already carry and returns how
// many were added.
func addHostnames(d *Device, names ...string) int {
	added := 0
	for _, name := range names {
		if name == "" || sliceutil.Contains(d.Hostnames, name) {
			continue
		}
		d.Hostnames = append(d.Hostnames, name)
		added++
	}
	return added
}

// MACEnricher resolves missing MAC addresses over ARP and missing vendors
// from an OUI database. Either part is skipped when its helper is nil.
type MACEnricher struct {
	ARP     *arp.Discovery
	Vendors *oui.Resolver
}

// Stage implements Enricher.
func (e *MACEnricher) Stage() Stage { return StageARP }

// Enrich implements Enricher.
func (e *MACEnricher) Enrich(ctx context.Context, devices []*Device, _ map[string]*ping.Result) error {
	var err error
	if e.ARP != nil {
		if !arp.IsSupported() {
			err = arp.ErrNotSupported
		} else {
			var missing []string
			for _, d := range devices {
				if d.MAC == "" {
					missing = append(missing, d.IP)
				}
			}
			if len(missing) > 0 {
				macs := e.ARP.MACs(ctx, missing)
				for _, d := range devices {
					if mac, ok := macs[d.IP]; ok && d.MAC == "" {
						d.MAC = mac
					}
				}
				debugLog(StageARP, "resolved %d/%d missing MAC addresses", len(macs), len(missing))
			}
		}
	}

	if e.Vendors != nil {
		for _, d := range devices {
			if d.MAC != "" && d.Vendor == "" {
				d.Vendor = e.Vendors.LookupName(d.MAC)
			}
		}
	}
	return err
}

// DNSEnricher adds hostnames from reverse DNS.
type DNSEnricher struct {
	DNS *rdns.Discovery
}

// Stage implements Enricher.
func (e *DNSEnricher) Stage() Stage { return StageDNS }

// Enrich implements Enricher.
func (e *DNSEnricher) Enrich(ctx context.Context, devices []*Device, _ map[string]*ping.Result) error {
	if e.DNS == nil || len(devices) == 0 {
		return nil
	}
	names := e.DNS.Names(ctx, deviceIPs(devices))
	added := 0
	for _, d := range devices {
		added += addHostnames(d, names[d.IP]...)
	}
	debugLog(StageDNS, "%d hosts have PTR records, %d names added", len(names), added)
	return nil
}

// MDNSEnricher adds hostnames answered over multicast DNS.
type MDNSEnricher struct {
	MDNS *mdns.Discovery
}

// Stage implements Enricher.
func (e *MDNSEnricher) Stage() Stage { return StageMDNS }

// Enrich implements Enricher.
func (e *MDNSEnricher) Enrich(ctx context.Context, devices []*Device, _ map[string]*ping.Result) error {
	if e.MDNS == nil || len(devices) == 0 {
		return nil
	}
	names := e.MDNS.Names(ctx, deviceIPs(devices))
	added := 0
	for _, d := range devices {
		added += addHostnames(d, names[d.IP])
	}
	debugLog(StageMDNS, "%d hosts answered mDNS, %d names added", len(names), added)
	return nil
}

// LLMNREnricher adds hostnames answered over LLMNR.
type LLMNREnricher struct {
	LLMNR *llmnr.Discovery
}

// Stage implements Enricher.
func (e *LLMNREnricher) Stage() Stage { return StageLLMNR }

// Enrich implements Enricher.
func (e *LLMNREnricher) Enrich(ctx context.Context, devices []*Device, _ map[string]*ping.Result) error {
	if e.LLMNR == nil || len(devices) == 0 {
		return nil
	}
	names := e.LLMNR.Names(ctx, deviceIPs(devices))
	added := 0
	for _, d := range devices {
		added += addHostnames(d, names[d.IP]...)
	}
	debugLog(StageLLMNR, "%d hosts answered LLMNR, %d names added", len(names), added)
	return nil
}

// SSDPEnricher fills unknown OS values from UPnP SERVER headers.
type SSDPEnricher struct {
	SSDP *ssdp.Discovery
}

// Stage implements Enricher.
func (e *SSDPEnricher) Stage() Stage { return StageSSDP }

// Enrich implements Enricher.
func (e *SSDPEnricher) Enrich(ctx context.Context, devices []*Device, _ map[string]*ping.Result) error {
	if e.SSDP == nil {
		return nil
	}
	pending := false
	for _, d := range devices {
		if unknownOS(d) {
			pending = true
			break
		}
	}
	if !pending {
		return nil
	}

	servers, err := e.SSDP.ServerHeaders(ctx)
	if err != nil {
		return err
	}
	for _, d := range devices {
		if !unknownOS(d) {
			continue
		}
		if os := ssdp.OSFromServer(servers[d.IP]); os != "" {
			d.OS = os
			debugLog(StageSSDP, "%s: os %q from SERVER header", d.IP, os)
		}
	}
	return nil
}

// TTLEnricher fills unknown OS values from the echo reply TTL.
type TTLEnricher struct{}

// Stage implements Enricher.
func (e *TTLEnricher) Stage() Stage { return StageOSDetect }

// Enrich implements Enricher.
func (e *TTLEnricher) Enrich(_ context.Context, devices []*Device, live map[string]*ping.Result) error {
	if live == nil {
		return errors.New("no probe results")
	}
	for _, d := range devices {
		if !unknownOS(d) {
			continue
		}
		r, ok := live[d.IP]
		if !ok || r.TTL == 0 {
			continue
		}
		if hint := osdetect.AnalyzeTTL(r.TTL); hint.OS != "" {
			d.OS = hint.OS
		}
	}
	return nil
}
