package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/projectdiscovery/gologger"

	"github.com/marcuoli/go-netsweep/pkg/netsweep"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/arp"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/fingerprint"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/llmnr"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/mdns"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/oui"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/ping"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/rdns"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/report"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/ssdp"
)

// sinkTimeout bounds the time spent persisting one scan record.
const sinkTimeout = 30 * time.Second

// Runner contains the internal logic of the program
type Runner struct {
	options *Options
	scanner *netsweep.Scanner
	stdout  io.Writer
}

// New validates the options and builds the scan pipeline.
func New(options *Options) (*Runner, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	configureDebug(options)

	pinger := ping.NewDiscovery()
	pinger.Method = ping.Method(options.PingMethod)
	pinger.Privileged = options.Privileged
	pinger.Timeout = options.PingTimeout
	pinger.Workers = options.SweepWorkers

	fp := fingerprint.NewDiscovery()
	fp.Ports = options.Ports
	fp.Workers = options.FingerprintWorkers
	fp.Timeout = options.FingerprintTimeout
	fp.BinaryPath = options.NmapPath

	scanner := netsweep.NewScanner(netsweep.Options{
		LocalIP:         options.LocalIP,
		Interface:       options.Interface,
		SkipFingerprint: options.SkipFingerprint,
	})
	scanner.Sweeper = pinger
	scanner.Fingerprinter = fp
	scanner.Enrichers = enrichers(options)

	return &Runner{options: options, scanner: scanner, stdout: os.Stdout}, nil
}

func enrichers(options *Options) []netsweep.Enricher {
	var list []netsweep.Enricher

	if options.MAC || options.OUIDB != "" {
		e := &netsweep.MACEnricher{}
		if options.MAC {
			e.ARP = arp.NewDiscovery()
		}
		if options.OUIDB != "" {
			vendors, err := oui.Open(options.OUIDB)
			if err != nil {
				gologger.Warning().Msgf("Vendor lookup disabled: %s\n", err)
			} else {
				e.Vendors = vendors
			}
		}
		list = append(list, e)
	}
	if options.RDNS {
		list = append(list, &netsweep.DNSEnricher{DNS: rdns.NewDiscovery()})
	}
	if options.MDNS {
		list = append(list, &netsweep.MDNSEnricher{MDNS: mdns.NewDiscovery()})
	}
	if options.LLMNR {
		list = append(list, &netsweep.LLMNREnricher{LLMNR: llmnr.NewDiscovery()})
	}
	if options.SSDP {
		list = append(list, &netsweep.SSDPEnricher{SSDP: ssdp.NewDiscovery()})
	}
	if options.TTLOS {
		list = append(list, &netsweep.TTLEnricher{})
	}
	return list
}

func configureDebug(options *Options) {
	switch {
	case options.Debug:
		netsweep.SetDebugLevel(netsweep.DebugVerbose)
	case options.Verbose:
		netsweep.SetDebugLevel(netsweep.DebugBasic)
	default:
		netsweep.SetDebugLevel(netsweep.DebugOff)
		netsweep.SetDebugLogger(nil)
		return
	}
	netsweep.SetDebugLogger(func(stage netsweep.Stage, format string, args ...interface{}) {
		gologger.Debug().Msgf(netsweep.StageToPrefix(stage)+" "+format, args...)
	})
}

// Run performs one sweep and writes the JSON report to stdout. On failure the
// error object is written instead and the error is returned.
func (r *Runner) Run(ctx context.Context) error {
	start := time.Now()

	res, err := r.scanner.Run(ctx)
	if err != nil {
		if werr := report.WriteError(r.stdout, err.Error()); werr != nil {
			gologger.Error().Msgf("Could not write error report: %s\n", werr)
		}
		return err
	}

	gologger.Info().Msgf("Swept %s from %s: %d live, %d devices in %s\n",
		res.Subnet, res.LocalIP, len(res.Live), len(res.Devices), time.Since(start).Round(time.Millisecond))
	gologger.Verbose().Msgf("Sweep: probed %d, skipped %d; fingerprint: attempted %d, skipped %d\n",
		res.Stats.Sweep.Probed, res.Stats.Sweep.Skipped,
		res.Stats.Fingerprint.Attempted, res.Stats.Fingerprint.Skipped)

	if err := report.WriteDevices(r.stdout, res.Devices); err != nil {
		return err
	}

	r.save(ctx, res)
	return nil
}

// save hands the scan record to every configured sink. Sink failures are
// logged and never change the report or the exit status.
func (r *Runner) save(ctx context.Context, res *netsweep.Result) {
	if r.options.Output == "" && r.options.MongoURI == "" {
		return
	}

	rec := report.NewScanRecord(res.LocalIP, res.Subnet)
	rec.Devices = res.Devices
	rec.Stats = res.Stats

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
	defer cancel()

	for _, sink := range r.sinks(ctx) {
		if err := sink.Save(ctx, rec); err != nil {
			gologger.Warning().Msgf("Could not save scan %s to %s: %s\n", rec.ScanID, sink.Name(), err)
		} else {
			gologger.Verbose().Msgf("Saved scan %s to %s\n", rec.ScanID, sink.Name())
		}
		if err := sink.Close(ctx); err != nil {
			gologger.Debug().Msgf("Closing %s: %s\n", sink.Name(), err)
		}
	}
}

func (r *Runner) sinks(ctx context.Context) []report.Sink {
	var sinks []report.Sink
	if r.options.Output != "" {
		sinks = append(sinks, report.NewFileSink(r.options.Output))
	}
	if r.options.MongoURI != "" {
		mongo, err := report.NewMongoSink(ctx, r.options.MongoURI, r.options.MongoDB, r.options.MongoCollection)
		if err != nil {
			gologger.Warning().Msgf("%s\n", fmt.Errorf("mongodb sink disabled: %w", err))
		} else {
			sinks = append(sinks, mongo)
		}
	}
	return sinks
}
