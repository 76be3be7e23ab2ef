package netsweep

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/marcuoli/go-netsweep/pkg/netsweep/fingerprint"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/localaddr"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/network"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/ping"
)

// ErrNoSweeper is returned when a Scanner has no sweeper configured.
var ErrNoSweeper = errors.New("no sweeper configured")

// Sweeper finds the live addresses among candidates.
type Sweeper interface {
	Sweep(ctx context.Context, ips []string) (*ping.SweepResult, error)
}

// Fingerprinter collects device detail for live addresses.
type Fingerprinter interface {
	Check() error
	LookupMultiple(ctx context.Context, ips []string) (*fingerprint.BatchResult, error)
}

// Options selects where the local address comes from and which phases run.
type Options struct {
	// LocalIP overrides address resolution when set.
	LocalIP string
	// Interface resolves the local address from this interface when set.
	Interface string
	// SkipFingerprint reports live hosts without running the engine.
	SkipFingerprint bool
}

// Scanner runs the sweep pipeline.
type Scanner struct {
	Options       Options
	Sweeper       Sweeper
	Fingerprinter Fingerprinter
	Enrichers     []Enricher
}

// NewScanner creates a scanner with the default ping sweeper and nmap fingerprinter.
func NewScanner(opts Options) *Scanner {
	return &Scanner{
		Options:       opts,
		Sweeper:       ping.NewDiscovery(),
		Fingerprinter: fingerprint.NewDiscovery(),
	}
}

// LocalAddress returns the IPv4 address the sweep is centred on.
func (s *Scanner) LocalAddress(ctx context.Context) (string, error) {
	switch {
	case s.Options.LocalIP != "":
		return localaddr.Parse(s.Options.LocalIP)
	case s.Options.Interface != "":
		return localaddr.FromInterface(ctx, s.Options.Interface)
	default:
		return localaddr.Resolve(ctx)
	}
}

// Run resolves the local address, sweeps its /24, fingerprints the live hosts
// and applies the enrichers. Only hosts the sweep reported live appear in the
// result. Errors are returned for resolution failures, a sweep or
// fingerprint phase that cannot run, and cancellation.
func (s *Scanner) Run(ctx context.Context) (*Result, error) {
	if s.Sweeper == nil {
		return nil, ErrNoSweeper
	}

	localIP, err := s.LocalAddress(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve local address: %w", err)
	}
	subnet, err := network.Subnet24(localIP)
	if err != nil {
		return nil, fmt.Errorf("derive subnet: %w", err)
	}
	candidates, err := network.Candidates(localIP)
	if err != nil {
		return nil, fmt.Errorf("enumerate candidates: %w", err)
	}
	if !network.IsPrivateIP(net.ParseIP(localIP)) {
		debugLog(StageResolve, "%s is not a private address; sweeping %s anyway", localIP, subnet)
	}
	debugLog(StageResolve, "local address %s, sweeping %s (%d candidates)", localIP, subnet, len(candidates))

	fingerprinting := !s.Options.SkipFingerprint && s.Fingerprinter != nil
	if fingerprinting {
		if err := s.Fingerprinter.Check(); err != nil {
			return nil, fmt.Errorf("fingerprint engine unavailable: %w", err)
		}
	}

	res := &Result{
		LocalIP: localIP,
		Subnet:  subnet.String(),
		Devices: []*Device{},
	}

	sweep, err := s.Sweeper.Sweep(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("sweep %s: %w", subnet, err)
	}
	res.Live = sweep.Addrs()
	res.Stats.Sweep = sweep.Stats
	debugLog(StageSweep, "%d live, %d skipped", sweep.Stats.Live, sweep.Stats.Skipped)

	live := make(map[string]*ping.Result, len(sweep.Live))
	for _, r := range sweep.Live {
		live[r.IP] = r
	}

	if fingerprinting && len(res.Live) > 0 {
		batch, err := s.Fingerprinter.LookupMultiple(ctx, res.Live)
		if err != nil {
			return nil, fmt.Errorf("fingerprint: %w", err)
		}
		res.Stats.Fingerprint = batch.Stats
		for _, dev := range batch.Devices {
			if dev == nil {
				continue
			}
			if _, ok := live[dev.IP]; !ok {
				debugLog(StageFingerprint, "dropping %s: not in the live set", dev.IP)
				continue
			}
			res.Devices = append(res.Devices, dev)
		}
		debugLog(StageFingerprint, "%d fingerprinted, %d skipped", batch.Stats.Succeeded, batch.Stats.Skipped)
	} else if !fingerprinting {
		for _, ip := range res.Live {
			res.Devices = append(res.Devices, fingerprint.NewDevice(ip))
		}
	}

	for _, e := range s.Enrichers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := e.Enrich(ctx, res.Devices, live); err != nil {
			debugLog(e.Stage(), "enrichment failed: %v", err)
		}
	}

	return res, nil
}
