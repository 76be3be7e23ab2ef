package fingerprint

import (
	"context"

	nmap "github.com/Ullaakut/nmap/v2"
)

// NmapEngine scans with the nmap binary: the given port window, OS detection
// and the aggressive option set (-O -A).
type NmapEngine struct {
	BinaryPath string
}

// Scan implements Engine.
func (e *NmapEngine) Scan(ctx context.Context, target, ports string) (*nmap.Run, []string, error) {
	opts := []nmap.Option{
		nmap.WithTargets(target),
		nmap.WithPorts(ports),
		nmap.WithOSDetection(),
		nmap.WithAggressiveScan(),
		nmap.WithContext(ctx),
	}
	if e.BinaryPath != "" {
		opts = append(opts, nmap.WithBinaryPath(e.BinaryPath))
	}

	scanner, err := nmap.NewScanner(opts...)
	if err != nil {
		return nil, nil, err
	}
	return scanner.Run()
}
