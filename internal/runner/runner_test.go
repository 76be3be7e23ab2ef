package runner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/marcuoli/go-netsweep/pkg/netsweep"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/fingerprint"
	"github.com/marcuoli/go-netsweep/pkg/netsweep/ping"
)

type stubSweeper struct {
	live []string
	err  error
}

func (s *stubSweeper) Sweep(_ context.Context, ips []string) (*ping.SweepResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	res := &ping.SweepResult{Live: []*ping.Result{}}
	for _, ip := range s.live {
		res.Live = append(res.Live, &ping.Result{IP: ip, Alive: true, TTL: 64})
	}
	res.Stats = ping.Stats{Probed: len(ips), Live: len(s.live), Skipped: len(ips) - len(s.live)}
	return res, nil
}

type stubFingerprinter struct{}

func (stubFingerprinter) Check() error { return nil }

func (stubFingerprinter) LookupMultiple(_ context.Context, ips []string) (*fingerprint.BatchResult, error) {
	out := &fingerprint.BatchResult{Devices: []*fingerprint.Device{}}
	for _, ip := range ips {
		dev := fingerprint.NewDevice(ip)
		dev.OS = "Linux 5.X"
		dev.OpenPorts = []int{22, 80}
		out.Devices = append(out.Devices, dev)
		out.Stats.Attempted++
		out.Stats.Succeeded++
	}
	return out, nil
}

func newTestRunner(t *testing.T, options *Options, sw netsweep.Sweeper) (*Runner, *bytes.Buffer) {
	t.Helper()
	r, err := New(options)
	require.NoError(t, err)
	r.scanner.Sweeper = sw
	r.scanner.Fingerprinter = stubFingerprinter{}
	buf := &bytes.Buffer{}
	r.stdout = buf
	return r, buf
}

func TestValidate(t *testing.T) {
	require.NoError(t, DefaultOptions().Validate())

	bad := DefaultOptions()
	bad.PingMethod = "udp"
	require.ErrorContains(t, bad.Validate(), "invalid ping method")

	bad = DefaultOptions()
	bad.Privileged = true
	require.ErrorContains(t, bad.Validate(), "-privileged")

	bad = DefaultOptions()
	bad.LocalIP = "10.0.0.5"
	bad.Interface = "eth0"
	require.ErrorContains(t, bad.Validate(), "mutually exclusive")

	bad = DefaultOptions()
	bad.SweepWorkers = 0
	bad.FingerprintTimeout = -time.Second
	bad.Ports = " "
	err := bad.Validate()
	require.ErrorContains(t, err, "sweep workers")
	require.ErrorContains(t, err, "fingerprint timeout")
	require.ErrorContains(t, err, "port window")
}

func TestNew_RejectsInvalidOptions(t *testing.T) {
	options := DefaultOptions()
	options.FingerprintWorkers = -1
	_, err := New(options)
	require.Error(t, err)
}

func TestNew_Enrichers(t *testing.T) {
	options := DefaultOptions()
	options.MAC = true
	options.RDNS = true
	options.MDNS = true
	options.LLMNR = true
	options.SSDP = true
	options.TTLOS = true
	r, err := New(options)
	require.NoError(t, err)

	var stages []netsweep.Stage
	for _, e := range r.scanner.Enrichers {
		stages = append(stages, e.Stage())
	}
	require.Equal(t, []netsweep.Stage{
		netsweep.StageARP,
		netsweep.StageDNS,
		netsweep.StageMDNS,
		netsweep.StageLLMNR,
		netsweep.StageSSDP,
		netsweep.StageOSDetect,
	}, stages)

	r, err = New(DefaultOptions())
	require.NoError(t, err)
	require.Empty(t, r.scanner.Enrichers)
}

func TestRun_WritesDevices(t *testing.T) {
	options := DefaultOptions()
	options.LocalIP = "192.168.1.10"
	r, out := newTestRunner(t, options, &stubSweeper{live: []string{"192.168.1.1", "192.168.1.20"}})

	require.NoError(t, r.Run(context.Background()))

	doc := gjson.Parse(out.String())
	require.True(t, doc.IsArray())
	require.Len(t, doc.Array(), 2)
	first := doc.Array()[0]
	require.Equal(t, "Linux 5.X", first.Get("OS").String())
	require.Equal(t, int64(80), first.Get("Open Ports").Array()[1].Int())
	require.True(t, first.Get("Hostnames").IsArray())
	require.False(t, first.Get("MAC").Exists())
}

func TestRun_NoLiveHostsWritesEmptyArray(t *testing.T) {
	options := DefaultOptions()
	options.LocalIP = "192.168.1.10"
	r, out := newTestRunner(t, options, &stubSweeper{})

	require.NoError(t, r.Run(context.Background()))
	require.JSONEq(t, "[]", out.String())
}

func TestRun_ErrorObject(t *testing.T) {
	options := DefaultOptions()
	options.LocalIP = "not-an-ip"
	sw := &stubSweeper{}
	r, out := newTestRunner(t, options, sw)

	err := r.Run(context.Background())
	require.Error(t, err)

	doc := gjson.Parse(out.String())
	require.True(t, doc.IsObject())
	require.Contains(t, doc.Get("error").String(), "invalid IPv4 address")
}

func TestRun_SweepFailure(t *testing.T) {
	options := DefaultOptions()
	options.LocalIP = "10.0.0.5"
	r, out := newTestRunner(t, options, &stubSweeper{err: ping.ErrPingNotFound})

	require.ErrorIs(t, r.Run(context.Background()), ping.ErrPingNotFound)
	require.True(t, gjson.Get(out.String(), "error").Exists())
}

func TestRun_SavesHistory(t *testing.T) {
	options := DefaultOptions()
	options.LocalIP = "10.0.0.5"
	options.Output = filepath.Join(t.TempDir(), "history.json")
	r, _ := newTestRunner(t, options, &stubSweeper{live: []string{"10.0.0.1"}})

	require.NoError(t, r.Run(context.Background()))
	require.NoError(t, r.Run(context.Background()))

	data, err := os.ReadFile(options.Output)
	require.NoError(t, err)
	history := gjson.ParseBytes(data)
	require.Len(t, history.Array(), 2)
	require.Equal(t, "10.0.0.0/24", history.Get("0.subnet").String())
	require.Equal(t, "10.0.0.1", history.Get("0.devices.0.IP").String())
	require.Equal(t, int64(255), history.Get("0.stats.sweep.probed").Int())
	require.NotEqual(t, history.Get("0.scan_id").String(), history.Get("1.scan_id").String())
}

func TestRun_SinkFailureKeepsReport(t *testing.T) {
	dir := t.TempDir()
	options := DefaultOptions()
	options.LocalIP = "10.0.0.5"
	options.Output = filepath.Join(dir, "history.json")
	require.NoError(t, os.WriteFile(options.Output, []byte("{not json"), 0o644))
	r, out := newTestRunner(t, options, &stubSweeper{live: []string{"10.0.0.1"}})

	require.NoError(t, r.Run(context.Background()))
	require.Len(t, gjson.Parse(out.String()).Array(), 1)
}
