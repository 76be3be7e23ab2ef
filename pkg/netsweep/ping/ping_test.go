package ping

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakePing answers for the listed addresses and fails for everything else.
func fakePing(t *testing.T, live ...string) CommandFunc {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stand-in ping needs a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	set := make(map[string]bool, len(live))
	for _, ip := range live {
		set[ip] = true
	}
	return func(ctx context.Context, ip string, _ time.Duration) *exec.Cmd {
		if set[ip] {
			return exec.CommandContext(ctx, "sh", "-c",
				`echo "64 bytes from $1: icmp_seq=1 ttl=63 time=0.42 ms"`, "sh", ip)
		}
		return exec.CommandContext(ctx, "sh", "-c", "exit 1")
	}
}

func TestNewDiscovery(t *testing.T) {
	d := NewDiscovery()
	require.NotNil(t, d)
	require.Equal(t, DefaultTimeout, d.Timeout)
	require.Equal(t, DefaultWorkers, d.Workers)
	require.Equal(t, MethodExec, d.Method)
	require.False(t, d.Privileged)
}

func TestParseReply(t *testing.T) {
	tests := []struct {
		name string
		out  string
		ttl  int
		rtt  time.Duration
	}{
		{"linux", "64 bytes from 192.168.1.1: icmp_seq=1 ttl=64 time=0.512 ms", 64, 512 * time.Microsecond},
		{"windows", "Reply from 192.168.1.1: bytes=32 time<1ms TTL=128", 128, time.Millisecond},
		{"windows-slow", "Reply from 10.0.0.1: bytes=32 time=14ms TTL=255", 255, 14 * time.Millisecond},
		{"no reply", "Request timeout for icmp_seq 0", 0, 0},
		{"empty", "", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ttl, rtt := parseReply([]byte(tt.out))
			require.Equal(t, tt.ttl, ttl)
			require.Equal(t, tt.rtt, rtt)
		})
	}
}

func TestPlatformCommand_SinglePacket(t *testing.T) {
	cmd := platformCommand(context.Background(), "192.168.1.7", time.Second)
	args := cmd.Args[1:]
	switch runtime.GOOS {
	case "windows":
		require.Equal(t, []string{"-n", "1", "-w", "1000", "192.168.1.7"}, args)
	case "darwin", "freebsd":
		require.Equal(t, []string{"-c", "1", "-W", "1000", "192.168.1.7"}, args)
	default:
		require.Equal(t, []string{"-c", "1", "-W", "1", "192.168.1.7"}, args)
	}
}

func TestPingArgs(t *testing.T) {
	tests := []struct {
		goos    string
		timeout time.Duration
		want    []string
	}{
		{"linux", time.Second, []string{"-c", "1", "-W", "1", "10.0.0.1"}},
		{"linux", 200 * time.Millisecond, []string{"-c", "1", "-W", "1", "10.0.0.1"}},
		{"linux", 2500 * time.Millisecond, []string{"-c", "1", "-W", "3", "10.0.0.1"}},
		{"openbsd", time.Second, []string{"-c", "1", "-W", "1", "10.0.0.1"}},
		{"darwin", time.Second, []string{"-c", "1", "-W", "1000", "10.0.0.1"}},
		{"freebsd", time.Second, []string{"-c", "1", "-W", "1000", "10.0.0.1"}},
		{"freebsd", 250 * time.Millisecond, []string{"-c", "1", "-W", "250", "10.0.0.1"}},
		{"windows", time.Second, []string{"-n", "1", "-w", "1000", "10.0.0.1"}},
	}
	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.timeout.String(), func(t *testing.T) {
			require.Equal(t, tt.want, pingArgs(tt.goos, "10.0.0.1", tt.timeout))
		})
	}
}

func TestLookupAddr_Live(t *testing.T) {
	d := NewDiscovery()
	d.Command = fakePing(t, "10.0.0.5")

	res, err := d.LookupAddr(context.Background(), "10.0.0.5")
	require.NoError(t, err)
	require.True(t, res.Alive)
	require.Equal(t, 63, res.TTL)
	require.Equal(t, 420*time.Microsecond, res.RTT)
	require.NoError(t, res.Error)
}

func TestLookupAddr_NonZeroExitIsNotLive(t *testing.T) {
	d := NewDiscovery()
	d.Command = fakePing(t)

	res, err := d.LookupAddr(context.Background(), "10.0.0.6")
	require.Error(t, err)
	require.False(t, res.Alive)
	require.Equal(t, err, res.Error)
	require.Equal(t, "10.0.0.6", res.IP)
}

func TestLookupAddr_InvalidIP(t *testing.T) {
	d := NewDiscovery()
	for _, ip := range []string{"", "invalid-ip", "-c", "2001:db8::1"} {
		res, err := d.LookupAddr(context.Background(), ip)
		require.ErrorIs(t, err, ErrInvalidIP, ip)
		require.False(t, res.Alive)
		require.Equal(t, ip, res.IP)
	}
}

func TestLookupAddr_UnknownMethod(t *testing.T) {
	d := NewDiscovery()
	d.Method = "carrier-pigeon"
	_, err := d.LookupAddr(context.Background(), "10.0.0.1")
	require.ErrorIs(t, err, ErrUnknownMethod)
	require.ErrorIs(t, d.Check(), ErrUnknownMethod)
}

func TestLookupAddr_HangingCommandIsBounded(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stand-in ping needs a POSIX shell")
	}
	d := NewDiscovery()
	d.Timeout = 50 * time.Millisecond
	d.Command = func(ctx context.Context, _ string, _ time.Duration) *exec.Cmd {
		return exec.CommandContext(ctx, "sleep", "30")
	}

	start := time.Now()
	res, err := d.LookupAddr(context.Background(), "10.0.0.9")
	require.Error(t, err)
	require.False(t, res.Alive)
	require.Less(t, time.Since(start), 10*time.Second)
}

func TestCheck_CommandOverrideSkipsLookPath(t *testing.T) {
	d := NewDiscovery()
	d.Command = func(ctx context.Context, _ string, _ time.Duration) *exec.Cmd {
		return exec.CommandContext(ctx, "true")
	}
	require.NoError(t, d.Check())
}

func TestCheck_PingMissing(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	d := NewDiscovery()
	err := d.Check()
	require.ErrorIs(t, err, ErrPingNotFound)

	_, err = d.Sweep(context.Background(), []string{"10.0.0.1"})
	require.ErrorIs(t, err, ErrPingNotFound)
}

func TestSweep_CollectsOnlyLive(t *testing.T) {
	d := NewDiscovery()
	d.Workers = 4
	d.Command = fakePing(t, "10.0.0.2", "10.0.0.7", "10.0.0.9")

	ips := []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4", "10.0.0.5",
		"10.0.0.6", "10.0.0.7", "10.0.0.8", "10.0.0.9", "10.0.0.10"}

	res, err := d.Sweep(context.Background(), ips)
	require.NoError(t, err)

	addrs := res.Addrs()
	sort.Strings(addrs)
	require.Equal(t, []string{"10.0.0.2", "10.0.0.7", "10.0.0.9"}, addrs)
	require.Equal(t, Stats{Probed: 10, Live: 3, Skipped: 7}, res.Stats)
	for _, r := range res.Live {
		require.True(t, r.Alive)
	}
}

func TestSweep_NoneLiveIsEmptyNotNil(t *testing.T) {
	d := NewDiscovery()
	d.Command = fakePing(t)

	res, err := d.Sweep(context.Background(), []string{"10.0.0.1", "10.0.0.2"})
	require.NoError(t, err)
	require.NotNil(t, res.Live)
	require.Empty(t, res.Live)
	require.Equal(t, 2, res.Stats.Skipped)
}

func TestSweep_EmptyInput(t *testing.T) {
	d := NewDiscovery()
	d.Command = fakePing(t)

	res, err := d.Sweep(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, res.Live)
	require.Zero(t, res.Stats.Probed)
}

func TestSweep_RespectsWorkerLimit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stand-in ping needs a POSIX shell")
	}
	var inFlight, peak int32
	d := NewDiscovery()
	d.Workers = 3
	d.Command = func(ctx context.Context, _ string, _ time.Duration) *exec.Cmd {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		cmd := exec.CommandContext(ctx, "sh", "-c", "sleep 0.05")
		// Released before the stand-in exits, so a worker never counts twice.
		go func() {
			<-time.After(40 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
		}()
		return cmd
	}

	ips := make([]string, 12)
	for i := range ips {
		ips[i] = fmt.Sprintf("10.0.1.%d", i+1)
	}
	_, err := d.Sweep(context.Background(), ips)
	require.NoError(t, err)
	require.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestSweep_CancelledContext(t *testing.T) {
	d := NewDiscovery()
	d.Command = fakePing(t, "10.0.0.1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := d.Sweep(ctx, []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"})
	require.Error(t, err)
	require.True(t, errors.Is(err, context.Canceled))
	require.NotNil(t, res)
}

// TEST-NET-3 and a non-routed private address; neither answers an echo.
var unreachable = []string{"203.0.113.77", "10.255.255.1"}

func TestSweep_Loopback(t *testing.T) {
	tests := []struct {
		name       string
		method     Method
		privileged bool
	}{
		{"exec", MethodExec, false},
		{"icmp-unprivileged", MethodICMP, false},
		{"icmp-privileged", MethodICMP, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDiscovery()
			d.Method = tt.method
			d.Privileged = tt.privileged
			d.Timeout = 500 * time.Millisecond
			if err := d.Check(); err != nil {
				t.Skipf("%s probing unavailable: %v", tt.name, err)
			}

			ips := append([]string{"127.0.0.1"}, unreachable...)
			res, err := d.Sweep(context.Background(), ips)
			require.NoError(t, err)
			require.Equal(t, []string{"127.0.0.1"}, res.Addrs())
			require.Equal(t, Stats{Probed: 3, Live: 1, Skipped: 2}, res.Stats)
		})
	}
}
