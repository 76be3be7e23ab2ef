package ping

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"time"
)

var (
	ttlPattern  = regexp.MustCompile(`(?i)\bttl[=:](\d+)`)
	timePattern = regexp.MustCompile(`(?i)\btime[=<]([\d.]+)\s*ms`)
)

// platformCommand returns a single-packet ping for the current OS.
func platformCommand(ctx context.Context, ip string, timeout time.Duration) *exec.Cmd {
	return exec.CommandContext(ctx, "ping", pingArgs(runtime.GOOS, ip, timeout)...)
}

// pingArgs builds the ping arguments for goos.
//
//	linux and others: ping -c 1 -W <seconds> ip
//	darwin, freebsd:  ping -c 1 -W <milliseconds> ip
//	windows:          ping -n 1 -w <milliseconds> ip
func pingArgs(goos, ip string, timeout time.Duration) []string {
	ms := strconv.FormatInt(timeout.Milliseconds(), 10)
	switch goos {
	case "windows":
		return []string{"-n", "1", "-w", ms, ip}
	case "darwin", "freebsd":
		return []string{"-c", "1", "-W", ms, ip}
	default:
		secs := int(math.Ceil(timeout.Seconds()))
		if secs < 1 {
			secs = 1
		}
		return []string{"-c", "1", "-W", strconv.Itoa(secs), ip}
	}
}

// execProbe runs the ping command; exit status 0 means live. The process is
// killed if it outlives the probe timeout by more than a second.
func (d *Discovery) execProbe(ctx context.Context, res *Result) error {
	timeout := d.timeout()
	cmdCtx, cancel := context.WithTimeout(ctx, timeout+time.Second)
	defer cancel()

	build := d.Command
	if build == nil {
		build = platformCommand
	}
	cmd := build(cmdCtx, res.IP, timeout)

	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ping %s: %w", res.IP, err)
	}

	res.Alive = true
	res.TTL, res.RTT = parseReply(out.Bytes())
	return nil
}

// parseReply extracts the TTL and round-trip time from ping output, when present.
func parseReply(out []byte) (ttl int, rtt time.Duration) {
	if m := ttlPattern.FindSubmatch(out); m != nil {
		ttl, _ = strconv.Atoi(string(m[1]))
	}
	if m := timePattern.FindSubmatch(out); m != nil {
		if ms, err := strconv.ParseFloat(string(m[1]), 64); err == nil {
			rtt = time.Duration(ms * float64(time.Millisecond))
		}
	}
	return ttl, rtt
}
