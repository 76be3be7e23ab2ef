// Package rdns tests for reverse DNS discovery.
package rdns

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
)

// startServer runs a DNS server on loopback that knows the given PTR records.
func startServer(t *testing.T, records map[string][]string) string {
	t.Helper()
	pc, err := net.ListenPacket("udp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot listen on loopback: %v", err)
	}

	started := make(chan struct{})
	srv := &dns.Server{
		PacketConn:        pc,
		NotifyStartedFunc: func() { close(started) },
		Handler: dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
			resp := new(dns.Msg)
			resp.SetReply(req)
			names, ok := records[req.Question[0].Name]
			if !ok {
				resp.Rcode = dns.RcodeNameError
			}
			for _, name := range names {
				resp.Answer = append(resp.Answer, &dns.PTR{
					Hdr: dns.RR_Header{Name: req.Question[0].Name, Rrtype: dns.TypePTR, Class: dns.ClassINET, Ttl: 300},
					Ptr: dns.Fqdn(name),
				})
			}
			_ = w.WriteMsg(resp)
		}),
	}
	go func() { _ = srv.ActivateAndServe() }()
	t.Cleanup(func() { _ = srv.Shutdown() })

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("dns server did not start")
	}
	return pc.LocalAddr().String()
}

func TestNewDiscovery(t *testing.T) {
	d := NewDiscovery()
	if d == nil {
		t.Fatal("NewDiscovery returned nil")
	}
	if d.Timeout != DefaultTimeout {
		t.Errorf("Expected timeout %v, got %v", DefaultTimeout, d.Timeout)
	}
	if d.Workers != DefaultWorkers {
		t.Errorf("Expected workers %d, got %d", DefaultWorkers, d.Workers)
	}
}

func TestLookupAddr(t *testing.T) {
	d := NewDiscovery()
	d.Servers = []string{startServer(t, map[string][]string{
		"1.1.168.192.in-addr.arpa.": {"router.lan", "gateway.lan"},
	})}

	res, err := d.LookupAddr(context.Background(), "192.168.1.1")
	if err != nil {
		t.Fatalf("LookupAddr: %v", err)
	}
	if res.Hostname != "router.lan" {
		t.Errorf("Expected router.lan, got %q", res.Hostname)
	}
	if len(res.All) != 2 || res.All[1] != "gateway.lan" {
		t.Errorf("Expected both names, got %v", res.All)
	}
}

func TestLookupAddr_NXDomain(t *testing.T) {
	d := NewDiscovery()
	d.Servers = []string{startServer(t, nil)}

	_, err := d.LookupAddr(context.Background(), "192.168.1.77")
	if !errors.Is(err, ErrNoRecord) {
		t.Errorf("Expected ErrNoRecord, got %v", err)
	}
}

func TestLookupAddr_FallsBackToNextServer(t *testing.T) {
	d := NewDiscovery()
	d.Servers = []string{
		startServer(t, nil),
		startServer(t, map[string][]string{"9.0.0.10.in-addr.arpa.": {"printer.lan"}}),
	}

	res, err := d.LookupAddr(context.Background(), "10.0.0.9")
	if err != nil {
		t.Fatalf("LookupAddr: %v", err)
	}
	if res.Hostname != "printer.lan" {
		t.Errorf("Expected printer.lan, got %q", res.Hostname)
	}
}

func TestLookupAddr_InvalidIP(t *testing.T) {
	d := NewDiscovery()
	d.Servers = []string{"127.0.0.1:53"}
	for _, ip := range []string{"invalid", "", "2001:db8::1"} {
		if _, err := d.LookupAddr(context.Background(), ip); !errors.Is(err, ErrInvalidIP) {
			t.Errorf("%q: expected ErrInvalidIP, got %v", ip, err)
		}
	}
}

func TestNames(t *testing.T) {
	d := NewDiscovery()
	d.Servers = []string{startServer(t, map[string][]string{
		"1.0.0.10.in-addr.arpa.": {"router.lan"},
	})}

	names := d.Names(context.Background(), []string{"10.0.0.1", "10.0.0.2"})
	if len(names) != 1 || names["10.0.0.1"][0] != "router.lan" {
		t.Errorf("Expected only 10.0.0.1 -> router.lan, got %v", names)
	}
}

func TestLookupMultiple_Empty(t *testing.T) {
	if results := NewDiscovery().LookupMultiple(context.Background(), []string{}); results != nil {
		t.Errorf("Expected nil for empty input, got %v", results)
	}
}

func TestLookupMultiple_ContextCancellation(t *testing.T) {
	d := NewDiscovery()
	d.Servers = []string{startServer(t, nil)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := d.LookupMultiple(ctx, []string{"192.168.1.1", "192.168.1.2"})
	if len(results) != 2 {
		t.Errorf("Expected 2 result slots, got %d", len(results))
	}
}
