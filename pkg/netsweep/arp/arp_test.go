package arp

import (
	"context"
	"errors"
	"testing"
)

func TestNewDiscovery(t *testing.T) {
	d := NewDiscovery()
	if d.Timeout != DefaultTimeout {
		t.Errorf("Expected timeout %v, got %v", DefaultTimeout, d.Timeout)
	}
	if d.Workers != DefaultWorkers {
		t.Errorf("Expected workers %d, got %d", DefaultWorkers, d.Workers)
	}
}

func TestLookupAddr_InvalidInput(t *testing.T) {
	if !IsSupported() {
		t.Skip("ARP not supported on this platform")
	}
	d := NewDiscovery()

	res, err := d.LookupAddr(context.Background(), "not-an-ip")
	if !errors.Is(err, ErrInvalidIP) {
		t.Fatalf("expected ErrInvalidIP, got %v", err)
	}
	if res.IP != "not-an-ip" || res.Error == nil {
		t.Errorf("unexpected result %+v", res)
	}

	_, err = d.LookupAddr(context.Background(), "2001:db8::1")
	if !errors.Is(err, ErrIPv6NotSupported) {
		t.Fatalf("expected ErrIPv6NotSupported, got %v", err)
	}
}

func TestLookupMultiple_PreservesOrder(t *testing.T) {
	d := NewDiscovery()
	ips := []string{"bad-1", "bad-2", "bad-3"}
	results := d.LookupMultiple(context.Background(), ips)
	if len(results) != len(ips) {
		t.Fatalf("expected %d results, got %d", len(ips), len(results))
	}
	for i, r := range results {
		if r == nil || r.IP != ips[i] {
			t.Errorf("result %d: expected IP %s, got %+v", i, ips[i], r)
		}
		if r.Error == nil {
			t.Errorf("result %d: expected error", i)
		}
	}
}

func TestMACs_SkipsFailures(t *testing.T) {
	d := NewDiscovery()
	macs := d.MACs(context.Background(), []string{"bad-1", "bad-2"})
	if len(macs) != 0 {
		t.Errorf("expected no MACs, got %v", macs)
	}
}
