// Package network provides subnet derivation and candidate enumeration for the sweep.
package network

import (
	"errors"
	"fmt"
	"net"

	"github.com/projectdiscovery/mapcidr"
)

// SweepPrefix is the prefix length of the network swept around the local address.
const SweepPrefix = 24

// ErrNotIPv4 is returned when an address is not a dotted-quad IPv4 address.
var ErrNotIPv4 = errors.New("not an IPv4 address")

// Subnet24 returns the /24 network containing the given IPv4 address.
func Subnet24(addr string) (*net.IPNet, error) {
	ip := net.ParseIP(addr)
	if ip == nil {
		return nil, fmt.Errorf("parse %q: invalid IP address", addr)
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return nil, fmt.Errorf("%q: %w", addr, ErrNotIPv4)
	}
	mask := net.CIDRMask(SweepPrefix, 32)
	return &net.IPNet{IP: ip4.Mask(mask), Mask: mask}, nil
}

// Candidates returns every address of the /24 containing addr, in ascending
// order, except addr itself. Network and broadcast addresses are included.
func Candidates(addr string) ([]string, error) {
	subnet, err := Subnet24(addr)
	if err != nil {
		return nil, err
	}
	self := net.ParseIP(addr).To4()

	ips, err := EnumerateAll(subnet)
	if err != nil {
		return nil, err
	}
	res := make([]string, 0, len(ips))
	for _, ip := range ips {
		if net.ParseIP(ip).Equal(self) {
			continue
		}
		res = append(res, ip)
	}
	return res, nil
}

// EnumerateAll returns every IPv4 address in n in ascending order, network and
// broadcast included.
func EnumerateAll(n *net.IPNet) ([]string, error) {
	if n.IP.To4() == nil {
		return nil, fmt.Errorf("%s: %w", n, ErrNotIPv4)
	}
	ips, err := mapcidr.IPAddresses(n.String())
	if err != nil {
		return nil, fmt.Errorf("expand %s: %w", n, err)
	}
	return ips, nil
}

// IsPrivateIP checks if an IP address is in private (RFC 1918) address space.
func IsPrivateIP(ip net.IP) bool {
	if ip4 := ip.To4(); ip4 != nil {
		return ip4[0] == 10 || // 10.0.0.0/8
			(ip4[0] == 172 && ip4[1] >= 16 && ip4[1] <= 31) || // 172.16.0.0/12
			(ip4[0] == 192 && ip4[1] == 168) // 192.168.0.0/16
	}
	return false
}
