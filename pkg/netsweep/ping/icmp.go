package ping

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// protocolICMP is the IANA protocol number for ICMPv4.
const protocolICMP = 1

var echoSeq uint32

func icmpNetwork(privileged bool) (string, func(net.IP) net.Addr) {
	if privileged {
		return "ip4:icmp", func(ip net.IP) net.Addr { return &net.IPAddr{IP: ip} }
	}
	return "udp4", func(ip net.IP) net.Addr { return &net.UDPAddr{IP: ip} }
}

// icmpProbe sends one echo request and waits for the matching reply.
func (d *Discovery) icmpProbe(ctx context.Context, res *Result, ip net.IP) error {
	network, dstAddr := icmpNetwork(d.Privileged)
	conn, err := icmp.ListenPacket(network, "0.0.0.0")
	if err != nil {
		return fmt.Errorf("listen %s: %w", network, err)
	}
	defer conn.Close()

	pc := conn.IPv4PacketConn()
	if pc != nil {
		if err := pc.SetControlMessage(ipv4.FlagTTL, true); err != nil {
			pc = nil
		}
	}

	id := os.Getpid() & 0xffff
	seq := int(atomic.AddUint32(&echoSeq, 1) & 0xffff)
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{ID: id, Seq: seq, Data: []byte("netsweep")},
	}
	wire, err := msg.Marshal(nil)
	if err != nil {
		return fmt.Errorf("marshal echo: %w", err)
	}

	deadline := time.Now().Add(d.timeout())
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}

	start := time.Now()
	if _, err := conn.WriteTo(wire, dstAddr(ip)); err != nil {
		return fmt.Errorf("send echo to %s: %w", ip, err)
	}

	buf := make([]byte, 1500)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, ttl, peer, err := readReply(conn, pc, buf)
		if err != nil {
			return fmt.Errorf("%w from %s: %v", ErrNoReply, ip, err)
		}
		if !addrIP(peer).Equal(ip) {
			continue
		}
		rm, err := icmp.ParseMessage(protocolICMP, buf[:n])
		if err != nil || rm.Type != ipv4.ICMPTypeEchoReply {
			continue
		}
		echo, ok := rm.Body.(*icmp.Echo)
		if !ok || echo.Seq != seq {
			continue
		}
		// Datagram sockets get their echo ID rewritten by the kernel.
		if d.Privileged && echo.ID != id {
			continue
		}
		res.Alive = true
		res.RTT = time.Since(start)
		res.TTL = ttl
		return nil
	}
}

func readReply(conn *icmp.PacketConn, pc *ipv4.PacketConn, buf []byte) (n, ttl int, peer net.Addr, err error) {
	if pc != nil {
		var cm *ipv4.ControlMessage
		n, cm, peer, err = pc.ReadFrom(buf)
		if cm != nil {
			ttl = cm.TTL
		}
		return n, ttl, peer, err
	}
	n, peer, err = conn.ReadFrom(buf)
	return n, 0, peer, err
}

func addrIP(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case *net.IPAddr:
		return a.IP
	case *net.UDPAddr:
		return a.IP
	default:
		return nil
	}
}
