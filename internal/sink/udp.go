package sink

import (
	"fmt"
	"net"

	"github.com/coreman2200/ledpipe/internal/artnet"
	"github.com/coreman2200/ledpipe/internal/device"
)

// udpSink fans each encoded datagram out to every target node. Targets
// are re-resolved per frame so list files can grow mid-run.
type udpSink struct {
	conn   *net.UDPConn
	target artnet.Target
}

// NewUDP opens a socket for datagram outputs aimed at target.
func NewUDP(target artnet.Target) (Sink, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("open udp socket: %w", err)
	}
	if err := artnet.SetBroadcast(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable broadcast: %w", err)
	}
	return &udpSink{conn: conn, target: target}, nil
}

func (s *udpSink) Write(out device.Output) error {
	if out.Datagrams == nil {
		return ErrUnsupportedOutput
	}
	addrs, err := s.target.Addrs()
	if err != nil {
		return fmt.Errorf("resolve targets: %w", err)
	}
	for _, gram := range out.Datagrams {
		for _, addr := range addrs {
			if _, err := s.conn.WriteToUDP(gram, addr); err != nil {
				return fmt.Errorf("send to %s: %w", addr, err)
			}
		}
	}
	return nil
}

func (s *udpSink) Close() error { return s.conn.Close() }
