// Package artnet implements the slice of Art-Net needed to feed DMX
// fixtures over UDP: ArtDmx output plus ArtPoll/ArtPollReply discovery.
package artnet

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"
	"strings"
)

const (
	// Port is the fixed Art-Net UDP port.
	Port = 6454
	// MaxDMXLength is the largest channel payload one universe carries.
	MaxDMXLength = 512

	opPoll      = 0x2000
	opPollReply = 0x2100
	opDMX       = 0x5000

	protocolVersion = 14
)

var header = []byte{'A', 'r', 't', '-', 'N', 'e', 't', 0}

// PackDMX builds one ArtDmx packet. Odd payloads get one pad byte because
// the protocol requires an even channel count; the pad lands on an unused
// channel, not a fixture.
func PackDMX(seq uint8, universe uint16, data []byte) ([]byte, error) {
	if len(data) == 0 || len(data) > MaxDMXLength {
		return nil, fmt.Errorf("dmx payload of %d channels, want 1..%d", len(data), MaxDMXLength)
	}
	n := len(data)
	if n%2 == 1 {
		n++
	}
	pkt := make([]byte, 0, 18+n)
	pkt = append(pkt, header...)
	pkt = binary.LittleEndian.AppendUint16(pkt, opDMX)
	pkt = binary.BigEndian.AppendUint16(pkt, protocolVersion)
	pkt = append(pkt, seq, 0) // sequence, physical input port
	pkt = binary.LittleEndian.AppendUint16(pkt, universe)
	pkt = binary.BigEndian.AppendUint16(pkt, uint16(n))
	pkt = append(pkt, data...)
	if n != len(data) {
		pkt = append(pkt, 0)
	}
	return pkt, nil
}

// PackPoll builds the ArtPoll probe nodes answer with an ArtPollReply.
func PackPoll() []byte {
	pkt := make([]byte, 0, 14)
	pkt = append(pkt, header...)
	pkt = binary.LittleEndian.AppendUint16(pkt, opPoll)
	pkt = binary.BigEndian.AppendUint16(pkt, protocolVersion)
	pkt = append(pkt, 0, 0) // TalkToMe flags, priority
	return pkt
}

// Node is one ArtPoll responder.
type Node struct {
	Addr      net.UDPAddr
	ShortName string
	LongName  string
}

// ParsePollReply extracts the responder identity from an ArtPollReply.
// Anything else on the wire returns ok=false.
func ParsePollReply(pkt []byte) (Node, bool) {
	if len(pkt) < 108 || !bytes.Equal(pkt[:8], header) {
		return Node{}, false
	}
	if binary.LittleEndian.Uint16(pkt[8:10]) != opPollReply {
		return Node{}, false
	}
	port := int(binary.LittleEndian.Uint16(pkt[14:16]))
	if port == 0 {
		port = Port
	}
	return Node{
		Addr:      net.UDPAddr{IP: net.IPv4(pkt[10], pkt[11], pkt[12], pkt[13]), Port: port},
		ShortName: cstr(pkt[26:44]),
		LongName:  cstr(pkt[44:108]),
	}, true
}

func cstr(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return strings.TrimSpace(string(b))
}
