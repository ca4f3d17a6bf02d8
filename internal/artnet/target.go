package artnet

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// A Target yields the datagram destinations for a frame. Implementations
// may refresh between frames; the pipeline owns the target, so none of
// them lock.
type Target interface {
	Addrs() ([]*net.UDPAddr, error)
}

// Static is a fixed destination list.
type Static []*net.UDPAddr

func (s Static) Addrs() ([]*net.UDPAddr, error) { return s, nil }

// ResolveStatic parses host[:port] destinations once at startup. The
// Art-Net port is assumed when none is given.
func ResolveStatic(hosts []string) (Static, error) {
	out := make(Static, 0, len(hosts))
	for _, h := range hosts {
		addr, err := resolve(h)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

func resolve(host string) (*net.UDPAddr, error) {
	if !strings.Contains(host, ":") {
		host = net.JoinHostPort(host, strconv.Itoa(Port))
	}
	addr, err := net.ResolveUDPAddr("udp4", host)
	if err != nil {
		return nil, fmt.Errorf("resolve target %q: %w", host, err)
	}
	return addr, nil
}

// Broadcast targets every node on the local segment.
type Broadcast struct{}

func (Broadcast) Addrs() ([]*net.UDPAddr, error) {
	return []*net.UDPAddr{{IP: net.IPv4bcast, Port: Port}}, nil
}

// ListFile reloads destinations from a file whenever its mtime moves, so
// a running show can retarget without a restart. One host[:port] per
// line; blank lines and #-comments are skipped.
type ListFile struct {
	path  string
	mtime time.Time
	addrs []*net.UDPAddr
}

func NewListFile(path string) (*ListFile, error) {
	l := &ListFile{path: path}
	if _, err := l.Addrs(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *ListFile) Addrs() ([]*net.UDPAddr, error) {
	st, err := os.Stat(l.path)
	if err != nil {
		return nil, fmt.Errorf("stat target list: %w", err)
	}
	if !l.mtime.IsZero() && st.ModTime().Equal(l.mtime) {
		return l.addrs, nil
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read target list: %w", err)
	}
	var addrs []*net.UDPAddr
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		addr, err := resolve(line)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}
	l.mtime = st.ModTime()
	l.addrs = addrs
	return addrs, nil
}
