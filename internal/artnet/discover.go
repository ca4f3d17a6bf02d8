package artnet

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"
)

const (
	repollEvery  = 3 * time.Second
	readDeadline = 250 * time.Millisecond
)

// Discover broadcasts ArtPoll probes and streams replies to found until
// ctx ends. The listener binds the Art-Net port itself because nodes
// broadcast their replies rather than answering the poller directly.
// Duplicate replies from the same address are suppressed.
func Discover(ctx context.Context, found func(Node)) error {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: Port})
	if err != nil {
		return fmt.Errorf("listen artnet: %w", err)
	}
	defer conn.Close()
	if err := SetBroadcast(conn); err != nil {
		return fmt.Errorf("enable broadcast: %w", err)
	}

	bcast := &net.UDPAddr{IP: net.IPv4bcast, Port: Port}
	poll := PackPoll()
	if _, err := conn.WriteToUDP(poll, bcast); err != nil {
		return fmt.Errorf("send poll: %w", err)
	}

	repoll := time.NewTicker(repollEvery)
	defer repoll.Stop()
	seen := make(map[string]bool)
	buf := make([]byte, 1024)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-repoll.C:
			if _, err := conn.WriteToUDP(poll, bcast); err != nil {
				return fmt.Errorf("send poll: %w", err)
			}
		default:
		}

		if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
			return err
		}
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			return fmt.Errorf("read reply: %w", err)
		}
		node, ok := ParsePollReply(buf[:n])
		if !ok || seen[node.Addr.String()] {
			continue
		}
		seen[node.Addr.String()] = true
		found(node)
	}
}
