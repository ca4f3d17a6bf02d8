//go:build linux

package artnet

import (
	"net"

	"golang.org/x/sys/unix"
)

// SetBroadcast flips SO_BROADCAST so polls and broadcast targets reach
// the whole segment.
func SetBroadcast(conn *net.UDPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var serr error
	err = raw.Control(func(fd uintptr) {
		serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
	})
	if err != nil {
		return err
	}
	return serr
}
