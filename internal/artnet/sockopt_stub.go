//go:build !linux

package artnet

import "net"

func SetBroadcast(conn *net.UDPConn) error { return nil }
