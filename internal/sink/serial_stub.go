//go:build !linux

package sink

import "fmt"

func openSerial(cfg Config, release func()) (Sink, error) {
	return nil, fmt.Errorf("serial driver not supported on this platform")
}
