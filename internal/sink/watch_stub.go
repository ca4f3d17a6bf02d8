//go:build !linux

package sink

import "context"

// WaitForDevice blocks until the device node exists. Platforms without
// udev fall back to polling.
func WaitForDevice(ctx context.Context, path string) error {
	return pollForDevice(ctx, path)
}
