package sink

import (
	"context"
	"os"
	"time"
)

func pollForDevice(ctx context.Context, path string) error {
	tick := time.NewTicker(250 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
			if _, err := os.Stat(path); err == nil {
				return nil
			}
		}
	}
}
