//go:build linux

package sink

import (
	"context"
	"os"

	"github.com/pilebones/go-udev/netlink"
	"github.com/rs/zerolog/log"
)

// WaitForDevice blocks until the device node exists, listening for udev
// add events so a hotplugged adapter is caught the moment it enumerates.
// Without netlink access it degrades to polling.
func WaitForDevice(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		log.Debug().Err(err).Msg("udev socket unavailable, polling for device instead")
		return pollForDevice(ctx, path)
	}
	defer conn.Close()

	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	action := "add"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env:    map[string]string{"DEVNAME": path},
	})
	quit := conn.Monitor(queue, errs, rules)
	defer close(quit)

	// The node may have appeared between the stat and the monitor start.
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	log.Info().Str("device", path).Msg("waiting for output device")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-queue:
			return nil
		case err := <-errs:
			log.Warn().Err(err).Msg("udev monitor error")
		}
	}
}
