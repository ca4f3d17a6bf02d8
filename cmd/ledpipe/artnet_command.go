package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/coreman2200/ledpipe/internal/artnet"
	"github.com/coreman2200/ledpipe/internal/device"
	"github.com/coreman2200/ledpipe/internal/sink"
)

func newArtnetCommand(ctx *commandContext) *cobra.Command {
	var (
		targets      []string
		targetList   string
		broadcast    bool
		discover     bool
		universe     uint16
		universeSize int
	)
	cmd := &cobra.Command{
		Use:   "artnet",
		Short: "Drive Art-Net DMX nodes over UDP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if discover {
				return runArtnetDiscover(cmd)
			}

			rc, err := ctx.runConfig(cmd)
			if err != nil {
				return err
			}
			var target artnet.Target
			switch {
			case broadcast:
				target = artnet.Broadcast{}
			case targetList != "":
				if target, err = artnet.NewListFile(targetList); err != nil {
					return err
				}
			case len(targets) > 0:
				if target, err = artnet.ResolveStatic(targets); err != nil {
					return err
				}
			default:
				return fmt.Errorf("one of --target, --target-list, --broadcast or --discover is required")
			}

			enc, err := device.NewArtNet(rc.Dims.Size(), universe, universeSize)
			if err != nil {
				return err
			}
			out, err := sink.NewUDP(target)
			if err != nil {
				return err
			}

			sigCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWith(sigCtx, rc, enc, out)
		},
	}
	fl := cmd.Flags()
	fl.StringArrayVar(&targets, "target", nil, "target IP addresses, repeatable")
	fl.StringVar(&targetList, "target-list", "", "file with one IP per line, re-read on change")
	fl.BoolVarP(&broadcast, "broadcast", "b", false, "broadcast to the whole network")
	fl.BoolVarP(&discover, "discover", "d", false, "discover Art-Net nodes and exit")
	fl.Uint16Var(&universe, "universe", 0, "first DMX universe index")
	fl.IntVar(&universeSize, "universe-size", artnet.MaxDMXLength, "channels per universe (1-512)")
	cmd.MarkFlagsMutuallyExclusive("target", "target-list", "broadcast", "discover")
	return cmd
}

// runArtnetDiscover polls the network for nodes until interrupted, then
// prints what it heard back.
func runArtnetDiscover(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	spinnerDone := make(chan struct{})
	go spin(spinnerDone)

	var nodes []artnet.Node
	err := artnet.Discover(ctx, func(n artnet.Node) {
		nodes = append(nodes, n)
		fmt.Fprintf(os.Stderr, "\r%-15s %s\n", n.Addr.IP, n.ShortName)
	})
	close(spinnerDone)
	fmt.Fprint(os.Stderr, "\r \r")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if len(nodes) == 0 {
		fmt.Println("no nodes found")
		return nil
	}
	fmt.Println(renderNodeTable(nodes))
	return nil
}

func spin(done <-chan struct{}) {
	chars := []byte{'|', '/', '-', '\\'}
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for i := 0; ; i++ {
		select {
		case <-done:
			return
		case <-tick.C:
			fmt.Fprintf(os.Stderr, "\r%c", chars[i%len(chars)])
		}
	}
}

func renderNodeTable(nodes []artnet.Node) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"address", "short name", "long name"})
	for _, n := range nodes {
		tw.AppendRow(table.Row{n.Addr.String(), n.ShortName, n.LongName})
	}
	return tw.Render()
}
