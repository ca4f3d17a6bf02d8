package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coreman2200/ledpipe/internal/device"
)

func newAPA102Command(ctx *commandContext) *cobra.Command {
	var brightness uint8
	var order string
	cmd := &cobra.Command{
		Use:   "apa102",
		Short: "Drive APA102/SK9822 strips",
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := ctx.runConfig(cmd)
			if err != nil {
				return err
			}
			ord, err := device.ParseChannelOrder(order)
			if err != nil {
				return err
			}
			enc, err := device.NewAPA102(rc.Dims.Size(), brightness, ord)
			if err != nil {
				return err
			}
			return ctx.runDevice(cmd, rc, enc, sinkTuning{})
		},
	}
	cmd.Flags().Uint8Var(&brightness, "brightness", device.MaxBrightness, "5 bit global brightness (0-31)")
	cmd.Flags().StringVar(&order, "color-order", "bgr", "channel order on the wire")
	return cmd
}

func newWS2811Command(ctx *commandContext) *cobra.Command {
	var order string
	cmd := &cobra.Command{
		Use:   "ws2811",
		Short: "Drive WS2811/WS2812/SK6812 strips",
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := ctx.runConfig(cmd)
			if err != nil {
				return err
			}
			ord, err := device.ParseChannelOrder(order)
			if err != nil {
				return err
			}
			enc, err := device.NewWS2811(rc.Dims.Size(), ord)
			if err != nil {
				return err
			}
			// Over spidev the channel bytes must be stretched into the
			// chip's self-clocked waveform.
			return ctx.runDevice(cmd, rc, enc, sinkTuning{nrz: true})
		},
	}
	cmd.Flags().StringVar(&order, "color-order", "grb", "channel order on the wire")
	return cmd
}

func newLPD8806Command(ctx *commandContext) *cobra.Command {
	var order string
	cmd := &cobra.Command{
		Use:   "lpd8806",
		Short: "Drive LPD8806 strips",
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := ctx.runConfig(cmd)
			if err != nil {
				return err
			}
			ord, err := device.ParseChannelOrder(order)
			if err != nil {
				return err
			}
			enc, err := device.NewLPD8806(rc.Dims.Size(), ord)
			if err != nil {
				return err
			}
			return ctx.runDevice(cmd, rc, enc, sinkTuning{})
		},
	}
	cmd.Flags().StringVar(&order, "color-order", "grb", "channel order on the wire")
	return cmd
}

func newHUB75Command(ctx *commandContext) *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:   "hub75",
		Short: "Drive HUB75 matrix panels",
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := ctx.runConfig(cmd)
			if err != nil {
				return err
			}
			if !rc.Dims.Planar() {
				return fmt.Errorf("hub75 needs --geometry, not --num-pixels")
			}
			enc, err := device.NewHUB75(rc.Dims.Width, rc.Dims.Height, depth)
			if err != nil {
				return err
			}
			return ctx.runDevice(cmd, rc, enc, sinkTuning{})
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 8, "bit planes per frame (1-8)")
	return cmd
}

func newRawCommand(ctx *commandContext) *cobra.Command {
	var clockPhase, clockPolarity uint8
	var firstBit string
	cmd := &cobra.Command{
		Use:   "raw",
		Short: "Pass RGB bytes through unmodified",
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := ctx.runConfig(cmd)
			if err != nil {
				return err
			}
			if clockPhase > 1 || clockPolarity > 1 {
				return fmt.Errorf("clock phase and polarity are single bits")
			}
			var lsb bool
			switch firstBit {
			case "msb":
			case "lsb":
				lsb = true
			default:
				return fmt.Errorf("first bit must be msb or lsb, got %q", firstBit)
			}
			enc, err := device.NewRaw(rc.Dims.Size())
			if err != nil {
				return err
			}
			tune := sinkTuning{spiMode: clockPolarity<<1 | clockPhase, lsbFirst: lsb}
			return ctx.runDevice(cmd, rc, enc, tune)
		},
	}
	cmd.Flags().Uint8Var(&clockPhase, "clock-phase", 0, "SPI clock phase bit")
	cmd.Flags().Uint8Var(&clockPolarity, "clock-polarity", 0, "SPI clock polarity bit")
	cmd.Flags().StringVar(&firstBit, "first-bit", "msb", "SPI bit order: msb or lsb")
	return cmd
}
