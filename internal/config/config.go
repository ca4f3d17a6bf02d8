// Package config folds command line flags and an optional YAML profile
// into the immutable description of one pipeline run. Explicit flags
// win over the profile; the profile wins over flag defaults.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/coreman2200/ledpipe/internal/geometry"
)

// Profile mirrors the shared flag surface in YAML, for rigs whose
// wiring never changes between runs.
type Profile struct {
	Output     string   `yaml:"output,omitempty"`
	Inputs     []string `yaml:"inputs,omitempty"`
	Linger     bool     `yaml:"linger,omitempty"`
	NumPixels  int      `yaml:"num_pixels,omitempty"`
	Geometry   string   `yaml:"geometry,omitempty"`
	Transpose  []string `yaml:"transpose,omitempty"`
	Driver     string   `yaml:"driver,omitempty"`
	SPIClockHz int      `yaml:"spidev_clock,omitempty"`
	SerialBaud int      `yaml:"serial_baudrate,omitempty"`
	LogLevel   string   `yaml:"log_level,omitempty"`
	WaitOutput bool     `yaml:"wait_output,omitempty"`
	NoLock     bool     `yaml:"no_lock,omitempty"`
}

// LoadProfile reads a profile from disk.
func LoadProfile(path string) (*Profile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p Profile
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", path, err)
	}
	return &p, nil
}

// Flags carries the raw shared flag values as given on the command line.
type Flags struct {
	Output      string
	Inputs      []string
	Linger      bool
	NumPixels   int
	Geometry    string
	Transpose   []string
	Driver      string
	SPIClockHz  int
	SerialBaud  int
	SingleFrame bool
	WaitOutput  bool
	NoLock      bool
	ForceTTY    bool
	LogLevel    string
}

// Run is the effective configuration of one pipeline run.
type Run struct {
	Output      string
	Inputs      []string
	Linger      bool
	Dims        geometry.Dimensions
	Transpose   []string
	Driver      string
	SPIClockHz  int
	SerialBaud  int
	SingleFrame bool
	WaitOutput  bool
	Lock        bool
	ForceTTY    bool
	LogLevel    string
}

// Build merges profile values into flags the user left untouched and
// validates the result. set reports whether a flag was given explicitly,
// keyed by its long name.
func Build(fl Flags, p *Profile, set func(name string) bool) (Run, error) {
	if set == nil {
		set = func(string) bool { return false }
	}
	if p != nil {
		if !set("output") && p.Output != "" {
			fl.Output = p.Output
		}
		if !set("input") && len(p.Inputs) > 0 {
			fl.Inputs = p.Inputs
		}
		if !set("linger") && p.Linger {
			fl.Linger = true
		}
		if !set("num-pixels") && p.NumPixels > 0 {
			fl.NumPixels = p.NumPixels
		}
		if !set("geometry") && p.Geometry != "" {
			fl.Geometry = p.Geometry
		}
		if !set("transpose") && len(p.Transpose) > 0 {
			fl.Transpose = p.Transpose
		}
		if !set("driver") && p.Driver != "" {
			fl.Driver = p.Driver
		}
		if !set("spidev-clock") && p.SPIClockHz > 0 {
			fl.SPIClockHz = p.SPIClockHz
		}
		if !set("serial-baudrate") && p.SerialBaud > 0 {
			fl.SerialBaud = p.SerialBaud
		}
		if !set("log-level") && p.LogLevel != "" {
			fl.LogLevel = p.LogLevel
		}
		if !set("wait-output") && p.WaitOutput {
			fl.WaitOutput = true
		}
		if !set("no-lock") && p.NoLock {
			fl.NoLock = true
		}
	}

	// An explicit half of the count/geometry pair silences the
	// profile's other half.
	if set("num-pixels") && !set("geometry") {
		fl.Geometry = ""
	}
	if set("geometry") && !set("num-pixels") {
		fl.NumPixels = 0
	}

	var dims geometry.Dimensions
	switch {
	case fl.NumPixels > 0 && fl.Geometry != "":
		return Run{}, fmt.Errorf("pixel count and geometry are mutually exclusive")
	case fl.NumPixels > 0:
		dims = geometry.Strip(fl.NumPixels)
	case fl.Geometry != "":
		var err error
		if dims, err = geometry.ParseDimensions(fl.Geometry); err != nil {
			return Run{}, err
		}
	default:
		return Run{}, fmt.Errorf("either a pixel count or a geometry is required")
	}

	for _, name := range fl.Transpose {
		if _, err := geometry.New(name, dims); err != nil {
			return Run{}, err
		}
	}

	inputs := fl.Inputs
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}

	return Run{
		Output:      fl.Output,
		Inputs:      inputs,
		Linger:      fl.Linger,
		Dims:        dims,
		Transpose:   fl.Transpose,
		Driver:      fl.Driver,
		SPIClockHz:  fl.SPIClockHz,
		SerialBaud:  fl.SerialBaud,
		SingleFrame: fl.SingleFrame,
		WaitOutput:  fl.WaitOutput,
		Lock:        !fl.NoLock,
		ForceTTY:    fl.ForceTTY,
		LogLevel:    fl.LogLevel,
	}, nil
}
