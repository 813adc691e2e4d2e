// Package config loads the YAML description of an installation: its devices
// and their panel layouts, the led groups and their brushes, and the frame
// rate, power and preview settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultFPS         = 60
	DefaultPreviewAddr = ":8080"
	DefaultPitchMM     = 10
)

var ErrInvalid = errors.New("invalid config")

type PowerCfg struct {
	LimitAmps   float64 `yaml:"limit_amps"`
	WhiteCap    float64 `yaml:"white_cap"`
	SoftStartMs int     `yaml:"soft_start_ms"`
}

// SoftStart is the fade-in applied to every group when the show starts.
func (p PowerCfg) SoftStart() time.Duration {
	return time.Duration(p.SoftStartMs) * time.Millisecond
}

type Dim struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	Z int `yaml:"z"`
}

type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

type Rect struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
}

// Device is one led chain and the panels it drives.
type Device struct {
	ID         string `yaml:"id"`
	Driver     string `yaml:"driver"` // "sim" | "console" | "spi"
	Port       string `yaml:"port,omitempty"`
	ColorOrder string `yaml:"color_order"`
	Position   Point  `yaml:"position"`

	Dim             Dim     `yaml:"dim"`
	PitchMM         float64 `yaml:"pitch_mm"`
	PanelGapMM      float64 `yaml:"panel_gap_mm"`
	XFlipEveryRow   bool    `yaml:"x_flip_every_row"`
	YFlipEveryPanel bool    `yaml:"y_flip_every_panel"`
}

// Brush names a registered brush. Zero brightness or opacity mean 1.
type Brush struct {
	Name       string  `yaml:"name"`
	Preset     string  `yaml:"preset,omitempty"`
	Mode       string  `yaml:"mode,omitempty"` // "relative" | "absolute"
	Brightness float64 `yaml:"brightness,omitempty"`
	Opacity    float64 `yaml:"opacity,omitempty"`
	// MoveSpeed animates a gradient brush, in gradient lengths per second.
	MoveSpeed float64 `yaml:"move_speed,omitempty"`
}

// Group selects leds either by rectangle (surface coordinates) or by id.
type Group struct {
	Name       string   `yaml:"name"`
	Z          int      `yaml:"z"`
	Rect       *Rect    `yaml:"rect,omitempty"`
	MinOverlap float64  `yaml:"min_overlap,omitempty"`
	Leds       []string `yaml:"leds,omitempty"`
	Brush      Brush    `yaml:"brush"`
	// Program is a sequence file played on the group instead of Brush.
	Program string `yaml:"program,omitempty"`
}

type Preview struct {
	Addr  string `yaml:"addr"`
	Codec string `yaml:"codec"` // "json" | "cbor"
}

type Config struct {
	FPS int `yaml:"fps"`
	// Trigger drives frames: "timer" renders every frame, "device" only when
	// some led changed, "manual" only on request.
	Trigger   string        `yaml:"trigger"`
	Heartbeat time.Duration `yaml:"heartbeat,omitempty"`

	Devices    []Device `yaml:"devices"`
	Groups     []Group  `yaml:"groups,omitempty"`
	Background *Brush   `yaml:"background,omitempty"`

	Power   PowerCfg `yaml:"power"`
	Preview Preview  `yaml:"preview"`
}

// Default is a single simulated 8x8 panel with a rainbow background.
func Default() *Config {
	c := &Config{
		Devices: []Device{{
			ID:            "panel0",
			Driver:        "sim",
			Dim:           Dim{X: 8, Y: 8, Z: 1},
			XFlipEveryRow: true,
		}},
		Background: &Brush{Name: "rainbow", Preset: "Horizontal", MoveSpeed: 0.1},
		Power:      PowerCfg{WhiteCap: 0.85, SoftStartMs: 800},
	}
	c.Normalize()
	return c
}

// Normalize fills in defaults for unset fields.
func (c *Config) Normalize() {
	if c.FPS <= 0 {
		c.FPS = DefaultFPS
	}
	if c.Trigger == "" {
		c.Trigger = "timer"
	}
	if c.Preview.Codec == "" {
		c.Preview.Codec = "json"
	}
	for i := range c.Devices {
		d := &c.Devices[i]
		if d.Driver == "" {
			d.Driver = "sim"
		}
		if d.ColorOrder == "" {
			d.ColorOrder = "GRB"
		}
		if d.PitchMM <= 0 {
			d.PitchMM = DefaultPitchMM
		}
		if d.Dim.Z <= 0 {
			d.Dim.Z = 1
		}
	}
	for i := range c.Groups {
		if c.Groups[i].MinOverlap <= 0 {
			c.Groups[i].MinOverlap = 0.5
		}
	}
}

// Validate reports the first problem found.
func (c *Config) Validate() error {
	switch c.Trigger {
	case "timer", "device", "manual":
	default:
		return fmt.Errorf("%w: trigger %q", ErrInvalid, c.Trigger)
	}
	switch c.Preview.Codec {
	case "json", "cbor":
	default:
		return fmt.Errorf("%w: preview codec %q", ErrInvalid, c.Preview.Codec)
	}
	if len(c.Devices) == 0 {
		return fmt.Errorf("%w: no devices", ErrInvalid)
	}
	ids := map[string]bool{}
	for i, d := range c.Devices {
		if d.ID == "" {
			return fmt.Errorf("%w: device %d has no id", ErrInvalid, i)
		}
		if ids[d.ID] {
			return fmt.Errorf("%w: duplicate device %q", ErrInvalid, d.ID)
		}
		ids[d.ID] = true
		if d.Dim.X <= 0 || d.Dim.Y <= 0 {
			return fmt.Errorf("%w: device %q has no leds", ErrInvalid, d.ID)
		}
	}
	names := map[string]bool{}
	for i, g := range c.Groups {
		if g.Name == "" {
			return fmt.Errorf("%w: group %d has no name", ErrInvalid, i)
		}
		if names[g.Name] {
			return fmt.Errorf("%w: duplicate group %q", ErrInvalid, g.Name)
		}
		names[g.Name] = true
		if g.Rect == nil && len(g.Leds) == 0 {
			return fmt.Errorf("%w: group %q selects no leds", ErrInvalid, g.Name)
		}
		if g.Brush.Name == "" && g.Program == "" {
			return fmt.Errorf("%w: group %q has no brush", ErrInvalid, g.Name)
		}
	}
	return nil
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.Normalize()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}
