package sequence

import "time"

// Keyframe is a value at time T into its clip, with the easing used for the
// segment starting at this keyframe.
type Keyframe struct {
	T    time.Duration `yaml:"t"`
	V    float64       `yaml:"v"`
	Ease string        `yaml:"ease,omitempty"` // "linear","smooth","cubic"
}

// Envelope is a list of keyframes sorted by T; Eval interpolates a value.
type Envelope struct {
	Keys []Keyframe `yaml:"keys"`
}

// Clip is one segment of a show: a brush and preset shown for Duration,
// with an optional crossfade into the next clip over its last XFade.
// Params automate the brush while the clip is active; see Show for the
// names understood.
type Clip struct {
	Name     string              `yaml:"name"`
	Brush    string              `yaml:"brush"`
	Preset   string              `yaml:"preset,omitempty"`
	Duration time.Duration       `yaml:"duration"`
	XFade    time.Duration       `yaml:"xfade,omitempty"`
	Params   map[string]Envelope `yaml:"params,omitempty"`
	Bools    map[string]Envelope `yaml:"bools,omitempty"` // thresholded at 0.5
}

// Program is a full sequence of clips.
type Program struct {
	Version string `yaml:"version"` // "seq.v1"
	Loop    bool   `yaml:"loop,omitempty"`
	Clips   []Clip `yaml:"clips"`
}

// PlayerState enumerates sequencer states.
type PlayerState string

const (
	Idle    PlayerState = "idle"
	Running PlayerState = "running"
	Paused  PlayerState = "paused"
)

// Hooks are the callbacks a Player drives.
type Hooks struct {
	// Show brush/preset immediately.
	SetBrush func(name, preset string)
	// Parameter and boolean setters for the active brush.
	SetParam func(name string, v float64)
	SetBool  func(name string, b bool)
	// Prepare the next brush/preset for a crossfade.
	ArmNext      func(name, preset string)
	SetCrossfade func(alpha float64) // 0..1 mix between active and armed
	// Ended is called when a non-looping program runs out.
	Ended func()
}
