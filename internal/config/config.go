// Package config holds runtime settings and named detection presets.
//
// Settings come from the environment. Presets come from a YAML file:
//
//	presets:
//	  - name: dark-blobs
//	    channel: threshold
//	    threshold: 128
//	    min_size: 20
//	    min_value: 0
//	    max_value: 0
//
// A few presets are built in; a presets file adds to them and replaces any
// built-in preset with the same name.
package config

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/region-tools-mcp/internal/detection"
	"github.com/ironsheep/region-tools-mcp/internal/imaging"
)

// Environment variables read by FromEnv.
const (
	EnvLogLevel = "REGION_MCP_LOG_LEVEL"
	EnvPresets  = "REGION_MCP_PRESETS"
)

// Settings are the process-level options.
type Settings struct {
	// LogLevel is "debug" to enable verbose logging; anything else is quiet.
	LogLevel string

	// PresetsPath names a YAML presets file. Empty uses the built-ins only.
	PresetsPath string
}

// Debug reports whether verbose logging is on.
func (s Settings) Debug() bool {
	return strings.EqualFold(s.LogLevel, "debug")
}

// FromEnv reads Settings from the environment.
func FromEnv() Settings {
	return Settings{
		LogLevel:    os.Getenv(EnvLogLevel),
		PresetsPath: os.Getenv(EnvPresets),
	}
}

// Preset is a named set of detection options.
type Preset struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
	Channel     string   `yaml:"channel,omitempty" json:"channel,omitempty"`
	Threshold   int      `yaml:"threshold,omitempty" json:"threshold,omitempty"`
	BlurRadius  float64  `yaml:"blur_radius,omitempty" json:"blur_radius,omitempty"`
	HueBins     int      `yaml:"hue_bins,omitempty" json:"hue_bins,omitempty"`
	Palette     []string `yaml:"palette,omitempty" json:"palette,omitempty"`
	MinSize     int      `yaml:"min_size,omitempty" json:"min_size,omitempty"`
	MaxSize     int      `yaml:"max_size,omitempty" json:"max_size,omitempty"`
	MinValue    *int     `yaml:"min_value,omitempty" json:"min_value,omitempty"`
	MaxValue    *int     `yaml:"max_value,omitempty" json:"max_value,omitempty"`
	Quantize    int      `yaml:"quantize,omitempty" json:"quantize,omitempty"`
}

// Options converts the preset into detection options.
func (p Preset) Options() (detection.Options, error) {
	if p.Threshold < 0 || p.Threshold > 255 {
		return detection.Options{}, fmt.Errorf("preset %q: threshold must be between 0 and 255, got %d", p.Name, p.Threshold)
	}
	opts := detection.Options{
		Channel: imaging.ChannelSpec{
			Mode:       imaging.ChannelMode(p.Channel),
			Threshold:  uint8(p.Threshold),
			BlurRadius: p.BlurRadius,
			HueBins:    p.HueBins,
			Palette:    p.Palette,
		},
		MinSize:  p.MinSize,
		MaxSize:  p.MaxSize,
		MinValue: p.MinValue,
		MaxValue: p.MaxValue,
		Quantize: p.Quantize,
	}
	if err := opts.Validate(); err != nil {
		return detection.Options{}, fmt.Errorf("preset %q: %w", p.Name, err)
	}
	return opts, nil
}

// Presets is the on-disk presets document.
type Presets struct {
	Presets []Preset `yaml:"presets" json:"presets"`
}

// Lookup finds a preset by name.
func (ps *Presets) Lookup(name string) (Preset, bool) {
	for _, p := range ps.Presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// Names lists the preset names in sorted order.
func (ps *Presets) Names() []string {
	names := make([]string, len(ps.Presets))
	for i, p := range ps.Presets {
		names[i] = p.Name
	}
	sort.Strings(names)
	return names
}

// Validate checks that names are unique and every preset converts to
// valid options.
func (ps *Presets) Validate() error {
	seen := make(map[string]bool, len(ps.Presets))
	for i, p := range ps.Presets {
		if p.Name == "" {
			return fmt.Errorf("preset %d has no name", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate preset %q", p.Name)
		}
		seen[p.Name] = true
		if _, err := p.Options(); err != nil {
			return err
		}
	}
	return nil
}

// Merge returns ps with every preset of other added, replacing presets
// that share a name.
func (ps *Presets) Merge(other *Presets) *Presets {
	out := &Presets{Presets: append([]Preset(nil), ps.Presets...)}
	for _, p := range other.Presets {
		replaced := false
		for i := range out.Presets {
			if out.Presets[i].Name == p.Name {
				out.Presets[i] = p
				replaced = true
				break
			}
		}
		if !replaced {
			out.Presets = append(out.Presets, p)
		}
	}
	return out
}

// Parse decodes and validates a presets document.
func Parse(data []byte) (*Presets, error) {
	var ps Presets
	if err := yaml.Unmarshal(data, &ps); err != nil {
		return nil, fmt.Errorf("failed to parse presets: %w", err)
	}
	if err := ps.Validate(); err != nil {
		return nil, err
	}
	return &ps, nil
}

// Load reads a presets file.
func Load(path string) (*Presets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read presets: %w", err)
	}
	return Parse(data)
}

// Save writes a presets file.
func Save(path string, ps *Presets) error {
	data, err := yaml.Marshal(ps)
	if err != nil {
		return fmt.Errorf("failed to encode presets: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Write encodes ps as YAML to w.
func Write(w io.Writer, ps *Presets) error {
	data, err := yaml.Marshal(ps)
	if err != nil {
		return fmt.Errorf("failed to encode presets: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// LoadWithDefaults returns the built-in presets, merged with the file at
// path when path is not empty.
func LoadWithDefaults(path string) (*Presets, error) {
	builtin := Default()
	if path == "" {
		return builtin, nil
	}
	ps, err := Load(path)
	if err != nil {
		return nil, err
	}
	return builtin.Merge(ps), nil
}

func intPtr(v int) *int { return &v }

// Default returns the built-in presets.
func Default() *Presets {
	return &Presets{Presets: []Preset{
		{
			Name:        "dark-blobs",
			Description: "dark shapes on a light background",
			Channel:     string(imaging.ChannelThreshold),
			Threshold:   128,
			MinSize:     20,
			MinValue:    intPtr(0),
			MaxValue:    intPtr(0),
		},
		{
			Name:        "light-blobs",
			Description: "light shapes on a dark background",
			Channel:     string(imaging.ChannelThreshold),
			Threshold:   128,
			MinSize:     20,
			MinValue:    intPtr(1),
			MaxValue:    intPtr(1),
		},
		{
			Name:        "posterized",
			Description: "gray levels grouped into 8 bands",
			Channel:     string(imaging.ChannelGray),
			Quantize:    32,
			MinSize:     4,
		},
		{
			Name:        "hue-sectors",
			Description: "chromatic areas by 30 degree hue sector",
			Channel:     string(imaging.ChannelHue),
			HueBins:     12,
			MinSize:     10,
			MaxValue:    intPtr(11),
		},
		{
			Name:        "transparent-holes",
			Description: "fully transparent areas of an image with alpha",
			Channel:     string(imaging.ChannelAlpha),
			MinValue:    intPtr(0),
			MaxValue:    intPtr(0),
		},
	}}
}
