// Package profile holds named codec presets for common targets.
package profile

import (
	"sort"

	"github.com/chirag127/TinyImage/internal/codec"
	"github.com/chirag127/TinyImage/internal/errs"
)

// Preset is a named codec profile.
type Preset struct {
	Name        string
	Description string
	Profile     codec.Profile
}

// DefaultName is the preset used when none is requested.
const DefaultName = "default"

// Built-in presets.
var presets = map[string]Preset{
	"default": {
		Name:        "default",
		Description: "JPEG at quality 80, original size",
		Profile:     codec.DefaultProfile(),
	},
	"web": {
		Name:        "web",
		Description: "WebP at quality 75, fit inside 1920x1920",
		Profile: codec.Profile{
			Quality:             75,
			Format:              codec.FormatWebP,
			Width:               1920,
			Height:              1920,
			PreserveAspectRatio: true,
		},
	},
	"thumbnail": {
		Name:        "thumbnail",
		Description: "JPEG at quality 70, fit inside 320x320",
		Profile: codec.Profile{
			Quality:             70,
			Format:              codec.FormatJPEG,
			Width:               320,
			Height:              320,
			PreserveAspectRatio: true,
		},
	},
	"png-small": {
		Name:        "png-small",
		Description: "indexed PNG (256 colours), original size",
		Profile: codec.Profile{
			Quality:             60,
			Format:              codec.FormatPNG,
			PreserveAspectRatio: true,
		},
	},
	"png-lossless": {
		Name:        "png-lossless",
		Description: "true-colour PNG, original size",
		Profile: codec.Profile{
			Quality:             100,
			Format:              codec.FormatPNG,
			PreserveAspectRatio: true,
		},
	},
}

// Get returns a preset by name. An empty name selects DefaultName.
func Get(name string) (Preset, error) {
	if name == "" {
		name = DefaultName
	}
	if p, ok := presets[name]; ok {
		return p, nil
	}
	return Preset{}, errs.New(errs.CodeInvalidProfile, "unknown preset %q (available: %v)", name, Names())
}

// Names lists the built-in presets alphabetically.
func Names() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// All returns every built-in preset, sorted by name.
func All() []Preset {
	out := make([]Preset, 0, len(presets))
	for _, n := range Names() {
		out = append(out, presets[n])
	}
	return out
}
