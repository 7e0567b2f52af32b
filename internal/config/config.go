// Package config holds the small set of ambient options a conversion
// runs under: lenient-vs-strict error recovery (spec.md §7) and the
// accepted version floor/ceiling per format (spec.md §6.1). Options are
// hard-coded to sensible defaults so the library surface of spec.md
// §6.2 needs zero configuration, but can be loaded from a YAML document
// when a caller wants to override them.
package config

import (
	"fmt"

	"github.com/goccy/go-yaml"
)

// VersionRange is an accepted [Floor, Ceiling] inclusive version window
// for one format.
type VersionRange struct {
	Floor   string `yaml:"floor"`
	Ceiling string `yaml:"ceiling"`
}

// ConversionOptions controls adapter behaviour for one conversion.
// Per spec.md §7: "Strict mode is the default for tests; lenient mode
// is the default for user conversions."
type ConversionOptions struct {
	// Lenient downgrades UnknownChild to warning-plus-skip and
	// UnknownEnumValue to warning-plus-retain-as-raw-text. All other
	// error kinds remain fatal regardless of this setting.
	Lenient bool `yaml:"lenient"`

	// MusicXML, MEI accepted version windows.
	MusicXML VersionRange `yaml:"musicxml"`
	MEI      VersionRange `yaml:"mei"`

	// LilyPondTargetVersion is the version new LilyPond exports claim
	// via \version.
	LilyPondTargetVersion string `yaml:"lilypond_target_version"`
}

// CanonicalMEIVersion is the version the MEI adapter always exports
// (spec.md §4.4: "Output is always in the canonical version").
const CanonicalMEIVersion = "6.0-dev"

// CanonicalMusicXMLVersion is the version the MusicXML adapter always
// exports (spec.md §6.1).
const CanonicalMusicXMLVersion = "4.1"

// Default returns the library's zero-configuration defaults.
func Default() ConversionOptions {
	return ConversionOptions{
		Lenient: true,
		MusicXML: VersionRange{
			Floor:   "2.0",
			Ceiling: CanonicalMusicXMLVersion,
		},
		MEI: VersionRange{
			Floor:   "3.0.0",
			Ceiling: CanonicalMEIVersion,
		},
		LilyPondTargetVersion: "2.24",
	}
}

// Strict returns the test default: Lenient=false, otherwise identical
// to Default.
func Strict() ConversionOptions {
	o := Default()
	o.Lenient = false
	return o
}

// Load parses a YAML document into ConversionOptions, starting from
// Default() so a partial document only overrides what it mentions.
func Load(data []byte) (ConversionOptions, error) {
	o := Default()
	if err := yaml.Unmarshal(data, &o); err != nil {
		return ConversionOptions{}, fmt.Errorf("config: parsing options: %w", err)
	}
	return o, nil
}

// Marshal serializes options back to YAML, mainly for round-trip tests
// and for a caller that wants to start from Default() and tweak it.
func (o ConversionOptions) Marshal() ([]byte, error) {
	return yaml.Marshal(o)
}
