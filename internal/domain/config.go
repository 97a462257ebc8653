package domain

import "math"

// Defaults for VoiceConfig fields.
const (
	DefaultVoiceName = "Samantha"
	DefaultVolume    = 1.0
	DefaultRate      = 200
	MinRate          = 50
	MaxRate          = 600
)

// VoiceConfig is an immutable settings snapshot. It is replaced wholesale
// whenever the configuration source changes.
type VoiceConfig struct {
	Enabled   bool    `json:"enabled"`
	VoiceName string  `json:"voiceName"`
	Volume    float64 `json:"volume"`
	Rate      int     `json:"rate"`
}

// DefaultVoiceConfig returns the built-in settings.
func DefaultVoiceConfig() VoiceConfig {
	return VoiceConfig{
		Enabled:   true,
		VoiceName: DefaultVoiceName,
		Volume:    DefaultVolume,
		Rate:      DefaultRate,
	}
}

// Normalize clamps out-of-range values instead of rejecting them. A
// non-positive rate and a NaN volume fall back to the defaults.
func (c VoiceConfig) Normalize() VoiceConfig {
	if c.VoiceName == "" {
		c.VoiceName = DefaultVoiceName
	}
	switch {
	case math.IsNaN(c.Volume):
		c.Volume = DefaultVolume
	case c.Volume < 0:
		c.Volume = 0
	case c.Volume > 1:
		c.Volume = 1
	}
	switch {
	case c.Rate <= 0:
		c.Rate = DefaultRate
	case c.Rate < MinRate:
		c.Rate = MinRate
	case c.Rate > MaxRate:
		c.Rate = MaxRate
	}
	return c
}
