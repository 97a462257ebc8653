package domain

import (
	"errors"
	"math"
	"testing"
)

func TestVoiceConfigNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   VoiceConfig
		want VoiceConfig
	}{
		{
			name: "valid config unchanged",
			in:   VoiceConfig{Enabled: true, VoiceName: "Alex", Volume: 0.5, Rate: 180},
			want: VoiceConfig{Enabled: true, VoiceName: "Alex", Volume: 0.5, Rate: 180},
		},
		{
			name: "negative rate defaults",
			in:   VoiceConfig{VoiceName: "Alex", Volume: 1, Rate: -5},
			want: VoiceConfig{VoiceName: "Alex", Volume: 1, Rate: DefaultRate},
		},
		{
			name: "slow rate clamps to minimum",
			in:   VoiceConfig{VoiceName: "Alex", Volume: 1, Rate: 10},
			want: VoiceConfig{VoiceName: "Alex", Volume: 1, Rate: MinRate},
		},
		{
			name: "fast rate clamps to maximum",
			in:   VoiceConfig{VoiceName: "Alex", Volume: 1, Rate: 5000},
			want: VoiceConfig{VoiceName: "Alex", Volume: 1, Rate: MaxRate},
		},
		{
			name: "volume clamps",
			in:   VoiceConfig{VoiceName: "Alex", Volume: 3, Rate: 200},
			want: VoiceConfig{VoiceName: "Alex", Volume: 1, Rate: 200},
		},
		{
			name: "negative volume clamps to zero",
			in:   VoiceConfig{VoiceName: "Alex", Volume: -0.2, Rate: 200},
			want: VoiceConfig{VoiceName: "Alex", Volume: 0, Rate: 200},
		},
		{
			name: "empty voice defaults",
			in:   VoiceConfig{Volume: 1, Rate: 200},
			want: VoiceConfig{VoiceName: DefaultVoiceName, Volume: 1, Rate: 200},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Normalize(); got != tt.want {
				t.Fatalf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestVoiceConfigNormalizeNaNVolume(t *testing.T) {
	got := VoiceConfig{Volume: math.NaN(), Rate: 200}.Normalize()
	if got.Volume != DefaultVolume {
		t.Fatalf("volume = %v, want %v", got.Volume, DefaultVolume)
	}
}

func TestEventValidate(t *testing.T) {
	if err := (Event{Type: EventFileSaved}).Validate(); err != nil {
		t.Fatalf("file.saved: unexpected error %v", err)
	}
	if err := (Event{Type: "window.focus"}).Validate(); !errors.Is(err, ErrUnknownEvent) {
		t.Fatalf("unknown type: got %v, want ErrUnknownEvent", err)
	}
	if err := (Event{Type: EventNotify}).Validate(); !errors.Is(err, ErrInvalidEvent) {
		t.Fatalf("notify without key: got %v, want ErrInvalidEvent", err)
	}
	if err := (Event{Type: EventNotify, Key: KeyGitPush}).Validate(); err != nil {
		t.Fatalf("notify with key: unexpected error %v", err)
	}
}
