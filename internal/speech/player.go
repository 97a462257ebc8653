package speech

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/hammamikhairi/voicehooks/internal/logger"
)

// Compile-time interface check.
var _ AudioPlayer = (*Player)(nil)

// Player plays 16-bit PCM WAV data through oto. oto allows a single
// context per process, so the sample rate is fixed at construction.
type Player struct {
	ctx        *oto.Context
	sampleRate int
	channels   int
	log        *logger.Logger

	mu     sync.Mutex
	active *oto.Player // currently playing, nil when idle
}

// NewPlayer initializes the system audio device. Returns an error if the
// device is unavailable.
func NewPlayer(log *logger.Logger) (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("audio device: %w", err)
	}
	<-readyChan

	log.Debug("audio player initialized (rate=%d, channels=%d)", SampleRate, ChannelCount)
	return &Player{ctx: ctx, sampleRate: SampleRate, channels: ChannelCount, log: log}, nil
}

// Play plays WAV data at the given volume (0..1). Blocks until playback
// finishes, ctx is done, or Stop is called.
func (p *Player) Play(ctx context.Context, wavData []byte, volume float64) error {
	w, err := parseWAV(wavData)
	if err != nil {
		return err
	}
	if w.sampleRate != p.sampleRate || w.channels != p.channels || w.bitDepth != BitDepth {
		return fmt.Errorf("unsupported wav format %dHz/%dch/%dbit", w.sampleRate, w.channels, w.bitDepth)
	}

	player := p.ctx.NewPlayer(bytes.NewReader(w.pcm))
	player.SetVolume(volume)

	p.mu.Lock()
	p.active = player
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.active = nil
		p.mu.Unlock()
	}()

	player.Play()
	p.log.Debug("audio player: playing %d bytes of PCM", len(w.pcm))

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			_ = player.Close()
			return ctx.Err()
		case <-ticker.C:
		}
	}

	return player.Close()
}

// Stop interrupts the current playback, if any. Safe to call concurrently
// and when nothing is playing.
func (p *Player) Stop() {
	p.mu.Lock()
	active := p.active
	p.mu.Unlock()

	if active != nil {
		active.Pause()
		p.log.Debug("audio player: interrupted")
	}
}

type wavData struct {
	sampleRate int
	channels   int
	bitDepth   int
	pcm        []byte
}

// parseWAV walks the RIFF chunks and returns the format and raw PCM.
func parseWAV(wav []byte) (wavData, error) {
	var out wavData
	if len(wav) < 44 {
		return out, errors.New("wav data too short")
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return out, errors.New("not a valid WAV file")
	}

	pos := 12
	for pos+8 <= len(wav) {
		chunkID := string(wav[pos : pos+4])
		chunkSize := int(binary.LittleEndian.Uint32(wav[pos+4 : pos+8]))
		body := pos + 8

		switch chunkID {
		case "fmt ":
			if body+16 > len(wav) {
				return out, errors.New("truncated fmt chunk")
			}
			out.channels = int(binary.LittleEndian.Uint16(wav[body+2 : body+4]))
			out.sampleRate = int(binary.LittleEndian.Uint32(wav[body+4 : body+8]))
			out.bitDepth = int(binary.LittleEndian.Uint16(wav[body+14 : body+16]))
		case "data":
			if out.sampleRate == 0 {
				return out, errors.New("data chunk before fmt chunk")
			}
			end := body + chunkSize
			if end > len(wav) {
				end = len(wav)
			}
			out.pcm = wav[body:end]
			return out, nil
		}

		pos = body + chunkSize
		// Chunks are word-aligned.
		if chunkSize%2 != 0 {
			pos++
		}
	}

	return out, errors.New("data chunk not found in WAV")
}
