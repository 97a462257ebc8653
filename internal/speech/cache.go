package speech

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/hammamikhairi/voicehooks/internal/logger"
)

// AudioCache keeps synthesized utterances in memory and, optionally, as
// .wav files under cacheDir. Entries are keyed by sha256(voice, rate,
// text), so a settings change misses until the old settings return.
//
// The disk layer is always read when cacheDir is set; diskWrite decides
// whether new entries are written there too.
type AudioCache struct {
	mu        sync.RWMutex
	entries   map[string][]byte // hash -> WAV bytes
	log       *logger.Logger
	cacheDir  string // empty = no disk layer
	diskWrite bool
	hits      int64
	misses    int64
}

// NewAudioCache creates an audio cache. An empty cacheDir disables the
// disk layer.
func NewAudioCache(cacheDir string, diskWrite bool, log *logger.Logger) *AudioCache {
	c := &AudioCache{
		entries:   make(map[string][]byte),
		log:       log,
		cacheDir:  cacheDir,
		diskWrite: diskWrite,
	}

	if cacheDir != "" && diskWrite {
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			log.Error("cache: failed to create cache dir %s: %v", cacheDir, err)
		}
	}

	return c
}

// Get returns cached audio and true, or nil and false. Memory is checked
// before disk; disk hits are promoted to memory.
func (c *AudioCache) Get(voice string, rate int, text string) ([]byte, bool) {
	key := hashKey(voice, rate, text)

	c.mu.Lock()
	defer c.mu.Unlock()

	if data, ok := c.entries[key]; ok {
		c.hits++
		c.log.Debug("cache hit (mem): %s (%d bytes)", truncate(text, 40), len(data))
		return data, true
	}

	if c.cacheDir != "" {
		if data, err := os.ReadFile(c.diskPath(key)); err == nil {
			c.entries[key] = data
			c.hits++
			c.log.Debug("cache hit (disk): %s (%d bytes)", truncate(text, 40), len(data))
			return data, true
		}
	}

	c.misses++
	return nil, false
}

// Put stores audio. Always writes to memory; to disk only when enabled.
func (c *AudioCache) Put(voice string, rate int, text string, audio []byte) {
	key := hashKey(voice, rate, text)

	c.mu.Lock()
	c.entries[key] = audio
	size := len(c.entries)
	c.mu.Unlock()

	c.log.Debug("cache store (mem): %s (%d bytes, %d entries)", truncate(text, 40), len(audio), size)

	if c.cacheDir == "" || !c.diskWrite {
		return
	}
	path := c.diskPath(key)
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		c.log.Error("cache: disk write failed for %s: %v", path, err)
	}
}

// Has reports whether audio is cached in memory or on disk.
func (c *AudioCache) Has(voice string, rate int, text string) bool {
	key := hashKey(voice, rate, text)

	c.mu.RLock()
	_, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return true
	}
	if c.cacheDir == "" {
		return false
	}
	_, err := os.Stat(c.diskPath(key))
	return err == nil
}

// Stats returns hit and miss counts.
func (c *AudioCache) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

func (c *AudioCache) diskPath(key string) string {
	return filepath.Join(c.cacheDir, key+".wav")
}

func hashKey(voice string, rate int, text string) string {
	h := sha256.Sum256([]byte(voice + ":" + strconv.Itoa(rate) + ":" + text))
	return hex.EncodeToString(h[:])
}
