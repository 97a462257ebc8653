package speech

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hammamikhairi/voicehooks/internal/domain"
	"github.com/hammamikhairi/voicehooks/internal/logger"
)

// AzureOption configures the Azure TTS client.
type AzureOption func(*AzureClient)

// WithVoice sets the fallback neural voice.
func WithVoice(voice string) AzureOption {
	return func(c *AzureClient) {
		c.voice = voice
	}
}

// WithHTTPTimeout sets the HTTP client timeout for TTS requests.
// Non-positive values keep the default.
func WithHTTPTimeout(d time.Duration) AzureOption {
	return func(c *AzureClient) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithEndpoint overrides the synthesis URL. Used by tests and sovereign
// cloud deployments.
func WithEndpoint(url string) AzureOption {
	return func(c *AzureClient) {
		c.endpoint = url
	}
}

// AzureClient handles text-to-speech synthesis via Azure Cognitive Services.
type AzureClient struct {
	subscriptionKey string
	endpoint        string
	voice           string
	httpClient      *http.Client
	log             *logger.Logger
}

// NewAzureClient creates an Azure TTS client with the given credentials.
func NewAzureClient(key, region string, log *logger.Logger, opts ...AzureOption) *AzureClient {
	c := &AzureClient{
		subscriptionKey: key,
		endpoint:        fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", region),
		voice:           DefaultAzureVoice,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// VoiceFor picks the neural voice for cfg. Desktop voice names such as
// "Samantha" are not valid Azure voices, so only names ending in
// "Neural" are honoured.
func (c *AzureClient) VoiceFor(cfg domain.VoiceConfig) string {
	if strings.HasSuffix(cfg.VoiceName, "Neural") {
		return cfg.VoiceName
	}
	return c.voice
}

// Synthesize converts text to speech audio data (WAV bytes).
func (c *AzureClient) Synthesize(ctx context.Context, text string, cfg domain.VoiceConfig) ([]byte, error) {
	voice := c.VoiceFor(cfg)
	ssml := buildSSML(text, voice, cfg.Rate)
	c.log.Debug("azure tts: synthesizing %d chars with voice %s", len(text), voice)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(ssml))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)
	req.Header.Set("Content-Type", "application/ssml+xml")
	// The player only decodes this format.
	req.Header.Set("X-Microsoft-OutputFormat", DefaultAudioFormat)
	req.Header.Set("User-Agent", "voicehooks/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("azure tts error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading audio data: %w", err)
	}

	c.log.Debug("azure tts: got %d bytes of audio", len(audioData))
	return audioData, nil
}

// buildSSML creates SSML markup for the synthesis request. Text and voice
// are XML-escaped.
func buildSSML(text, voice string, rate int) string {
	return fmt.Sprintf(
		`<speak version='1.0' xml:lang='en-US'><voice xml:lang='en-US' name='%s'><prosody rate='%s'>%s</prosody></voice></speak>`,
		xmlEscape(voice), prosodyRate(rate), xmlEscape(text),
	)
}

// prosodyRate expresses wpm relative to the 200 wpm baseline, e.g. "+25%".
func prosodyRate(wpm int) string {
	pct := int(math.Round((float64(wpm)/baselineRate - 1) * 100))
	return fmt.Sprintf("%+d%%", pct)
}

func xmlEscape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// ── Backend ──────────────────────────────────────────────────────

// Compile-time interface check.
var _ domain.SpeechBackend = (*Azure)(nil)

// AudioPlayer plays WAV data and blocks until playback ends.
type AudioPlayer interface {
	Play(ctx context.Context, wav []byte, volume float64) error
}

// BackendOption configures the Azure backend.
type BackendOption func(*Azure)

// WithCachedTexts limits the audio cache to texts. Anything else, such as
// the raw key spoken for an unknown event, is synthesized on every call.
func WithCachedTexts(texts ...string) BackendOption {
	return func(a *Azure) {
		a.cacheable = make(map[string]bool, len(texts))
		for _, text := range texts {
			a.cacheable[text] = true
		}
	}
}

// Azure is a SpeechBackend that synthesizes through Azure and plays the
// result locally. Synthesized audio is cached, so the small fixed set of
// utterances is only fetched once per voice and rate.
type Azure struct {
	client *AzureClient
	player AudioPlayer
	cache  *AudioCache
	log    *logger.Logger

	// cacheable is nil when every text may be cached.
	cacheable map[string]bool
}

// NewAzure wires a client, a player and a cache into a backend.
func NewAzure(client *AzureClient, player AudioPlayer, cache *AudioCache, log *logger.Logger, opts ...BackendOption) *Azure {
	a := &Azure{client: client, player: player, cache: cache, log: log}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Speak synthesizes (or fetches from cache) and plays text.
func (a *Azure) Speak(ctx context.Context, text string, cfg domain.VoiceConfig) error {
	audio, err := a.synthesizeWithCache(ctx, text, cfg)
	if err != nil {
		return err
	}
	return a.player.Play(ctx, audio, cfg.Volume)
}

// Prefetch synthesizes texts that are not cached yet, one after another in
// a background goroutine. Non-blocking.
func (a *Azure) Prefetch(ctx context.Context, cfg domain.VoiceConfig, texts ...string) {
	go func() {
		for _, text := range texts {
			if text == "" || a.cache.Has(a.client.VoiceFor(cfg), cfg.Rate, text) {
				continue
			}
			if _, err := a.synthesizeWithCache(ctx, text, cfg); err != nil {
				a.log.Warn("prefetch: %q: %v", truncate(text, 40), err)
				return
			}
		}
		a.log.Debug("prefetch: done (%d texts)", len(texts))
	}()
}

func (a *Azure) synthesizeWithCache(ctx context.Context, text string, cfg domain.VoiceConfig) ([]byte, error) {
	if a.cacheable != nil && !a.cacheable[text] {
		return a.client.Synthesize(ctx, text, cfg)
	}
	voice := a.client.VoiceFor(cfg)
	if audio, ok := a.cache.Get(voice, cfg.Rate, text); ok {
		return audio, nil
	}
	audio, err := a.client.Synthesize(ctx, text, cfg)
	if err != nil {
		return nil, err
	}
	a.cache.Put(voice, cfg.Rate, text, audio)
	return audio, nil
}

// truncate shortens a string for logging to at most maxLen runes.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	r := []rune(s)
	return string(r[:maxLen-3]) + "..."
}
