package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hammamikhairi/voicehooks/internal/catalog"
	"github.com/hammamikhairi/voicehooks/internal/config"
	"github.com/hammamikhairi/voicehooks/internal/domain"
	"github.com/hammamikhairi/voicehooks/internal/logger"
	"github.com/hammamikhairi/voicehooks/internal/speech"
)

// buildBackend assembles the speech backend named by opts.backendName.
// "auto" prefers Azure when credentials are set and falls back to the
// platform synthesizer. The returned func releases audio resources.
func buildBackend(ctx context.Context, opts options, cat *catalog.Catalog, settings config.Settings, log *logger.Logger) (domain.SpeechBackend, func(), error) {
	noop := func() {}
	cfg := settings.Voice
	newSystem := func() *speech.System {
		return speech.NewSystem(log, speech.WithLinuxVoice(settings.LinuxVoice))
	}

	switch opts.backendName {
	case "none":
		log.Info("speech disabled (backend=none)")
		return speech.NewNoOp(log), noop, nil

	case "system":
		sys := newSystem()
		if !sys.Available() {
			return nil, nil, fmt.Errorf("%w: no system synthesizer found", domain.ErrBackendUnavailable)
		}
		return sys, noop, nil

	case "azure":
		az, closeFn, err := newAzure(ctx, opts, cat, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return az, closeFn, nil

	case "auto", "":
		var chain []speech.Named
		closeFn := noop
		if az, c, err := newAzure(ctx, opts, cat, cfg, log); err == nil {
			chain = append(chain, speech.Named{Name: "azure", Backend: az})
			closeFn = c
		} else {
			log.Info("azure speech unavailable: %v", err)
		}
		if sys := newSystem(); sys.Available() {
			chain = append(chain, speech.Named{Name: "system", Backend: sys})
		}
		if len(chain) == 0 {
			log.Warn("no speech backend available, notifications will be silent")
			return speech.NewNoOp(log), closeFn, nil
		}
		return speech.NewFallback(log, chain...), closeFn, nil
	}
	return nil, nil, fmt.Errorf("unknown backend %q (want auto, system, azure or none)", opts.backendName)
}

func newAzure(ctx context.Context, opts options, cat *catalog.Catalog, cfg domain.VoiceConfig, log *logger.Logger) (*speech.Azure, func(), error) {
	key := os.Getenv(speech.EnvAzureSpeechKey)
	region := os.Getenv(speech.EnvAzureSpeechRegion)
	if key == "" || region == "" {
		return nil, nil, fmt.Errorf("%w: set %s and %s", domain.ErrBackendUnavailable, speech.EnvAzureSpeechKey, speech.EnvAzureSpeechRegion)
	}

	player, err := speech.NewPlayer(log)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: audio player: %v", domain.ErrBackendUnavailable, err)
	}

	clientOpts := []speech.AzureOption{speech.WithHTTPTimeout(opts.speakTimeout)}
	if voice := os.Getenv(speech.EnvAzureSpeechVoice); voice != "" {
		clientOpts = append(clientOpts, speech.WithVoice(voice))
	}
	client := speech.NewAzureClient(key, region, log, clientOpts...)
	cache := speech.NewAudioCache(opts.cacheDir, opts.diskCache, log)
	// Only catalog phrases are cached; raw keys from unknown events are not.
	az := speech.NewAzure(client, player, cache, log, speech.WithCachedTexts(cat.Texts()...))

	// Warm the cache so the first notifications play without a round trip.
	az.Prefetch(ctx, cfg, cat.Texts()...)

	log.Info("azure speech enabled (voice=%s, region=%s)", client.VoiceFor(cfg), region)
	return az, player.Stop, nil
}
