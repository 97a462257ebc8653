package voice

import (
	"context"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/hammamikhairi/voicehooks/internal/domain"
	"github.com/hammamikhairi/voicehooks/internal/logger"
)

type step struct {
	key     domain.EventKey
	gap     time.Duration
	test    bool
	toggle  bool
	enabled bool
}

// TestNotifierMatchesModel drives a notifier with random event sequences
// and compares the number of backend invocations with a reference model of
// the debounce rules. Playback completes between steps, so only the
// enabled flag and the debounce table decide.
func TestNotifierMatchesModel(t *testing.T) {
	keys := []domain.EventKey{
		domain.KeyFileSave, domain.KeyEditorChange, domain.KeyCopilotAccept, "foo.bar",
	}

	rapid.Check(t, func(rt *rapid.T) {
		steps := rapid.SliceOfN(rapid.Custom(func(rt *rapid.T) step {
			return step{
				key:     rapid.SampledFrom(keys).Draw(rt, "key"),
				gap:     time.Duration(rapid.IntRange(0, 2500).Draw(rt, "gapMs")) * time.Millisecond,
				test:    rapid.IntRange(0, 9).Draw(rt, "test") == 0,
				toggle:  rapid.IntRange(0, 9).Draw(rt, "toggle") == 0,
				enabled: rapid.Bool().Draw(rt, "enabled"),
			}
		}), 1, 40).Draw(rt, "steps")

		clock := newFakeClock()
		backend := &fakeBackend{}
		n := New(backend, &fakeSource{cfg: domain.DefaultVoiceConfig()}, logger.Nop(), WithClock(clock.Now))

		enabled := true
		last := map[domain.EventKey]time.Time{}
		want := 0
		accept := func(key domain.EventKey) {
			if !enabled {
				return
			}
			now := clock.Now()
			if prev, ok := last[key]; ok && now.Sub(prev) < DefaultDebounce {
				return
			}
			last[key] = now
			want++
		}

		for _, s := range steps {
			clock.Advance(s.gap)
			switch {
			case s.toggle:
				was := enabled
				enabled = s.enabled
				n.SetEnabled(s.enabled)
				if !was && enabled {
					accept(domain.KeyExtensionEnable)
				}
			case s.test:
				n.TestNotify()
				want++
			default:
				n.Notify(s.key)
				accept(s.key)
			}
			waitIdleRapid(rt, n)
		}

		if got := len(backend.spoken()); got != want {
			rt.Fatalf("backend invocations = %d, model = %d", got, want)
		}
	})
}

func waitIdleRapid(rt *rapid.T, n *Notifier) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := n.Wait(ctx); err != nil {
		rt.Fatalf("notifier stuck speaking: %v", err)
	}
}
