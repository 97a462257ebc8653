package monitor

import (
	"strings"
	"unicode/utf8"

	"github.com/hammamikhairi/voicehooks/internal/domain"
	"github.com/hammamikhairi/voicehooks/internal/logger"
)

// DefaultKeywords are substrings that suggest a completed code suggestion
// was inserted. Overridden by the classifierKeywords setting.
var DefaultKeywords = []string{"function", "=>", "def "}

// minMultilineLen is the length a multi-line insertion must exceed to look
// like an accepted suggestion.
const minMultilineLen = 20

// ClassifierOption configures the Classifier.
type ClassifierOption func(*Classifier)

// WithKeywords replaces the keyword list. An empty list disables keyword
// matching; the multi-line rule still applies.
func WithKeywords(keywords []string) ClassifierOption {
	return func(c *Classifier) {
		c.keywords = nil
		for _, k := range keywords {
			if k != "" {
				c.keywords = append(c.keywords, k)
			}
		}
	}
}

// Compile-time interface check.
var _ Handler = (*Classifier)(nil)

// Classifier guesses when an AI code suggestion has been accepted by
// looking at inserted text. It is a heuristic: large pastes match too, and
// short completions may not.
type Classifier struct {
	notifier domain.Notifier
	keywords []string
	log      *logger.Logger
}

// NewClassifier creates a classifier using DefaultKeywords unless
// overridden.
func NewClassifier(notifier domain.Notifier, log *logger.Logger, opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		notifier: notifier,
		keywords: append([]string(nil), DefaultKeywords...),
		log:      log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Handle implements Handler.
func (c *Classifier) Handle(ev domain.Event) {
	switch ev.Type {
	case domain.EventTextChanged:
		if c.LooksLikeSuggestion(ev.Changes) {
			c.log.Debug("classifier: suggestion-like insertion in %s", ev.Path)
			c.notifier.Notify(domain.KeyCopilotAccept)
		}
	case domain.EventWorkspaceChanged:
		c.notifier.Notify(domain.KeyWorkspaceOpen)
	}
}

// LooksLikeSuggestion reports whether any change is a long multi-line
// insertion or contains a keyword.
func (c *Classifier) LooksLikeSuggestion(changes []domain.ContentChange) bool {
	for _, ch := range changes {
		if utf8.RuneCountInString(ch.Text) > minMultilineLen && strings.Contains(ch.Text, "\n") {
			return true
		}
		for _, k := range c.keywords {
			if strings.Contains(ch.Text, k) {
				return true
			}
		}
	}
	return false
}
