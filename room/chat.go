package room

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// ChatFilter enforces the chat length and per-player rate limits of one
// room. It is only used under the room lock.
type ChatFilter struct {
	maxLength    int
	maxPerMinute int
	history      map[string][]time.Time
	now          func() time.Time
}

func NewChatFilter(maxLength, maxPerMinute int) *ChatFilter {
	return &ChatFilter{
		maxLength:    maxLength,
		maxPerMinute: maxPerMinute,
		history:      make(map[string][]time.Time),
		now:          time.Now,
	}
}

// Allow validates text from playerID and returns it trimmed.
func (f *ChatFilter) Allow(playerID, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty chat message", ErrBadRequest)
	}
	if f.maxLength > 0 && utf8.RuneCountInString(text) > f.maxLength {
		return "", fmt.Errorf("%w: chat message longer than %d characters", ErrBadRequest, f.maxLength)
	}

	now := f.now()
	cutoff := now.Add(-time.Minute)
	recent := f.history[playerID][:0]
	for _, at := range f.history[playerID] {
		if at.After(cutoff) {
			recent = append(recent, at)
		}
	}
	if f.maxPerMinute > 0 && len(recent) >= f.maxPerMinute {
		f.history[playerID] = recent
		return "", fmt.Errorf("%w: at most %d chat messages per minute", ErrRateLimited, f.maxPerMinute)
	}
	f.history[playerID] = append(recent, now)
	return text, nil
}

func (f *ChatFilter) Forget(playerID string) {
	delete(f.history, playerID)
}
