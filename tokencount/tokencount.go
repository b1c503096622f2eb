// Package tokencount provides deterministic token counting for prompt
// budget math.
package tokencount

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Counter counts tokens for a fixed encoding. It is safe for concurrent use.
type Counter struct {
	enc *tiktoken.Tiktoken
}

var (
	defaultOnce    sync.Once
	defaultCounter *Counter
	defaultErr     error
)

// New creates a Counter backed by the cl100k_base encoding, the vocabulary
// shared by most modern chat-completion models. If the encoding cannot be
// loaded (e.g. offline, with no cached vocabulary) it returns the error
// together with a Counter that uses a coarse character-count heuristic, so
// budget math never fails outright.
func New() (*Counter, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return &Counter{}, err
	}
	return &Counter{enc: enc}, nil
}

// Default returns a process-wide Counter, constructing it on first use.
func Default() *Counter {
	defaultOnce.Do(func() {
		defaultCounter, defaultErr = New()
		if defaultErr != nil {
			defaultCounter = &Counter{}
		}
	})
	return defaultCounter
}

// Count returns the number of tokens in s.
func (c *Counter) Count(s string) int {
	if c.enc == nil {
		return heuristicCount(s)
	}
	return len(c.enc.Encode(s, nil, nil))
}

// heuristicCount estimates tokens as roughly 4 characters per token, the
// common rule of thumb for English text, used only if the real tokenizer
// is unavailable.
func heuristicCount(s string) int {
	n := len(s) / 4
	if n == 0 && s != "" {
		n = 1
	}
	return n
}
