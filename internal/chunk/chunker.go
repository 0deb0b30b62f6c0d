// Package chunk splits input text into bounded-size segments at natural
// boundaries so each piece can be synthesized independently.
package chunk

import (
	"strings"
	"unicode/utf8"
)

// Default segment size bounds, in runes.
const (
	DefaultMaxSize = 1200
	DefaultMinSize = 50
)

// Segment is one bounded slice of input text. Segments are ordered and
// concatenate to reproduce the original input exactly.
type Segment struct {
	Index   int
	Content string
}

// Chunker splits text into segments no longer than MaxSize runes, preferring
// to cut after sentence-terminal punctuation, then after clause separators,
// and falling back to a hard cut at MaxSize. It is a pure function over
// strings and never fails.
type Chunker struct {
	maxSize int
	minSize int
}

// New creates a Chunker. Non-positive bounds fall back to the defaults.
func New(maxSize, minSize int) *Chunker {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if minSize <= 0 {
		minSize = DefaultMinSize
	}
	return &Chunker{maxSize: maxSize, minSize: minSize}
}

// Split segments text. Empty or whitespace-only input yields no segments.
// Input at or under MaxSize is returned as a single segment equal to the
// input.
func (c *Chunker) Split(text string) []Segment {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= c.maxSize {
		return []Segment{{Index: 0, Content: text}}
	}

	runes := []rune(text)
	var segments []Segment
	start := 0
	for start < len(runes) {
		remaining := len(runes) - start
		if remaining <= c.maxSize {
			segments = append(segments, Segment{Index: len(segments), Content: string(runes[start:])})
			break
		}

		cut := c.findCut(runes, start)
		segments = append(segments, Segment{Index: len(segments), Content: string(runes[start:cut])})
		start = cut
	}
	return segments
}

// findCut returns the exclusive cut position for the segment beginning at
// start, searching backward from the size boundary: sentence terminals
// first, clause separators second, hard cut last. A natural cut that would
// leave the segment shorter than MinSize is rejected.
func (c *Chunker) findCut(runes []rune, start int) int {
	limit := start + c.maxSize

	for i := limit - 1; i > start; i-- {
		if isSentenceTerminal(runes[i]) {
			if i+1-start >= c.minSize {
				return i + 1
			}
			break
		}
	}

	for i := limit - 1; i > start; i-- {
		if isClauseSeparator(runes[i]) {
			if i+1-start >= c.minSize {
				return i + 1
			}
			break
		}
	}

	return limit
}

func isSentenceTerminal(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}

func isClauseSeparator(r rune) bool {
	switch r {
	case ',', ';', '，', '；', '、':
		return true
	}
	return false
}
