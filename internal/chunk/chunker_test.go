package chunk

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunker_ShortInputSingleSegment(t *testing.T) {
	c := New(1200, 50)

	tests := []struct {
		name string
		text string
	}{
		{"one word", "hello"},
		{"sentence", "The quick brown fox jumps over the lazy dog."},
		{"exactly max", strings.Repeat("a", 1200)},
		{"multibyte", strings.Repeat("好", 1200)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments := c.Split(tt.text)
			if len(segments) != 1 {
				t.Fatalf("Expected 1 segment, got %d", len(segments))
			}
			if segments[0].Content != tt.text {
				t.Errorf("Segment content differs from input")
			}
			if segments[0].Index != 0 {
				t.Errorf("Expected index 0, got %d", segments[0].Index)
			}
		})
	}
}

func TestChunker_EmptyInput(t *testing.T) {
	c := New(1200, 50)
	for _, text := range []string{"", "   ", "\n\t "} {
		if segments := c.Split(text); segments != nil {
			t.Errorf("Expected no segments for %q, got %d", text, len(segments))
		}
	}
}

func TestChunker_ReconstructsInput(t *testing.T) {
	c := New(100, 10)

	tests := []struct {
		name string
		text string
	}{
		{"long prose", strings.Repeat("Some words here, followed by more words. ", 30)},
		{"no punctuation", strings.Repeat("x", 450)},
		{"chinese", strings.Repeat("这是一个测试句子。", 60)},
		{"mixed separators", strings.Repeat("alpha, beta; gamma. ", 25)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments := c.Split(tt.text)

			var b strings.Builder
			for i, s := range segments {
				if s.Index != i {
					t.Errorf("Segment %d has index %d", i, s.Index)
				}
				if n := utf8.RuneCountInString(s.Content); n > 100 {
					t.Errorf("Segment %d has %d runes, max is 100", i, n)
				}
				b.WriteString(s.Content)
			}
			if b.String() != tt.text {
				t.Errorf("Concatenated segments do not reproduce the input")
			}
		})
	}
}

func TestChunker_PrefersSentenceBoundaries(t *testing.T) {
	c := New(40, 5)

	// One sentence ends comfortably inside the limit; the cut should land
	// right after its terminal, not at the hard limit.
	text := "First sentence ends here. Second part keeps going for a while longer"
	segments := c.Split(text)

	if len(segments) < 2 {
		t.Fatalf("Expected multiple segments, got %d", len(segments))
	}
	if segments[0].Content != "First sentence ends here." {
		t.Errorf("Expected cut after sentence terminal, got %q", segments[0].Content)
	}
}

func TestChunker_FallsBackToClauseSeparator(t *testing.T) {
	c := New(40, 5)

	text := "no terminal punctuation here, just a clause and then more trailing words"
	segments := c.Split(text)

	if len(segments) < 2 {
		t.Fatalf("Expected multiple segments, got %d", len(segments))
	}
	if segments[0].Content != "no terminal punctuation here," {
		t.Errorf("Expected cut after clause separator, got %q", segments[0].Content)
	}
}

func TestChunker_HardCutWithoutBoundaries(t *testing.T) {
	c := New(30, 5)

	text := strings.Repeat("a", 75)
	segments := c.Split(text)

	if len(segments) != 3 {
		t.Fatalf("Expected 3 segments, got %d", len(segments))
	}
	if len(segments[0].Content) != 30 || len(segments[1].Content) != 30 || len(segments[2].Content) != 15 {
		t.Errorf("Unexpected segment lengths: %d, %d, %d",
			len(segments[0].Content), len(segments[1].Content), len(segments[2].Content))
	}
}

func TestChunker_RejectsTinyNaturalCut(t *testing.T) {
	c := New(30, 20)

	// The only punctuation sits near the segment start; honoring it would
	// produce a fragment below the minimum, so the hard cut wins.
	text := "Hi. " + strings.Repeat("b", 60)
	segments := c.Split(text)

	if len(segments[0].Content) != 30 {
		t.Errorf("Expected hard cut at 30 runes, got %d (%q)",
			len(segments[0].Content), segments[0].Content)
	}
}

func TestChunker_LongDocumentScenario(t *testing.T) {
	c := New(1200, 50)

	// Roughly 2500 characters with a period every ~400.
	sentence := strings.Repeat("word ", 79) + "end."
	text := strings.Repeat(sentence, 7)
	if len(text) < 2500 {
		t.Fatalf("Fixture too short: %d", len(text))
	}

	segments := c.Split(text)
	if len(segments) != 3 {
		t.Fatalf("Expected 3 segments, got %d", len(segments))
	}
	for i, s := range segments[:2] {
		if !strings.HasSuffix(s.Content, ".") {
			t.Errorf("Segment %d should end at a sentence terminal, got %q",
				i, s.Content[len(s.Content)-10:])
		}
	}

	var b strings.Builder
	for _, s := range segments {
		b.WriteString(s.Content)
	}
	if b.String() != text {
		t.Errorf("Concatenated segments do not reproduce the input")
	}
}

func TestNew_Defaults(t *testing.T) {
	c := New(0, 0)
	if c.maxSize != DefaultMaxSize || c.minSize != DefaultMinSize {
		t.Errorf("Expected defaults %d/%d, got %d/%d",
			DefaultMaxSize, DefaultMinSize, c.maxSize, c.minSize)
	}
}
