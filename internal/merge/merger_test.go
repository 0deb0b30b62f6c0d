package merge

import (
	"bytes"
	"context"
	"testing"
)

func TestConcatMerger_SingleSegmentPassthrough(t *testing.T) {
	m := ConcatMerger{}

	in := []byte("single segment")
	out, err := m.Merge(context.Background(), [][]byte{in})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if !bytes.Equal(out, in) {
		t.Errorf("Single segment should pass through unchanged")
	}
}

func TestConcatMerger_PreservesOrder(t *testing.T) {
	m := ConcatMerger{}

	segments := [][]byte{[]byte("aaa"), []byte("bbb"), []byte("ccc")}
	out, err := m.Merge(context.Background(), segments)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if string(out) != "aaabbbccc" {
		t.Errorf("Expected ordered concatenation, got %q", out)
	}
}

func TestConcatMerger_EmptyInput(t *testing.T) {
	m := ConcatMerger{}

	if _, err := m.Merge(context.Background(), nil); err == nil {
		t.Errorf("Expected an error for empty input")
	}
}

func TestConcatFilter(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{2, "[0:a]apad=pad_dur=0.2[p0];[p0][1:a]concat=n=2:v=0:a=1[out]"},
		{3, "[0:a]apad=pad_dur=0.2[p0];[1:a]apad=pad_dur=0.2[p1];[p0][p1][2:a]concat=n=3:v=0:a=1[out]"},
	}
	for _, tt := range tests {
		if got := concatFilter(tt.n); got != tt.want {
			t.Errorf("concatFilter(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestMergerNames(t *testing.T) {
	if (ConcatMerger{}).Name() != "concat" {
		t.Errorf("Unexpected concat merger name")
	}
	if (&FFmpegMerger{}).Name() != "ffmpeg" {
		t.Errorf("Unexpected ffmpeg merger name")
	}
}
