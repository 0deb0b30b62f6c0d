// Package merge assembles per-segment audio into one playable artifact.
//
// Two strategies exist: an ffmpeg-backed merger that decodes, joins with a
// short silence gap, and re-encodes once for a uniform output format, and a
// raw byte concatenation fallback used when ffmpeg is not installed. The
// strategy is selected once at startup; callers only see the Merger
// interface.
package merge

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Gap is the silence inserted between consecutive segments in
// high-quality mode.
const Gap = 200 * time.Millisecond

// ffmpegTimeout bounds a single merge invocation.
const ffmpegTimeout = 60 * time.Second

// Merger combines ordered segment audio into a single artifact. A
// single-segment input is returned unchanged by every implementation.
type Merger interface {
	Merge(ctx context.Context, segments [][]byte) ([]byte, error)
	Name() string
}

// Detect selects the best available merge strategy. The capability check
// runs once; per-call feature detection is deliberately avoided.
func Detect(tempDir string, logger *log.Logger) Merger {
	if logger == nil {
		logger = log.Default()
	}
	if _, err := exec.LookPath("ffmpeg"); err == nil {
		logger.Debug("ffmpeg found, using high-quality merge")
		return &FFmpegMerger{tempDir: tempDir, logger: logger}
	}
	logger.Warn("ffmpeg not found, multi-segment audio will be concatenated raw; transitions may be abrupt")
	return ConcatMerger{}
}

// ConcatMerger joins raw segment byte streams in order with no gap and no
// re-encoding. Zero dependencies, at the cost of audio smoothness.
type ConcatMerger struct{}

// Name implements Merger.
func (ConcatMerger) Name() string { return "concat" }

// Merge implements Merger.
func (ConcatMerger) Merge(_ context.Context, segments [][]byte) ([]byte, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("no segments to merge")
	}
	if len(segments) == 1 {
		return segments[0], nil
	}

	total := 0
	for _, s := range segments {
		total += len(s)
	}
	out := make([]byte, 0, total)
	for _, s := range segments {
		out = append(out, s...)
	}
	return out, nil
}

// FFmpegMerger decodes each segment, concatenates with a silence gap
// between consecutive segments, and re-encodes once. Output format is
// uniform regardless of per-segment encoding variance.
type FFmpegMerger struct {
	tempDir string
	logger  *log.Logger
}

// Name implements Merger.
func (m *FFmpegMerger) Name() string { return "ffmpeg" }

// Merge implements Merger.
func (m *FFmpegMerger) Merge(ctx context.Context, segments [][]byte) ([]byte, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("no segments to merge")
	}
	if len(segments) == 1 {
		return segments[0], nil
	}

	workDir, err := os.MkdirTemp(m.tempDir, "saypipe-merge-*")
	if err != nil {
		return nil, fmt.Errorf("create merge workspace: %w", err)
	}
	defer os.RemoveAll(workDir)

	args := make([]string, 0, 2*len(segments)+8)
	for i, segment := range segments {
		path := filepath.Join(workDir, fmt.Sprintf("segment_%03d.mp3", i))
		if err := os.WriteFile(path, segment, 0o644); err != nil {
			return nil, fmt.Errorf("write segment %d: %w", i, err)
		}
		args = append(args, "-i", path)
	}

	outPath := filepath.Join(workDir, "merged.mp3")
	args = append(args,
		"-filter_complex", concatFilter(len(segments)),
		"-map", "[out]",
		"-c:a", "libmp3lame",
		"-q:a", "4",
		outPath,
	)

	ctx, cancel := context.WithTimeout(ctx, ffmpegTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ffmpeg merge timeout: %w", ctx.Err())
		}
		return nil, fmt.Errorf("ffmpeg failed: %w, stderr: %s", err, stderr.String())
	}

	merged, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read merged output: %w", err)
	}
	if len(merged) == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output, stderr: %s", stderr.String())
	}

	m.logger.Debug("merged segments", "count", len(segments), "bytes", len(merged))
	return merged, nil
}

// concatFilter builds the filter graph: every segment but the last is
// padded with the silence gap, then all are concatenated and re-encoded.
func concatFilter(n int) string {
	var b strings.Builder
	pad := fmt.Sprintf("%.1f", Gap.Seconds())
	for i := 0; i < n-1; i++ {
		fmt.Fprintf(&b, "[%d:a]apad=pad_dur=%s[p%d];", i, pad, i)
	}
	for i := 0; i < n-1; i++ {
		fmt.Fprintf(&b, "[p%d]", i)
	}
	fmt.Fprintf(&b, "[%d:a]concat=n=%d:v=0:a=1[out]", n-1, n)
	return b.String()
}
