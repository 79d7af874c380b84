package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os/exec"
	"time"

	"github.com/rs/zerolog/log"
)

// frameJPEGQuality controls the decode quality of extracted frames.
// qscale:v 2 is high quality (~95% JPEG), minimizing compression artifacts
// that would distort the heuristic measurements.
const frameJPEGQuality = "2"

// Frame is one decoded image sampled from the video. Immutable after
// creation: scorers only ever read it, and cross-stage handoff is by
// value of this struct.
type Frame struct {
	// Index is the frame's position in the source video.
	Index int

	// Timestamp is the frame's position in time, derived from Index and
	// the source frame rate.
	Timestamp time.Duration

	// Image is the decoded, color-normalized frame buffer.
	Image image.Image
}

// Store yields frames of a single video by index. Each Extract call runs
// its own ffmpeg invocation, so concurrent calls share no decode state.
type Store struct {
	meta       *Metadata
	ffmpegPath string
}

// NewStore creates a frame store for a probed video.
func NewStore(meta *Metadata) (*Store, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: frame extraction requires ffmpeg: %w", err)
	}
	return &Store{meta: meta, ffmpegPath: ffmpegPath}, nil
}

// Metadata returns the probed metadata for the store's video.
func (s *Store) Metadata() *Metadata {
	return s.meta
}

// Extract decodes the frame at the given index. The frame is seeked by
// timestamp, decoded to JPEG on ffmpeg's side, and decoded into an
// in-memory image here. Honors ctx cancellation and deadlines.
func (s *Store) Extract(ctx context.Context, index int) (Frame, error) {
	if index < 0 || index >= s.meta.TotalFrames {
		return Frame{}, fmt.Errorf("frame index %d out of range [0,%d)", index, s.meta.TotalFrames)
	}

	ts := s.timestampFor(index)

	// -ss before -i is a fast keyframe seek; -frames:v 1 stops after one
	// decoded frame. Output goes to stdout so no temp files are shared
	// between concurrent extractions.
	args := []string{
		"-ss", fmt.Sprintf("%.3f", ts.Seconds()),
		"-i", s.meta.Path,
		"-frames:v", "1",
		"-q:v", frameJPEGQuality,
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-",
	}

	cmd := exec.CommandContext(ctx, s.ffmpegPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Frame{}, fmt.Errorf("frame %d: %w", index, ctx.Err())
		}
		log.Debug().
			Int("frame", index).
			Str("stderr", truncate(stderr.String(), 300)).
			Msg("ffmpeg frame decode failed")
		return Frame{}, fmt.Errorf("decode frame %d: %w", index, err)
	}

	img, err := jpeg.Decode(bytes.NewReader(stdout.Bytes()))
	if err != nil {
		return Frame{}, fmt.Errorf("decode frame %d image: %w", index, err)
	}

	return Frame{Index: index, Timestamp: ts, Image: img}, nil
}

// timestampFor maps a frame index to its time offset.
func (s *Store) timestampFor(index int) time.Duration {
	if s.meta.FPS <= 0 {
		return 0
	}
	return time.Duration(float64(index) / s.meta.FPS * float64(time.Second))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
