// Package video owns access to the source video: container metadata via
// ffprobe and seek-by-index frame decoding via ffmpeg. It is the leaf
// dependency of the pipeline and holds no concurrency of its own; callers
// invoke Extract from as many goroutines as they like because every call
// runs an independent decode invocation.
package video

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrInput marks fatal input problems: the video is missing, unreadable,
// or has no frames. Input errors abort the single-video run; every other
// failure in the pipeline degrades into the verdict instead.
var ErrInput = errors.New("invalid input video")

// Metadata describes the source video as reported by ffprobe.
type Metadata struct {
	Path        string
	Filename    string
	Duration    time.Duration
	FPS         float64
	TotalFrames int
	Width       int
	Height      int
	Codec       string
	SizeBytes   int64
	BitRate     int64
}

// Resolution returns the video dimensions as "WxH".
func (m *Metadata) Resolution() string {
	return fmt.Sprintf("%dx%d", m.Width, m.Height)
}

// ffprobeOutput is the JSON structure emitted by ffprobe.
type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
	Size     string `json:"size"`
	BitRate  string `json:"bit_rate"`
}

type ffprobeStream struct {
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	RFrameRate string `json:"r_frame_rate"`
	NbFrames   string `json:"nb_frames"`
}

// CheckToolsAvailable verifies that ffprobe and ffmpeg are in PATH.
// Called at startup so a missing FFmpeg install fails fast with a clear
// message instead of failing per frame.
func CheckToolsAvailable() error {
	for _, tool := range []string{"ffprobe", "ffmpeg"} {
		if _, err := exec.LookPath(tool); err != nil {
			return fmt.Errorf("%s not found in PATH: install FFmpeg with: brew install ffmpeg (macOS) or apt install ffmpeg (Linux)", tool)
		}
	}
	return nil
}

// Probe extracts video metadata with ffprobe. Containers that omit the
// frame count get it recovered from duration and frame rate; a zero frame
// count after recovery is an input error.
func Probe(ctx context.Context, path string) (*Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInput, path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInput, path)
	}

	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found: %w", err)
	}

	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: ffprobe failed for %s: %v", ErrInput, path, err)
	}

	var probe ffprobeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var stream *ffprobeStream
	for i := range probe.Streams {
		if probe.Streams[i].CodecType == "video" {
			stream = &probe.Streams[i]
			break
		}
	}
	if stream == nil {
		return nil, fmt.Errorf("%w: no video stream in %s", ErrInput, path)
	}

	meta := &Metadata{
		Path:     path,
		Filename: baseName(path),
		Width:    stream.Width,
		Height:   stream.Height,
		Codec:    stream.CodecName,
		FPS:      parseFrameRate(stream.RFrameRate),
	}

	if d, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		meta.Duration = time.Duration(d * float64(time.Second))
	}
	if s, err := strconv.ParseInt(probe.Format.Size, 10, 64); err == nil {
		meta.SizeBytes = s
	}
	if b, err := strconv.ParseInt(probe.Format.BitRate, 10, 64); err == nil {
		meta.BitRate = b
	}
	if n, err := strconv.Atoi(stream.NbFrames); err == nil {
		meta.TotalFrames = n
	}

	// Some containers omit nb_frames; recover it from duration and rate.
	if meta.TotalFrames == 0 && meta.FPS > 0 {
		meta.TotalFrames = int(math.Round(meta.Duration.Seconds() * meta.FPS))
	}

	if meta.TotalFrames == 0 {
		return nil, fmt.Errorf("%w: %s has no frames", ErrInput, path)
	}

	log.Debug().
		Str("video", meta.Filename).
		Int("total_frames", meta.TotalFrames).
		Float64("fps", meta.FPS).
		Dur("duration", meta.Duration).
		Str("codec", meta.Codec).
		Msg("Video probed")

	return meta, nil
}

// parseFrameRate parses an ffprobe fraction like "30000/1001".
func parseFrameRate(s string) float64 {
	num, den, found := strings.Cut(s, "/")
	if !found {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
		return 0
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}

func baseName(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
