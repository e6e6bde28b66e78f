package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

// FFmpegProber runs ffprobe for stream metadata and ffmpeg for the
// thumbnail frame. Every invocation is bounded by the configured timeout so
// a malformed file can never hang a probe goroutine.
type FFmpegProber struct {
	ffprobePath  string
	ffmpegPath   string
	thumbnailDir string
	timeout      time.Duration
	logger       *slog.Logger
}

func NewFFmpegProber(thumbnailDir string, timeout time.Duration, logger *slog.Logger) (*FFmpegProber, error) {
	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return nil, fmt.Errorf("cannot locate ffprobe: %w", err)
	}
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("cannot locate ffmpeg: %w", err)
	}

	if err := os.MkdirAll(thumbnailDir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create thumbnail dir: %w", err)
	}

	if logger != nil {
		logger.Info("media prober initialised", "ffprobe", ffprobePath, "ffmpeg", ffmpegPath)
	}

	return &FFmpegProber{
		ffprobePath:  ffprobePath,
		ffmpegPath:   ffmpegPath,
		thumbnailDir: thumbnailDir,
		timeout:      timeout,
		logger:       logger,
	}, nil
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func (p *FFmpegProber) Probe(ctx context.Context, path string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	out, err := p.runFFprobe(ctx, path)
	if err != nil {
		return Result{}, err
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return Result{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var result Result
	if parsed.Format.Duration != "" {
		if d, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil && d > 0 {
			result.Duration = d
		}
	}

	hasVideo := false
	for _, stream := range parsed.Streams {
		switch stream.CodecType {
		case "audio":
			result.HasAudio = true
		case "video":
			hasVideo = true
		}
	}

	if hasVideo {
		thumbPath, err := p.extractThumbnail(ctx, path)
		if err != nil {
			// Thumbnail loss is not fatal; duration and audio flags
			// are still worth keeping.
			if p.logger != nil {
				p.logger.Warn("thumbnail extraction failed", "error", err)
			}
		} else {
			result.ThumbnailPath = thumbPath
		}
	}

	return result, nil
}

func (p *FFmpegProber) runFFprobe(ctx context.Context, path string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-show_entries", "stream=codec_type",
		"-of", "json",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("ffprobe timed out after %s", p.timeout)
		}
		return nil, fmt.Errorf("ffprobe failed: %w: %s", err, stderrTail(&stderr))
	}
	return stdout.Bytes(), nil
}

func (p *FFmpegProber) extractThumbnail(ctx context.Context, path string) (string, error) {
	base := filepath.Base(path)
	outPath := filepath.Join(p.thumbnailDir, base+".jpg")

	cmd := exec.CommandContext(ctx, p.ffmpegPath,
		"-y",
		"-ss", fmt.Sprintf("%.2f", thumbnailOffset),
		"-i", path,
		"-frames:v", "1",
		"-q:v", "4",
		outPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(outPath)
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("ffmpeg timed out after %s", p.timeout)
		}
		return "", fmt.Errorf("ffmpeg failed: %w: %s", err, stderrTail(&stderr))
	}
	return outPath, nil
}

func stderrTail(buf *bytes.Buffer) string {
	b := buf.Bytes()
	if len(b) > maxStderrBytes {
		b = b[len(b)-maxStderrBytes:]
	}
	return string(bytes.TrimSpace(b))
}
