package probe

import (
	"context"
	"log/slog"
)

// StubProber reports empty metadata for every file. It stands in when
// ffmpeg is not installed, matching the degraded-probe contract: items keep
// duration 0 and no audio.
type StubProber struct {
	logger *slog.Logger
}

func NewStubProber(logger *slog.Logger) *StubProber {
	return &StubProber{logger: logger}
}

func (p *StubProber) Probe(ctx context.Context, path string) (Result, error) {
	if p.logger != nil {
		p.logger.Info("probe stub: metadata requested (ffmpeg unavailable)", "path", path)
	}
	return Result{}, nil
}
