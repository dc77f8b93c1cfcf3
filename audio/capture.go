package audio

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/meetmind/meetmind/logger"
)

// CapturerConfig configures the silence gate.
type CapturerConfig struct {
	// SilenceRMS is the RMS energy below which a frame is dropped.
	SilenceRMS float64
}

// CapturerStats reports frame counters for a capture run.
type CapturerStats struct {
	Emitted uint64 `json:"emitted"`
	Dropped uint64 `json:"dropped"`
}

// Capturer reads frames from a Source and forwards the voiced ones.
//
// The silence gate never delays audio: a frame at or above the threshold
// is forwarded immediately, one below it is dropped and counted.
type Capturer struct {
	source Source
	cfg    CapturerConfig
	log    *logger.Logger

	emitted atomic.Uint64
	dropped atomic.Uint64

	mu      sync.Mutex
	running bool
}

// NewCapturer creates a Capturer over the given source.
func NewCapturer(source Source, cfg CapturerConfig) *Capturer {
	return &Capturer{
		source: source,
		cfg:    cfg,
		log:    logger.WithComponent("capturer"),
	}
}

// Run starts the source and forwards voiced frames to emit until the
// source ends or ctx is cancelled. It returns the run's frame counters.
func (c *Capturer) Run(ctx context.Context, emit func(Frame)) (CapturerStats, error) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return CapturerStats{}, nil
	}
	c.running = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}()

	frames, err := c.source.Start(ctx)
	if err != nil {
		return CapturerStats{}, err
	}

	c.log.Info("capture started", logger.Fields("source", c.source.Name(), "silence_rms", c.cfg.SilenceRMS))

	for {
		select {
		case <-ctx.Done():
			return c.Stats(), ctx.Err()
		case frame, ok := <-frames:
			if !ok {
				return c.Stats(), nil
			}
			if frame.RMS() < c.cfg.SilenceRMS {
				c.dropped.Add(1)
				continue
			}
			c.emitted.Add(1)
			emit(frame)
		}
	}
}

// Stats returns the current frame counters.
func (c *Capturer) Stats() CapturerStats {
	return CapturerStats{
		Emitted: c.emitted.Load(),
		Dropped: c.dropped.Load(),
	}
}
