package audio

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"sync"
	"time"

	apperrors "github.com/meetmind/meetmind/errors"
	"github.com/meetmind/meetmind/logger"
)

// Source produces a stream of fixed-duration frames from an audio device
// or other capture backend.
type Source interface {
	// Name returns the source's identifier (device name, file path).
	Name() string
	// Start begins capture. Frames are delivered on the returned channel,
	// which is closed when capture ends or ctx is cancelled.
	Start(ctx context.Context) (<-chan Frame, error)
	// Close releases the capture backend.
	Close() error
}

// FFmpegSourceConfig configures an ffmpeg-backed device source.
type FFmpegSourceConfig struct {
	// Device is the capture device ("default", ":0", "hw:0").
	Device string
	// FFmpegPath is the ffmpeg binary path.
	FFmpegPath string
	SampleRate int
	// FrameSeconds is the slice duration per emitted frame.
	FrameSeconds float64
}

// FFmpegSource captures a device through an ffmpeg subprocess emitting raw
// little-endian float32 PCM on stdout.
type FFmpegSource struct {
	cfg FFmpegSourceConfig
	log *logger.Logger

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewFFmpegSource creates a device source.
func NewFFmpegSource(cfg FFmpegSourceConfig) *FFmpegSource {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.FrameSeconds == 0 {
		cfg.FrameSeconds = 0.25
	}
	return &FFmpegSource{
		cfg: cfg,
		log: logger.WithComponent("audio-source"),
	}
}

// Name returns the configured device identifier.
func (s *FFmpegSource) Name() string { return s.cfg.Device }

// Start launches ffmpeg and slices its stdout into frames.
func (s *FFmpegSource) Start(ctx context.Context) (<-chan Frame, error) {
	// ffmpeg -f <grabber> -i <device> -ac 1 -ar 16000 -f f32le -
	args := []string{
		"-loglevel", "error",
		"-f", inputFormat(),
		"-i", s.cfg.Device,
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", s.cfg.SampleRate),
		"-f", "f32le",
		"-",
	}
	cmd := exec.CommandContext(ctx, s.cfg.FFmpegPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, apperrors.CaptureUnavailable(s.cfg.Device, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, apperrors.CaptureUnavailable(s.cfg.Device, err)
	}

	s.mu.Lock()
	s.cmd = cmd
	s.mu.Unlock()

	frames := make(chan Frame, 8)
	go s.readLoop(ctx, stdout, frames)
	return frames, nil
}

func (s *FFmpegSource) readLoop(ctx context.Context, r io.Reader, frames chan<- Frame) {
	defer close(frames)

	samplesPerFrame := int(float64(s.cfg.SampleRate) * s.cfg.FrameSeconds)
	buf := make([]byte, samplesPerFrame*4)
	var seq uint64

	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			if err != io.EOF && ctx.Err() == nil {
				s.log.Warn("device read ended", logger.ErrorFields("read", err))
			}
			return
		}
		// buf is always a whole number of samples, so decode cannot fail.
		samples, err := DecodeSamples(buf)
		if err != nil {
			s.log.Warn("frame decode failed", logger.ErrorFields("decode", err))
			return
		}
		frame := Frame{
			Samples:    samples,
			SampleRate: s.cfg.SampleRate,
			Seq:        seq,
			Captured:   time.Now(),
		}
		seq++

		select {
		case frames <- frame:
		case <-ctx.Done():
			return
		}
	}
}

// Close terminates the ffmpeg subprocess.
func (s *FFmpegSource) Close() error {
	s.mu.Lock()
	cmd := s.cmd
	s.mu.Unlock()
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil {
		return err
	}
	_ = cmd.Wait()
	return nil
}

// inputFormat picks the ffmpeg capture grabber for the host platform.
func inputFormat() string {
	switch runtime.GOOS {
	case "darwin":
		return "avfoundation"
	case "windows":
		return "dshow"
	default:
		return "pulse"
	}
}
