package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// DefaultSampleRate is the pipeline-wide PCM sample rate.
const DefaultSampleRate = 16000

// Frame is a fixed-duration slice of mono float32 PCM samples.
type Frame struct {
	// Samples holds normalized PCM in [-1, 1].
	Samples []float32
	// SampleRate is samples per second.
	SampleRate int
	// Seq is the capture-order sequence number.
	Seq uint64
	// Captured is when the frame was sliced from the source.
	Captured time.Time
}

// Duration returns the frame's play time.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(f.Samples)) / float64(f.SampleRate) * float64(time.Second))
}

// RMS returns the root-mean-square energy of the frame.
func (f Frame) RMS() float64 {
	return RMS(f.Samples)
}

// RMS returns the root-mean-square energy of a sample slice.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// EncodeSamples serializes samples as little-endian float32, the binary
// payload format of the session channel.
func EncodeSamples(samples []float32) []byte {
	buf := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}
	return buf
}

// DecodeSamples deserializes a little-endian float32 payload. Payloads
// shorter than one sample or not a whole number of samples are rejected.
func DecodeSamples(payload []byte) ([]float32, error) {
	if len(payload) < 4 {
		return nil, fmt.Errorf("payload too short: %d bytes", len(payload))
	}
	if len(payload)%4 != 0 {
		return nil, fmt.Errorf("payload length %d is not a whole number of samples", len(payload))
	}
	n := len(payload) / 4
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(payload[i*4:]))
	}
	return samples, nil
}
