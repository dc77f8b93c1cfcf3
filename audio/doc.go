// Package audio provides capture-side audio primitives: fixed-duration PCM
// frames, RMS energy measurement, audio sources, and the Capturer with its
// energy-based silence gate.
//
// All audio is 16 kHz mono float32 PCM. Frames are sliced to a fixed
// duration (250 ms by default) before the silence gate and transmission.
package audio
