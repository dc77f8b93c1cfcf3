// Package stt defines the speech recognition provider interface and the
// streaming transcription engine.
//
// It follows the provider pattern with a pluggable registry for
// runtime-selectable backends.
//
// # Backends
//
//   - stt/whisper: faster-whisper HTTP sidecar
//
// # Usage
//
//	reg := stt.NewRegistry()
//	reg.RegisterFactory("whisper", whisper.Factory())
//	rec, err := reg.Create("whisper", cfg)
//	engine := stt.NewEngine(rec, stt.EngineConfig{})
package stt
