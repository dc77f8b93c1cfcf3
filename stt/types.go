package stt

// Request holds parameters for a recognition call.
type Request struct {
	// Samples is mono float32 PCM in [-1, 1].
	Samples []float32 `json:"-"`
	// SampleRate is samples per second.
	SampleRate int `json:"sample_rate"`
	// Language is the expected language of the audio (e.g. "en").
	Language string `json:"language,omitempty"`
	// Model is the recognition model to use.
	Model string `json:"model,omitempty"`
}

// Result holds the result of a recognition call.
type Result struct {
	// Text is the full recognized text.
	Text string `json:"text"`
	// Segments contains time-aligned transcript segments.
	Segments []Segment `json:"segments,omitempty"`
	// Duration is the audio duration in seconds.
	Duration float64 `json:"duration,omitempty"`
	// Language is the detected or specified language.
	Language string `json:"language,omitempty"`
}

// Segment represents a time-aligned portion of a transcript.
type Segment struct {
	// Start is the segment start time in seconds.
	Start float64 `json:"start"`
	// End is the segment end time in seconds.
	End float64 `json:"end"`
	// Text is the recognized text for this segment.
	Text string `json:"text"`
	// Speaker is the identified speaker label, if available.
	Speaker string `json:"speaker,omitempty"`
}
