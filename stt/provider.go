package stt

import (
	"context"

	"github.com/meetmind/meetmind/provider"
)

// Recognizer is the interface that speech recognition backends must implement.
type Recognizer interface {
	provider.Provider // embeds Name() and IsAvailable()

	// Recognize sends audio for recognition and returns the result.
	Recognize(ctx context.Context, req Request) (*Result, error)
}
