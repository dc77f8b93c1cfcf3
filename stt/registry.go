package stt

import "github.com/meetmind/meetmind/provider"

// NewRegistry creates a new provider registry for recognition backends.
func NewRegistry() *provider.Registry[Recognizer] {
	return provider.NewRegistry[Recognizer]()
}
