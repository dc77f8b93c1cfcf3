// Package session implements the duplex meeting channel: the typed wire
// protocol (JSON control messages plus binary PCM frames), the server-side
// hub binding each connection to a transcription engine, insight pipeline,
// and meeting session, and the reconnecting capture-side client.
package session
