// Package meeting owns the session aggregate: the recording state machine,
// ordered transcript assembly with a single active partial segment, insight
// ordering, and per-session speaker tracking.
package meeting
