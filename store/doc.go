// Package store persists finished meeting sessions: a local JSON file
// store plus a markdown export of the transcript and summary.
package store
