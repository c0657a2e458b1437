// Package session maps external conversation identities to backend
// conversations. A session holds the backend conversation id, its scoped
// token, and the progress watermark for the activity feed. Sessions live
// for the process lifetime; the registry creates them lazily and at most
// once per external id, even under concurrent first turns.
package session
