// Package dispatch hands accepted jobs to a worker. The event dispatcher
// feeds the in-process task runner; the HTTP dispatcher posts to a remote
// worker instance, authenticated with short-lived HMAC tokens. Dispatch is
// fire-once: a failed dispatch is reported to the caller, never retried.
package dispatch
