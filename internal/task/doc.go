// Package task manages background job queuing and processing. It provides the
// in-memory task runner, the concept-generation worker task that owns a job
// from dispatch to terminal status, and the event handler that bridges the
// two. Tasks are deliberately not persisted: there is no recovery queue and a
// failed job is never retried automatically.
package task
