// Package events defines the event types and emitter used to decouple job
// acceptance from background task execution.
//
// The HTTP layer's job service emits a TaskRequestEvent when a job is
// accepted; a handler in the task package turns that event into a runnable
// task and submits it to the runner. Neither side imports the other, which
// keeps the dependency graph acyclic.
package events
