// Package store defines the job document store contract shared by all
// backends, including the optimistic compare-and-retry update discipline and
// per-job snapshot subscriptions, plus an in-memory implementation.
package store
