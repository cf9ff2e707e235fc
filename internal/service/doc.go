// Package service contains the application-specific use cases. It hosts the
// job launcher: validate a concept request, persist a PENDING job, and hand
// it to a worker via the configured dispatcher.
//
// The service layer depends on domain entities and the store and dispatch
// interfaces, never on specific infrastructure implementations. Errors are
// translated to service-level sentinels or wrapped in JobServiceError so the
// API layer can map them to response codes without knowing the store.
package service
