// Package postgres implements the job store on PostgreSQL. Jobs are stored
// as jsonb documents with a version column; every update re-reads the row,
// applies the mutation, and commits with a version guard, retrying on
// conflict. Subscriptions ride on LISTEN/NOTIFY: committed updates fire
// pg_notify with the job ID and each subscriber re-reads the document.
package postgres
