// Package generation defines the text concept generation contract: the draft
// schema the pipeline requires, the request shape, and the error taxonomy
// shared by all generator implementations.
package generation
