package generation

import "errors"

// Common errors returned by the generation package
var (
	// ErrGenerationFailed is returned when concept generation fails for any
	// general reason.
	ErrGenerationFailed = errors.New("failed to generate concepts")

	// ErrEmptyIdea is returned when the request carries no user idea.
	ErrEmptyIdea = errors.New("user idea cannot be empty")

	// ErrInvalidResponse is returned when the model response cannot be parsed
	// or does not satisfy the required shape.
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrContentBlocked is returned when the model blocks the content due to
	// safety filters.
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrTransientFailure is returned for temporary errors that might resolve
	// on retry.
	ErrTransientFailure = errors.New("transient error during concept generation")

	// ErrInvalidConfig is returned when the generator configuration is invalid.
	ErrInvalidConfig = errors.New("invalid generator configuration")
)
