package generation

import "errors"

// Common errors returned by the generation package
var (
	// ErrInvalidResponse is returned when the model returns no usable content
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrContentBlocked is returned when the LLM blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrUpstreamTimeout is returned when the call did not finish before its deadline.
	// Tasks failing with it are parked for retry rather than failed.
	ErrUpstreamTimeout = errors.New("language model call timed out")

	// ErrTransientFailure is returned for temporary errors that might resolve on retry
	ErrTransientFailure = errors.New("transient error during summary generation")

	// ErrInvalidConfig is returned when the summarizer configuration is invalid
	ErrInvalidConfig = errors.New("invalid summarizer configuration")

	// ErrEmptyQuery is returned when a prompt is requested for an empty query
	ErrEmptyQuery = errors.New("query cannot be empty")
)
