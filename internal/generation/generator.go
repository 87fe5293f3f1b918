package generation

import "context"

// Summarizer asks a language model for a summary of a book query.
// This interface serves as a boundary between the application core and
// external AI/LLM services.
type Summarizer interface {
	// Summarize sends the system instructions and the user query and returns
	// the raw model text. The text is not guaranteed to be valid JSON.
	//
	// Errors wrap ErrUpstreamTimeout when ctx expires, ErrContentBlocked,
	// ErrInvalidResponse or ErrTransientFailure.
	Summarize(ctx context.Context, instructions, query string) (string, error)
}
