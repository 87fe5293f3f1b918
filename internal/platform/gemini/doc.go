// Package gemini provides an implementation of the generation.Summarizer
// interface backed by Google's Gemini API.
//
// The adapter sends the system instructions and the rendered user prompt,
// retries transient API failures with exponential backoff and jitter inside
// the caller's deadline, and returns the raw text of the first candidate.
// Parsing that text is left to the sanitize package because the model does
// not reliably produce valid JSON.
package gemini
