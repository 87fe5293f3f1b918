// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidInput is returned when a submission is rejected before it
	// can enter the pipeline, for example an empty query.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidTaskStatus is returned when a task status is not one of the known values.
	ErrInvalidTaskStatus = errors.New("invalid task status")

	// ErrInvalidTransition is returned when a task is asked to move to a
	// status that is not reachable from its current one.
	ErrInvalidTransition = errors.New("invalid task status transition")

	// ErrSummaryUnavailable is returned when the model states that the query
	// cannot be summarized. It is terminal and never retried.
	ErrSummaryUnavailable = errors.New("summary could not be generated for the given query")
)
