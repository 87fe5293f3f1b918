package tts

import (
	"errors"
	"fmt"
)

// ErrEmptyAudio is returned when the engine exits cleanly but writes no audio.
var ErrEmptyAudio = errors.New("speech engine produced no audio")

// SynthesisError describes a failed run of the speech engine.
type SynthesisError struct {
	Voice    string
	ExitCode int
	// Stderr holds the tail of the engine's error output.
	Stderr string
	Err    error
}

func (e *SynthesisError) Error() string {
	msg := fmt.Sprintf("speech synthesis failed (voice %s, exit code %d): %v", e.Voice, e.ExitCode, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}
