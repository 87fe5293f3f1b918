package generation

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"
)

// DefaultInstructions describes the JSON object the sanitizer expects. It is
// used when no instructions file is configured.
//
//go:embed default_instructions.txt
var DefaultInstructions string

// InstructionsSource supplies the system instructions sent with every
// summarization request.
type InstructionsSource interface {
	Load(ctx context.Context) (string, error)
}

// FileInstructions reads the instructions from a text file on every call,
// so edits take effect without a restart. An empty Path yields
// DefaultInstructions.
type FileInstructions struct {
	Path string
}

// Load implements InstructionsSource.
func (f FileInstructions) Load(_ context.Context) (string, error) {
	if f.Path == "" {
		return strings.TrimSpace(DefaultInstructions), nil
	}

	content, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read system instructions from %s: %w", f.Path, err)
	}

	instructions := strings.TrimSpace(string(content))
	if instructions == "" {
		return "", fmt.Errorf("%w: system instructions file %s is empty", ErrInvalidConfig, f.Path)
	}
	return instructions, nil
}

// StaticInstructions returns a fixed string.
type StaticInstructions string

// Load implements InstructionsSource.
func (s StaticInstructions) Load(_ context.Context) (string, error) {
	return string(s), nil
}
