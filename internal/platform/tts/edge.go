package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// DefaultVoice is used when no voice is configured or requested.
const DefaultVoice = "en-US-GuyNeural"

// stderrTailLen bounds how much engine output ends up in errors.
const stderrTailLen = 512

// commandResult is the captured outcome of one process run.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec.
type execRunner struct{}

// Run executes one command and captures stdout/stderr and exit code.
func (execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}
	return result, nil
}

// EdgeTTS synthesizes speech with the edge-tts command. The text is handed
// over in a temp file and the audio read back from another; both are removed
// before Synthesize returns.
type EdgeTTS struct {
	command      string
	defaultVoice string
	runner       commandRunner
	tempDir      string
	logger       *slog.Logger
}

// NewEdgeTTS creates a synthesizer that runs command (usually "edge-tts").
func NewEdgeTTS(command, defaultVoice string, logger *slog.Logger) *EdgeTTS {
	return newEdgeTTS(command, defaultVoice, execRunner{}, "", logger)
}

func newEdgeTTS(command, defaultVoice string, runner commandRunner, tempDir string, logger *slog.Logger) *EdgeTTS {
	if command == "" {
		command = "edge-tts"
	}
	if defaultVoice == "" {
		defaultVoice = DefaultVoice
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EdgeTTS{
		command:      command,
		defaultVoice: defaultVoice,
		runner:       runner,
		tempDir:      tempDir,
		logger:       logger.With("component", "edge_tts"),
	}
}

// Synthesize returns MP3 bytes for text spoken with voice. Engine failures
// are returned as *SynthesisError.
func (e *EdgeTTS) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if voice == "" {
		voice = e.defaultVoice
	}

	textFile, err := e.writeTemp("audiobrief-text-*.txt", []byte(text))
	if err != nil {
		return nil, err
	}
	defer e.remove(textFile)

	mediaFile, err := e.writeTemp("audiobrief-audio-*.mp3", nil)
	if err != nil {
		return nil, err
	}
	defer e.remove(mediaFile)

	e.logger.DebugContext(ctx, "running speech engine",
		"voice", voice,
		"text_length", len(text))

	result, err := e.runner.Run(ctx, e.command,
		"--voice", voice,
		"--file", textFile,
		"--write-media", mediaFile,
	)
	if err != nil {
		return nil, &SynthesisError{
			Voice:    voice,
			ExitCode: result.ExitCode,
			Stderr:   tail(result.Stderr, stderrTailLen),
			Err:      err,
		}
	}

	audio, err := os.ReadFile(mediaFile)
	if err != nil {
		return nil, &SynthesisError{Voice: voice, Err: fmt.Errorf("read audio output: %w", err)}
	}
	if len(audio) == 0 {
		return nil, &SynthesisError{
			Voice:  voice,
			Stderr: tail(result.Stderr, stderrTailLen),
			Err:    ErrEmptyAudio,
		}
	}

	e.logger.DebugContext(ctx, "speech synthesized",
		"voice", voice,
		"audio_bytes", len(audio))
	return audio, nil
}

func (e *EdgeTTS) writeTemp(pattern string, content []byte) (string, error) {
	f, err := os.CreateTemp(e.tempDir, pattern)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	name := f.Name()

	if len(content) > 0 {
		if _, err := f.Write(content); err != nil {
			_ = f.Close()
			e.remove(name)
			return "", fmt.Errorf("write temp file: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		e.remove(name)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return name, nil
}

func (e *EdgeTTS) remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		e.logger.Warn("failed to remove temp file", "path", path, "error", err)
	}
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
