package tts

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner records the invocation and writes scripted audio to the
// --write-media path.
type fakeRunner struct {
	audio    []byte
	result   commandResult
	err      error
	name     string
	args     []string
	textSeen string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (commandResult, error) {
	f.name = name
	f.args = args

	if text := argValue(args, "--file"); text != "" {
		content, err := os.ReadFile(text)
		if err != nil {
			return commandResult{ExitCode: 1}, err
		}
		f.textSeen = string(content)
	}
	if out := argValue(args, "--write-media"); out != "" && f.audio != nil {
		if err := os.WriteFile(out, f.audio, 0o600); err != nil {
			return commandResult{ExitCode: 1}, err
		}
	}
	return f.result, f.err
}

func argValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func newTestEdgeTTS(t *testing.T, runner commandRunner) (*EdgeTTS, string) {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return newEdgeTTS("edge-tts", "", runner, dir, logger), dir
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp files must be removed")
}

func TestSynthesize_Success(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{audio: []byte("ID3-mp3-bytes")}
	synth, dir := newTestEdgeTTS(t, runner)

	audio, err := synth.Synthesize(context.Background(), "Small habits compound.", "")
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3-mp3-bytes"), audio)

	assert.Equal(t, "edge-tts", runner.name)
	assert.Equal(t, DefaultVoice, argValue(runner.args, "--voice"))
	assert.Equal(t, "Small habits compound.", runner.textSeen)
	assert.True(t, strings.HasSuffix(argValue(runner.args, "--write-media"), ".mp3"))
	assertNoTempFiles(t, dir)
}

func TestSynthesize_ExplicitVoice(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{audio: []byte("x")}
	synth, _ := newTestEdgeTTS(t, runner)

	_, err := synth.Synthesize(context.Background(), "hello", "en-GB-RyanNeural")
	require.NoError(t, err)
	assert.Equal(t, "en-GB-RyanNeural", argValue(runner.args, "--voice"))
}

func TestSynthesize_EngineFailure(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{
		result: commandResult{ExitCode: 2, Stderr: "NoAudioReceived: voice not found\n"},
		err:    errors.New("exit status 2"),
	}
	synth, dir := newTestEdgeTTS(t, runner)

	_, err := synth.Synthesize(context.Background(), "hello", "xx-Invalid")
	require.Error(t, err)

	var synthErr *SynthesisError
	require.ErrorAs(t, err, &synthErr)
	assert.Equal(t, "xx-Invalid", synthErr.Voice)
	assert.Equal(t, 2, synthErr.ExitCode)
	assert.Equal(t, "NoAudioReceived: voice not found", synthErr.Stderr)
	assert.Contains(t, err.Error(), "exit code 2")
	assertNoTempFiles(t, dir)
}

func TestSynthesize_EmptyAudio(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}
	synth, dir := newTestEdgeTTS(t, runner)

	_, err := synth.Synthesize(context.Background(), "hello", "")
	require.Error(t, err)

	var synthErr *SynthesisError
	require.ErrorAs(t, err, &synthErr)
	assert.ErrorIs(t, err, ErrEmptyAudio)
	assertNoTempFiles(t, dir)
}

func TestTail(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc", tail("  abc\n", 10))
	assert.Equal(t, "def", tail("abcdef", 3))
	assert.Equal(t, "", tail("", 3))
}
