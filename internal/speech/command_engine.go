package speech

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/newsbreeze/news-gateway/internal/observability"
	"github.com/rs/zerolog"
)

// espeak-ng defaults that the utterance prosody scales
const (
	espeakBaseWPM       = 175
	espeakBasePitch     = 50
	espeakBaseAmplitude = 100
)

// CommandEngine speaks through a local espeak-ng process
type CommandEngine struct {
	binary string
	logger zerolog.Logger

	mu      sync.Mutex
	running map[*exec.Cmd]struct{}
}

// NewCommandEngine creates an engine that runs binary (espeak-ng compatible)
func NewCommandEngine(binary string) *CommandEngine {
	if binary == "" {
		binary = "espeak-ng"
	}
	return &CommandEngine{
		binary:  binary,
		logger:  observability.WithComponent("speech").With().Str("engine", "espeak").Logger(),
		running: make(map[*exec.Cmd]struct{}),
	}
}

// Name implements Engine
func (e *CommandEngine) Name() string {
	return "espeak"
}

// Voices implements Engine by parsing `espeak-ng --voices`
func (e *CommandEngine) Voices(ctx context.Context) ([]Voice, error) {
	out, err := exec.CommandContext(ctx, e.binary, "--voices").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list espeak voices: %w", err)
	}
	return parseEspeakVoices(out), nil
}

// Speak implements Engine. The process is killed when ctx is done.
func (e *CommandEngine) Speak(ctx context.Context, u Utterance) error {
	cmd := exec.CommandContext(ctx, e.binary, espeakArgs(u)...)
	cmd.Stdin = strings.NewReader(u.Text)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return &SynthesisError{Code: CodeUnavailable, Err: err}
	}

	e.track(cmd)
	err := cmd.Wait()
	e.untrack(cmd)

	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return &SynthesisError{Code: CodeInterrupted, Err: ctx.Err()}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.ExitCode() < 0 {
			return &SynthesisError{Code: CodeInterrupted, Err: err}
		}
		e.logger.Debug().Str("stderr", strings.TrimSpace(stderr.String())).Int("exit_code", exitErr.ExitCode()).Msg("espeak exited with error")
		return &SynthesisError{Code: fmt.Sprintf("exit_%d", exitErr.ExitCode()), Err: err}
	}
	return &SynthesisError{Code: CodeFailed, Err: err}
}

// Cancel implements Engine by killing every running process
func (e *CommandEngine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for cmd := range e.running {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
	}
}

func (e *CommandEngine) track(cmd *exec.Cmd) {
	e.mu.Lock()
	e.running[cmd] = struct{}{}
	e.mu.Unlock()
}

func (e *CommandEngine) untrack(cmd *exec.Cmd) {
	e.mu.Lock()
	delete(e.running, cmd)
	e.mu.Unlock()
}

// espeakArgs maps utterance prosody onto espeak-ng flags; text is read from stdin
func espeakArgs(u Utterance) []string {
	pitch := int(espeakBasePitch * u.Pitch)
	if pitch > 99 {
		pitch = 99
	}
	args := []string{
		"-s", strconv.Itoa(int(espeakBaseWPM * u.Rate)),
		"-p", strconv.Itoa(pitch),
		"-a", strconv.Itoa(int(espeakBaseAmplitude * u.Volume)),
	}
	if u.Voice != nil && u.Voice.Name != "" {
		args = append(args, "-v", u.Voice.Name)
	}
	return append(args, "--stdin")
}

// parseEspeakVoices reads the table printed by `espeak-ng --voices`:
//
//	Pty Language       Age/Gender VoiceName          File          Other Languages
//	 5  en-gb           --/M      English_(Great_Britain) gmw/en
func parseEspeakVoices(out []byte) []Voice {
	var voices []Voice

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || fields[0] == "Pty" {
			continue
		}
		if _, err := strconv.Atoi(fields[0]); err != nil {
			continue
		}
		voices = append(voices, Voice{
			Name: fields[3],
			Lang: fields[1],
		})
	}
	return voices
}
