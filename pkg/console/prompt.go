package console

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/chzyer/readline"
)

// LineReader reads one line of operator input after showing prompt. It
// returns io.EOF when input is exhausted.
type LineReader interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

// Prompt is a LineReader backed by readline with persistent history.
type Prompt struct {
	rl *readline.Instance
}

// NewPrompt opens a readline prompt. An empty historyFile disables history.
func NewPrompt(historyFile string) (*Prompt, error) {
	if historyFile != "" {
		if err := os.MkdirAll(filepath.Dir(historyFile), 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            queryPrompt,
		HistoryFile:       historyFile,
		HistorySearchFold: true,
		InterruptPrompt:   "^C",
		EOFPrompt:         quitLabel,
	})
	if err != nil {
		return nil, fmt.Errorf("create readline instance: %w", err)
	}
	return &Prompt{rl: rl}, nil
}

// ReadLine shows prompt and reads a line. Ctrl+C is reported as io.EOF so
// the loop shuts down cleanly.
func (p *Prompt) ReadLine(prompt string) (string, error) {
	p.rl.SetPrompt(prompt)
	line, err := p.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", io.EOF
	}
	return line, err
}

// Close cleans up the readline instance.
func (p *Prompt) Close() error {
	return p.rl.Close()
}

// DefaultHistoryFile returns the default history file location.
func DefaultHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".mcpbridge_history")
}
