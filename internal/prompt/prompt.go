// Package prompt provides the interactive collaborators the tag actions
// need: choosing a tag and talking to the user.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/starford/notetags/internal/apperr"
)

// ErrNoChoice is returned when the user makes no selection.
var ErrNoChoice = fmt.Errorf("no choice made: %w", apperr.ErrAborted)

// Picker kinds accepted by NewPicker.
const (
	KindPlain = "plain"
	KindFuzzy = "fuzzy"
)

// Picker presents candidates and returns the user's choice. The choice
// may be a new value that is not among the candidates.
type Picker interface {
	Pick(ctx context.Context, prompt string, candidates []string) (string, error)
}

// Notifier shows status messages and asks yes/no questions.
type Notifier interface {
	Notify(msg string)
	Confirm(question string) (bool, error)
}

// Console is a line-oriented Picker and Notifier.
type Console struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConsole creates a console reading answers from in and writing to out.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

// Pick prints a numbered list. An answer of the form #N selects entry N;
// anything else is taken as typed, so digit-only values stay usable.
func (c *Console) Pick(_ context.Context, prompt string, candidates []string) (string, error) {
	for i, cand := range candidates {
		fmt.Fprintf(c.out, "%3d) %s\n", i+1, cand)
	}
	if len(candidates) > 0 {
		fmt.Fprintf(c.out, "%s (#N to pick): ", prompt)
	} else {
		fmt.Fprintf(c.out, "%s: ", prompt)
	}

	answer, err := c.readLine()
	if err != nil && answer == "" {
		if errors.Is(err, io.EOF) {
			return "", ErrNoChoice
		}
		return "", err
	}
	if answer == "" {
		return "", ErrNoChoice
	}
	num, ok := strings.CutPrefix(answer, "#")
	if !ok {
		return answer, nil
	}
	n, err := strconv.Atoi(num)
	if err != nil || n < 1 || n > len(candidates) {
		return "", fmt.Errorf("no entry %s: %w", answer, ErrNoChoice)
	}
	return candidates[n-1], nil
}

// Notify prints msg on its own line.
func (c *Console) Notify(msg string) {
	fmt.Fprintln(c.out, msg)
}

// Confirm asks until it gets a yes or no. End of input counts as no.
func (c *Console) Confirm(question string) (bool, error) {
	for {
		fmt.Fprintf(c.out, "%s (y or n) ", question)
		answer, err := c.readLine()
		switch strings.ToLower(answer) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return false, nil
			}
			return false, err
		}
		fmt.Fprintln(c.out, "Please answer y or n.")
	}
}

func (c *Console) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	return strings.TrimSpace(line), err
}

// Fixed is a non-interactive Notifier that answers every question the same
// way. Messages are logged and kept for the caller to report.
type Fixed struct {
	Answer   bool
	Logger   *slog.Logger
	Messages []string
}

// Notify records msg.
func (f *Fixed) Notify(msg string) {
	f.Messages = append(f.Messages, msg)
	if f.Logger != nil {
		f.Logger.Info("notify", slog.String("message", msg))
	}
}

// Confirm returns the fixed answer.
func (f *Fixed) Confirm(question string) (bool, error) {
	if f.Logger != nil {
		f.Logger.Debug("confirm", slog.String("question", question), slog.Bool("answer", f.Answer))
	}
	return f.Answer, nil
}

// NewPicker returns the picker for kind. The fuzzy picker needs a terminal
// on stdin; without one the console is used instead.
func NewPicker(kind string, console *Console) Picker {
	if kind == KindFuzzy && term.IsTerminal(int(os.Stdin.Fd())) {
		return &FuzzyPicker{}
	}
	return console
}
