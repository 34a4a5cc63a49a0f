package approval

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"
)

// ConsoleGate prompts an operator on a terminal and reads one plain line
// as the answer. When Fd is not a real TTY (e.g. piped/CI) the prompt
// header notes that input is read non-interactively, using the teacher's
// golang.org/x/term isatty-detection convention.
type ConsoleGate struct {
	In  io.Reader
	Out io.Writer
	Fd  int // file descriptor backing Out, for isatty detection
}

// NewConsoleGate builds a gate reading from in and writing prompts to out.
func NewConsoleGate(in io.Reader, out io.Writer, fd int) *ConsoleGate {
	return &ConsoleGate{In: in, Out: out, Fd: fd}
}

func (g *ConsoleGate) Request(ctx context.Context, prompt string, args map[string]any) (Decision, error) {
	isTTY := term.IsTerminal(g.Fd)

	fmt.Fprintf(g.Out, "\n[approval required]%s\n", ttyHint(isTTY))
	fmt.Fprintf(g.Out, "%s\nargs: %v\napprove? [y/N]: ", prompt, args)

	type result struct {
		line string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		reader := bufio.NewReader(g.In)
		line, err := reader.ReadString('\n')
		done <- result{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return Decision{Outcome: TimedOut, Reason: "approval context cancelled"}, nil
	case r := <-done:
		if r.err != nil {
			return Decision{Outcome: Rejected, Reason: "failed to read operator input: " + r.err.Error()}, nil
		}
		answer := strings.ToLower(strings.TrimSpace(r.line))
		if answer == "y" || answer == "yes" {
			return Decision{Outcome: Approved}, nil
		}
		return Decision{Outcome: Rejected, Reason: "operator declined"}, nil
	}
}

func ttyHint(isTTY bool) string {
	if isTTY {
		return ""
	}
	return " (non-interactive terminal; reading plain input)"
}
