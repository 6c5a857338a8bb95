// Package terminal provides a readline-backed prompt.Prompter for
// interactive use of connshared from a TTY.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/koustreak/connshare/internal/prompt"
)

// Prompter reads answers from the controlling terminal.
type Prompter struct{}

// New returns a terminal prompter.
func New() *Prompter {
	return &Prompter{}
}

// Confirm prints the message and reads y/n. Ctrl-C, Ctrl-D, or an empty
// line count as dismissal.
func (p *Prompter) Confirm(ctx context.Context, message, yesLabel, noLabel string) (prompt.Choice, error) {
	fmt.Println(message)

	rl, err := readline.New(fmt.Sprintf("%s / %s (y/n)? ", yesLabel, noLabel))
	if err != nil {
		return prompt.Dismissed, fmt.Errorf("open terminal: %w", err)
	}
	defer rl.Close()

	line, err := p.readLine(ctx, rl)
	if err != nil {
		if isDismissal(err) {
			return prompt.Dismissed, nil
		}
		return prompt.Dismissed, err
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return prompt.Yes, nil
	case "n", "no":
		return prompt.No, nil
	default:
		return prompt.Dismissed, nil
	}
}

// QuickPick prints a numbered list and reads the selected index.
func (p *Prompter) QuickPick(ctx context.Context, title string, items []string) (string, bool, error) {
	if len(items) == 0 {
		return "", false, nil
	}

	fmt.Println(title)
	for i, item := range items {
		fmt.Printf("  %d. %s\n", i+1, item)
	}

	rl, err := readline.New(fmt.Sprintf("choose 1-%d (empty to cancel): ", len(items)))
	if err != nil {
		return "", false, fmt.Errorf("open terminal: %w", err)
	}
	defer rl.Close()

	line, err := p.readLine(ctx, rl)
	if err != nil {
		if isDismissal(err) {
			return "", false, nil
		}
		return "", false, err
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return "", false, nil
	}

	n, err := strconv.Atoi(line)
	if err != nil || n < 1 || n > len(items) {
		return "", false, nil
	}
	return items[n-1], true, nil
}

// readLine runs the blocking readline call while honoring ctx cancellation.
func (p *Prompter) readLine(ctx context.Context, rl *readline.Instance) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := rl.Readline()
		ch <- result{line, err}
	}()

	select {
	case <-ctx.Done():
		rl.Close()
		return "", ctx.Err()
	case r := <-ch:
		return r.line, r.err
	}
}

func isDismissal(err error) bool {
	return errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF)
}
