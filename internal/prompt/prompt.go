// Package prompt defines the interactive prompt capability consumed by the
// permission broker and the notebook connection manager.
//
// Prompts are UI side effects: they are never retried, and a dismissal is a
// first-class outcome distinct from an explicit negative answer.
package prompt

import "context"

// Choice is the outcome of a yes/no prompt.
type Choice int

const (
	// Dismissed means the user closed the prompt without choosing.
	Dismissed Choice = iota
	// Yes is an explicit affirmative answer.
	Yes
	// No is an explicit negative answer.
	No
)

// Prompter is the interactive prompt surface.
type Prompter interface {
	// Confirm shows a modal yes/no prompt. yesLabel and noLabel name the
	// two explicit options. Dismissal is reported as Dismissed, not an error.
	Confirm(ctx context.Context, message, yesLabel, noLabel string) (Choice, error)

	// QuickPick shows a selection list and returns the chosen item.
	// ok is false when the user cancels without selecting.
	QuickPick(ctx context.Context, title string, items []string) (selected string, ok bool, err error)
}
