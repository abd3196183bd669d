// Package prompt asks the user yes/no questions on the terminal.
package prompt

import "github.com/charmbracelet/huh"

// Terminal prompts through an interactive terminal form.
type Terminal struct{}

// New creates a terminal prompter.
func New() *Terminal {
	return &Terminal{}
}

// Confirm asks a yes/no question and returns the answer. An error means
// the prompt could not be shown (for example, no TTY); callers treat
// that as declined.
func (t *Terminal) Confirm(title, detail string) (bool, error) {
	var ok bool
	form := huh.NewConfirm().
		Title(title).
		Description(detail).
		Affirmative("Yes").
		Negative("No").
		Value(&ok)
	if err := form.Run(); err != nil {
		return false, err
	}
	return ok, nil
}
