package cli

import (
	"errors"

	"github.com/manifoldco/promptui"
)

var errEmpty = errors.New("you must enter something")

// PromptConfirm asks a yes/no question. Declining is not an error.
func (t Terminal) PromptConfirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Stdin:     t.Stdin,
		Stdout:    t.Stdout,
	}

	_, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

// PromptString asks for a non-empty line of text.
func (t Terminal) PromptString(label string) (string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Validate: func(s string) error {
			if len(s) == 0 {
				return errEmpty
			}

			return nil
		},
		Stdin:  t.Stdin,
		Stdout: t.Stdout,
	}

	return prompt.Run()
}
