package cli

import (
	"errors"
	"io"
	"strings"

	"github.com/manifoldco/promptui"
)

// Quit is the first entry of every SelectInput menu.
const Quit = "[Quit]"

// ErrQuit is returned by SelectInput when the user picks Quit or
// interrupts the prompt.
var ErrQuit = errors.New("quit")

// Terminal is where prompts read and draw. Nil fields use the process
// stdin and stdout.
type Terminal struct {
	Stdin  io.ReadCloser
	Stdout io.WriteCloser
}

// SelectInput shows a searchable menu of choices and returns the pick.
// Typing filters choices by prefix.
func (t Terminal) SelectInput(label string, choices []string) (string, error) {
	items := append([]string{Quit}, choices...)

	sel := &promptui.Select{
		Label: label,
		Items: items,
		Size:  min(len(items), 10), //nolint:mnd
		Searcher: func(input string, index int) bool {
			if index == 0 || input == "" {
				return false
			}

			return strings.HasPrefix(items[index], input)
		},
		Stdin:  t.Stdin,
		Stdout: t.Stdout,
	}

	idx, value, err := sel.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return "", ErrQuit
		}

		return "", err
	}

	if idx == 0 {
		return "", ErrQuit
	}

	return value, nil
}
