package cmd

import (
	"github.com/jackerschott/sparrow/pkg/errors"
	"github.com/manifoldco/promptui"
)

// selectString prompts the operator to pick one of items. An
// interrupted prompt surfaces as ErrUserDeclined so callers exit
// without noise.
func selectString(label string, items []string) (string, error) {
	if len(items) == 0 {
		return "", errors.Newf("no %s to select from", label)
	}
	if len(items) == 1 {
		return items[0], nil
	}

	prompt := promptui.Select{
		Label: label,
		Items: items,
		Size:  10,
	}
	_, selected, err := prompt.Run()
	if err != nil {
		if err == promptui.ErrInterrupt || err == promptui.ErrAbort {
			return "", errors.New("selection cancelled").Wrap(errors.ErrUserDeclined)
		}
		return "", errors.Newf("could not select a %s", label).Wrap(err)
	}
	return selected, nil
}
