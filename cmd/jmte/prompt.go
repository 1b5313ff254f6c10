package main

import (
	"errors"
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// ErrAborted is returned when the user interrupts a prompt.
var ErrAborted = errors.New("prompt aborted")

// prompter asks the user for the value of a template variable.
type prompter interface {
	Ask(name string) (string, error)
}

type surveyPrompter struct{}

func newSurveyPrompter() prompter {
	return surveyPrompter{}
}

func (surveyPrompter) Ask(name string) (string, error) {
	var out string
	prompt := &survey.Input{
		Message: fmt.Sprintf("Value for %s:", name),
		Help:    "The template uses this variable but no model file defines it",
	}
	if err := survey.AskOne(prompt, &out); err != nil {
		if errors.Is(err, terminal.InterruptErr) {
			return "", ErrAborted
		}
		return "", err
	}
	return out, nil
}

// askMissing prompts for every used variable that model does not define.
func askMissing(p prompter, used []string, model map[string]any) error {
	for _, name := range used {
		if _, ok := model[name]; ok {
			continue
		}
		value, err := p.Ask(name)
		if err != nil {
			return err
		}
		model[name] = value
	}
	return nil
}
