// Package prompt asks the user which projects to build before dispatching.
package prompt

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/manifoldco/promptui"
)

// Prompter narrows and confirms a build run.
type Prompter interface {
	SelectProjects(label string, projects []string) ([]string, error)
	Confirm(label string) (bool, error)
}

// Terminal prompts on the controlling terminal.
type Terminal struct{}

// SelectProjects shows a checkbox list with every project preselected.
func (Terminal) SelectProjects(label string, projects []string) ([]string, error) {
	var selected []string
	prompt := &survey.MultiSelect{
		Message: label,
		Options: projects,
		Default: projects,
	}
	if err := survey.AskOne(prompt, &selected); err != nil {
		return nil, fmt.Errorf("project selection failed: %w", err)
	}
	return selected, nil
}

// Confirm asks a Yes/No question.
func (Terminal) Confirm(label string) (bool, error) {
	prompt := promptui.Select{
		Label: label + " [Yes/No]",
		Items: []string{"Yes", "No"},
	}
	_, result, err := prompt.Run()
	if err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}
	return result == "Yes", nil
}
