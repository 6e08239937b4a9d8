package client

import "github.com/rewrz/word-soul/internal/model"

// NormalizedChoice is the one shape the turn engine renders. Every choice
// is guaranteed a non-empty action command.
type NormalizedChoice struct {
	DisplayText   string
	ActionCommand string
	Details       []string
}

// NormalizeChoices folds the wire's choice variants into NormalizedChoice.
// Legacy plain strings arrive with display text and command already equal;
// structured choices may omit the command, which falls back to the display
// text. Choices with neither are dropped.
func NormalizeChoices(raw []model.SuggestedChoice) []NormalizedChoice {
	out := make([]NormalizedChoice, 0, len(raw))
	for _, c := range raw {
		display := c.DisplayText
		command := c.ActionCommand
		if command == "" {
			command = display
		}
		if display == "" {
			display = command
		}
		if command == "" {
			continue
		}
		out = append(out, NormalizedChoice{
			DisplayText:   display,
			ActionCommand: command,
			Details:       c.Details,
		})
	}
	return out
}
