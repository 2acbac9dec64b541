package config

import (
	"fmt"
	"strconv"
	"strings"
)

// LabelingCommand describes a command whose argument defines a label, such
// as \label itself. Position is the 1-based index of the required argument
// holding the label. LabelsPreviousCommand marks commands that label the
// preceding command rather than their own surroundings.
type LabelingCommand struct {
	Name                  string `toml:"name"`
	Position              int    `toml:"position"`
	LabelsPreviousCommand bool   `toml:"labels_previous_command"`
}

// DefaultLabeling lists the labeling commands known without configuration.
func DefaultLabeling() []LabelingCommand {
	return []LabelingCommand{{Name: `\label`, Position: 1}}
}

// ParseLabelingCommand reads the "name;position;labelsPrevious" form.
func ParseLabelingCommand(s string) (LabelingCommand, error) {
	parts := strings.Split(s, ";")
	if len(parts) != 3 {
		return LabelingCommand{}, fmt.Errorf("labeling command %q: must contain exactly three parts, got %d", s, len(parts))
	}
	pos, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return LabelingCommand{}, fmt.Errorf("labeling command %q: position must be an integer", s)
	}
	// Anything but "true" is false.
	prev := strings.EqualFold(strings.TrimSpace(parts[2]), "true")
	return LabelingCommand{Name: strings.TrimSpace(parts[0]), Position: pos, LabelsPreviousCommand: prev}, nil
}

func (c LabelingCommand) String() string {
	return fmt.Sprintf("%s;%d;%t", c.Name, c.Position, c.LabelsPreviousCommand)
}

// CommandName returns the name without its leading backslash.
func (c LabelingCommand) CommandName() string {
	return strings.TrimPrefix(c.Name, `\`)
}

// UnmarshalTOML accepts both the table form and the string form.
func (c *LabelingCommand) UnmarshalTOML(v any) error {
	switch v := v.(type) {
	case string:
		parsed, err := ParseLabelingCommand(v)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	case map[string]any:
		name, ok := v["name"].(string)
		if !ok {
			return fmt.Errorf("labeling command: missing name")
		}
		*c = LabelingCommand{Name: name, Position: 1}
		if pos, ok := v["position"].(int64); ok {
			c.Position = int(pos)
		}
		if prev, ok := v["labels_previous_command"].(bool); ok {
			c.LabelsPreviousCommand = prev
		}
		for key := range v {
			switch key {
			case "name", "position", "labels_previous_command":
			default:
				return fmt.Errorf("labeling command %s: unknown key %q", name, key)
			}
		}
		return nil
	}
	return fmt.Errorf("labeling command: unsupported value %T", v)
}

func (c LabelingCommand) validate() error {
	if c.CommandName() == "" {
		return fmt.Errorf("labeling command: empty name")
	}
	if c.Position < 1 {
		return fmt.Errorf("labeling command %s: position must be at least 1, got %d", c.Name, c.Position)
	}
	return nil
}
