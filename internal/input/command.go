package input

import (
	"fmt"
	"strings"
)

// Kind is the type of synthetic input a command asks for
type Kind int

const (
	None Kind = iota
	Press
	Hold
	Release
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Press:
		return "press"
	case Hold:
		return "hold"
	case Release:
		return "release"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Button names a key ("enter", "space", "f") or a mouse button
// ("mouse:left", "mouse:right", "mouse:center")
type Button string

const mousePrefix = "mouse:"

// DefaultButton is the key the shake prompt expects
const DefaultButton Button = "enter"

// IsMouse reports whether the button is a mouse button
func (b Button) IsMouse() bool {
	return strings.HasPrefix(string(b), mousePrefix)
}

// Name returns the key or mouse button name without the mouse prefix
func (b Button) Name() string {
	return strings.TrimPrefix(string(b), mousePrefix)
}

// ParseButton normalises a button name. Empty means DefaultButton.
func ParseButton(s string) (Button, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultButton, nil
	}
	if strings.HasPrefix(s, mousePrefix) {
		switch strings.TrimPrefix(s, mousePrefix) {
		case "left", "right", "center":
			return Button(s), nil
		default:
			return "", fmt.Errorf("unknown mouse button %q", s)
		}
	}
	if strings.ContainsAny(s, " \t+") {
		return "", fmt.Errorf("invalid key %q", s)
	}
	return Button(s), nil
}

// Command is one action decided for a tick
type Command struct {
	Kind   Kind
	Button Button
}

// NoOp is the empty command
var NoOp = Command{Kind: None}

// IsNone reports whether the command does nothing
func (c Command) IsNone() bool {
	return c.Kind == None
}

func (c Command) String() string {
	if c.Kind == None {
		return "none"
	}
	return fmt.Sprintf("%s(%s)", c.Kind, c.Button)
}
