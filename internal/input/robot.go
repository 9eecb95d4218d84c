package input

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-vgo/robotgo"
)

// device is the subset of robotgo the emitter drives
type device interface {
	KeyTap(key string) error
	KeyToggle(key string, down bool) error
	MouseToggle(button string, down bool) error
}

var errNoButton = errors.New("no button")

type robotDevice struct{}

func (robotDevice) KeyTap(key string) error {
	return robotgo.KeyTap(key)
}

func (robotDevice) KeyToggle(key string, down bool) error {
	if down {
		return robotgo.KeyToggle(key, "down")
	}
	return robotgo.KeyToggle(key, "up")
}

func (robotDevice) MouseToggle(button string, down bool) error {
	if down {
		return robotgo.Toggle(button)
	}
	return robotgo.Toggle(button, "up")
}

// RobotEmitter sends commands through robotgo. It remembers which buttons
// it is holding so that Release never sends an unmatched key-up.
type RobotEmitter struct {
	mu   sync.Mutex
	dev  device
	held map[Button]bool
}

// NewRobotEmitter creates an emitter backed by the OS input API
func NewRobotEmitter() *RobotEmitter {
	return newRobotEmitter(robotDevice{})
}

func newRobotEmitter(dev device) *RobotEmitter {
	return &RobotEmitter{
		dev:  dev,
		held: make(map[Button]bool),
	}
}

// Emit dispatches cmd. Press is a full down/up, Hold is down only,
// Release is up for a held button and a no-op otherwise.
func (e *RobotEmitter) Emit(cmd Command) error {
	if cmd.IsNone() {
		return nil
	}
	if cmd.Button == "" {
		return &InputError{Command: cmd, Err: errNoButton}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var err error
	switch cmd.Kind {
	case Press:
		err = e.tap(cmd.Button)
	case Hold:
		err = e.toggle(cmd.Button, true)
		if err == nil {
			e.held[cmd.Button] = true
		}
	case Release:
		if !e.held[cmd.Button] {
			return nil
		}
		err = e.toggle(cmd.Button, false)
		delete(e.held, cmd.Button)
	default:
		err = fmt.Errorf("unsupported command kind %d", int(cmd.Kind))
	}

	if err != nil {
		return &InputError{Command: cmd, Err: err}
	}
	return nil
}

// ReleaseAll lifts every held button, returning the first failure
func (e *RobotEmitter) ReleaseAll() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var first error
	for b := range e.held {
		if err := e.toggle(b, false); err != nil && first == nil {
			first = &InputError{Command: Command{Kind: Release, Button: b}, Err: err}
		}
		delete(e.held, b)
	}
	return first
}

func (e *RobotEmitter) tap(b Button) error {
	if b.IsMouse() {
		if err := e.dev.MouseToggle(b.Name(), true); err != nil {
			return err
		}
		return e.dev.MouseToggle(b.Name(), false)
	}
	return e.dev.KeyTap(b.Name())
}

func (e *RobotEmitter) toggle(b Button, down bool) error {
	if b.IsMouse() {
		return e.dev.MouseToggle(b.Name(), down)
	}
	return e.dev.KeyToggle(b.Name(), down)
}
