package input

import (
	"fmt"
	"sync"

	"jordanella.com/auto-shake-go/internal/logging"
)

// Emitter dispatches commands to the OS
type Emitter interface {
	Emit(cmd Command) error
}

// InputError reports that the OS rejected a synthetic input event
type InputError struct {
	Command Command
	Err     error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("emit %s: %v", e.Command, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// Recorder is an Emitter that keeps every non-empty command instead of
// sending it. Used for dry runs and tests.
type Recorder struct {
	mu       sync.Mutex
	commands []Command

	// Err, when set, is returned (wrapped) from every Emit
	Err error
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit records cmd
func (r *Recorder) Emit(cmd Command) error {
	if cmd.IsNone() {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Err != nil {
		return &InputError{Command: cmd, Err: r.Err}
	}
	r.commands = append(r.commands, cmd)
	return nil
}

// Commands returns a copy of the recorded commands
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Command, len(r.commands))
	copy(out, r.commands)
	return out
}

// Kinds returns the kinds of the recorded commands in order
func (r *Recorder) Kinds() []Kind {
	cmds := r.Commands()
	kinds := make([]Kind, len(cmds))
	for i, c := range cmds {
		kinds[i] = c.Kind
	}
	return kinds
}

// SetErr changes the error returned from Emit
func (r *Recorder) SetErr(err error) {
	r.mu.Lock()
	r.Err = err
	r.mu.Unlock()
}

// Clear drops all recorded commands
func (r *Recorder) Clear() {
	r.mu.Lock()
	r.commands = nil
	r.mu.Unlock()
}

// DryRun is an Emitter that only logs what it would have sent
type DryRun struct {
	logger *logging.Logger
}

// NewDryRun creates a logging-only emitter
func NewDryRun() *DryRun {
	return &DryRun{logger: logging.NewLogger("input")}
}

// Emit logs cmd
func (d *DryRun) Emit(cmd Command) error {
	if cmd.IsNone() {
		return nil
	}
	d.logger.InfoWithContext("Dry run", map[string]interface{}{"command": cmd.String()})
	return nil
}
