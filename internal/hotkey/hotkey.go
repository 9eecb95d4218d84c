package hotkey

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	hook "github.com/robotn/gohook"

	"jordanella.com/auto-shake-go/internal/config"
	"jordanella.com/auto-shake-go/internal/logging"
)

// Action names a hotkey target
type Action string

const (
	ActionToggleAction Action = "toggle_action"
	ActionToggleBox    Action = "toggle_box"
	ActionExitApp      Action = "exit_app"
)

// Binding is the key chord bound to an action
type Binding struct {
	Action Action
	Keys   []string
}

// String renders the chord as "ctrl+f4"
func (b Binding) String() string {
	return strings.Join(b.Keys, "+")
}

func (b Binding) equal(o Binding) bool {
	if b.Action != o.Action || len(b.Keys) != len(o.Keys) {
		return false
	}
	for i := range b.Keys {
		if b.Keys[i] != o.Keys[i] {
			return false
		}
	}
	return true
}

// ParseChord splits "Ctrl+F4" into lower-case key names. Modifiers come first,
// the final key last.
func ParseChord(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty hotkey")
	}

	var keys []string
	for _, part := range strings.Split(s, "+") {
		k := strings.ToLower(strings.TrimSpace(part))
		if k == "" {
			return nil, fmt.Errorf("invalid hotkey %q", s)
		}
		switch k {
		case "control":
			k = "ctrl"
		case "option":
			k = "alt"
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// Bindings is the action to chord table
type Bindings map[Action]Binding

// BuildBindings parses the [Hotkeys] section. Two actions may not share a chord.
func BuildBindings(cfg config.HotkeyConfig) (Bindings, error) {
	raw := map[Action]string{
		ActionToggleAction: cfg.ToggleAction,
		ActionToggleBox:    cfg.ToggleBox,
		ActionExitApp:      cfg.ExitApp,
	}

	bindings := make(Bindings, len(raw))
	seen := make(map[string]Action, len(raw))
	for action, chord := range raw {
		keys, err := ParseChord(chord)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", action, err)
		}
		b := Binding{Action: action, Keys: keys}
		if other, dup := seen[b.String()]; dup {
			return nil, fmt.Errorf("%s and %s share hotkey %s", other, action, b)
		}
		seen[b.String()] = action
		bindings[action] = b
	}
	return bindings, nil
}

// Equal reports whether both tables bind the same chords
func (b Bindings) Equal(o Bindings) bool {
	if len(b) != len(o) {
		return false
	}
	for action, binding := range b {
		other, ok := o[action]
		if !ok || !binding.equal(other) {
			return false
		}
	}
	return true
}

// Sorted returns the bindings ordered by action name
func (b Bindings) Sorted() []Binding {
	out := make([]Binding, 0, len(b))
	for _, binding := range b {
		out = append(out, binding)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Action < out[j].Action })
	return out
}

// hooker is the subset of gohook the manager drives
type hooker interface {
	Register(keys []string, cb func())
	Start() chan hook.Event
	Process(events chan hook.Event) chan bool
	End()
}

type globalHook struct{}

func (globalHook) Register(keys []string, cb func()) {
	hook.Register(hook.KeyDown, keys, func(hook.Event) { cb() })
}

func (globalHook) Start() chan hook.Event { return hook.Start() }

func (globalHook) Process(events chan hook.Event) chan bool { return hook.Process(events) }

func (globalHook) End() { hook.End() }

// Manager owns the global keyboard hook. Handlers run on the hook goroutine
// and must not block.
type Manager struct {
	hook     hooker
	handlers map[Action]func()
	logger   *logging.Logger

	mu       sync.Mutex
	bindings Bindings
	done     chan bool
}

// NewManager creates a manager dispatching to handlers
func NewManager(handlers map[Action]func()) *Manager {
	return newManager(globalHook{}, handlers)
}

func newManager(h hooker, handlers map[Action]func()) *Manager {
	return &Manager{
		hook:     h,
		handlers: handlers,
		logger:   logging.NewLogger("hotkey"),
	}
}

// Apply installs bindings. The hook is only rebuilt when the table differs
// from the one already installed. It reports whether a rebuild happened.
func (m *Manager) Apply(bindings Bindings) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.done != nil && m.bindings.Equal(bindings) {
		return false
	}

	m.stopLocked()
	m.bindings = bindings

	for _, b := range bindings.Sorted() {
		handler, ok := m.handlers[b.Action]
		if !ok {
			continue
		}
		m.hook.Register(b.Keys, handler)
		m.logger.DebugWithContext("Hotkey bound", map[string]interface{}{
			"action": string(b.Action),
			"keys":   b.String(),
		})
	}

	m.done = m.hook.Process(m.hook.Start())
	return true
}

// ApplyConfig builds bindings from cfg and applies them
func (m *Manager) ApplyConfig(cfg config.HotkeyConfig) error {
	bindings, err := BuildBindings(cfg)
	if err != nil {
		return err
	}
	if m.Apply(bindings) {
		m.logger.Info("Hotkeys installed")
	}
	return nil
}

// Bindings returns the installed table
func (m *Manager) Bindings() Bindings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bindings
}

// Stop removes the hook
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Manager) stopLocked() {
	if m.done == nil {
		return
	}
	m.hook.End()
	<-m.done
	m.done = nil
}
