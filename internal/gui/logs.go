package gui

import (
	"fmt"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"jordanella.com/auto-shake-go/internal/events"
)

// LogLevel represents log severity
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LogEntry represents a single log entry
type LogEntry struct {
	Timestamp time.Time
	Level     LogLevel
	Source    string
	Message   string
}

// entryFromEvent converts a bus event into a log entry
func entryFromEvent(e events.Event) LogEntry {
	return LogEntry{
		Timestamp: e.Timestamp,
		Level:     eventLevel(e.Type),
		Source:    e.Source,
		Message:   eventMessage(e),
	}
}

// logBuffer is a bounded list of entries. Safe for concurrent use.
type logBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	max     int
}

func newLogBuffer(max int) *logBuffer {
	return &logBuffer{entries: make([]LogEntry, 0, max), max: max}
}

func (b *logBuffer) add(e LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = append(b.entries, e)
	if len(b.entries) > b.max {
		b.entries = b.entries[len(b.entries)-b.max:]
	}
}

func (b *logBuffer) clear() {
	b.mu.Lock()
	b.entries = b.entries[:0]
	b.mu.Unlock()
}

// filtered returns entries at or above min
func (b *logBuffer) filtered(min LogLevel) []LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]LogEntry, 0, len(b.entries))
	for _, e := range b.entries {
		if e.Level >= min {
			out = append(out, e)
		}
	}
	return out
}

// LogTab displays loop events
type LogTab struct {
	buffer *logBuffer

	visible   []LogEntry
	visibleMu sync.RWMutex
	minLevel  LogLevel

	logList         *widget.List
	filterSelect    *widget.Select
	autoScrollCheck *widget.Check
}

// NewLogTab creates a new log tab
func NewLogTab() *LogTab {
	return &LogTab{
		buffer:   newLogBuffer(1000),
		minLevel: LogLevelInfo,
	}
}

// Build constructs the log viewer UI
func (l *LogTab) Build() fyne.CanvasObject {
	header := widget.NewLabelWithStyle("Event Log", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})

	l.filterSelect = widget.NewSelect(
		[]string{"DEBUG", "INFO", "WARN", "ERROR"},
		func(selected string) {
			for lvl := LogLevelDebug; lvl <= LogLevelError; lvl++ {
				if lvl.String() == selected {
					l.minLevel = lvl
				}
			}
			l.refresh()
		},
	)
	l.filterSelect.SetSelected(l.minLevel.String())

	l.autoScrollCheck = widget.NewCheck("Auto-scroll", nil)
	l.autoScrollCheck.SetChecked(true)

	clearBtn := widget.NewButton("Clear", func() {
		l.buffer.clear()
		l.refresh()
	})

	l.logList = widget.NewList(
		func() int {
			l.visibleMu.RLock()
			defer l.visibleMu.RUnlock()
			return len(l.visible)
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("")
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			l.visibleMu.RLock()
			defer l.visibleMu.RUnlock()
			if id < 0 || id >= len(l.visible) {
				return
			}
			e := l.visible[id]
			obj.(*widget.Label).SetText(fmt.Sprintf("%s [%s] %s: %s",
				e.Timestamp.Format("15:04:05.000"), e.Level, e.Source, e.Message))
		},
	)

	controls := container.NewHBox(widget.NewLabel("Level:"), l.filterSelect, l.autoScrollCheck, clearBtn)
	return container.NewBorder(container.NewVBox(header, controls), nil, nil, nil, l.logList)
}

// AddLog appends an entry. Must run on the UI goroutine.
func (l *LogTab) AddLog(e LogEntry) {
	l.buffer.add(e)
	l.refresh()
}

func (l *LogTab) refresh() {
	l.visibleMu.Lock()
	l.visible = l.buffer.filtered(l.minLevel)
	n := len(l.visible)
	l.visibleMu.Unlock()

	if l.logList == nil {
		return
	}
	l.logList.Refresh()
	if l.autoScrollCheck != nil && l.autoScrollCheck.Checked && n > 0 {
		l.logList.ScrollToBottom()
	}
}
