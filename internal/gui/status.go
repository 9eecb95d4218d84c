package gui

import (
	"fmt"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"jordanella.com/auto-shake-go/internal/bot"
)

// StatusTab shows the loop state and the start/stop control
type StatusTab struct {
	controller *Controller

	statusLabel *widget.Label
	phaseChip   *canvas.Rectangle
	phaseText   *canvas.Text
	regionLabel *widget.Label
	signalLabel *widget.Label
	cmdLabel    *widget.Label
	errorLabel  *widget.Label
	statsLabel  *widget.Label
	toggleBtn   *widget.Button

	stopRefresh chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

// NewStatusTab creates a new status tab
func NewStatusTab(ctrl *Controller) *StatusTab {
	return &StatusTab{
		controller:  ctrl,
		stopRefresh: make(chan struct{}),
	}
}

// Build constructs the status UI
func (s *StatusTab) Build() fyne.CanvasObject {
	s.statusLabel = widget.NewLabelWithStyle("OFF", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})

	s.phaseChip = canvas.NewRectangle(ColorIdle)
	s.phaseChip.CornerRadius = 8
	s.phaseText = canvas.NewText("Idle", theme.Color(theme.ColorNameForeground))
	s.phaseText.TextStyle = fyne.TextStyle{Bold: true}
	s.phaseText.Alignment = fyne.TextAlignCenter
	chip := container.NewStack(s.phaseChip, container.NewPadded(s.phaseText))

	s.regionLabel = widget.NewLabel("")
	s.signalLabel = widget.NewLabel("")
	s.cmdLabel = widget.NewLabel("")
	s.errorLabel = widget.NewLabel("")
	s.errorLabel.Wrapping = fyne.TextWrapWord
	s.statsLabel = widget.NewLabel("")

	s.toggleBtn = widget.NewButtonWithIcon("Start", theme.MediaPlayIcon(), func() {
		s.controller.ToggleActive()
	})
	s.toggleBtn.Importance = widget.HighImportance

	previewBtn := widget.NewButtonWithIcon("Preview capture", theme.VisibilityIcon(), func() {
		s.controller.ShowPreview()
	})

	details := widget.NewForm(
		widget.NewFormItem("Region", s.regionLabel),
		widget.NewFormItem("Signal", s.signalLabel),
		widget.NewFormItem("Last input", s.cmdLabel),
		widget.NewFormItem("Last error", s.errorLabel),
	)

	header := container.NewBorder(nil, nil, chip, container.NewHBox(previewBtn, s.toggleBtn), s.statusLabel)

	return container.NewVBox(
		header,
		widget.NewSeparator(),
		card(details),
		widget.NewLabelWithStyle("Statistics", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		card(s.statsLabel),
	)
}

// StartPolling refreshes the tab from Driver.Status every interval
func (s *StatusTab) StartPolling(interval time.Duration) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				st := s.controller.driver.Status()
				healthy := s.controller.driver.Metrics().IsHealthy(unhealthyAfter)
				fyne.Do(func() { s.render(st, healthy) })
			case <-s.stopRefresh:
				return
			}
		}
	}()
}

// StopPolling stops the refresh goroutine
func (s *StatusTab) StopPolling() {
	s.stopOnce.Do(func() { close(s.stopRefresh) })
	s.wg.Wait()
}

func (s *StatusTab) render(st bot.Status, healthy bool) {
	if s.statusLabel == nil {
		return
	}

	s.statusLabel.SetText(FormatStatus(st, healthy))
	if healthy {
		s.statusLabel.Importance = widget.MediumImportance
	} else {
		s.statusLabel.Importance = widget.DangerImportance
	}

	s.phaseChip.FillColor = PhaseColor(st.Phase)
	s.phaseChip.Refresh()
	s.phaseText.Text = st.Phase.String()
	s.phaseText.Refresh()

	s.regionLabel.SetText(st.Region.String())
	s.signalLabel.SetText(st.LastSignal.String())
	if st.LastCommand.IsNone() {
		s.cmdLabel.SetText("-")
	} else {
		s.cmdLabel.SetText(st.LastCommand.String())
	}
	if st.LastError == "" {
		s.errorLabel.SetText("-")
	} else {
		s.errorLabel.SetText(st.LastError)
	}
	s.statsLabel.SetText(FormatStats(st.Stats))

	if st.Active {
		s.toggleBtn.SetText("Stop")
		s.toggleBtn.SetIcon(theme.MediaStopIcon())
	} else {
		s.toggleBtn.SetText("Start")
		s.toggleBtn.SetIcon(theme.MediaPlayIcon())
	}
}

// card wraps content in a rounded background
func card(content fyne.CanvasObject) *fyne.Container {
	bg := canvas.NewRectangle(theme.Color(theme.ColorNameInputBackground))
	bg.CornerRadius = 4
	bg.StrokeColor = theme.Color(theme.ColorNameSeparator)
	bg.StrokeWidth = 1
	return container.NewStack(bg, container.NewPadded(content))
}

// overlayText is the compact line shown in the status window
func overlayText(st bot.Status) string {
	if !st.Active {
		return "auto-shake: off"
	}
	return fmt.Sprintf("auto-shake: %s  %d actions", st.Phase, st.Stats.Actions())
}
