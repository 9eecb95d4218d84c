package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"jordanella.com/auto-shake-go/internal/config"
)

// SettingsTab edits the capture region, detection thresholds and policy
type SettingsTab struct {
	controller *Controller

	xEntry, yEntry, wEntry, hEntry *widget.Entry
	colorEntry                     *widget.Entry
	toleranceEntry                 *widget.Entry
	metricSelect                   *widget.Select
	stepEntry                      *widget.Entry
	blobWEntry, blobHEntry         *widget.Entry
	debounceEntry                  *widget.Entry
	cooldownEntry                  *widget.Entry
	maxHoldEntry                   *widget.Entry
	modeSelect                     *widget.Select
	buttonEntry                    *widget.Entry
	intervalEntry                  *widget.Entry
	profileSelect                  *widget.Select
}

// NewSettingsTab creates a new settings tab
func NewSettingsTab(ctrl *Controller) *SettingsTab {
	return &SettingsTab{controller: ctrl}
}

// Build constructs the settings UI
func (s *SettingsTab) Build() fyne.CanvasObject {
	s.xEntry = widget.NewEntry()
	s.yEntry = widget.NewEntry()
	s.wEntry = widget.NewEntry()
	s.hEntry = widget.NewEntry()
	s.colorEntry = widget.NewEntry()
	s.colorEntry.SetPlaceHolder("#FFFFFF")
	s.toleranceEntry = widget.NewEntry()
	s.metricSelect = widget.NewSelect([]string{"euclidean", "channel", "average"}, nil)
	s.stepEntry = widget.NewEntry()
	s.blobWEntry = widget.NewEntry()
	s.blobHEntry = widget.NewEntry()
	s.debounceEntry = widget.NewEntry()
	s.cooldownEntry = widget.NewEntry()
	s.maxHoldEntry = widget.NewEntry()
	s.modeSelect = widget.NewSelect([]string{"tap", "hold"}, nil)
	s.buttonEntry = widget.NewEntry()
	s.buttonEntry.SetPlaceHolder("enter, space, mouse:left")
	s.intervalEntry = widget.NewEntry()

	s.profileSelect = widget.NewSelect(s.controller.profiles.List(), func(name string) {
		s.applyProfile(name)
	})
	s.profileSelect.PlaceHolder = "Custom"

	s.load(s.controller.Config())

	region := container.NewGridWithColumns(4,
		labeled("X", s.xEntry), labeled("Y", s.yEntry),
		labeled("Width", s.wEntry), labeled("Height", s.hEntry),
	)

	detection := widget.NewForm(
		widget.NewFormItem("Profile", s.profileSelect),
		widget.NewFormItem("Target colour", s.colorEntry),
		widget.NewFormItem("Tolerance", s.toleranceEntry),
		widget.NewFormItem("Metric", s.metricSelect),
		widget.NewFormItem("Sample step", s.stepEntry),
		widget.NewFormItem("Min blob", container.NewGridWithColumns(2, s.blobWEntry, s.blobHEntry)),
	)

	action := widget.NewForm(
		widget.NewFormItem("Debounce ticks", s.debounceEntry),
		widget.NewFormItem("Cooldown (ms)", s.cooldownEntry),
		widget.NewFormItem("Max hold (ms)", s.maxHoldEntry),
		widget.NewFormItem("Mode", s.modeSelect),
		widget.NewFormItem("Button", s.buttonEntry),
		widget.NewFormItem("Tick interval (ms)", s.intervalEntry),
	)

	saveBtn := widget.NewButton("Save & Apply", s.save)
	saveBtn.Importance = widget.HighImportance
	revertBtn := widget.NewButton("Revert", func() { s.load(s.controller.Config()) })

	return container.NewVScroll(container.NewVBox(
		widget.NewLabelWithStyle("Capture region", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		card(region),
		widget.NewLabelWithStyle("Detection", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		card(detection),
		widget.NewLabelWithStyle("Action", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		card(action),
		container.NewHBox(revertBtn, saveBtn),
	))
}

func labeled(label string, obj fyne.CanvasObject) fyne.CanvasObject {
	return container.NewBorder(nil, nil, widget.NewLabel(label), nil, obj)
}

// load fills the widgets from cfg
func (s *SettingsTab) load(cfg *config.Config) {
	f := formFromConfig(cfg)
	s.setForm(f)

	if cfg.Detection.Profile != "" && s.controller.profiles.Has(cfg.Detection.Profile) {
		s.profileSelect.Selected = cfg.Detection.Profile
		s.profileSelect.Refresh()
	}
}

func (s *SettingsTab) setForm(f settingsForm) {
	s.xEntry.SetText(f.X)
	s.yEntry.SetText(f.Y)
	s.wEntry.SetText(f.Width)
	s.hEntry.SetText(f.Height)
	s.colorEntry.SetText(f.TargetColor)
	s.toleranceEntry.SetText(f.Tolerance)
	s.metricSelect.SetSelected(f.Metric)
	s.stepEntry.SetText(f.SampleStep)
	s.blobWEntry.SetText(f.MinBlobWidth)
	s.blobHEntry.SetText(f.MinBlobHeight)
	s.debounceEntry.SetText(f.DebounceTicks)
	s.cooldownEntry.SetText(f.CooldownMs)
	s.maxHoldEntry.SetText(f.MaxHoldMs)
	s.modeSelect.SetSelected(f.Mode)
	s.buttonEntry.SetText(f.Button)
	s.intervalEntry.SetText(f.IntervalMs)
}

func (s *SettingsTab) form() settingsForm {
	return settingsForm{
		X:             s.xEntry.Text,
		Y:             s.yEntry.Text,
		Width:         s.wEntry.Text,
		Height:        s.hEntry.Text,
		TargetColor:   s.colorEntry.Text,
		Tolerance:     s.toleranceEntry.Text,
		Metric:        s.metricSelect.Selected,
		SampleStep:    s.stepEntry.Text,
		MinBlobWidth:  s.blobWEntry.Text,
		MinBlobHeight: s.blobHEntry.Text,
		DebounceTicks: s.debounceEntry.Text,
		CooldownMs:    s.cooldownEntry.Text,
		MaxHoldMs:     s.maxHoldEntry.Text,
		Mode:          s.modeSelect.Selected,
		Button:        s.buttonEntry.Text,
		IntervalMs:    s.intervalEntry.Text,
	}
}

// applyProfile copies a preset into the form without saving
func (s *SettingsTab) applyProfile(name string) {
	draft, err := s.form().applyTo(s.controller.Config())
	if err != nil {
		draft = s.controller.Config()
	}
	tmp := *draft
	if err := s.controller.profiles.Apply(name, &tmp); err != nil {
		dialog.ShowError(err, s.controller.window)
		return
	}
	s.setForm(formFromConfig(&tmp))
}

func (s *SettingsTab) save() {
	cfg, err := s.form().applyTo(s.controller.Config())
	if err != nil {
		dialog.ShowError(err, s.controller.window)
		return
	}
	if s.profileSelect.Selected != "" {
		cfg.Detection.Profile = s.profileSelect.Selected
	}

	if err := s.controller.ApplyConfig(cfg); err != nil {
		dialog.ShowError(err, s.controller.window)
	}
}
