package gui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"jordanella.com/auto-shake-go/internal/cv"
)

// ShowPreview captures the configured region once and shows it with the
// signal the loop would extract from it. It does not touch the policy.
func (c *Controller) ShowPreview() {
	settings := c.shared.Snapshot()

	go func() {
		sample, err := c.sampler.Capture(settings.Region)
		if err != nil {
			fyne.Do(func() { dialog.ShowError(err, c.window) })
			return
		}
		sig := cv.Extract(sample, settings.Thresholds)

		fyne.Do(func() {
			c.showPreviewDialog(sample, sig)
		})
	}()
}

func (c *Controller) showPreviewDialog(sample *cv.Sample, sig cv.Signal) {
	var img fyne.CanvasObject
	if sample.Image == nil || !sample.Region.Valid() {
		img = widget.NewLabel("Region is off screen")
	} else {
		ci := canvas.NewImageFromImage(sample.Image)
		ci.FillMode = canvas.ImageFillContain
		ci.SetMinSize(fyne.NewSize(480, 260))
		img = ci
	}

	info := widget.NewLabel("Captured " + sample.Region.String() + "\n" + FormatSignal(sig))
	if sample.Region != sample.Requested {
		info.SetText(info.Text + "\nclipped from " + sample.Requested.String())
	}

	dialog.ShowCustom("Capture preview", "Close", container.NewBorder(nil, info, nil, nil, img), c.window)
}
