//go:build !windows
// +build !windows

package cv

import "errors"

// NewGDISampler is only available on Windows
func NewGDISampler() (Sampler, error) {
	return nil, &CaptureError{Op: "gdi init", Err: errors.New("gdi backend requires windows")}
}
