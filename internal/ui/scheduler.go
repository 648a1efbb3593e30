package ui

import (
	"time"

	"fyne.io/fyne/v2"
)

// Scheduler runs work on the fyne main goroutine, which is the control
// thread while the GUI is up.
type Scheduler struct{}

func (Scheduler) Post(fn func()) { fyne.Do(fn) }

func (Scheduler) After(d time.Duration, fn func()) {
	time.AfterFunc(d, func() { fyne.Do(fn) })
}
