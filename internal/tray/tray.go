// Package tray provides a system tray front end for the translator: the last
// emitted word, a start/stop toggle and one record item per gesture class.
package tray

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/translate"
)

// Controls is the part of the translator the tray drives.
type Controls interface {
	Classes() []app.ClassStatus
	StartRecording(index int) (int, error)
	ToggleClassification() (translate.State, error)
}

type classItem struct {
	label    string
	examples int
	menu     *systray.MenuItem
}

// Tray represents the system tray application. It is also an app.Display.
type Tray struct {
	controls Controls
	logger   *slog.Logger
	onQuit   func()

	mu      sync.RWMutex
	state   translate.State
	last    string
	classes []*classItem

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuLast   *systray.MenuItem
}

// New creates a Tray over controls.
func New(controls Controls, logger *slog.Logger) *Tray {
	if logger == nil {
		logger = slog.Default()
	}

	t := &Tray{controls: controls, logger: logger}
	for _, c := range controls.Classes() {
		t.classes = append(t.classes, &classItem{label: c.Label, examples: c.Examples})
	}
	return t
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application. It must be called from the main
// goroutine and blocks until Quit.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit stops Run.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra gesture translator")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.state), "Start or stop translating")
	systray.AddSeparator()

	t.menuLast = systray.AddMenuItem(lastTitle(t.last), "Last translated word")
	t.menuLast.Disable()
	systray.AddSeparator()

	for _, c := range t.classes {
		c.menu = systray.AddMenuItem(recordTitle(c), "Record an example of "+c.label)
	}
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Mudra")
	t.mu.Unlock()

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()

	for i, c := range t.classes {
		go func(index int, item *systray.MenuItem) {
			for range item.ClickedCh {
				t.handleRecord(index)
			}
		}(i, c.menu)
	}
}

func (t *Tray) handleToggle() {
	state, err := t.controls.ToggleClassification()
	if err != nil {
		t.logger.Warn("toggle failed", "error", err)
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = state
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(state))
	}
}

// handleRecord records one example. The new count arrives through
// ShowExampleCount.
func (t *Tray) handleRecord(index int) {
	if _, err := t.controls.StartRecording(index); err != nil {
		t.logger.Warn("recording failed", "class", index, "error", err)
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
	systray.Quit()
}

// ShowWord shows the emitted word in the menu.
func (t *Tray) ShowWord(tr gesture.Translation) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = tr.Word()
	if t.menuLast != nil {
		t.menuLast.SetTitle(lastTitle(t.last))
	}
}

// ShowExampleCount updates the record item of class.
func (t *Tray) ShowExampleCount(class gesture.Class, count int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if class.Index < 0 || class.Index >= len(t.classes) {
		return
	}
	c := t.classes[class.Index]
	c.examples = count
	if c.menu != nil {
		c.menu.SetTitle(recordTitle(c))
	}
}

// LastWord returns the word currently shown.
func (t *Tray) LastWord() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

// Examples returns the example count shown for class index.
func (t *Tray) Examples(index int) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if index < 0 || index >= len(t.classes) {
		return 0
	}
	return t.classes[index].examples
}

// State returns the loop state shown on the toggle.
func (t *Tray) State() translate.State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

func toggleTitle(s translate.State) string {
	if s == translate.Predicting {
		return "● Translating"
	}
	return "○ Stopped"
}

func lastTitle(word string) string {
	if word == "" {
		return "Last: none"
	}
	return "Last: " + word
}

func recordTitle(c *classItem) string {
	return fmt.Sprintf("Record %s (%d)", c.label, c.examples)
}
