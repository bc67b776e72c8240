// Package tray provides the system tray menu for the holdsense hold detector.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/holdsense/internal/app"
	"github.com/ayusman/holdsense/internal/hold"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle      func(enabled bool)
	onRecalibrate func()
	onPreset      func(p hold.Preset)
	onSettings    func()
	onQuit        func()
	enabled       bool
	status        string
	mu            sync.RWMutex

	// Menu items stored for later updates
	menuStatus *systray.MenuItem
	menuToggle *systray.MenuItem
}

// New creates a new Tray instance. enabled is the initial detection state.
func New(enabled bool) *Tray {
	return &Tray{
		enabled: enabled,
		status:  StatusLabel(app.Status{Enabled: enabled}),
	}
}

// OnToggle sets the callback function to be called when the enabled state is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnRecalibrate sets the callback for the recalibrate menu item.
func (t *Tray) OnRecalibrate(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRecalibrate = fn
}

// OnPreset sets the callback for the detection preset submenu.
func (t *Tray) OnPreset(fn func(p hold.Preset)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onPreset = fn
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("holdsense")
	systray.SetTooltip("holdsense hold detector")

	t.mu.Lock()
	t.menuStatus = systray.AddMenuItem(t.status, "Current detection state")
	t.menuStatus.Disable()
	systray.AddSeparator()

	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle hold detection")
	t.mu.Unlock()

	menuRecalibrate := systray.AddMenuItem("Recalibrate", "Use the current hold position as the centre")

	menuPresets := systray.AddMenuItem("Detection preset", "Apply a detection preset")
	for _, p := range hold.Presets() {
		item := menuPresets.AddSubMenuItem(p.Label(), "Apply the "+p.Label()+" preset")
		go t.watchPreset(item, p)
	}
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit holdsense")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuRecalibrate.ClickedCh:
				t.handleRecalibrate()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) watchPreset(item *systray.MenuItem, p hold.Preset) {
	for range item.ClickedCh {
		t.handlePreset(p)
	}
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled

	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleRecalibrate() {
	t.mu.RLock()
	callback := t.onRecalibrate
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handlePreset(p hold.Preset) {
	t.mu.RLock()
	callback := t.onPreset
	t.mu.RUnlock()

	if callback != nil {
		callback(p)
	}
}

// handleSettings handles the settings menu item click.
func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// Quit closes the tray and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// StatusLabel returns the status line shown for st.
func StatusLabel(st app.Status) string {
	switch {
	case !st.Enabled:
		return "Status: Disabled"
	case !st.Output.Tracked:
		return "Status: No user"
	case st.Output.Holding:
		return "Status: Holding"
	default:
		return "Status: Idle"
	}
}

// SetStatus updates the status line and the enabled toggle from st.
func (t *Tray) SetStatus(st app.Status) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status = StatusLabel(st)
	if t.menuStatus != nil {
		t.menuStatus.SetTitle(t.status)
	}

	if st.Enabled != t.enabled {
		t.enabled = st.Enabled
		if t.menuToggle != nil {
			t.menuToggle.SetTitle(toggleTitle(t.enabled))
		}
	}
}

// Status returns the current status line.
func (t *Tray) Status() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}
