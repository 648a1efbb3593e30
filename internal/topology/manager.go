// Package topology tracks which media surface is shown in which slot and
// moves surfaces between slots without ever closing them.
package topology

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/kikiluvv/reactionsync/internal/media"
)

// ErrTopologyConfusion means the slot bookkeeping no longer matches what the
// containers hold. The operation that detected it is aborted.
var ErrTopologyConfusion = errors.New("topology: slot occupant mismatch")

type Slot int

const (
	Main Slot = iota
	SecondaryWindow
	Overlay
)

func (s Slot) String() string {
	switch s {
	case Main:
		return "main"
	case SecondaryWindow:
		return "secondary_window"
	case Overlay:
		return "overlay"
	}
	return fmt.Sprintf("slot(%d)", int(s))
}

// Container is a place that can display one surface. Attaching or detaching
// a surface the container does not expect must be a no-op.
type Container interface {
	Attach(s *media.Surface)
	Detach(s *media.Surface)
	Contains(s *media.Surface) bool
	Show()
	Hide()
}

// OverlayContainer is the floating frame
type OverlayContainer interface {
	Container
	ResetGeometry()
	Raise()
}

// MainChrome is the main window's presentation controls
type MainChrome interface {
	SetControlsVisible(visible bool)
	SetCaptionVisible(visible bool)
}

type Slots struct {
	Main      Container
	Secondary Container
	Overlay   OverlayContainer
}

type Chrome struct {
	Main MainChrome
}

// Manager owns the slot assignment. It is not safe for concurrent use; all
// calls come from the control thread.
type Manager struct {
	logger zerolog.Logger
	slots  Slots
	chrome Chrome

	primary     *media.Surface
	secondary   *media.Surface
	overlayMode bool
	theater     bool
}

// New places primary in Main and secondary in the secondary window
func New(logger zerolog.Logger, slots Slots, chrome Chrome, primary, secondary *media.Surface) (*Manager, error) {
	if primary == nil || secondary == nil || primary == secondary {
		return nil, fmt.Errorf("%w: need two distinct surfaces", ErrTopologyConfusion)
	}

	m := &Manager{
		logger:    logger.With().Str("component", "topology").Logger(),
		slots:     slots,
		chrome:    chrome,
		primary:   primary,
		secondary: secondary,
	}

	slots.Main.Attach(primary)
	m.setHost(primary, Main)
	slots.Secondary.Attach(secondary)
	m.setHost(secondary, SecondaryWindow)
	return m, nil
}

func (m *Manager) Primary() *media.Surface   { return m.primary }
func (m *Manager) Secondary() *media.Surface { return m.secondary }
func (m *Manager) OverlayMode() bool         { return m.overlayMode }
func (m *Manager) Theater() bool             { return m.theater }

// SlotOf reports where s is shown
func (m *Manager) SlotOf(s *media.Surface) (Slot, bool) {
	switch s {
	case m.primary:
		return Main, true
	case m.secondary:
		return m.otherSlot(), true
	}
	return 0, false
}

func (m *Manager) otherSlot() Slot {
	if m.overlayMode {
		return Overlay
	}
	return SecondaryWindow
}

func (m *Manager) other() Container {
	if m.overlayMode {
		return m.slots.Overlay
	}
	return m.slots.Secondary
}

func (m *Manager) confused(op string, detail string) error {
	err := fmt.Errorf("%w: %s: %s", ErrTopologyConfusion, op, detail)
	m.logger.Warn().Err(err).Str("op", op).Msg("topology bookkeeping mismatch, aborting")
	return err
}

// Swap exchanges the Main occupant with the other slot's occupant. Both
// surfaces are detached before either is attached again.
func (m *Manager) Swap() error {
	other := m.other()
	if !m.slots.Main.Contains(m.primary) {
		return m.confused("swap", "main slot does not hold the primary surface")
	}
	if !other.Contains(m.secondary) {
		return m.confused("swap", m.otherSlot().String()+" does not hold the secondary surface")
	}

	oldPrimary, oldSecondary := m.primary, m.secondary

	m.slots.Main.Detach(oldPrimary)
	other.Detach(oldSecondary)
	oldPrimary.SetHost(nil)
	oldSecondary.SetHost(nil)

	m.slots.Main.Attach(oldSecondary)
	m.setHost(oldSecondary, Main)
	other.Attach(oldPrimary)
	m.setHost(oldPrimary, m.otherSlot())

	m.primary, m.secondary = oldSecondary, oldPrimary

	// window state belongs to the slot, not the surface
	m.primary.SetFullscreen(m.theater)
	m.secondary.SetFullscreen(false)
	m.primary.SetOnTop(false)
	m.secondary.SetOnTop(m.overlayMode)

	if m.overlayMode {
		m.slots.Overlay.Raise()
	} else {
		m.slots.Secondary.Show()
	}

	m.logger.Info().
		Str("main", m.primary.Name()).
		Str(m.otherSlot().String(), m.secondary.Name()).
		Msg("surfaces swapped")
	return nil
}

// SetOverlayMode moves the secondary surface between the secondary window
// and the overlay. Setting the current mode again does nothing.
func (m *Manager) SetOverlayMode(enabled bool) error {
	if enabled == m.overlayMode {
		return nil
	}
	if enabled {
		return m.enterOverlay()
	}
	return m.exitOverlay()
}

func (m *Manager) enterOverlay() error {
	s := m.secondary
	if !m.slots.Secondary.Contains(s) {
		return m.confused("enter_overlay", "secondary window does not hold the secondary surface")
	}

	m.slots.Secondary.Hide()
	m.slots.Secondary.Detach(s)
	s.SetHost(nil)

	m.slots.Overlay.Attach(s)
	m.setHost(s, Overlay)
	s.SetFullscreen(false)
	s.SetOnTop(true)
	m.slots.Overlay.ResetGeometry()
	m.slots.Overlay.Show()
	m.slots.Overlay.Raise()

	m.overlayMode = true
	m.logger.Info().Str("surface", s.Name()).Msg("overlay mode on")
	return nil
}

func (m *Manager) exitOverlay() error {
	s := m.secondary
	if !m.slots.Overlay.Contains(s) {
		return m.confused("exit_overlay", "overlay does not hold the secondary surface")
	}

	m.slots.Overlay.Hide()
	m.slots.Overlay.Detach(s)
	s.SetHost(nil)

	m.slots.Secondary.Attach(s)
	m.setHost(s, SecondaryWindow)
	s.SetOnTop(false)
	m.slots.Secondary.Show()

	m.overlayMode = false
	m.logger.Info().Str("surface", s.Name()).Msg("overlay mode off")
	return nil
}

// ToggleTheater switches between normal and theater mode. Theater mode puts
// the main surface's video window fullscreen and hides the transport
// controls and caption.
func (m *Manager) ToggleTheater() {
	m.SetTheater(!m.theater)
}

func (m *Manager) SetTheater(on bool) {
	m.theater = on
	m.primary.SetFullscreen(on)
	if m.chrome.Main != nil {
		m.chrome.Main.SetControlsVisible(!on)
		m.chrome.Main.SetCaptionVisible(!on)
	}
	m.logger.Debug().Bool("theater", on).Msg("theater mode")
}

func (m *Manager) toggleFullscreen(s *media.Surface) {
	full := !s.Fullscreen()
	s.SetFullscreen(full)
	m.logger.Debug().Str("surface", s.Name()).Bool("fullscreen", full).Msg("secondary window fullscreen")
}

func (m *Manager) setHost(s *media.Surface, slot Slot) {
	s.SetHost(slotHost{m: m, slot: slot})
}

// slotHost resolves fullscreen requests for whatever surface a slot holds
type slotHost struct {
	m    *Manager
	slot Slot
}

func (h slotHost) HandleFullscreenRequest(s *media.Surface) {
	switch h.slot {
	case SecondaryWindow:
		h.m.toggleFullscreen(s)
	case Main:
		h.m.ToggleTheater()
	case Overlay:
		// the overlay floats inside the main composition
		slotHost{m: h.m, slot: Main}.HandleFullscreenRequest(s)
	}
}
