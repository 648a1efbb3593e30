package topology

import "github.com/kikiluvv/reactionsync/internal/media"

// Virtual is a container with no on-screen representation. It is used for
// slots when no GUI is running; the players then render in their own
// windows.
type Virtual struct {
	Name    string
	content *media.Surface
	visible bool
}

func NewVirtual(name string) *Virtual {
	return &Virtual{Name: name, visible: true}
}

func (v *Virtual) Attach(s *media.Surface) {
	if s == nil {
		return
	}
	v.content = s
}

func (v *Virtual) Detach(s *media.Surface) {
	if s == nil || v.content != s {
		return
	}
	v.content = nil
}

func (v *Virtual) Contains(s *media.Surface) bool { return s != nil && v.content == s }
func (v *Virtual) Content() *media.Surface        { return v.content }
func (v *Virtual) Visible() bool                  { return v.visible }
func (v *Virtual) Show()                          { v.visible = true }
func (v *Virtual) Hide()                          { v.visible = false }
func (v *Virtual) ResetGeometry()                 {}
func (v *Virtual) Raise()                         {}

// VirtualSlots returns a full set of virtual containers. The overlay starts
// hidden.
func VirtualSlots() Slots {
	overlay := NewVirtual(Overlay.String())
	overlay.visible = false
	return Slots{
		Main:      NewVirtual(Main.String()),
		Secondary: NewVirtual(SecondaryWindow.String()),
		Overlay:   overlay,
	}
}
