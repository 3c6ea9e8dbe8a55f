// Package codec implements the bidirectional mapping between the full
// in-memory editor project and the minimal durable format. Both directions
// are pure and synchronous; blob hydration is the caller's concern.
package codec

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/skinforge/skinforge/internal/modules/model"
)

const (
	defaultFrameWidth  = 50
	defaultFrameHeight = 50
)

// ToMinimal strips a full project down to its durable representation.
// Returns nil when console, device, or orientations are absent: a project is
// not serializable until fully configured. This direction is lossy on
// purpose; labels and ids must be re-derivable on load.
func ToMinimal(p *model.Project) *model.MinimalProject {
	if p == nil || p.Console == nil || p.Device == nil || p.Orientations == nil {
		return nil
	}

	return &model.MinimalProject{
		ID:                 p.ID,
		Name:               p.Name,
		Identifier:         p.Identifier,
		GameTypeIdentifier: p.Console.GameTypeIdentifier,
		DeviceModel:        p.Device.Model,
		CurrentOrientation: p.CurrentOrientation,
		Orientations: model.MinimalOrientationSet{
			Portrait:  minimalOrientation(p.Orientations.Portrait),
			Landscape: minimalOrientation(p.Orientations.Landscape),
		},
		OwnerEmail:   p.OwnerEmail,
		LastModified: p.LastModified,
	}
}

func minimalOrientation(d model.OrientationData) model.MinimalOrientation {
	out := model.MinimalOrientation{
		Controls:   make([]model.MinimalControl, 0, len(d.Controls)),
		Screens:    make([]model.MinimalScreen, 0, len(d.Screens)),
		MenuInsets: d.MenuInsets,
	}

	for _, c := range d.Controls {
		out.Controls = append(out.Controls, model.MinimalControl{
			Inputs:        c.Inputs,
			Frame:         minimalFrame(c.Frame),
			ExtendedEdges: minimalEdges(c.ExtendedEdges),
		})
	}

	for _, s := range d.Screens {
		out.Screens = append(out.Screens, model.MinimalScreen{
			Frame:      s.OutputFrame,
			InputFrame: copyFrame(s.InputFrame),
			Resizable:  s.Resizable,
		})
	}

	// The image reference survives only when an image was actually stored;
	// a picked-but-unsaved file is transient UI state.
	if d.BackgroundImage != nil && d.BackgroundImage.HasStoredImage {
		out.BackgroundImageURL = d.BackgroundImage.URL
		out.BackgroundImageFileName = d.BackgroundImage.FileName
	}

	return out
}

func minimalFrame(f *model.Frame) model.Frame {
	if f == nil {
		return model.Frame{Width: defaultFrameWidth, Height: defaultFrameHeight}
	}
	out := *f
	if out.Width == 0 {
		out.Width = defaultFrameWidth
	}
	if out.Height == 0 {
		out.Height = defaultFrameHeight
	}
	return out
}

func minimalEdges(e *model.ExtendedEdges) model.ExtendedEdges {
	if e == nil {
		return model.ExtendedEdges{}
	}
	return *e
}

func copyFrame(f *model.Frame) *model.Frame {
	if f == nil {
		return nil
	}
	out := *f
	return &out
}

// FromMinimal reconstructs a full project from a minimal record plus the
// current reference tables. Returns nil when gameTypeIdentifier or
// deviceModel do not resolve: a dangling reference cannot be displayed.
//
// Control ids are fresh per call. Identity does not survive a save/load round
// trip beyond the current session, and callers must not assume it does.
func FromMinimal(m *model.MinimalProject, consoles []model.Console, devices []model.Device) *model.Project {
	if m == nil {
		return nil
	}

	console := findConsole(consoles, m.GameTypeIdentifier)
	device := findDevice(devices, m.DeviceModel)
	if console == nil || device == nil {
		return nil
	}

	orientation := m.CurrentOrientation
	if !orientation.Valid() {
		orientation = model.OrientationPortrait
	}

	return &model.Project{
		ID:                 m.ID,
		Name:               m.Name,
		Identifier:         m.Identifier,
		Console:            console,
		Device:             device,
		CurrentOrientation: orientation,
		Orientations: &model.OrientationSet{
			Portrait:  fullOrientation(m.Orientations.Portrait),
			Landscape: fullOrientation(m.Orientations.Landscape),
		},
		OwnerEmail:   m.OwnerEmail,
		LastModified: m.LastModified,
	}
}

func fullOrientation(d model.MinimalOrientation) model.OrientationData {
	out := model.OrientationData{
		Controls:   make([]model.Control, 0, len(d.Controls)),
		Screens:    make([]model.Screen, 0, len(d.Screens)),
		MenuInsets: d.MenuInsets,
	}

	for _, c := range d.Controls {
		frame := c.Frame
		edges := c.ExtendedEdges
		out.Controls = append(out.Controls, model.Control{
			ID:            uuid.NewString(),
			Inputs:        c.Inputs,
			Frame:         &frame,
			ExtendedEdges: &edges,
			Label:         c.Inputs.Label(),
		})
	}

	for i, s := range d.Screens {
		out.Screens = append(out.Screens, model.Screen{
			OutputFrame: s.Frame,
			InputFrame:  copyFrame(s.InputFrame),
			Label:       ScreenLabel(i, d.Screens),
			Resizable:   s.Resizable,
		})
	}

	if d.HasStoredImage() {
		out.BackgroundImage = &model.BackgroundImage{
			FileName:       d.BackgroundImageFileName,
			URL:            d.BackgroundImageURL,
			HasStoredImage: true,
		}
	}

	return out
}

// ScreenLabel regenerates a screen's display label positionally. A second
// screen carrying an inputFrame marks a dual-screen layout, which relabels
// the pair Top/Bottom.
func ScreenLabel(index int, screens []model.MinimalScreen) string {
	dual := len(screens) > 1 && screens[1].InputFrame != nil

	switch {
	case index == 1 && dual:
		return "Bottom Screen"
	case index == 0 && dual:
		return "Top Screen"
	case index == 0:
		return "Main Screen"
	default:
		return fmt.Sprintf("Screen %d", index+1)
	}
}

func findConsole(consoles []model.Console, gameTypeIdentifier string) *model.Console {
	for i := range consoles {
		if consoles[i].GameTypeIdentifier == gameTypeIdentifier {
			return &consoles[i]
		}
	}
	return nil
}

func findDevice(devices []model.Device, deviceModel string) *model.Device {
	for i := range devices {
		if devices[i].Model == deviceModel {
			return &devices[i]
		}
	}
	return nil
}
