package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

type Orientation string

const (
	OrientationPortrait  Orientation = "portrait"
	OrientationLandscape Orientation = "landscape"
)

// Valid reports whether o is one of the two supported orientations.
func (o Orientation) Valid() bool {
	return o == OrientationPortrait || o == OrientationLandscape
}

// Frame is a placement rectangle in skin layout units.
type Frame struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ExtendedEdges inflate a control's hit area past its frame.
type ExtendedEdges struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}

// MenuInsets reserve canvas margin (percent, 0-100) for system UI overlap.
type MenuInsets struct {
	Enabled bool    `json:"enabled"`
	Bottom  float64 `json:"bottom"`
	Left    float64 `json:"left"`
	Right   float64 `json:"right"`
}

type ThumbstickAxes struct {
	Up    string `json:"up"`
	Down  string `json:"down"`
	Left  string `json:"left"`
	Right string `json:"right"`
}

type TouchAxes struct {
	X string `json:"x"`
	Y string `json:"y"`
}

// ControlInputs is the tagged variant behind the polymorphic `inputs` wire
// field: a single input name, an ordered chord of names, the four thumbstick
// axes, or the two touchscreen axes. Exactly one branch is set.
type ControlInputs struct {
	Single     string
	Chorded    []string
	Thumbstick *ThumbstickAxes
	Touch      *TouchAxes
}

func SingleInput(name string) ControlInputs {
	return ControlInputs{Single: name}
}

func ChordedInputs(names ...string) ControlInputs {
	return ControlInputs{Chorded: names}
}

// Label derives the UI display label. It is recomputed on every load and
// never persisted.
func (in ControlInputs) Label() string {
	switch {
	case in.Chorded != nil:
		parts := make([]string, len(in.Chorded))
		for i, name := range in.Chorded {
			parts[i] = strings.ToUpper(name)
		}
		return strings.Join(parts, "+")
	case in.Thumbstick != nil:
		return "Thumbstick"
	case in.Touch != nil:
		return "Touchscreen"
	default:
		return strings.ToUpper(in.Single)
	}
}

func (in ControlInputs) MarshalJSON() ([]byte, error) {
	switch {
	case in.Chorded != nil:
		return sonic.Marshal(in.Chorded)
	case in.Thumbstick != nil:
		return sonic.Marshal(in.Thumbstick)
	case in.Touch != nil:
		return sonic.Marshal(in.Touch)
	default:
		return sonic.Marshal(in.Single)
	}
}

func (in *ControlInputs) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		*in = ControlInputs{}
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := sonic.Unmarshal(data, &s); err != nil {
			return err
		}
		*in = ControlInputs{Single: s}
		return nil
	case '[':
		var list []string
		if err := sonic.Unmarshal(data, &list); err != nil {
			return err
		}
		*in = ControlInputs{Chorded: list}
		return nil
	case '{':
		var raw map[string]string
		if err := sonic.Unmarshal(data, &raw); err != nil {
			return err
		}
		// Touch axes are checked first: a mapping with x/y is a touchscreen
		// even if it also carries directional keys.
		if _, okX := raw["x"]; okX {
			if _, okY := raw["y"]; okY {
				*in = ControlInputs{Touch: &TouchAxes{X: raw["x"], Y: raw["y"]}}
				return nil
			}
		}
		if _, okUp := raw["up"]; okUp {
			if _, okDown := raw["down"]; okDown {
				*in = ControlInputs{Thumbstick: &ThumbstickAxes{
					Up:    raw["up"],
					Down:  raw["down"],
					Left:  raw["left"],
					Right: raw["right"],
				}}
				return nil
			}
		}
		return fmt.Errorf("unsupported inputs mapping: %s", trimmed)
	default:
		return fmt.Errorf("unsupported inputs shape: %s", trimmed)
	}
}

// Control is a button/stick/touch region on the skin canvas. ID and Label are
// session-scoped UI fields; they are stripped on save and re-derived on load.
type Control struct {
	ID            string         `json:"id,omitempty"`
	Inputs        ControlInputs  `json:"inputs"`
	Frame         *Frame         `json:"frame,omitempty"`
	ExtendedEdges *ExtendedEdges `json:"extendedEdges,omitempty"`
	Label         string         `json:"label,omitempty"`
}

// Screen maps a region of the emulated console's framebuffer (inputFrame)
// onto the skin canvas (outputFrame). InputFrame is absent for consoles with
// variable output sizing.
type Screen struct {
	OutputFrame Frame  `json:"outputFrame"`
	InputFrame  *Frame `json:"inputFrame,omitempty"`
	Label       string `json:"label,omitempty"`
	Resizable   *bool  `json:"resizable,omitempty"`
}

type BackgroundImage struct {
	FileName       string `json:"fileName,omitempty"`
	URL            string `json:"url,omitempty"`
	HasStoredImage bool   `json:"hasStoredImage"`
}

type OrientationData struct {
	Controls        []Control        `json:"controls"`
	Screens         []Screen         `json:"screens"`
	MenuInsets      MenuInsets       `json:"menuInsets"`
	BackgroundImage *BackgroundImage `json:"backgroundImage,omitempty"`
}

// EmptyOrientationData is the default layout for a fresh orientation slot.
func EmptyOrientationData() OrientationData {
	return OrientationData{
		Controls: []Control{},
		Screens:  []Screen{},
	}
}

type OrientationSet struct {
	Portrait  OrientationData `json:"portrait"`
	Landscape OrientationData `json:"landscape"`
}

func NewOrientationSet() *OrientationSet {
	return &OrientationSet{
		Portrait:  EmptyOrientationData(),
		Landscape: EmptyOrientationData(),
	}
}

func (s *OrientationSet) Get(o Orientation) *OrientationData {
	if o == OrientationLandscape {
		return &s.Landscape
	}
	return &s.Portrait
}

func (s *OrientationSet) Set(o Orientation, d OrientationData) {
	if o == OrientationLandscape {
		s.Landscape = d
		return
	}
	s.Portrait = d
}

// Console is a row of the external console reference table, looked up by
// GameTypeIdentifier. Never embedded by value into durable records.
type Console struct {
	Name               string `json:"name"`
	ShortName          string `json:"shortName"`
	GameTypeIdentifier string `json:"gameTypeIdentifier"`
	ScreenCount        int    `json:"screenCount"`
	VariableScreenSize bool   `json:"variableScreenSize"`
}

// Device is a row of the external device reference table, looked up by Model.
type Device struct {
	Model         string  `json:"model"`
	Name          string  `json:"name"`
	LogicalWidth  float64 `json:"logicalWidth"`
	LogicalHeight float64 `json:"logicalHeight"`
}

// Project is the full in-memory editor project. It only ever reaches durable
// storage through the minimal format; Console and Device stay reference-table
// lookups.
type Project struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Identifier         string          `json:"identifier"`
	Console            *Console        `json:"console,omitempty"`
	Device             *Device         `json:"device,omitempty"`
	CurrentOrientation Orientation     `json:"currentOrientation,omitempty"`
	Orientations       *OrientationSet `json:"orientations,omitempty"`
	OwnerEmail         string          `json:"ownerEmail,omitempty"`
	LastModified       time.Time       `json:"lastModified"`
}
