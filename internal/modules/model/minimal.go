package model

import "time"

// Minimal format: the durable, foreign-keyed, UI-stripped serialization of a
// Project. A minimal record must be reconstructible into a full Project given
// only itself plus the current Console and Device reference tables.

type MinimalControl struct {
	Inputs        ControlInputs `json:"inputs"`
	Frame         Frame         `json:"frame"`
	ExtendedEdges ExtendedEdges `json:"extendedEdges"`
}

type MinimalScreen struct {
	Frame      Frame  `json:"frame"`
	InputFrame *Frame `json:"inputFrame,omitempty"`
	Resizable  *bool  `json:"resizable,omitempty"`
}

type MinimalOrientation struct {
	Controls   []MinimalControl `json:"controls"`
	Screens    []MinimalScreen  `json:"screens"`
	MenuInsets MenuInsets       `json:"menuInsets"`

	// BackgroundImageRef is the blob-store owner key from the v1 era, kept so
	// migrated records can still reach their stored image.
	BackgroundImageRef      string `json:"backgroundImageRef,omitempty"`
	BackgroundImageURL      string `json:"backgroundImageUrl,omitempty"`
	BackgroundImageFileName string `json:"backgroundImageFileName,omitempty"`
}

// HasStoredImage reports whether this orientation references a stored
// background image in any of its three reference fields.
func (o MinimalOrientation) HasStoredImage() bool {
	return o.BackgroundImageRef != "" || o.BackgroundImageURL != "" || o.BackgroundImageFileName != ""
}

type MinimalOrientationSet struct {
	Portrait  MinimalOrientation `json:"portrait"`
	Landscape MinimalOrientation `json:"landscape"`
}

func (s *MinimalOrientationSet) Get(o Orientation) *MinimalOrientation {
	if o == OrientationLandscape {
		return &s.Landscape
	}
	return &s.Portrait
}

type MinimalProject struct {
	ID                 string                `json:"id"`
	Name               string                `json:"name"`
	Identifier         string                `json:"identifier"`
	GameTypeIdentifier string                `json:"gameTypeIdentifier"`
	DeviceModel        string                `json:"deviceModel"`
	CurrentOrientation Orientation           `json:"currentOrientation,omitempty"`
	Orientations       MinimalOrientationSet `json:"orientations"`
	OwnerEmail         string                `json:"ownerEmail,omitempty"`
	LastModified       time.Time             `json:"lastModified"`
}

// LegacyProject is the v1 durable shape: fully denormalized, console and
// device embedded by value. The oldest records predate orientation support
// and keep their layout in top-level fields instead of Orientations.
type LegacyProject struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Identifier         string          `json:"identifier"`
	Console            *Console        `json:"console,omitempty"`
	Device             *Device         `json:"device,omitempty"`
	CurrentOrientation Orientation     `json:"currentOrientation,omitempty"`
	Orientations       *OrientationSet `json:"orientations,omitempty"`
	OwnerEmail         string          `json:"ownerEmail,omitempty"`
	LastModified       time.Time       `json:"lastModified"`

	// Pre-orientation layout fields.
	Controls        []Control        `json:"controls,omitempty"`
	Screens         []Screen         `json:"screens,omitempty"`
	MenuInsets      *MenuInsets      `json:"menuInsets,omitempty"`
	BackgroundImage *BackgroundImage `json:"backgroundImage,omitempty"`
}
