package codec

import (
	"testing"
	"time"

	"github.com/skinforge/skinforge/internal/modules/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testConsoles = []model.Console{
		{Name: "Game Boy Advance", ShortName: "GBA", GameTypeIdentifier: "com.skinforge.game.gba", ScreenCount: 1},
		{Name: "Nintendo DS", ShortName: "NDS", GameTypeIdentifier: "com.skinforge.game.nds", ScreenCount: 2},
	}
	testDevices = []model.Device{
		{Model: "iphone-15-pro", Name: "iPhone 15 Pro", LogicalWidth: 393, LogicalHeight: 852},
	}
)

func fullTestProject() *model.Project {
	resizable := true
	return &model.Project{
		ID:                 "p-1",
		Name:               "My GBA Skin",
		Identifier:         "com.example.skin.gba",
		Console:            &testConsoles[0],
		Device:             &testDevices[0],
		CurrentOrientation: model.OrientationPortrait,
		Orientations: &model.OrientationSet{
			Portrait: model.OrientationData{
				Controls: []model.Control{
					{
						ID:     "session-id-1",
						Inputs: model.ChordedInputs("a", "b"),
						Frame:  &model.Frame{X: 10, Y: 10, Width: 50, Height: 50},
						ExtendedEdges: &model.ExtendedEdges{
							Top: 5, Bottom: 5, Left: 5, Right: 5,
						},
						Label: "A+B",
					},
					{
						Inputs: model.ControlInputs{Thumbstick: &model.ThumbstickAxes{
							Up:    "analogStickUp",
							Down:  "analogStickDown",
							Left:  "analogStickLeft",
							Right: "analogStickRight",
						}},
						Frame: &model.Frame{X: 30, Y: 120, Width: 80, Height: 80},
					},
				},
				Screens: []model.Screen{
					{
						OutputFrame: model.Frame{X: 0, Y: 0, Width: 393, Height: 262},
						InputFrame:  &model.Frame{X: 0, Y: 0, Width: 240, Height: 160},
						Resizable:   &resizable,
						Label:       "Main Screen",
					},
				},
				MenuInsets: model.MenuInsets{Enabled: true, Bottom: 10, Left: 2, Right: 2},
			},
			Landscape: model.EmptyOrientationData(),
		},
		LastModified: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestToMinimal_NotSerializable(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Project)
	}{
		{"nil console", func(p *model.Project) { p.Console = nil }},
		{"nil device", func(p *model.Project) { p.Device = nil }},
		{"nil orientations", func(p *model.Project) { p.Orientations = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := fullTestProject()
			tt.mutate(p)
			assert.Nil(t, ToMinimal(p))
		})
	}

	assert.Nil(t, ToMinimal(nil))
}

func TestToMinimal_StripsUIFields(t *testing.T) {
	m := ToMinimal(fullTestProject())
	require.NotNil(t, m)

	assert.Equal(t, "com.skinforge.game.gba", m.GameTypeIdentifier)
	assert.Equal(t, "iphone-15-pro", m.DeviceModel)

	ctrl := m.Orientations.Portrait.Controls[0]
	assert.Equal(t, []string{"a", "b"}, ctrl.Inputs.Chorded)
	assert.Equal(t, model.Frame{X: 10, Y: 10, Width: 50, Height: 50}, ctrl.Frame)
	assert.Equal(t, model.ExtendedEdges{Top: 5, Bottom: 5, Left: 5, Right: 5}, ctrl.ExtendedEdges)
}

func TestToMinimal_FrameAndEdgeDefaults(t *testing.T) {
	p := fullTestProject()
	p.Orientations.Portrait.Controls = []model.Control{
		{Inputs: model.SingleInput("menu")},
	}

	m := ToMinimal(p)
	require.NotNil(t, m)

	ctrl := m.Orientations.Portrait.Controls[0]
	assert.Equal(t, model.Frame{X: 0, Y: 0, Width: 50, Height: 50}, ctrl.Frame)
	assert.Equal(t, model.ExtendedEdges{}, ctrl.ExtendedEdges)
}

func TestToMinimal_BackgroundImageOnlyWhenStored(t *testing.T) {
	p := fullTestProject()
	p.Orientations.Portrait.BackgroundImage = &model.BackgroundImage{
		FileName:       "draft.png",
		URL:            "blob:transient",
		HasStoredImage: false,
	}

	m := ToMinimal(p)
	require.NotNil(t, m)
	assert.Empty(t, m.Orientations.Portrait.BackgroundImageURL)
	assert.Empty(t, m.Orientations.Portrait.BackgroundImageFileName)

	p.Orientations.Portrait.BackgroundImage.HasStoredImage = true
	m = ToMinimal(p)
	require.NotNil(t, m)
	assert.Equal(t, "draft.png", m.Orientations.Portrait.BackgroundImageFileName)
	assert.True(t, m.Orientations.Portrait.HasStoredImage())
}

func TestFromMinimal_DanglingReference(t *testing.T) {
	m := ToMinimal(fullTestProject())
	require.NotNil(t, m)

	assert.Nil(t, FromMinimal(m, nil, testDevices))
	assert.Nil(t, FromMinimal(m, testConsoles, nil))

	m.GameTypeIdentifier = "com.skinforge.game.unknown"
	assert.Nil(t, FromMinimal(m, testConsoles, testDevices))
}

func TestRoundTrip_PreservesLayoutData(t *testing.T) {
	p := fullTestProject()
	m := ToMinimal(p)
	require.NotNil(t, m)

	restored := FromMinimal(m, testConsoles, testDevices)
	require.NotNil(t, restored)

	orig := p.Orientations.Portrait
	got := restored.Orientations.Portrait

	require.Len(t, got.Controls, len(orig.Controls))
	for i := range orig.Controls {
		assert.Equal(t, orig.Controls[i].Inputs, got.Controls[i].Inputs)
		assert.Equal(t, *orig.Controls[i].Frame, *got.Controls[i].Frame)
	}
	require.Len(t, got.Screens, len(orig.Screens))
	assert.Equal(t, orig.Screens[0].OutputFrame, got.Screens[0].OutputFrame)
	assert.Equal(t, *orig.Screens[0].InputFrame, *got.Screens[0].InputFrame)
	assert.Equal(t, orig.MenuInsets, got.MenuInsets)

	// Labels are rederived, ids are fresh for the session.
	assert.Equal(t, "A+B", got.Controls[0].Label)
	assert.Equal(t, "Thumbstick", got.Controls[1].Label)
	assert.NotEmpty(t, got.Controls[0].ID)
	assert.NotEqual(t, p.Orientations.Portrait.Controls[0].ID, got.Controls[0].ID)
}

func TestRoundTrip_MinimalFormIsFixedPoint(t *testing.T) {
	first := ToMinimal(fullTestProject())
	require.NotNil(t, first)

	restored := FromMinimal(first, testConsoles, testDevices)
	require.NotNil(t, restored)

	second := ToMinimal(restored)
	require.NotNil(t, second)

	assert.Equal(t, first, second)
}

func TestFromMinimal_ControlLabels(t *testing.T) {
	tests := []struct {
		name   string
		inputs model.ControlInputs
		want   string
	}{
		{"single", model.SingleInput("menu"), "MENU"},
		{"chorded", model.ChordedInputs("a", "b"), "A+B"},
		{
			"thumbstick",
			model.ControlInputs{Thumbstick: &model.ThumbstickAxes{
				Up: "analogStickUp", Down: "analogStickDown",
				Left: "analogStickLeft", Right: "analogStickRight",
			}},
			"Thumbstick",
		},
		{
			"touchscreen",
			model.ControlInputs{Touch: &model.TouchAxes{X: "touchScreenX", Y: "touchScreenY"}},
			"Touchscreen",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := fullTestProject()
			p.Orientations.Portrait.Controls = []model.Control{{Inputs: tt.inputs}}

			restored := FromMinimal(ToMinimal(p), testConsoles, testDevices)
			require.NotNil(t, restored)
			assert.Equal(t, tt.want, restored.Orientations.Portrait.Controls[0].Label)
		})
	}
}

func TestScreenLabel(t *testing.T) {
	input := &model.Frame{Width: 256, Height: 192}

	single := []model.MinimalScreen{{Frame: model.Frame{Width: 393, Height: 262}}}
	assert.Equal(t, "Main Screen", ScreenLabel(0, single))

	dual := []model.MinimalScreen{
		{Frame: model.Frame{Width: 393, Height: 262}, InputFrame: input},
		{Frame: model.Frame{Y: 262, Width: 393, Height: 262}, InputFrame: input},
	}
	assert.Equal(t, "Top Screen", ScreenLabel(0, dual))
	assert.Equal(t, "Bottom Screen", ScreenLabel(1, dual))

	// A second screen without an inputFrame keeps positional naming.
	noInput := []model.MinimalScreen{
		{Frame: model.Frame{Width: 100, Height: 100}},
		{Frame: model.Frame{Y: 100, Width: 100, Height: 100}},
		{Frame: model.Frame{Y: 200, Width: 100, Height: 100}},
	}
	assert.Equal(t, "Main Screen", ScreenLabel(0, noInput))
	assert.Equal(t, "Screen 2", ScreenLabel(1, noInput))
	assert.Equal(t, "Screen 3", ScreenLabel(2, noInput))
}
