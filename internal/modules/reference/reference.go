package reference

import (
	_ "embed"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/skinforge/skinforge/internal/modules/model"
)

//go:embed consoles.json
var consolesJSON []byte

//go:embed devices.json
var devicesJSON []byte

// Tables holds the read-only Console and Device reference tables. They are
// loaded once at startup; the persistence layer only performs key lookups
// against them.
type Tables struct {
	consoles []model.Console
	devices  []model.Device

	byGameType map[string]*model.Console
	byModel    map[string]*model.Device
}

// Load parses the embedded descriptor assets.
func Load() (*Tables, error) {
	t := &Tables{
		byGameType: make(map[string]*model.Console),
		byModel:    make(map[string]*model.Device),
	}

	if err := sonic.Unmarshal(consolesJSON, &t.consoles); err != nil {
		return nil, fmt.Errorf("parse console table: %w", err)
	}
	if err := sonic.Unmarshal(devicesJSON, &t.devices); err != nil {
		return nil, fmt.Errorf("parse device table: %w", err)
	}

	for i := range t.consoles {
		t.byGameType[t.consoles[i].GameTypeIdentifier] = &t.consoles[i]
	}
	for i := range t.devices {
		t.byModel[t.devices[i].Model] = &t.devices[i]
	}
	return t, nil
}

// Console looks up a console by gameTypeIdentifier. Returns nil when the key
// does not resolve.
func (t *Tables) Console(gameTypeIdentifier string) *model.Console {
	return t.byGameType[gameTypeIdentifier]
}

// Device looks up a device by model key. Returns nil when the key does not
// resolve.
func (t *Tables) Device(deviceModel string) *model.Device {
	return t.byModel[deviceModel]
}

func (t *Tables) Consoles() []model.Console { return t.consoles }

func (t *Tables) Devices() []model.Device { return t.devices }
