package switcher

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrNoRemote reports that a remote identifier is missing from the IRSet
// database.
var ErrNoRemote = errors.New("remote not found")

// Wave keys with a fixed meaning in the IRSet grammar.
const (
	keyOff      = "off"
	keySwingOn  = "swing_on"
	keySwingOff = "swing_off"
)

// irWave is one transmittable IR signal from an IRSet file.
type irWave struct {
	Key     string `json:"Key"`
	Para    string `json:"Para"`
	HexCode string `json:"HexCode"`
}

// remoteEntry mirrors the per-remote structure of an IRSet file.
type remoteEntry struct {
	IRSetID    int      `json:"IRSetID"`
	OnOffType  int      `json:"OnOffType"`
	IRWaveList []irWave `json:"IRWaveList"`
}

// BreezeRemoteManager loads an IRSet database file and resolves remotes by
// identifier. Managers are cheap; callers create a fresh one per control
// request so database edits take effect without a restart.
type BreezeRemoteManager struct {
	remotes map[string]remoteEntry
}

// NewBreezeRemoteManager reads and parses the IRSet database at path.
func NewBreezeRemoteManager(path string) (*BreezeRemoteManager, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading remote database: %w", err)
	}
	remotes := make(map[string]remoteEntry)
	if err := json.Unmarshal(raw, &remotes); err != nil {
		return nil, fmt.Errorf("parsing remote database: %w", err)
	}
	return &BreezeRemoteManager{remotes: remotes}, nil
}

// Remote resolves a remote by its identifier, e.g. "ELEC7001".
func (m *BreezeRemoteManager) Remote(id string) (*BreezeRemote, error) {
	entry, ok := m.remotes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoRemote, id)
	}
	waves := make(map[string]irWave, len(entry.IRWaveList))
	for _, w := range entry.IRWaveList {
		waves[w.Key] = w
	}
	_, sepOn := waves[keySwingOn]
	_, sepOff := waves[keySwingOff]
	return &BreezeRemote{
		id:             id,
		waves:          waves,
		separatedSwing: sepOn || sepOff,
	}, nil
}

// BreezeRemote is one resolved remote with its transmittable wave set.
type BreezeRemote struct {
	id             string
	waves          map[string]irWave
	separatedSwing bool
}

func (r *BreezeRemote) ID() string { return r.id }

// SeparatedSwing reports whether the remote toggles swing with a dedicated
// wave instead of encoding it into each setting key.
func (r *BreezeRemote) SeparatedSwing() bool { return r.separatedSwing }

// Command returns the length-prefixed wave payload for a thermostat
// setting. Keys follow the IRSet grammar: "off" for power off, otherwise
// "on_<mode>_<temp>_<fan>" with a "_<swing>" suffix on remotes that encode
// swing inline.
func (r *BreezeRemote) Command(state DeviceState, mode ThermostatMode, temp int, fan ThermostatFanLevel, swing ThermostatSwing) (string, error) {
	key := keyOff
	if state == StateOn {
		key = fmt.Sprintf("on_%s_%d_%s", mode, temp, fan)
		if !r.separatedSwing {
			key = fmt.Sprintf("%s_%s", key, swing)
		}
	}
	return r.wavePayload(key)
}

// SwingCommand returns the dedicated swing wave of a separated-swing
// remote.
func (r *BreezeRemote) SwingCommand(swing ThermostatSwing) (string, error) {
	if swing == SwingOn {
		return r.wavePayload(keySwingOn)
	}
	return r.wavePayload(keySwingOff)
}

// wavePayload prefixes the wave with its little-endian byte length, the
// framing command packets expect.
func (r *BreezeRemote) wavePayload(key string) (string, error) {
	wave, ok := r.waves[key]
	if !ok {
		return "", fmt.Errorf("remote %s has no wave for %q", r.id, key)
	}
	n := len(wave.HexCode) / 2
	return fmt.Sprintf("%02x%02x%s", byte(n), byte(n>>8), wave.HexCode), nil
}
