package switcher

import (
	"fmt"
	"strings"
)

// DeviceType identifies a Switcher product line. The hex representation is
// the identifier devices place in their broadcast announcements; the
// generation selects the wire protocol variant (port numbers and packet
// layout differ between generation 1 and 2 hardware).
type DeviceType int

const (
	TypeUnknown DeviceType = iota
	TypeMini
	TypePowerPlug
	TypeTouch
	TypeV2Esp
	TypeV2Qualcomm
	TypeV4
	TypeBreeze
	TypeRunner
	TypeRunnerMini
)

type deviceTypeInfo struct {
	name       string
	hexRep     string
	generation int
}

var deviceTypes = map[DeviceType]deviceTypeInfo{
	TypeMini:       {"Switcher Mini", "030f", 1},
	TypePowerPlug:  {"Switcher Power Plug", "01a8", 1},
	TypeTouch:      {"Switcher Touch", "030b", 1},
	TypeV2Esp:      {"Switcher V2 (esp)", "01a7", 1},
	TypeV2Qualcomm: {"Switcher V2 (qualcomm)", "01a1", 1},
	TypeV4:         {"Switcher V4", "0317", 1},
	TypeBreeze:     {"Switcher Breeze", "0e01", 2},
	TypeRunner:     {"Switcher Runner", "0c01", 2},
	TypeRunnerMini: {"Switcher Runner Mini", "0c02", 2},
}

func (t DeviceType) String() string {
	if info, ok := deviceTypes[t]; ok {
		return info.name
	}
	return "Unknown"
}

// HexRep returns the device type identifier as it appears in broadcast
// datagrams.
func (t DeviceType) HexRep() string {
	return deviceTypes[t].hexRep
}

// Generation returns the protocol generation (1 or 2) the device speaks,
// or 0 for unknown types.
func (t DeviceType) Generation() int {
	return deviceTypes[t].generation
}

func deviceTypeFromHex(hexRep string) DeviceType {
	for t, info := range deviceTypes {
		if info.hexRep == hexRep {
			return t
		}
	}
	return TypeUnknown
}

// DeviceState is the binary power state reported and accepted by devices.
type DeviceState int

const (
	StateUnknown DeviceState = iota
	StateOff
	StateOn
)

func (s DeviceState) String() string {
	switch s {
	case StateOn:
		return "on"
	case StateOff:
		return "off"
	}
	return "unknown"
}

// ParseDeviceState accepts "on"/"off" in any casing.
func ParseDeviceState(s string) (DeviceState, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ON":
		return StateOn, nil
	case "OFF":
		return StateOff, nil
	}
	return StateUnknown, fmt.Errorf("invalid device state %q", s)
}

// ThermostatMode is the Breeze operating mode.
type ThermostatMode int

const (
	ModeAuto ThermostatMode = iota + 1
	ModeDry
	ModeFan
	ModeCool
	ModeHeat
)

var modeNames = map[ThermostatMode]string{
	ModeAuto: "auto",
	ModeDry:  "dry",
	ModeFan:  "fan",
	ModeCool: "cool",
	ModeHeat: "heat",
}

func (m ThermostatMode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return "unknown"
}

// HexRep returns the single-byte wire value for the mode.
func (m ThermostatMode) HexRep() string {
	return fmt.Sprintf("%02d", int(m))
}

// ParseThermostatMode accepts the mode name in any casing.
func ParseThermostatMode(s string) (ThermostatMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AUTO":
		return ModeAuto, nil
	case "DRY":
		return ModeDry, nil
	case "FAN":
		return ModeFan, nil
	case "COOL":
		return ModeCool, nil
	case "HEAT":
		return ModeHeat, nil
	}
	return 0, fmt.Errorf("invalid thermostat mode %q", s)
}

// ThermostatFanLevel is the Breeze fan speed.
type ThermostatFanLevel int

const (
	FanAuto ThermostatFanLevel = iota
	FanLow
	FanMedium
	FanHigh
)

var fanNames = map[ThermostatFanLevel]string{
	FanAuto:   "auto",
	FanLow:    "low",
	FanMedium: "medium",
	FanHigh:   "high",
}

func (f ThermostatFanLevel) String() string {
	if name, ok := fanNames[f]; ok {
		return name
	}
	return "unknown"
}

// HexRep returns the single-digit wire value for the fan level.
func (f ThermostatFanLevel) HexRep() string {
	return fmt.Sprintf("%d", int(f))
}

// ParseThermostatFanLevel accepts the level name in any casing.
func ParseThermostatFanLevel(s string) (ThermostatFanLevel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AUTO":
		return FanAuto, nil
	case "LOW":
		return FanLow, nil
	case "MEDIUM":
		return FanMedium, nil
	case "HIGH":
		return FanHigh, nil
	}
	return 0, fmt.Errorf("invalid fan level %q", s)
}

// ThermostatSwing is the Breeze vertical swing toggle.
type ThermostatSwing int

const (
	SwingOff ThermostatSwing = iota
	SwingOn
)

func (s ThermostatSwing) String() string {
	if s == SwingOn {
		return "on"
	}
	return "off"
}

// HexRep returns the single-digit wire value for the swing toggle.
func (s ThermostatSwing) HexRep() string {
	return fmt.Sprintf("%d", int(s))
}

// Device is a snapshot of a device observed in a broadcast announcement.
// Snapshots are handed to discovery callbacks and are not retained by the
// bridge; thermostat fields are populated for Breeze devices only.
type Device struct {
	ID         string
	Name       string
	Type       DeviceType
	State      DeviceState
	IPAddr     string
	MACAddr    string
	PowerWatts int

	Temperature       float64
	TargetTemperature int
	Mode              ThermostatMode
	FanLevel          ThermostatFanLevel
	Swing             ThermostatSwing
	RemoteID          string
}

// BreezeState is the thermostat status returned by a device state query.
type BreezeState struct {
	State             DeviceState
	Temperature       float64
	TargetTemperature int
	Mode              ThermostatMode
	FanLevel          ThermostatFanLevel
	Swing             ThermostatSwing
	RemoteID          string
}
