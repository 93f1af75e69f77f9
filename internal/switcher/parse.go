package switcher

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Broadcast datagram sizes in bytes. Generation 1 devices announce with a
// 165 byte frame, runners with 159 and Breeze units with 168.
const (
	datagramLenGen1   = 165
	datagramLenRunner = 159
	datagramLenBreeze = 168

	magicHex = "fef0"
)

// Field offsets into the hex encoding of a broadcast datagram.
const (
	deviceIDStart = 36
	deviceIDEnd   = 42
	typeStart     = 74
	typeEnd       = 78
	stateStart    = 266
	stateEnd      = 270
	powerStart    = 270
	powerEnd      = 278
	modeStart     = 278
	modeEnd       = 280
	targetStart   = 280
	targetEnd     = 282
	fanOffset     = 282
	swingOffset   = 283
	tempStart     = 332
	tempEnd       = 336
)

// Field offsets into the raw datagram bytes.
const (
	nameStartByte     = 42
	nameEndByte       = 74
	ipStartByte       = 76
	ipEndByte         = 80
	macStartByte      = 80
	macEndByte        = 86
	powerStartByte    = 135
	powerEndByte      = 139
	remoteIDStartByte = 146
	remoteIDEndByte   = 154
	tempStartByte     = 166
	tempEndByte       = 168
)

const (
	stateHexOn  = "0100"
	stateHexOff = "0000"
)

// ErrNotSwitcher reports that a datagram is not a Switcher announcement.
// Bridges drop such datagrams silently; other UDP traffic on the discovery
// ports is expected.
var ErrNotSwitcher = errors.New("not a switcher datagram")

// ParseDatagram decodes a broadcast announcement into a device snapshot.
func ParseDatagram(b []byte) (Device, error) {
	switch len(b) {
	case datagramLenGen1, datagramLenRunner, datagramLenBreeze:
	default:
		return Device{}, fmt.Errorf("%w: unexpected length %d", ErrNotSwitcher, len(b))
	}
	mh := hex.EncodeToString(b)
	if !strings.HasPrefix(mh, magicHex) {
		return Device{}, fmt.Errorf("%w: bad magic %q", ErrNotSwitcher, mh[:4])
	}

	devType := deviceTypeFromHex(mh[typeStart:typeEnd])
	if devType == TypeUnknown {
		return Device{}, fmt.Errorf("%w: unknown device type %q", ErrNotSwitcher, mh[typeStart:typeEnd])
	}

	d := Device{
		ID:      mh[deviceIDStart:deviceIDEnd],
		Name:    decodeName(b[nameStartByte:nameEndByte]),
		Type:    devType,
		State:   decodeState(mh[stateStart:stateEnd]),
		IPAddr:  decodeIP(b[ipStartByte:ipEndByte]),
		MACAddr: formatMAC(b[macStartByte:macEndByte]),
	}

	if devType.Generation() == 1 {
		d.PowerWatts = int(binary.LittleEndian.Uint32(b[powerStartByte:powerEndByte]))
	}
	if devType == TypeBreeze {
		d.Mode = decodeMode(mh[modeStart:modeEnd])
		target, _ := strconv.ParseInt(mh[targetStart:targetEnd], 16, 0)
		d.TargetTemperature = int(target)
		d.FanLevel = decodeFan(mh[fanOffset : fanOffset+1])
		d.Swing = decodeSwing(mh[swingOffset : swingOffset+1])
		d.RemoteID = decodeName(b[remoteIDStartByte:remoteIDEndByte])
		d.Temperature = float64(binary.LittleEndian.Uint16(b[tempStartByte:tempEndByte])) / 10
	}
	return d, nil
}

func decodeName(b []byte) string {
	return strings.TrimSpace(string(bytes.TrimRight(b, "\x00")))
}

// decodeIP reverses the little-endian address field into dotted decimal.
func decodeIP(b []byte) string {
	return net.IPv4(b[3], b[2], b[1], b[0]).String()
}

func formatMAC(b []byte) string {
	parts := make([]string, len(b))
	for i, octet := range b {
		parts[i] = fmt.Sprintf("%02X", octet)
	}
	return strings.Join(parts, ":")
}

func decodeState(h string) DeviceState {
	switch h {
	case stateHexOn:
		return StateOn
	case stateHexOff:
		return StateOff
	}
	return StateUnknown
}

func decodeMode(h string) ThermostatMode {
	for m := ModeAuto; m <= ModeHeat; m++ {
		if m.HexRep() == h {
			return m
		}
	}
	return 0
}

func decodeFan(h string) ThermostatFanLevel {
	for f := FanAuto; f <= FanHigh; f++ {
		if f.HexRep() == h {
			return f
		}
	}
	return FanAuto
}

func decodeSwing(h string) ThermostatSwing {
	if h == SwingOn.HexRep() {
		return SwingOn
	}
	return SwingOff
}
