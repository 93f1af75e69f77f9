package switcher

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Command packet skeletons, hex encoded. Placeholders are filled left to
// right with the session token, timestamp, device identifier, device key or
// IR command, after which the length field is patched and the packet signed.
const (
	loginGen1Template = "fef052000232a100%s340001000000000000000000%s00000000000000000000f0fe1c00%s0000000000000000000000000000000000000000000000000000000000000000"
	loginGen2Template = "fef030000305a600%sff0301000000%s00000000000000000000%s00000000000000000000f0fe"
	stateGen1Template = "fef0300002320103%s340001000000000000000000%s00000000000000000000f0fe"
	stateGen2Template = "fef0300003050103%s390001000000000000000000%s00000000000000000000f0fe%s00"
	breezeTemplate    = "fef0000003050102%s000001000000000000000000%s00000000000000000000f0fe%s00%s"
)

// noSession is the placeholder token carried by login packets.
const noSession = "00000000"

const crcInit = 0x1021

// Offsets into the hex encoding of a device response.
const (
	sessionTokenStart = 16
	sessionTokenEnd   = 24

	respStateStart  = 88
	respStateEnd    = 90
	respModeStart   = 90
	respModeEnd     = 92
	respTargetStart = 92
	respTargetEnd   = 94
	respFanOffset   = 94
	respSwingOffset = 95

	respRemoteIDStartByte = 52
	respRemoteIDEndByte   = 60
	respTempStartByte     = 42
	respTempEndByte       = 44

	breezeStateRespMinLen = 60
)

// crc16 computes the CCITT checksum (polynomial 0x1021, no reflection)
// starting from the given value.
func crc16(data []byte, initial uint16) uint16 {
	crc := initial
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

func crcHexLE(crc uint16) string {
	return fmt.Sprintf("%02x%02x", byte(crc), byte(crc>>8))
}

// signPacket appends the two-stage checksum devices verify: the packet
// checksum followed by the checksum of that value joined with the static
// device key padding.
func signPacket(packetHex string) (string, error) {
	raw, err := hex.DecodeString(packetHex)
	if err != nil {
		return "", fmt.Errorf("decoding packet: %w", err)
	}
	first := crcHexLE(crc16(raw, crcInit))
	key, err := hex.DecodeString(first + strings.Repeat("30", 32))
	if err != nil {
		return "", fmt.Errorf("decoding crc key: %w", err)
	}
	second := crcHexLE(crc16(key, crcInit))
	return packetHex + first + second, nil
}

// setMessageLength patches the length field with the final packet size,
// signature included.
func setMessageLength(packetHex string) string {
	total := len(packetHex)/2 + 4
	return packetHex[:4] + fmt.Sprintf("%02x%02x", byte(total), byte(total>>8)) + packetHex[8:]
}

// timestampHex renders the current epoch seconds the way packets carry
// them, as a little-endian 32 bit value.
func timestampHex(t time.Time) string {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(t.Unix()))
	return hex.EncodeToString(b[:])
}

func buildLoginPacket(devType DeviceType, ts, deviceID, deviceKey string) (string, error) {
	var packet string
	if devType.Generation() == 2 {
		packet = fmt.Sprintf(loginGen2Template, noSession, deviceID, ts)
	} else {
		packet = fmt.Sprintf(loginGen1Template, noSession, ts, deviceKey)
	}
	return signPacket(setMessageLength(packet))
}

func buildStatePacket(devType DeviceType, session, ts, deviceID string) (string, error) {
	var packet string
	if devType.Generation() == 2 {
		packet = fmt.Sprintf(stateGen2Template, session, ts, deviceID)
	} else {
		packet = fmt.Sprintf(stateGen1Template, session, ts)
	}
	return signPacket(setMessageLength(packet))
}

func buildBreezeCommandPacket(session, ts, deviceID, command string) (string, error) {
	packet := fmt.Sprintf(breezeTemplate, session, ts, deviceID, command)
	return signPacket(setMessageLength(packet))
}

// sessionFromResponse extracts the session token a device hands back on
// login.
func sessionFromResponse(b []byte) (string, error) {
	mh := hex.EncodeToString(b)
	if len(mh) < sessionTokenEnd || !strings.HasPrefix(mh, magicHex) {
		return "", errors.New("malformed device response")
	}
	return mh[sessionTokenStart:sessionTokenEnd], nil
}

func parseBreezeStateResponse(b []byte) (BreezeState, error) {
	if len(b) < breezeStateRespMinLen {
		return BreezeState{}, errors.New("malformed breeze state response")
	}
	mh := hex.EncodeToString(b)
	if !strings.HasPrefix(mh, magicHex) {
		return BreezeState{}, errors.New("malformed breeze state response")
	}

	st := BreezeState{
		Temperature: float64(binary.LittleEndian.Uint16(b[respTempStartByte:respTempEndByte])) / 10,
		Mode:        decodeMode(mh[respModeStart:respModeEnd]),
		FanLevel:    decodeFan(mh[respFanOffset : respFanOffset+1]),
		Swing:       decodeSwing(mh[respSwingOffset : respSwingOffset+1]),
		RemoteID:    decodeName(b[respRemoteIDStartByte:respRemoteIDEndByte]),
	}
	if mh[respStateStart:respStateEnd] == "01" {
		st.State = StateOn
	} else {
		st.State = StateOff
	}
	target, _ := strconv.ParseInt(mh[respTargetStart:respTargetEnd], 16, 0)
	st.TargetTemperature = int(target)
	return st, nil
}
