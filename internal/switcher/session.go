package switcher

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Device service TCP ports by protocol generation.
const (
	portGen1 = 9957
	portGen2 = 10000
)

const (
	responseBufSize  = 1024
	defaultIOTimeout = 10 * time.Second
)

// Session is a logged-in TCP connection to one device. Sessions are single
// use and not safe for concurrent calls; callers open one per command
// exchange and close it when done.
type Session struct {
	devType   DeviceType
	deviceID  string
	deviceKey string
	conn      net.Conn
	token     string
	now       func() time.Time
}

// Connect dials the device service port for the given type and performs
// the login exchange. The context bounds dialing and the login round trip.
func Connect(ctx context.Context, devType DeviceType, host, deviceID, deviceKey string) (*Session, error) {
	if deviceID == "" {
		return nil, errors.New("device id is required")
	}
	if deviceKey == "" {
		return nil, errors.New("device key is required")
	}
	port := portGen1
	if devType.Generation() == 2 {
		port = portGen2
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", host, err)
	}
	s := &Session{
		devType:   devType,
		deviceID:  deviceID,
		deviceKey: deviceKey,
		conn:      conn,
		now:       time.Now,
	}
	if err := s.login(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("logging in to %s: %w", host, err)
	}
	return s, nil
}

func (s *Session) login(ctx context.Context) error {
	packet, err := buildLoginPacket(s.devType, timestampHex(s.now()), s.deviceID, s.deviceKey)
	if err != nil {
		return err
	}
	resp, err := s.roundTrip(ctx, packet)
	if err != nil {
		return err
	}
	token, err := sessionFromResponse(resp)
	if err != nil {
		return err
	}
	s.token = token
	return nil
}

// GetState queries the device power state.
func (s *Session) GetState(ctx context.Context) (DeviceState, error) {
	resp, err := s.queryState(ctx)
	if err != nil {
		return StateUnknown, err
	}
	mh := hex.EncodeToString(resp)
	if len(mh) < respStateEnd {
		return StateUnknown, errors.New("malformed state response")
	}
	if mh[respStateStart:respStateEnd] == "01" {
		return StateOn, nil
	}
	return StateOff, nil
}

// GetBreezeState queries the thermostat status of a Breeze device.
func (s *Session) GetBreezeState(ctx context.Context) (BreezeState, error) {
	resp, err := s.queryState(ctx)
	if err != nil {
		return BreezeState{}, err
	}
	return parseBreezeStateResponse(resp)
}

func (s *Session) queryState(ctx context.Context) ([]byte, error) {
	packet, err := buildStatePacket(s.devType, s.token, timestampHex(s.now()), s.deviceID)
	if err != nil {
		return nil, err
	}
	return s.roundTrip(ctx, packet)
}

// ControlBreeze transmits the IR wave matching the requested setting.
// Remotes with a separate swing channel get the swing toggled by its own
// wave after the main setting.
func (s *Session) ControlBreeze(ctx context.Context, remote *BreezeRemote, state DeviceState, mode ThermostatMode, temp int, fan ThermostatFanLevel, swing ThermostatSwing) error {
	command, err := remote.Command(state, mode, temp, fan, swing)
	if err != nil {
		return err
	}
	if err := s.sendCommand(ctx, command); err != nil {
		return err
	}
	if remote.SeparatedSwing() && state == StateOn {
		swingCmd, err := remote.SwingCommand(swing)
		if err != nil {
			return err
		}
		return s.sendCommand(ctx, swingCmd)
	}
	return nil
}

func (s *Session) sendCommand(ctx context.Context, command string) error {
	packet, err := buildBreezeCommandPacket(s.token, timestampHex(s.now()), s.deviceID, command)
	if err != nil {
		return err
	}
	resp, err := s.roundTrip(ctx, packet)
	if err != nil {
		return err
	}
	if _, err := sessionFromResponse(resp); err != nil {
		return fmt.Errorf("device rejected command: %w", err)
	}
	return nil
}

func (s *Session) roundTrip(ctx context.Context, packetHex string) ([]byte, error) {
	raw, err := hex.DecodeString(packetHex)
	if err != nil {
		return nil, fmt.Errorf("decoding packet: %w", err)
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultIOTimeout)
	}
	if err := s.conn.SetDeadline(deadline); err != nil {
		return nil, err
	}
	if _, err := s.conn.Write(raw); err != nil {
		return nil, fmt.Errorf("writing packet: %w", err)
	}
	buf := make([]byte, responseBufSize)
	n, err := s.conn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return buf[:n], nil
}

// Close terminates the device connection.
func (s *Session) Close() error {
	return s.conn.Close()
}
