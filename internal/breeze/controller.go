// Package breeze drives Switcher Breeze thermostats over one-shot device
// sessions.
package breeze

import (
	"context"
	"fmt"
	"time"

	"github.com/iyuvalk/switcher-breeze-rest/internal/switcher"
)

// Command is one requested thermostat change.
type Command struct {
	DeviceID    string
	DeviceKey   string
	RemoteID    string
	IPAddr      string
	State       switcher.DeviceState
	Mode        switcher.ThermostatMode
	Temperature int
	Fan         switcher.ThermostatFanLevel
}

// session is the slice of switcher.Session the controller needs.
type session interface {
	GetBreezeState(ctx context.Context) (switcher.BreezeState, error)
	ControlBreeze(ctx context.Context, remote *switcher.BreezeRemote, state switcher.DeviceState, mode switcher.ThermostatMode, temp int, fan switcher.ThermostatFanLevel, swing switcher.ThermostatSwing) error
	Close() error
}

type connectFunc func(ctx context.Context, host, deviceID, deviceKey string) (session, error)

// Controller opens a fresh session and remote database per command.
// Nothing is cached between calls, so remote database edits take effect
// immediately.
type Controller struct {
	remoteDBPath string
	defaultHost  string
	timeout      time.Duration
	connect      connectFunc
}

func NewController(remoteDBPath, defaultHost string, timeout time.Duration) *Controller {
	c := &Controller{remoteDBPath: remoteDBPath, defaultHost: defaultHost, timeout: timeout}
	c.connect = func(ctx context.Context, host, deviceID, deviceKey string) (session, error) {
		return switcher.Connect(ctx, switcher.TypeBreeze, host, deviceID, deviceKey)
	}
	return c
}

// Control performs one thermostat change: log in, read the current breeze
// state, resolve the remote and transmit the matching wave. The whole
// exchange is bounded by the controller timeout and is attempted exactly
// once. Vertical swing is sent on with every command.
func (c *Controller) Control(ctx context.Context, cmd Command) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	host := cmd.IPAddr
	if host == "" {
		host = c.defaultHost
	}

	sess, err := c.connect(ctx, host, cmd.DeviceID, cmd.DeviceKey)
	if err != nil {
		return fmt.Errorf("opening device session: %w", err)
	}
	defer sess.Close()

	// Devices expect a state query on a fresh session before they accept
	// commands; the reply itself is not needed.
	if _, err := sess.GetBreezeState(ctx); err != nil {
		return fmt.Errorf("querying breeze state: %w", err)
	}

	manager, err := switcher.NewBreezeRemoteManager(c.remoteDBPath)
	if err != nil {
		return fmt.Errorf("loading remote database: %w", err)
	}
	remote, err := manager.Remote(cmd.RemoteID)
	if err != nil {
		return fmt.Errorf("resolving remote: %w", err)
	}

	if err := sess.ControlBreeze(ctx, remote, cmd.State, cmd.Mode, cmd.Temperature, cmd.Fan, switcher.SwingOn); err != nil {
		return fmt.Errorf("sending breeze command: %w", err)
	}
	return nil
}
