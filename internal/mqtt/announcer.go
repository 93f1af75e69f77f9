package mqtt

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/iyuvalk/switcher-breeze-rest/internal/switcher"
)

const (
	topicDeviceSeen    = "switcher/events/device.seen"
	topicBreezeOutcome = "switcher/events/breeze.command"
	topicBreezeIntake  = "switcher/commands/breeze"
)

// publisher is the slice of Client the announcer needs.
type publisher interface {
	Publish(topic string, payload []byte) error
}

// DeviceEvent is published whenever a scan sees a device. The websocket
// stream sends the same shape.
type DeviceEvent struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	State       string    `json:"state"`
	IPAddr      string    `json:"ip_addr"`
	MACAddr     string    `json:"mac_addr"`
	PowerWatts  int       `json:"power_watts"`
	Temperature float64   `json:"temperature"`
	SeenAt      time.Time `json:"seen_at"`

	Mode              string `json:"mode,omitempty"`
	FanLevel          string `json:"fan_level,omitempty"`
	Swing             string `json:"swing,omitempty"`
	TargetTemperature int    `json:"target_temperature,omitempty"`
	RemoteID          string `json:"remote_id,omitempty"`
}

// NewDeviceEvent builds the event payload for one sighting. Thermostat
// fields are filled for Breeze devices only.
func NewDeviceEvent(d switcher.Device) DeviceEvent {
	ev := DeviceEvent{
		ID:          d.ID,
		Name:        d.Name,
		Type:        d.Type.String(),
		State:       d.State.String(),
		IPAddr:      d.IPAddr,
		MACAddr:     d.MACAddr,
		PowerWatts:  d.PowerWatts,
		Temperature: d.Temperature,
		SeenAt:      time.Now().UTC(),
	}
	if d.Type == switcher.TypeBreeze {
		ev.Mode = d.Mode.String()
		ev.FanLevel = d.FanLevel.String()
		ev.Swing = d.Swing.String()
		ev.TargetTemperature = d.TargetTemperature
		ev.RemoteID = d.RemoteID
	}
	return ev
}

// CommandEvent reports the outcome of one thermostat command.
type CommandEvent struct {
	CorrelationID string    `json:"correlation_id"`
	DeviceID      string    `json:"device_id"`
	RemoteID      string    `json:"remote_id"`
	State         string    `json:"state"`
	Mode          string    `json:"mode"`
	Temperature   int       `json:"temperature"`
	Fan           string    `json:"fan"`
	Outcome       string    `json:"outcome"`
	At            time.Time `json:"at"`
}

// Announcer publishes gateway events. A nil announcer drops everything,
// and publish failures are logged, never surfaced to the caller.
type Announcer struct {
	pub publisher
}

func NewAnnouncer(pub publisher) *Announcer {
	return &Announcer{pub: pub}
}

// DeviceSeen publishes a sighting on the device event topic.
func (a *Announcer) DeviceSeen(d switcher.Device) {
	if a == nil || a.pub == nil {
		return
	}
	a.publish(topicDeviceSeen, NewDeviceEvent(d))
}

// BreezeCommand publishes a command outcome on the command event topic.
func (a *Announcer) BreezeCommand(ev CommandEvent) {
	if a == nil || a.pub == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	a.publish(topicBreezeOutcome, ev)
}

func (a *Announcer) publish(topic string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshaling event", "topic", topic, "error", err)
		return
	}
	if err := a.pub.Publish(topic, raw); err != nil {
		slog.Warn("publishing event", "topic", topic, "error", err)
	}
}
