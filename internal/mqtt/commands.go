package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/iyuvalk/switcher-breeze-rest/internal/breeze"
	"github.com/iyuvalk/switcher-breeze-rest/internal/switcher"
)

// CommandRunner executes a thermostat change.
type CommandRunner interface {
	Control(ctx context.Context, cmd breeze.Command) error
}

// commandRequest is the intake payload accepted on the command topic. The
// field names match the HTTP control body.
type commandRequest struct {
	DeviceID    string `json:"device_id"`
	DeviceKey   string `json:"device_key"`
	RemoteID    string `json:"remote_id"`
	IPAddr      string `json:"ip"`
	State       string `json:"state"`
	Mode        string `json:"mode"`
	Temperature int    `json:"temp"`
	Fan         string `json:"fan"`
}

func (r commandRequest) toCommand() (breeze.Command, error) {
	if r.DeviceID == "" || r.DeviceKey == "" || r.RemoteID == "" {
		return breeze.Command{}, errors.New("device_id, device_key and remote_id are required")
	}
	state, err := switcher.ParseDeviceState(r.State)
	if err != nil {
		return breeze.Command{}, err
	}
	cmd := breeze.Command{
		DeviceID:    r.DeviceID,
		DeviceKey:   r.DeviceKey,
		RemoteID:    r.RemoteID,
		IPAddr:      r.IPAddr,
		State:       state,
		Mode:        switcher.ModeCool,
		Temperature: 23,
		Fan:         switcher.FanMedium,
	}
	if state != switcher.StateOn {
		return cmd, nil
	}
	if cmd.Mode, err = switcher.ParseThermostatMode(r.Mode); err != nil {
		return breeze.Command{}, err
	}
	if r.Temperature == 0 {
		return breeze.Command{}, errors.New("temp is required when state is ON")
	}
	cmd.Temperature = r.Temperature
	if cmd.Fan, err = switcher.ParseThermostatFanLevel(r.Fan); err != nil {
		return breeze.Command{}, err
	}
	return cmd, nil
}

// CommandSubscriber accepts thermostat commands over the broker and
// reports each outcome on the event topic. Intake is fire and forget:
// malformed requests are logged and dropped.
type CommandSubscriber struct {
	client *Client
	runner CommandRunner
	events *Announcer
}

func NewCommandSubscriber(client *Client, runner CommandRunner, events *Announcer) *CommandSubscriber {
	return &CommandSubscriber{client: client, runner: runner, events: events}
}

// Start subscribes to the command topic.
func (s *CommandSubscriber) Start() error {
	return s.client.Subscribe(topicBreezeIntake, func(_ mqtt.Client, m Message) {
		s.handle(m.Payload())
	})
}

func (s *CommandSubscriber) handle(payload []byte) {
	var req commandRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		slog.Warn("dropping malformed breeze command", "error", err)
		return
	}
	cmd, err := req.toCommand()
	if err != nil {
		slog.Warn("dropping invalid breeze command", "error", err)
		return
	}

	id := uuid.NewString()
	ev := CommandEvent{
		CorrelationID: id,
		DeviceID:      cmd.DeviceID,
		RemoteID:      cmd.RemoteID,
		State:         cmd.State.String(),
		Mode:          cmd.Mode.String(),
		Temperature:   cmd.Temperature,
		Fan:           cmd.Fan.String(),
		Outcome:       "success",
	}
	if err := s.runner.Control(context.Background(), cmd); err != nil {
		slog.Error("breeze command over broker failed", "correlation_id", id, "error", err)
		ev.Outcome = "failure"
	}
	s.events.BreezeCommand(ev)
}
