package mqtt

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/iyuvalk/switcher-breeze-rest/internal/switcher"
)

type fakePublisher struct {
	topics   []string
	payloads [][]byte
	err      error
}

func (f *fakePublisher) Publish(topic string, payload []byte) error {
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload)
	return f.err
}

func TestDeviceSeenPublishesEvent(t *testing.T) {
	pub := &fakePublisher{}
	a := NewAnnouncer(pub)

	a.DeviceSeen(switcher.Device{
		ID:          "3a90b1",
		Name:        "Living Room AC",
		Type:        switcher.TypeBreeze,
		State:       switcher.StateOn,
		IPAddr:      "192.168.0.33",
		Temperature: 24.5,
		Mode:        switcher.ModeCool,
		FanLevel:    switcher.FanMedium,
		RemoteID:    "ELEC7001",
	})

	if len(pub.topics) != 1 || pub.topics[0] != topicDeviceSeen {
		t.Fatalf("unexpected topics: %v", pub.topics)
	}
	var ev DeviceEvent
	if err := json.Unmarshal(pub.payloads[0], &ev); err != nil {
		t.Fatalf("unexpected payload: %v", err)
	}
	if ev.ID != "3a90b1" || ev.Type != "Switcher Breeze" || ev.State != "on" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.Mode != "cool" || ev.FanLevel != "medium" || ev.RemoteID != "ELEC7001" {
		t.Fatalf("thermostat fields missing: %+v", ev)
	}
	if ev.SeenAt.IsZero() {
		t.Fatal("event carries no timestamp")
	}
}

func TestDeviceSeenSkipsThermostatFieldsForPlugs(t *testing.T) {
	pub := &fakePublisher{}
	a := NewAnnouncer(pub)

	a.DeviceSeen(switcher.Device{
		ID:    "f2239a",
		Type:  switcher.TypePowerPlug,
		State: switcher.StateOff,
	})

	var ev DeviceEvent
	if err := json.Unmarshal(pub.payloads[0], &ev); err != nil {
		t.Fatalf("unexpected payload: %v", err)
	}
	if ev.Mode != "" || ev.FanLevel != "" || ev.RemoteID != "" {
		t.Fatalf("thermostat fields set for a plug: %+v", ev)
	}
}

func TestBreezeCommandPublishesOutcome(t *testing.T) {
	pub := &fakePublisher{}
	a := NewAnnouncer(pub)

	a.BreezeCommand(CommandEvent{
		CorrelationID: "c0ffee",
		DeviceID:      "3a90b1",
		Outcome:       "failure",
	})

	if len(pub.topics) != 1 || pub.topics[0] != topicBreezeOutcome {
		t.Fatalf("unexpected topics: %v", pub.topics)
	}
	var ev CommandEvent
	if err := json.Unmarshal(pub.payloads[0], &ev); err != nil {
		t.Fatalf("unexpected payload: %v", err)
	}
	if ev.Outcome != "failure" || ev.CorrelationID != "c0ffee" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.At.IsZero() {
		t.Fatal("event carries no timestamp")
	}
}

func TestAnnouncerNilSafety(t *testing.T) {
	var a *Announcer
	a.DeviceSeen(switcher.Device{ID: "f2239a"})
	a.BreezeCommand(CommandEvent{})

	NewAnnouncer(nil).DeviceSeen(switcher.Device{ID: "f2239a"})
}

func TestAnnouncerSwallowsPublishFailures(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker gone")}
	a := NewAnnouncer(pub)
	a.DeviceSeen(switcher.Device{ID: "f2239a", Type: switcher.TypeTouch})
}
