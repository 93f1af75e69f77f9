// Package httpapi exposes the gateway endpoints: device discovery reads,
// Breeze control and the live announcement stream.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/iyuvalk/switcher-breeze-rest/internal/breeze"
	"github.com/iyuvalk/switcher-breeze-rest/internal/discovery"
	"github.com/iyuvalk/switcher-breeze-rest/internal/mqtt"
	"github.com/iyuvalk/switcher-breeze-rest/internal/observability"
	"github.com/iyuvalk/switcher-breeze-rest/internal/switcher"
)

const maxControlBody = 16 << 10

// DeviceScanner yields device announcements from the local network.
type DeviceScanner interface {
	FirstDevice(ctx context.Context) (switcher.Device, error)
	Stream(ctx context.Context, cb func(switcher.Device) bool) error
}

// BreezeController executes thermostat commands.
type BreezeController interface {
	Control(ctx context.Context, cmd breeze.Command) error
}

// Server carries the gateway's HTTP handlers. The announcer may be nil
// when no broker is configured.
type Server struct {
	scanner    DeviceScanner
	controller BreezeController
	events     *mqtt.Announcer
	upgrader   websocket.Upgrader
}

func NewServer(scanner DeviceScanner, controller BreezeController, events *mqtt.Announcer) *Server {
	return &Server{
		scanner:    scanner,
		controller: controller,
		events:     events,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				// LAN-facing and unauthenticated; origins are not filtered.
				return true
			},
		},
	}
}

// RegisterRoutes attaches the gateway endpoints to r.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/health", s.handleHealth)
	r.Get("/devices/temperature", s.handleDeviceTemperature)
	r.Get("/devices/state", s.handleDeviceState)
	r.Get("/devices/stream", s.handleDeviceStream)
	r.Post("/breeze/control", s.handleBreezeControl)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) handleDeviceTemperature(w http.ResponseWriter, r *http.Request) {
	d, ok := s.scanFirst(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, temperatureResponse{Temperature: d.Temperature})
}

func (s *Server) handleDeviceState(w http.ResponseWriter, r *http.Request) {
	d, ok := s.scanFirst(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, stateResponse{State: d.State.String()})
}

// scanFirst runs one discovery scan and writes the error response itself
// when no device turns up.
func (s *Server) scanFirst(w http.ResponseWriter, r *http.Request) (switcher.Device, bool) {
	d, err := s.scanner.FirstDevice(r.Context())
	if errors.Is(err, discovery.ErrNoDevices) {
		observability.RecordScan("empty")
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "No devices found"})
		return switcher.Device{}, false
	}
	if err != nil {
		observability.RecordScan("error")
		slog.Error("discovery scan failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "discovery failed"})
		return switcher.Device{}, false
	}
	observability.RecordScan("found")
	observability.RecordDeviceSeen()
	s.events.DeviceSeen(d)
	return d, true
}

func (s *Server) handleBreezeControl(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var body map[string]json.RawMessage
	if err := json.NewDecoder(io.LimitReader(r.Body, maxControlBody)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON body"})
		return
	}

	for _, key := range []string{"device_id", "device_key", "remote_id", "state"} {
		if _, ok := body[key]; !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Missing required keys: device_id, device_key, remote_id, state"})
			return
		}
	}

	cmd := breeze.Command{
		Mode:        switcher.ModeCool,
		Temperature: 23,
		Fan:         switcher.FanMedium,
	}
	var ok bool
	if cmd.DeviceID, ok = stringField(w, body, "device_id"); !ok {
		return
	}
	if cmd.DeviceKey, ok = stringField(w, body, "device_key"); !ok {
		return
	}
	if cmd.RemoteID, ok = stringField(w, body, "remote_id"); !ok {
		return
	}
	// The control API names the optional device address "ip"; "ip_addr" is
	// accepted as an alias.
	for _, key := range []string{"ip", "ip_addr"} {
		if _, present := body[key]; present {
			if cmd.IPAddr, ok = stringField(w, body, key); !ok {
				return
			}
			break
		}
	}

	stateStr, ok := stringField(w, body, "state")
	if !ok {
		return
	}
	state, err := switcher.ParseDeviceState(stateStr)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid state, must be 'ON' or 'OFF'"})
		return
	}
	cmd.State = state

	if state == switcher.StateOn {
		for _, key := range []string{"mode", "temp", "fan"} {
			if _, present := body[key]; !present {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("Missing required key for ON state: %s", key)})
				return
			}
		}
		modeStr, ok := stringField(w, body, "mode")
		if !ok {
			return
		}
		if cmd.Mode, err = switcher.ParseThermostatMode(modeStr); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid mode, must be one of 'AUTO', 'DRY', 'FAN', 'COOL', 'HEAT'"})
			return
		}
		if err := json.Unmarshal(body["temp"], &cmd.Temperature); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid temp, must be an integer"})
			return
		}
		fanStr, ok := stringField(w, body, "fan")
		if !ok {
			return
		}
		if cmd.Fan, err = switcher.ParseThermostatFanLevel(fanStr); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid fan, must be one of 'AUTO', 'LOW', 'MEDIUM', 'HIGH'"})
			return
		}
	}

	id := uuid.NewString()
	ev := mqtt.CommandEvent{
		CorrelationID: id,
		DeviceID:      cmd.DeviceID,
		RemoteID:      cmd.RemoteID,
		State:         cmd.State.String(),
		Mode:          cmd.Mode.String(),
		Temperature:   cmd.Temperature,
		Fan:           cmd.Fan.String(),
		Outcome:       "success",
	}
	if err := s.controller.Control(r.Context(), cmd); err != nil {
		observability.RecordBreezeCommand("failure")
		ev.Outcome = "failure"
		s.events.BreezeCommand(ev)
		slog.Error("breeze control failed", "correlation_id", id, "device_id", cmd.DeviceID, "remote_id", cmd.RemoteID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "breeze control failed"})
		return
	}
	observability.RecordBreezeCommand("success")
	s.events.BreezeCommand(ev)
	slog.Info("breeze control succeeded", "correlation_id", id, "device_id", cmd.DeviceID, "remote_id", cmd.RemoteID)
	writeJSON(w, http.StatusOK, statusResponse{Status: "success"})
}

// stringField decodes a body field as a string and writes the 400 itself
// when the field holds anything else.
func stringField(w http.ResponseWriter, body map[string]json.RawMessage, key string) (string, bool) {
	var s string
	if err := json.Unmarshal(body[key], &s); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("Invalid %s, must be a string", key)})
		return "", false
	}
	return s, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
