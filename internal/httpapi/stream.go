package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iyuvalk/switcher-breeze-rest/internal/mqtt"
	"github.com/iyuvalk/switcher-breeze-rest/internal/observability"
	"github.com/iyuvalk/switcher-breeze-rest/internal/switcher"
)

const (
	streamWriteWait  = 10 * time.Second
	streamReadWait   = 60 * time.Second
	streamPingPeriod = 25 * time.Second
	streamBuffer     = 16
)

// handleDeviceStream upgrades the connection and forwards every
// announcement from the local network as one JSON message per sighting.
// Each connection runs its own listen; closing the socket ends it.
func (s *Server) handleDeviceStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		slog.Debug("stream upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events := make(chan mqtt.DeviceEvent, streamBuffer)
	go func() {
		defer cancel()
		err := s.scanner.Stream(ctx, func(d switcher.Device) bool {
			observability.RecordDeviceSeen()
			s.events.DeviceSeen(d)
			select {
			case events <- mqtt.NewDeviceEvent(d):
			default:
				// Slow reader; drop the sighting, devices announce again.
			}
			return true
		})
		if err != nil && ctx.Err() == nil {
			slog.Error("device stream listen failed", "error", err)
		}
	}()

	// Reads serve close frames and pongs only; a read error means the
	// client is gone.
	go func() {
		defer cancel()
		conn.SetReadLimit(1024)
		_ = conn.SetReadDeadline(time.Now().Add(streamReadWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamReadWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case ev := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
