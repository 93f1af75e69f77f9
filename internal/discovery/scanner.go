// Package discovery runs bounded scans for Switcher announcements on the
// local network.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iyuvalk/switcher-breeze-rest/internal/switcher"
)

// ErrNoDevices reports that a scan window closed without a single
// announcement.
var ErrNoDevices = errors.New("no devices found")

// Bridge receives announcements and hands them to a callback until the
// callback returns false or the context is done.
type Bridge interface {
	Listen(ctx context.Context, cb func(switcher.Device) bool) error
}

// Scanner wraps a bridge with a fixed scan window. Scans share nothing;
// every call opens and closes its own listeners.
type Scanner struct {
	bridge Bridge
	window time.Duration
}

func NewScanner(bridge Bridge, window time.Duration) *Scanner {
	return &Scanner{bridge: bridge, window: window}
}

// FirstDevice returns the first announcement seen within the scan window.
// The listen stops as soon as one device is in hand.
func (s *Scanner) FirstDevice(ctx context.Context) (switcher.Device, error) {
	ctx, cancel := context.WithTimeout(ctx, s.window)
	defer cancel()

	found := make(chan switcher.Device, 1)
	err := s.bridge.Listen(ctx, func(d switcher.Device) bool {
		select {
		case found <- d:
		default:
		}
		return false
	})
	if err != nil {
		return switcher.Device{}, fmt.Errorf("running discovery scan: %w", err)
	}

	select {
	case d := <-found:
		return d, nil
	default:
		return switcher.Device{}, ErrNoDevices
	}
}

// Stream relays every announcement to cb until cb returns false or ctx is
// done. Unlike FirstDevice it has no window of its own; the caller bounds
// it through ctx.
func (s *Scanner) Stream(ctx context.Context, cb func(switcher.Device) bool) error {
	return s.bridge.Listen(ctx, cb)
}
