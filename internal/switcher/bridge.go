package switcher

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

// DefaultDiscoveryPorts are the UDP ports devices announce on. Generation 1
// devices broadcast on the first, generation 2 on the second.
var DefaultDiscoveryPorts = []int{20002, 20003}

const readPollInterval = 300 * time.Millisecond

// Bridge listens for broadcast announcements on the discovery ports and
// hands each parsed device to a callback. It keeps no state between calls.
type Bridge struct {
	ports []int
}

// NewBridge returns a bridge bound to the given UDP ports, or to the
// default discovery ports when none are given.
func NewBridge(ports ...int) *Bridge {
	if len(ports) == 0 {
		ports = DefaultDiscoveryPorts
	}
	return &Bridge{ports: ports}
}

// Listen receives announcements until ctx is done or the callback returns
// false. The callback runs serially even though each port has its own
// reader, and is never invoked again once it has returned false. A nil
// error means the listen window ended or the callback stopped it; errors
// are returned for bind failures only.
func (b *Bridge) Listen(ctx context.Context, cb func(Device) bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conns := make([]net.PacketConn, 0, len(b.ports))
	for _, port := range b.ports {
		conn, err := net.ListenPacket("udp4", fmt.Sprintf(":%d", port))
		if err != nil {
			for _, c := range conns {
				c.Close()
			}
			return fmt.Errorf("binding discovery port %d: %w", port, err)
		}
		conns = append(conns, conn)
	}

	var mu sync.Mutex
	stopped := false
	deliver := func(d Device) {
		mu.Lock()
		defer mu.Unlock()
		if stopped {
			return
		}
		if !cb(d) {
			stopped = true
			cancel()
		}
	}

	var wg sync.WaitGroup
	for _, conn := range conns {
		wg.Add(1)
		go func(conn net.PacketConn) {
			defer wg.Done()
			defer conn.Close()
			readLoop(ctx, conn, deliver)
		}(conn)
	}
	wg.Wait()
	return nil
}

func readLoop(ctx context.Context, conn net.PacketConn, deliver func(Device)) {
	buf := make([]byte, 1024)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		conn.SetReadDeadline(time.Now().Add(readPollInterval))
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			slog.Debug("discovery read failed", "error", err)
			return
		}
		d, err := ParseDatagram(buf[:n])
		if err != nil {
			slog.Debug("dropping datagram", "from", addr.String(), "error", err)
			continue
		}
		deliver(d)
	}
}
