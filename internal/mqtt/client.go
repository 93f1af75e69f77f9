// Package mqtt connects the gateway to a broker: device sightings and
// command outcomes go out as events, thermostat commands come in over the
// command topic.
package mqtt

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Message and Handler alias the paho types so callers stay decoupled from
// the driver import.
type (
	Message = mqtt.Message
	Handler = mqtt.MessageHandler
)

// Client is a thin wrapper over a connected paho client.
type Client struct {
	cli mqtt.Client
}

// New connects to the broker. Accepted URL schemes are tcp, ws, wss, ssl,
// mqtt and mqtts; mqtt maps to tcp and mqtts to ssl.
func New(brokerURL string) (*Client, error) {
	u, err := url.Parse(brokerURL)
	if err != nil {
		return nil, fmt.Errorf("parsing broker url: %w", err)
	}
	scheme := u.Scheme
	switch scheme {
	case "mqtt", "":
		scheme = "tcp"
	case "mqtts":
		scheme = "ssl"
	case "tcp", "ws", "wss", "ssl":
	default:
		return nil, fmt.Errorf("unsupported broker scheme %q", u.Scheme)
	}
	addr := fmt.Sprintf("%s://%s", scheme, u.Host)

	opts := mqtt.NewClientOptions().
		AddBroker(addr).
		SetClientID("switcher-breeze-rest-" + time.Now().Format("150405.000"))
	opts.OnConnect = func(mqtt.Client) {
		slog.Info("mqtt connected", "broker", addr)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		slog.Warn("mqtt connection lost", "error", err)
	}

	cli := mqtt.NewClient(opts)
	if t := cli.Connect(); t.Wait() && t.Error() != nil {
		return nil, fmt.Errorf("connecting to broker: %w", t.Error())
	}
	return &Client{cli: cli}, nil
}

// Publish sends payload at QoS 0 without retain.
func (c *Client) Publish(topic string, payload []byte) error {
	t := c.cli.Publish(topic, 0, false, payload)
	if t.Wait() && t.Error() != nil {
		return t.Error()
	}
	return nil
}

// Subscribe registers a handler at QoS 0.
func (c *Client) Subscribe(topic string, h Handler) error {
	t := c.cli.Subscribe(topic, 0, h)
	if t.Wait() && t.Error() != nil {
		return t.Error()
	}
	return nil
}

// Close disconnects from the broker.
func (c *Client) Close() {
	c.cli.Disconnect(250)
}
