package device

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// firmwareCommands maps actions to the payloads the farm firmware listens
// for. Unmapped actions are sent by name.
var firmwareCommands = map[Action]string{
	OpenWindow:  "win_open",
	CloseWindow: "win_close",
}

// Payload returns the MQTT payload for an action.
func Payload(a Action) string {
	if p, ok := firmwareCommands[a]; ok {
		return p
	}
	return string(a)
}

// publisher is the part of mqtt.Client the controller needs.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTConfig holds broker connection settings.
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string // e.g. "smartfarm/{device_id}/command"
	DeviceID string
}

// MQTTController publishes actions to the device command topic.
type MQTTController struct {
	client  publisher
	topic   string
	timeout time.Duration
	logger  *slog.Logger
	closeFn func()
}

// DialMQTT connects to the broker and returns a controller.
func DialMQTT(cfg MQTTConfig, logger *slog.Logger) (*MQTTController, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "error", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to mqtt broker %s: %w", cfg.Broker, token.Error())
	}
	logger.Info("connected to mqtt broker", "broker", cfg.Broker)

	c := newMQTTController(client, FormatTopic(cfg.Topic, cfg.DeviceID), logger)
	c.closeFn = func() { client.Disconnect(250) }
	return c, nil
}

func newMQTTController(p publisher, topic string, logger *slog.Logger) *MQTTController {
	return &MQTTController{client: p, topic: topic, timeout: 5 * time.Second, logger: logger}
}

// Do implements Controller. QoS 1, not retained.
func (m *MQTTController) Do(ctx context.Context, a Action) (string, error) {
	payload := Payload(a)
	token := m.client.Publish(m.topic, 1, false, payload)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return "", fmt.Errorf("publish %s: %w", a, ctx.Err())
	case <-time.After(m.timeout):
		return "", fmt.Errorf("publish %s: timed out after %s", a, m.timeout)
	}
	if err := token.Error(); err != nil {
		m.logger.Error("mqtt publish failed", "action", a, "topic", m.topic, "error", err)
		return "", fmt.Errorf("publish %s: %w", a, err)
	}

	m.logger.Info("published device command", "action", a, "topic", m.topic, "payload", payload)
	return fmt.Sprintf("Action '%s' sent to %s", a, m.topic), nil
}

// Close disconnects from the broker.
func (m *MQTTController) Close() {
	if m.closeFn != nil {
		m.closeFn()
	}
}

// FormatTopic substitutes {device_id} in a topic pattern.
func FormatTopic(pattern, deviceID string) string {
	return strings.ReplaceAll(pattern, "{device_id}", deviceID)
}
