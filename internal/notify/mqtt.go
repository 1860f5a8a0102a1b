package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stanercelik/PolySleep-sub003/internal/config"
	"github.com/stanercelik/PolySleep-sub003/internal/domain"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTClient thin wrapper over the paho client
type MQTTClient struct {
	client mqtt.Client
	config *config.MQTTConfig
}

// NewMQTTClient connects to the broker; auto-reconnect is on
func NewMQTTClient(cfg *config.MQTTConfig) (*MQTTClient, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)

	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &MQTTClient{
		client: client,
		config: cfg,
	}, nil
}

func (c *MQTTClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := c.client.Publish(topic, qos, retained, payload)
	token.Wait()

	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, token.Error())
	}

	return nil
}

func (c *MQTTClient) Disconnect() {
	c.client.Disconnect(250)
}

func (c *MQTTClient) IsConnected() bool {
	return c.client.IsConnected()
}

// messagePublisher the part of MQTTClient the publisher needs
type messagePublisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
}

// MQTTPublisher publishes events to <prefix>/<user_id>/adaptation
type MQTTPublisher struct {
	client messagePublisher
	prefix string
	qos    byte
}

func NewMQTTPublisher(client messagePublisher, topicPrefix string, qos byte) *MQTTPublisher {
	if topicPrefix == "" {
		topicPrefix = "polysleep"
	}
	return &MQTTPublisher{client: client, prefix: topicPrefix, qos: qos}
}

// Topic for one user's adaptation events
func (p *MQTTPublisher) Topic(userID string) string {
	return p.prefix + "/" + userID + "/adaptation"
}

func (p *MQTTPublisher) Publish(ctx context.Context, ev domain.AdaptationEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal adaptation event: %w", err)
	}
	return p.client.Publish(p.Topic(ev.UserID), p.qos, false, payload)
}
