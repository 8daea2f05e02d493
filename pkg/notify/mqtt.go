package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/noah-isme/radio-schedule-api/internal/models"
	"github.com/noah-isme/radio-schedule-api/pkg/config"
)

const (
	publishQoS        byte = 1
	disconnectQuiesce      = 250
	defaultTimeout         = 5 * time.Second
)

// Publisher delivers committed schedule changes to subscribers.
type Publisher interface {
	Publish(ctx context.Context, change models.ScheduleChange) error
}

// NopPublisher drops every change. Used when MQTT is disabled.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, models.ScheduleChange) error { return nil }

// MQTTPublisher publishes schedule changes to <prefix>/schedule/<yyyy-mm-dd>.
type MQTTPublisher struct {
	client  mqtt.Client
	prefix  string
	timeout time.Duration
	logger  *zap.Logger
}

// NewMQTTPublisher connects to the configured broker.
func NewMQTTPublisher(cfg config.MQTTConfig, logger *zap.Logger) (*MQTTPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.BrokerURL)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(mqtt.Client) {
		logger.Info("connected to mqtt broker", zap.String("broker", cfg.BrokerURL))
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", zap.Error(err))
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect mqtt broker: %w", token.Error())
	}
	return newMQTTPublisher(client, cfg.TopicPrefix, logger), nil
}

func newMQTTPublisher(client mqtt.Client, prefix string, logger *zap.Logger) *MQTTPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MQTTPublisher{
		client:  client,
		prefix:  strings.Trim(prefix, "/"),
		timeout: defaultTimeout,
		logger:  logger,
	}
}

// Topic returns the topic a change for date is published on.
func (p *MQTTPublisher) Topic(date string) string {
	if p.prefix == "" {
		return "schedule/" + date
	}
	return p.prefix + "/schedule/" + date
}

// Publish sends the change and waits for the broker acknowledgement or ctx cancellation.
func (p *MQTTPublisher) Publish(ctx context.Context, change models.ScheduleChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal schedule change: %w", err)
	}

	topic := p.Topic(change.Date)
	token := p.client.Publish(topic, publishQoS, false, payload)

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("publish %s: timed out", topic)
	case <-token.Done():
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	p.logger.Debug("schedule change published", zap.String("topic", topic), zap.String("action", change.Action))
	return nil
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	if p == nil || p.client == nil {
		return
	}
	p.client.Disconnect(disconnectQuiesce)
}
