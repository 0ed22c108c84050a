// Package mqtt announces protocol events over an MQTT broker. The global
// aggregator publishes closed rounds and operators subscribe to follow a run.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// RoundsTopic is where the global aggregator announces closed rounds.
const RoundsTopic = "dpsshare/rounds/completed"

const (
	connectTimeout  = 10 * time.Second
	maxReconnect    = time.Minute
	disconnectQuiet = 250
)

var (
	ErrTimeout    = errors.New("mqtt operation timed out")
	ErrConnect    = errors.New("failed to connect to mqtt broker")
	errEmptyTopic = errors.New("empty topic")
	errEmptyID    = errors.New("empty client id")
)

type Config struct {
	URL      string        `env:"URL"      envDefault:""`
	QoS      uint8         `env:"QOS"      envDefault:"1"`
	Timeout  time.Duration `env:"TIMEOUT"  envDefault:"30s"`
	Username string        `env:"USERNAME" envDefault:""`
	Password string        `env:"PASSWORD" envDefault:""`
	// Retain keeps the last event on the broker for late subscribers.
	Retain bool `env:"RETAIN" envDefault:"true"`
}

// Handler receives the raw JSON body of an event.
type Handler func(topic string, payload []byte) error

type PubSub interface {
	// Publish JSON-encodes msg and sends it to topic.
	Publish(ctx context.Context, topic string, msg any) error
	Subscribe(ctx context.Context, topic string, handler Handler) error
	Unsubscribe(ctx context.Context, topic string) error
	Disconnect(ctx context.Context) error
}

type pubsub struct {
	client mqtt.Client
	cfg    Config
	logger *slog.Logger
}

// NewPubSub connects to cfg.URL as id.
func NewPubSub(cfg Config, id string, logger *slog.Logger) (PubSub, error) {
	if id == "" {
		return nil, errEmptyID
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.URL).
		SetClientID(id).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetMaxReconnectInterval(maxReconnect).
		SetOnConnectHandler(func(mqtt.Client) {
			logger.Info("Connected to MQTT broker", slog.String("broker", cfg.URL), slog.String("client_id", id))
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Warn("Lost MQTT connection", slog.String("broker", cfg.URL), slog.Any("error", err))
		})

	ps := &pubsub{
		client: mqtt.NewClient(opts),
		cfg:    cfg,
		logger: logger,
	}
	if err := ps.wait(context.Background(), ps.client.Connect()); err != nil {
		return nil, errors.Join(ErrConnect, err)
	}

	return ps, nil
}

func (ps *pubsub) Publish(ctx context.Context, topic string, msg any) error {
	if topic == "" {
		return errEmptyTopic
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	return ps.wait(ctx, ps.client.Publish(topic, ps.cfg.QoS, ps.cfg.Retain, data))
}

func (ps *pubsub) Subscribe(ctx context.Context, topic string, handler Handler) error {
	if topic == "" {
		return errEmptyTopic
	}
	cb := func(_ mqtt.Client, m mqtt.Message) {
		if err := handler(m.Topic(), m.Payload()); err != nil {
			ps.logger.Warn("Failed to handle MQTT message", slog.String("topic", m.Topic()), slog.Any("error", err))
		}
	}

	return ps.wait(ctx, ps.client.Subscribe(topic, ps.cfg.QoS, cb))
}

func (ps *pubsub) Unsubscribe(ctx context.Context, topic string) error {
	if topic == "" {
		return errEmptyTopic
	}

	return ps.wait(ctx, ps.client.Unsubscribe(topic))
}

func (ps *pubsub) Disconnect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ps.client.Disconnect(disconnectQuiet)

	return nil
}

// wait blocks until token completes or ctx ends. A positive Timeout also
// bounds the wait.
func (ps *pubsub) wait(ctx context.Context, token mqtt.Token) error {
	var expired <-chan time.Time
	if ps.cfg.Timeout > 0 {
		timer := time.NewTimer(ps.cfg.Timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-expired:
		return ErrTimeout
	}
}
