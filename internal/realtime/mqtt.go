package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/fleet-live/internal/models"
	"github.com/ukydev/fleet-live/internal/service"
)

const (
	// DefaultMQTTTopic carries position frames.
	DefaultMQTTTopic = "fleet/positions"
	mqttWait         = 10 * time.Second
	mqttQuiesceMs    = 250
)

// MQTTConfig locates a broker and topic.
type MQTTConfig struct {
	Broker   string
	Topic    string
	ClientID string
	QoS      byte
	Log      *log.Entry
}

func (c MQTTConfig) withDefaults(suffix string) MQTTConfig {
	if c.Topic == "" {
		c.Topic = DefaultMQTTTopic
	}
	if c.ClientID == "" {
		c.ClientID = "fleetlive"
	}
	// Brokers drop an older session when a client id is reused.
	c.ClientID += "-" + suffix + "-" + uuid.NewString()[:8]
	c.Log = defaultLog(c.Log, "mqtt")
	return c
}

func (c MQTTConfig) options() *mqtt.ClientOptions {
	entry := c.Log
	return mqtt.NewClientOptions().
		AddBroker(c.Broker).
		SetClientID(c.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(mqttWait).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			entry.WithError(err).Warn("MQTT connection lost")
		}).
		SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
			entry.Info("MQTT reconnecting")
		})
}

func wait(tok mqtt.Token, what string) error {
	if !tok.WaitTimeout(mqttWait) {
		return fmt.Errorf("mqtt %s: %w: timed out", what, service.ErrTransport)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt %s: %w: %w", what, service.ErrTransport, err)
	}
	return nil
}

// MQTTFeed subscribes to position frames on an MQTT topic.
type MQTTFeed struct {
	Config MQTTConfig
}

// Subscribe connects to the broker and forwards frames to fn on the
// client's delivery goroutine.
func (f *MQTTFeed) Subscribe(ctx context.Context, fn service.PositionHandler) (func(), error) {
	if fn == nil {
		return nil, errors.New("nil position handler")
	}
	cfg := f.Config.withDefaults("feed")
	entry := cfg.Log.WithField("topic", cfg.Topic)

	ctx, cancel := context.WithCancel(ctx)
	handler := messageHandler(ctx, entry, fn)

	var connected atomic.Bool
	opts := cfg.options().SetOnConnectHandler(func(c mqtt.Client) {
		if !connected.Load() {
			return
		}
		// A clean session loses its subscriptions on reconnect.
		if err := wait(c.Subscribe(cfg.Topic, cfg.QoS, handler), "resubscribe"); err != nil {
			entry.WithError(err).Error("MQTT resubscribe failed")
		}
	})
	client := mqtt.NewClient(opts)
	if err := wait(client.Connect(), "connect "+cfg.Broker); err != nil {
		cancel()
		return nil, err
	}
	if err := wait(client.Subscribe(cfg.Topic, cfg.QoS, handler), "subscribe "+cfg.Topic); err != nil {
		cancel()
		client.Disconnect(mqttQuiesceMs)
		return nil, err
	}
	connected.Store(true)
	entry.WithField("broker", cfg.Broker).Info("MQTT position feed subscribed")

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		if err := wait(client.Unsubscribe(cfg.Topic), "unsubscribe"); err != nil {
			entry.WithError(err).Debug("MQTT unsubscribe failed")
		}
		client.Disconnect(mqttQuiesceMs)
		entry.Debug("MQTT position feed closed")
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}

func messageHandler(ctx context.Context, entry *log.Entry, fn service.PositionHandler) mqtt.MessageHandler {
	return func(_ mqtt.Client, m mqtt.Message) {
		deliver(ctx, entry, m.Payload(), fn)
	}
}

// MQTTPublisher publishes position frames to an MQTT topic.
type MQTTPublisher struct {
	client mqtt.Client
	cfg    MQTTConfig
}

// NewMQTTPublisher connects to the broker in cfg.
func NewMQTTPublisher(cfg MQTTConfig) (*MQTTPublisher, error) {
	cfg = cfg.withDefaults("pub")
	client := mqtt.NewClient(cfg.options())
	if err := wait(client.Connect(), "connect "+cfg.Broker); err != nil {
		return nil, err
	}
	cfg.Log.WithFields(log.Fields{"broker": cfg.Broker, "topic": cfg.Topic}).Info("MQTT publisher connected")
	return &MQTTPublisher{client: client, cfg: cfg}, nil
}

// Publish sends one frame and waits for the broker to accept it.
func (p *MQTTPublisher) Publish(ctx context.Context, deltas map[string]models.Position) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := EncodeFrame(deltas)
	if err != nil {
		return err
	}
	return wait(p.client.Publish(p.cfg.Topic, p.cfg.QoS, false, data), "publish "+p.cfg.Topic)
}

func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(mqttQuiesceMs)
	return nil
}
