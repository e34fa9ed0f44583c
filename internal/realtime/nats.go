package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/fleet-live/internal/models"
	"github.com/ukydev/fleet-live/internal/service"
)

// DefaultNATSSubject carries position frames.
const DefaultNATSSubject = "fleet.positions"

// NATSConfig locates a server and subject.
type NATSConfig struct {
	URL     string
	Subject string
	Name    string
	Log     *log.Entry
}

func (c NATSConfig) withDefaults() NATSConfig {
	if c.URL == "" {
		c.URL = nats.DefaultURL
	}
	if c.Subject == "" {
		c.Subject = DefaultNATSSubject
	}
	if c.Name == "" {
		c.Name = "fleetlive"
	}
	c.Log = defaultLog(c.Log, "nats")
	return c
}

func (c NATSConfig) connect() (*nats.Conn, error) {
	entry := c.Log
	nc, err := nats.Connect(c.URL,
		nats.Name(c.Name),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				entry.WithError(err).Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			entry.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			entry.Debug("NATS connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w: %w", c.URL, service.ErrTransport, err)
	}
	return nc, nil
}

// NATSFeed subscribes to position frames on a NATS subject.
type NATSFeed struct {
	Config NATSConfig
}

// Subscribe connects and forwards frames to fn on the subscription's
// delivery goroutine.
func (f *NATSFeed) Subscribe(ctx context.Context, fn service.PositionHandler) (func(), error) {
	if fn == nil {
		return nil, errors.New("nil position handler")
	}
	cfg := f.Config.withDefaults()
	entry := cfg.Log.WithField("subject", cfg.Subject)

	nc, err := cfg.connect()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	sub, err := nc.Subscribe(cfg.Subject, msgHandler(ctx, entry, fn))
	if err != nil {
		cancel()
		nc.Close()
		return nil, fmt.Errorf("nats subscribe %s: %w: %w", cfg.Subject, service.ErrTransport, err)
	}
	entry.WithField("url", cfg.URL).Info("NATS position feed subscribed")

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		if err := sub.Unsubscribe(); err != nil {
			entry.WithError(err).Debug("NATS unsubscribe failed")
		}
		nc.Close()
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}

func msgHandler(ctx context.Context, entry *log.Entry, fn service.PositionHandler) nats.MsgHandler {
	return func(m *nats.Msg) {
		deliver(ctx, entry, m.Data, fn)
	}
}

// NATSPublisher publishes position frames to a NATS subject.
type NATSPublisher struct {
	nc  *nats.Conn
	cfg NATSConfig
}

// NewNATSPublisher connects to the server in cfg.
func NewNATSPublisher(cfg NATSConfig) (*NATSPublisher, error) {
	cfg = cfg.withDefaults()
	nc, err := cfg.connect()
	if err != nil {
		return nil, err
	}
	cfg.Log.WithFields(log.Fields{"url": cfg.URL, "subject": cfg.Subject}).Info("NATS publisher connected")
	return &NATSPublisher{nc: nc, cfg: cfg}, nil
}

// Publish sends one frame. Delivery is fire-and-forget, as with core NATS.
func (p *NATSPublisher) Publish(ctx context.Context, deltas map[string]models.Position) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := EncodeFrame(deltas)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(p.cfg.Subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w: %w", p.cfg.Subject, service.ErrTransport, err)
	}
	return nil
}

// Close flushes pending frames and closes the connection.
func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}
