// Package backend picks the data access backing named by the mode
// setting. Nothing downstream of New knows which one it got.
package backend

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/fleet-live/internal/access"
	"github.com/ukydev/fleet-live/internal/config"
	"github.com/ukydev/fleet-live/internal/realtime"
	"github.com/ukydev/fleet-live/internal/service"
	"github.com/ukydev/fleet-live/internal/service/demo"
	"github.com/ukydev/fleet-live/internal/service/remote"
)

// Options carries the process-side collaborators of a backing.
type Options struct {
	// Users supplies the signed-in user to the demo backing.
	Users service.UserSource
	// Tokens signs demo login tokens. The server passes its JWT service
	// so demo logins are accepted by its own middleware.
	Tokens demo.TokenIssuer
	// OnUnauthorized runs when the remote backing sees a 401.
	OnUnauthorized func()
	Log            *log.Entry
}

// Policy builds the visibility policy from the access settings.
func Policy(cfg *config.Config) access.Policy {
	return access.Policy{
		AllowAnonymous:          cfg.Access.AllowAnonymous,
		UngroupedManagerSeesAll: cfg.Access.UngroupedManagerSeesAll,
	}
}

// New returns the backing selected by cfg.Mode.
func New(cfg *config.Config, opts Options) (*service.Backend, error) {
	entry := opts.Log
	if entry == nil {
		entry = log.WithField("component", "backend")
	}

	switch cfg.Mode {
	case config.ModeDemo:
		policy := Policy(cfg)
		b := demo.New(demo.Options{
			Users:       opts.Users,
			Policy:      &policy,
			Latency:     demo.ScaledLatency(cfg.Demo.Delay),
			Interval:    cfg.Realtime.Interval,
			DefaultRole: cfg.Demo.Role,
			Tokens:      opts.Tokens,
			Log:         entry.WithField("mode", config.ModeDemo),
		})
		return b.Service(), nil

	case config.ModeRemote:
		client := remote.New(remote.Options{
			BaseURL:        cfg.API.BaseURL,
			Timeout:        cfg.API.Timeout,
			Tokens:         remote.NewMemoryTokens(cfg.API.Token),
			OnUnauthorized: opts.OnUnauthorized,
			Log:            entry.WithField("mode", config.ModeRemote),
		})
		feed, err := Feed(cfg, client.Tokens(), opts.OnUnauthorized, entry)
		if err != nil {
			return nil, err
		}
		entry.WithFields(log.Fields{
			"base_url":  cfg.API.BaseURL,
			"transport": cfg.Realtime.Transport,
		}).Info("Using remote backend")
		return client.Service(feed), nil
	}
	return nil, fmt.Errorf("unknown mode %q", cfg.Mode)
}

// Feed returns the push feed named by realtime.transport. A rejected
// WebSocket handshake invalidates tokens and then runs onUnauthorized,
// the same as a 401 from the REST client.
func Feed(cfg *config.Config, tokens remote.TokenStore, onUnauthorized func(), entry *log.Entry) (service.Feed, error) {
	switch cfg.Realtime.Transport {
	case config.TransportWebSocket:
		rejected := func() {
			tokens.Invalidate()
			if onUnauthorized != nil {
				onUnauthorized()
			}
		}
		return &realtime.WebSocketFeed{
			URL:            cfg.API.WSURL,
			Token:          tokens.Token,
			OnUnauthorized: rejected,
			Log:            entry.WithField("transport", config.TransportWebSocket),
		}, nil
	case config.TransportMQTT:
		return &realtime.MQTTFeed{Config: realtime.MQTTConfig{
			Broker:   cfg.MQTT.Broker,
			Topic:    cfg.MQTT.Topic,
			ClientID: cfg.MQTT.ClientID,
			Log:      entry.WithField("transport", config.TransportMQTT),
		}}, nil
	case config.TransportNATS:
		return &realtime.NATSFeed{Config: realtime.NATSConfig{
			URL:     cfg.NATS.URL,
			Subject: cfg.NATS.Subject,
			Log:     entry.WithField("transport", config.TransportNATS),
		}}, nil
	}
	return nil, fmt.Errorf("unknown realtime transport %q", cfg.Realtime.Transport)
}

// Publisher connects the broker publisher named by realtime.transport.
// WebSocket has no broker to publish to.
func Publisher(cfg *config.Config, entry *log.Entry) (realtime.Publisher, error) {
	switch cfg.Realtime.Transport {
	case config.TransportMQTT:
		return realtime.NewMQTTPublisher(realtime.MQTTConfig{
			Broker:   cfg.MQTT.Broker,
			Topic:    cfg.MQTT.Topic,
			ClientID: cfg.MQTT.ClientID,
			Log:      entry,
		})
	case config.TransportNATS:
		return realtime.NewNATSPublisher(realtime.NATSConfig{
			URL:     cfg.NATS.URL,
			Subject: cfg.NATS.Subject,
			Name:    "fleetlive-simulator",
			Log:     entry,
		})
	}
	return nil, fmt.Errorf("transport %q cannot publish", cfg.Realtime.Transport)
}
