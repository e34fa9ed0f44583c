// Command simulator drives the demo fleet and publishes every tick of
// position deltas to the configured broker, so remote-mode consumers can
// follow a moving fleet without real trackers.
package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ukydev/fleet-live/internal/backend"
	"github.com/ukydev/fleet-live/internal/config"
	"github.com/ukydev/fleet-live/internal/models"
	"github.com/ukydev/fleet-live/internal/realtime"
	"github.com/ukydev/fleet-live/internal/service/demo"
)

// fleet is the part of the demo backing the simulator drives.
type fleet interface {
	Advance(user *models.User) map[string]models.Position
}

// simulate publishes one batch per interval until ctx ends. A failed
// publish is logged and the next tick tries again.
func simulate(ctx context.Context, f fleet, as *models.User, pub realtime.Publisher, interval time.Duration) (published int) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return published
		case <-tick.C:
		}

		deltas := f.Advance(as)
		if len(deltas) == 0 {
			continue
		}
		if err := pub.Publish(ctx, deltas); err != nil {
			if errors.Is(err, context.Canceled) {
				return published
			}
			log.WithError(err).Error("Failed to publish positions")
			continue
		}
		published++
		log.WithField("devices", len(deltas)).Debug("Published positions")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	pub, err := backend.Publisher(cfg, log.WithField("component", "simulator"))
	if err != nil {
		return err
	}
	defer pub.Close()

	b := demo.New(demo.Options{Interval: cfg.Realtime.Interval, Log: log.WithField("component", "demo")})
	admin, ok := b.AccountByRole(models.RoleAdmin)
	if !ok {
		return errors.New("demo dataset has no admin account")
	}

	log.WithFields(log.Fields{
		"transport": cfg.Realtime.Transport,
		"interval":  cfg.Realtime.Interval,
	}).Info("Starting fleet simulation")

	n := simulate(ctx, b, &admin, pub, cfg.Realtime.Interval)
	log.WithField("batches", n).Info("Fleet simulation stopped")
	return nil
}

func main() {
	v := config.New()
	var configFile string

	root := &cobra.Command{
		Use:          "simulator",
		Short:        "Publish simulated fleet movement to MQTT or NATS",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			if err := cfg.ConfigureLogging(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
	root.Flags().StringVarP(&configFile, "config", "c", "", "Path to configuration file")
	root.Flags().String("transport", "", "Broker transport: mqtt or nats")
	root.Flags().Duration("interval", 0, "Publish interval")
	_ = v.BindPFlag("realtime.transport", root.Flags().Lookup("transport"))
	_ = v.BindPFlag("realtime.interval", root.Flags().Lookup("interval"))

	if err := root.Execute(); err != nil {
		log.WithError(err).Fatal("Simulator failed")
	}
}
