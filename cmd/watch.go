package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ukydev/fleet-live/internal/backend"
	"github.com/ukydev/fleet-live/internal/config"
	"github.com/ukydev/fleet-live/internal/dashboard"
	"github.com/ukydev/fleet-live/internal/db"
	"github.com/ukydev/fleet-live/internal/geo"
	"github.com/ukydev/fleet-live/internal/models"
	"github.com/ukydev/fleet-live/internal/store"
)

type watchOptions struct {
	email     string
	password  string
	profile   string
	report    time.Duration
	reports   int
	speedUnit string
}

func newWatchCmd(a *app) *cobra.Command {
	var opts watchOptions
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sign in and follow the live fleet state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return watch(ctx, a.cfg, opts)
		},
	}
	cmd.Flags().StringVar(&opts.email, "email", "", "Sign in with this email")
	cmd.Flags().StringVar(&opts.password, "password", "", "Password for --email")
	cmd.Flags().StringVar(&opts.profile, "profile", db.DefaultProfile, "Preferences profile for the mongo driver")
	cmd.Flags().DurationVar(&opts.report, "report", 10*time.Second, "Summary interval")
	cmd.Flags().IntVar(&opts.reports, "reports", 0, "Stop after this many summaries (0 runs until interrupted)")
	cmd.Flags().StringVar(&opts.speedUnit, "speed-unit", "kph", "Speed display unit (kph or mph)")
	return cmd
}

func openPersister(ctx context.Context, cfg *config.Config, profile string) (store.Persister, func(), error) {
	switch cfg.Persist.Driver {
	case config.PersistMongo:
		client, err := db.ConnectMongo(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, nil, err
		}
		coll := &db.MongoCollection{Collection: client.Database(cfg.Mongo.Database).Collection("preferences")}
		return db.NewPersister(coll, profile), func() { _ = client.Disconnect(context.Background()) }, nil
	case config.PersistFile:
		return store.NewFilePersister(cfg.Persist.Path), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown persist driver %q", cfg.Persist.Driver)
}

func watch(ctx context.Context, cfg *config.Config, opts watchOptions) error {
	entry := log.WithField("component", "watch")

	persister, closePersister, err := openPersister(ctx, cfg, opts.profile)
	if err != nil {
		return err
	}
	defer closePersister()

	st := store.New(ctx, persister)
	var session *dashboard.Session
	b, err := backend.New(cfg, backend.Options{
		Users: st.Auth,
		OnUnauthorized: func() {
			entry.Warn("Token rejected, signing out")
			session.Unauthorized()
		},
		Log: log.WithField("component", "backend"),
	})
	if err != nil {
		return err
	}
	session = dashboard.New(st, b, entry)
	defer func() {
		if err := session.Close(context.Background()); err != nil {
			entry.WithError(err).Warn("Failed to close session")
		}
	}()

	var user models.User
	if opts.email != "" {
		user, err = session.Login(ctx, models.LoginRequest{Email: opts.email, Password: opts.password})
	} else {
		user, err = session.Resume(ctx)
	}
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	entry = entry.WithFields(log.Fields{"user_id": user.ID, "role": user.Role})

	if err := session.LoadDevices(ctx, models.DeviceFilter{}); err != nil {
		return fmt.Errorf("load devices: %w", err)
	}
	if err := session.LoadAlerts(ctx, models.AlertFilter{}); err != nil {
		return fmt.Errorf("load alerts: %w", err)
	}
	if err := session.LoadGeofences(ctx); err != nil {
		return fmt.Errorf("load geofences: %w", err)
	}
	stats, err := session.Stats(ctx)
	if err != nil {
		return fmt.Errorf("load stats: %w", err)
	}
	entry.WithFields(log.Fields{
		"devices":   stats.TotalDevices,
		"moving":    stats.MovingDevices,
		"offline":   stats.OfflineDevices,
		"alerts":    stats.TotalAlerts,
		"geofences": len(st.Geofences.All()),
	}).Info("Fleet loaded")

	var updates atomic.Int64
	unsubscribe := st.Devices.Subscribe(func() { updates.Add(1) })
	defer unsubscribe()

	if err := session.StartLive(ctx); err != nil {
		return fmt.Errorf("start live feed: %w", err)
	}

	ticker := time.NewTicker(opts.report)
	defer ticker.Stop()
	for reported := 0; opts.reports <= 0 || reported < opts.reports; reported++ {
		select {
		case <-ctx.Done():
			entry.Info("Stopping")
			return nil
		case <-ticker.C:
			entry.WithFields(fleetSummary(st, opts.speedUnit, updates.Swap(0))).Info("Live fleet")
		}
	}
	return nil
}

// fleetSummary counts the live store. Devices are "inside" when their last
// position falls in at least one active geofence.
func fleetSummary(st *store.Store, speedUnit string, updates int64) log.Fields {
	fences := st.Geofences.All()
	var (
		moving, inside int
		top            geo.Knots
	)
	for _, d := range st.Devices.All() {
		p := d.LastPosition
		if p == nil {
			continue
		}
		if p.Moving() {
			moving++
		}
		if p.Speed > top {
			top = p.Speed
		}
		for _, g := range fences {
			if g.IsActive && g.Contains(p.Point()) {
				inside++
				break
			}
		}
	}
	return log.Fields{
		"devices":   st.Devices.Len(),
		"moving":    moving,
		"inside":    inside,
		"top_speed": geo.FormatSpeed(top, speedUnit),
		"unread":    st.Alerts.UnreadCount(),
		"updates":   updates,
	}
}
