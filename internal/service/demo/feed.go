package demo

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/fleet-live/internal/models"
	"github.com/ukydev/fleet-live/internal/service"
)

type feed struct{ b *Backend }

// Subscribe starts a ticker that advances every visible, reporting device
// and hands the new positions to fn. Offline devices and devices without
// a position never move. fn runs on the ticker goroutine; it must not call
// the returned unsubscribe function.
func (f *feed) Subscribe(ctx context.Context, fn service.PositionHandler) (func(), error) {
	if fn == nil {
		return nil, errors.New("nil position handler")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := f.b
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()

		b.log.WithField("interval", b.interval).Debug("Demo feed started")
		for {
			select {
			case <-ctx.Done():
				b.log.Debug("Demo feed stopped")
				return
			case <-ticker.C:
				deltas := b.Advance(b.user(ctx))
				if len(deltas) == 0 || ctx.Err() != nil {
					continue
				}
				fn(deltas)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}

// Advance moves every device visible to user by one tick, stores the new
// positions in the dataset and returns them keyed by device id. Devices
// that did not move are left out of the result.
func (b *Backend) Advance(user *models.User) map[string]models.Position {
	b.mu.Lock()
	defer b.mu.Unlock()

	visible := b.policy.DeviceIDs(user, b.data.Devices)
	deltas := make(map[string]models.Position, len(visible))
	for i := range b.data.Devices {
		d := &b.data.Devices[i]
		if _, ok := visible[d.ID]; !ok {
			continue
		}
		if d.Status == models.DeviceOffline || d.LastPosition == nil {
			continue
		}
		next := b.sim.Next(*d.LastPosition)
		if next.ID == d.LastPosition.ID {
			continue
		}
		d.LastPosition = &next
		deltas[d.ID] = next
	}

	b.log.WithFields(log.Fields{"updated": len(deltas)}).Trace("Demo positions advanced")
	return deltas
}
