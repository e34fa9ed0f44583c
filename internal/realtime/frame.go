// Package realtime carries live position deltas between processes. A
// frame is a JSON object mapping device id to its newest Position, the
// same shape over WebSocket, MQTT and NATS. Feeds forward frames as
// they arrive; a malformed frame is logged and skipped.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/fleet-live/internal/models"
	"github.com/ukydev/fleet-live/internal/service"
)

// EncodeFrame renders one batch of deltas.
func EncodeFrame(deltas map[string]models.Position) ([]byte, error) {
	data, err := json.Marshal(deltas)
	if err != nil {
		return nil, fmt.Errorf("failed to encode position frame: %w", err)
	}
	return data, nil
}

// DecodeFrame parses one batch of deltas.
func DecodeFrame(data []byte) (map[string]models.Position, error) {
	var deltas map[string]models.Position
	if err := json.Unmarshal(data, &deltas); err != nil {
		return nil, fmt.Errorf("failed to decode position frame: %w", err)
	}
	return deltas, nil
}

// deliver decodes data and hands it to fn unless the subscription is
// over or the frame is empty.
func deliver(ctx context.Context, entry *log.Entry, data []byte, fn service.PositionHandler) {
	if ctx.Err() != nil {
		return
	}
	deltas, err := DecodeFrame(data)
	if err != nil {
		entry.WithError(err).Warn("Skipping malformed position frame")
		return
	}
	if len(deltas) == 0 {
		return
	}
	fn(deltas)
}

// Publisher pushes batches of deltas to subscribers of a broker.
type Publisher interface {
	Publish(ctx context.Context, deltas map[string]models.Position) error
	Close() error
}

func defaultLog(entry *log.Entry, transport string) *log.Entry {
	if entry != nil {
		return entry
	}
	return log.WithFields(log.Fields{"component": "realtime", "transport": transport})
}
