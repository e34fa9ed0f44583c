package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/fleet-live/internal/auth"
	"github.com/ukydev/fleet-live/internal/models"
	"github.com/ukydev/fleet-live/internal/service"
)

// PositionsPath is the push endpoint relative to the WebSocket base URL.
const PositionsPath = "/ws/positions"

const writeWait = 10 * time.Second

// WebSocketFeed subscribes to the backend's position push endpoint.
type WebSocketFeed struct {
	// URL is the ws:// or wss:// base; PositionsPath is appended.
	URL string
	// Token returns the bearer token sent with the handshake. May be nil.
	Token func() string
	// OnUnauthorized runs when the token is expired or the handshake is
	// rejected with 401. May be nil.
	OnUnauthorized func()
	Dialer         *websocket.Dialer
	// Now defaults to time.Now.
	Now func() time.Time
	Log *log.Entry
}

func (f *WebSocketFeed) unauthorized() {
	if f.OnUnauthorized != nil {
		f.OnUnauthorized()
	}
}

// Subscribe dials the push endpoint and forwards every frame to fn on a
// reader goroutine. An expired token or a handshake rejected with 401
// runs OnUnauthorized and yields service.ErrUnauthorized.
func (f *WebSocketFeed) Subscribe(ctx context.Context, fn service.PositionHandler) (func(), error) {
	if fn == nil {
		return nil, errors.New("nil position handler")
	}
	entry := defaultLog(f.Log, "websocket")
	dialer := f.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	target := strings.TrimRight(f.URL, "/") + PositionsPath
	header := http.Header{}
	if f.Token != nil {
		if token := f.Token(); token != "" {
			now := time.Now
			if f.Now != nil {
				now = f.Now
			}
			if exp, ok := auth.Expiry(token); ok && !exp.After(now()) {
				entry.WithField("url", target).Warn("Token expired before dial")
				f.unauthorized()
				return nil, fmt.Errorf("dial %s: %w", target, service.ErrUnauthorized)
			}
			header.Set("Authorization", "Bearer "+token)
		}
	}
	conn, resp, err := dialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			f.unauthorized()
			return nil, fmt.Errorf("dial %s: %w", target, service.ErrUnauthorized)
		}
		return nil, fmt.Errorf("dial %s: %w: %w", target, service.ErrTransport, err)
	}
	entry.WithField("url", target).Info("Position stream connected")

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	go func() {
		defer close(done)
		defer cancel()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					entry.WithError(err).Warn("Position stream closed")
				}
				return
			}
			deliver(ctx, entry, data, fn)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
			entry.Debug("Position stream unsubscribed")
		})
	}, nil
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// ServeWebSocket upgrades r and streams the deltas of feed to the peer
// until either side goes away. The feed is subscribed with the request
// context, so the caller's visibility applies.
func ServeWebSocket(w http.ResponseWriter, r *http.Request, feed service.Feed, entry *log.Entry) {
	entry = defaultLog(entry, "websocket")
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		entry.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var mu sync.Mutex
	unsubscribe, err := feed.Subscribe(ctx, func(deltas map[string]models.Position) {
		data, err := EncodeFrame(deltas)
		if err != nil {
			entry.WithError(err).Error("Failed to encode frame")
			return
		}
		mu.Lock()
		defer mu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			entry.WithError(err).Debug("Push write failed")
			cancel()
		}
	})
	if err != nil {
		entry.WithError(err).Error("Failed to subscribe position feed")
		return
	}
	defer unsubscribe()

	entry.WithField("remote", r.RemoteAddr).Info("Position push client connected")
	go func() {
		// Reads only detect the close; inbound frames are ignored.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()
	<-ctx.Done()
	entry.WithField("remote", r.RemoteAddr).Info("Position push client disconnected")
}
