package backend

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/fleet-live/internal/config"
	"github.com/ukydev/fleet-live/internal/models"
	"github.com/ukydev/fleet-live/internal/realtime"
	"github.com/ukydev/fleet-live/internal/service"
	"github.com/ukydev/fleet-live/internal/service/remote"
)

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(config.New(), "")
	require.NoError(t, err)
	cfg.Demo.Delay = 0
	return cfg
}

func TestNew_Demo(t *testing.T) {
	cfg := testConfig(t)
	driver := &models.User{ID: "demo-driver", Role: models.RoleDriver, GroupID: "grp-1", AssignedDeviceID: "dev-1"}

	b, err := New(cfg, Options{
		Users: service.UserFunc(func(context.Context) *models.User { return driver }),
		Log:   quietLog(),
	})
	require.NoError(t, err)
	require.NotNil(t, b.Feed)

	devices, err := b.Devices.List(context.Background(), models.DeviceFilter{})
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "dev-1", devices[0].ID)
	assert.NoError(t, b.Shutdown())
}

func TestNew_DemoStrictPolicy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Access.AllowAnonymous = false

	b, err := New(cfg, Options{Log: quietLog()})
	require.NoError(t, err)
	devices, err := b.Devices.List(context.Background(), models.DeviceFilter{})
	require.NoError(t, err)
	assert.Empty(t, devices)
}

func TestNew_RemoteFeeds(t *testing.T) {
	tests := []struct {
		transport string
		check     func(t *testing.T, f service.Feed)
	}{
		{config.TransportWebSocket, func(t *testing.T, f service.Feed) {
			ws, ok := f.(*realtime.WebSocketFeed)
			require.True(t, ok)
			assert.Equal(t, "ws://localhost:8080", ws.URL)
			assert.Equal(t, "seed", ws.Token())
		}},
		{config.TransportMQTT, func(t *testing.T, f service.Feed) {
			m, ok := f.(*realtime.MQTTFeed)
			require.True(t, ok)
			assert.Equal(t, "fleet/positions", m.Config.Topic)
		}},
		{config.TransportNATS, func(t *testing.T, f service.Feed) {
			n, ok := f.(*realtime.NATSFeed)
			require.True(t, ok)
			assert.Equal(t, "fleet.positions", n.Config.Subject)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.transport, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Mode = config.ModeRemote
			cfg.API.Token = "seed"
			cfg.Realtime.Transport = tt.transport

			b, err := New(cfg, Options{Log: quietLog()})
			require.NoError(t, err)
			tt.check(t, b.Feed)
		})
	}
}

func TestFeed_Unknown(t *testing.T) {
	cfg := testConfig(t)
	cfg.Realtime.Transport = "smoke-signals"
	_, err := Feed(cfg, remote.NewMemoryTokens(""), nil, quietLog())
	assert.Error(t, err)
}

func TestNew_RemoteWebSocketRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	cfg := testConfig(t)
	cfg.Mode = config.ModeRemote
	cfg.API.Token = "revoked"
	cfg.API.WSURL = "ws" + strings.TrimPrefix(server.URL, "http")
	cfg.Realtime.Transport = config.TransportWebSocket

	signedOut := 0
	b, err := New(cfg, Options{OnUnauthorized: func() { signedOut++ }, Log: quietLog()})
	require.NoError(t, err)

	_, err = b.Feed.Subscribe(context.Background(), func(map[string]models.Position) {})
	assert.ErrorIs(t, err, service.ErrUnauthorized)
	assert.Equal(t, 1, signedOut)

	ws, ok := b.Feed.(*realtime.WebSocketFeed)
	require.True(t, ok)
	assert.Empty(t, ws.Token())
}

func TestNew_UnknownMode(t *testing.T) {
	cfg := testConfig(t)
	cfg.Mode = "hybrid"
	_, err := New(cfg, Options{Log: quietLog()})
	assert.Error(t, err)
}

func TestPublisher_WebSocketRejected(t *testing.T) {
	cfg := testConfig(t)
	_, err := Publisher(cfg, quietLog())
	assert.Error(t, err)
}

func TestPolicy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Access.UngroupedManagerSeesAll = false
	p := Policy(cfg)
	assert.True(t, p.AllowAnonymous)
	assert.False(t, p.UngroupedManagerSeesAll)
}
