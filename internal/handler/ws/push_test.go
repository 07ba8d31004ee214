package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinPulse/internal/domain/models"
	"CoinPulse/internal/repository"
	"CoinPulse/internal/usecase"
	xlogger "CoinPulse/pkg/logger"
	"CoinPulse/pkg/metrics"
)

func dial(t *testing.T, pub *usecase.Publisher, interval time.Duration) *websocket.Conn {
	t.Helper()
	e := echo.New()
	NewPushHandler(xlogger.Nop(), pub, interval).RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/crypto"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestPush_EmptyStoreThenFirstSnapshot(t *testing.T) {
	store := repository.NewMemorySnapshotStore()
	pub := usecase.NewPublisher(store, metrics.Nop{}, nil)
	conn := dial(t, pub, 20*time.Millisecond)

	require.Eventually(t, func() bool { return pub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	// several push cycles pass with nothing to send
	_ = conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	var netErr interface{ Timeout() bool }
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout())
}

func TestPush_DeliversSnapshotOnNextCycle(t *testing.T) {
	store := repository.NewMemorySnapshotStore()
	pub := usecase.NewPublisher(store, metrics.Nop{}, nil)
	conn := dial(t, pub, 20*time.Millisecond)
	require.Eventually(t, func() bool { return pub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	written, err := store.Append(context.Background(), &models.Snapshot{BTCPrice: 64000, AvgRSI: models.Some(55)})
	require.NoError(t, err)
	require.NoError(t, pub.OnSnapshot(context.Background(), written))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got models.Snapshot
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, 64000.0, got.BTCPrice)
	assert.True(t, got.Timestamp.Equal(written.Timestamp))
	rsi, ok := got.AvgRSI.Get()
	require.True(t, ok)
	assert.Equal(t, 55.0, rsi)
}

func TestPush_DisconnectReleasesSubscriber(t *testing.T) {
	pub := usecase.NewPublisher(repository.NewMemorySnapshotStore(), metrics.Nop{}, nil)
	conn := dial(t, pub, time.Hour)
	require.Eventually(t, func() bool { return pub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	_ = conn.Close()
	require.Eventually(t, func() bool { return pub.Subscribers() == 0 }, 2*time.Second, 5*time.Millisecond)
}
