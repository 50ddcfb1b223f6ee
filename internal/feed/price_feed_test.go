package feed

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
}

func newRecordingSink() *recordingSink {
	return &recordingSink{prices: map[string]decimal.Decimal{}}
}

func (s *recordingSink) SetPrice(ctx context.Context, mint string, price decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[mint] = price
	return nil
}

func (s *recordingSink) price(mint string) (decimal.Decimal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prices[mint]
	return p, ok
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// tickServer upgrades one connection, records the subscription, and sends
// the given raw messages.
func tickServer(t *testing.T, messages []string, gotSub chan<- subscribeMessage) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var sub subscribeMessage
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		gotSub <- sub

		for _, msg := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestFeedSubscribesAndForwardsTicks(t *testing.T) {
	goodTick, err := json.Marshal(tick{Mint: "sol-mint", Price: decimal.NewFromFloat(142.5)})
	require.NoError(t, err)

	gotSub := make(chan subscribeMessage, 1)
	srv := tickServer(t, []string{
		"not json at all",
		`{"mint":"","price":"1"}`,
		`{"mint":"neg-mint","price":"-3"}`,
		string(goodTick),
	}, gotSub)
	defer srv.Close()

	sink := newRecordingSink()
	f := New(sink, Config{
		URL:            wsURL(srv),
		Mints:          []string{"sol-mint"},
		ReconnectDelay: 10 * time.Millisecond,
	}, discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.Run(ctx)
	}()

	select {
	case sub := <-gotSub:
		assert.Equal(t, "subscribe", sub.Type)
		assert.Equal(t, []string{"sol-mint"}, sub.Mints)
	case <-time.After(time.Second):
		t.Fatal("no subscription received")
	}

	require.Eventually(t, func() bool {
		_, ok := sink.price("sol-mint")
		return ok
	}, time.Second, 10*time.Millisecond)

	p, _ := sink.price("sol-mint")
	assert.True(t, p.Equal(decimal.NewFromFloat(142.5)))

	// Malformed and non-positive ticks never reach the sink.
	_, ok := sink.price("neg-mint")
	assert.False(t, ok)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("feed did not stop on cancel")
	}
}

func TestFeedReconnectsAfterDisconnect(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var mu sync.Mutex
	connects := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		mu.Lock()
		connects++
		mu.Unlock()
		// Drop the connection immediately after the subscribe message.
		var sub subscribeMessage
		_ = conn.ReadJSON(&sub)
		conn.Close()
	}))
	defer srv.Close()

	f := New(newRecordingSink(), Config{
		URL:            wsURL(srv),
		ReconnectDelay: 5 * time.Millisecond,
	}, discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return connects >= 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
