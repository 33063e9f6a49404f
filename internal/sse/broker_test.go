package sse

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// drain collects everything currently buffered on ch.
func drain(ch chan []byte) []string {
	time.Sleep(50 * time.Millisecond)
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	require.Zero(t, b.ClientCount())

	ch := b.Subscribe()
	require.Equal(t, 1, b.ClientCount())

	b.Unsubscribe(ch)
	require.Zero(t, b.ClientCount())
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "custom", Data: map[string]string{"id": "p1"}})

	select {
	case msg := <-ch:
		s := string(msg)
		assert.Contains(t, s, "event: custom")
		assert.Contains(t, s, `"id":"p1"`)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishSync_ReloadThrottled(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishSync(map[string]int{"updated": 1}, true, nil)
	b.PublishSync(map[string]int{"updated": 2}, true, nil)

	var completed, reloads int
	for _, msg := range drain(ch) {
		switch {
		case strings.Contains(msg, "event: "+EventSiteReload):
			reloads++
		case strings.Contains(msg, "event: "+EventSyncCompleted):
			completed++
		}
	}
	assert.Equal(t, 2, completed)
	assert.Equal(t, 1, reloads, "reload is throttled")
}

func TestPublishSync_UnchangedNoReload(t *testing.T) {
	b := NewBroker(time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishSync(map[string]bool{"up_to_date": true}, false, nil)

	msgs := drain(ch)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], EventSyncCompleted)
}

func TestPublishSync_Failure(t *testing.T) {
	b := NewBroker(time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishSync(nil, false, errors.New("provider: fetch metadata: boom"))

	msgs := drain(ch)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "event: "+EventSyncFailed)
	assert.Contains(t, msgs[0], "boom")
}

// syncRecorder is an httptest.ResponseRecorder safe for concurrent reads.
type syncRecorder struct {
	*httptest.ResponseRecorder
	mu sync.Mutex
}

func (r *syncRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Write(p)
}

func (r *syncRecorder) body() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Body.String()
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := &syncRecorder{ResponseRecorder: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 1, b.ClientCount())

	b.PublishSync(map[string]int{"updated": 1}, true, nil)
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	assert.Contains(t, w.body(), "event: "+EventSyncCompleted)
	assert.Contains(t, w.body(), "event: "+EventSiteReload)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, b.ClientCount(), "client cleaned up after disconnect")
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Buffer holds 64; the rest must be dropped without blocking.
	for range 70 {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	require.Equal(t, 1, b.ClientCount())

	b.Close()

	select {
	case _, ok := <-ch:
		require.False(t, ok, "subscriber channel closed")
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}
	assert.Zero(t, b.ClientCount())

	// No-ops after close.
	b.Publish(Event{Type: "x", Data: map[string]string{}})
	b.PublishSync(nil, true, nil)
}

func TestClose_Twice(t *testing.T) {
	b := NewBroker(time.Second)
	b.Close()

	done := make(chan struct{})
	go func() {
		b.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second Close blocked")
	}
}
