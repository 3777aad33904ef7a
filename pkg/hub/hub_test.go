package hub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records writes and blocks reads until closed.
type fakeConn struct {
	mu      sync.Mutex
	written [][]byte
	types   []int
	closed  chan struct{}
	once    sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{})}
}

func (f *fakeConn) SetReadLimit(int64)                {}
func (f *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.closed
	return 0, nil, errors.New("closed")
}

func (f *fakeConn) WriteMessage(t int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.types = append(f.types, t)
	f.written = append(f.written, data)
	return nil
}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for i, d := range f.written {
		if f.types[i] == websocket.TextMessage {
			out = append(out, string(d))
		}
	}
	return out
}

func startHub(t *testing.T, depth int) (*Hub, context.CancelFunc) {
	t.Helper()
	h := New("face/bbox", depth, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	require.Eventually(t, h.IsRunning, time.Second, time.Millisecond)
	t.Cleanup(cancel)
	return h, cancel
}

func TestNew_Defaults(t *testing.T) {
	h := New("noface", 0, nil)
	assert.Equal(t, "noface", h.Topic())
	assert.Equal(t, DefaultQueueDepth, cap(h.broadcast))
	assert.Zero(t, h.ClientCount())
	assert.False(t, h.IsRunning())
}

func TestHub_BroadcastReachesSubscriber(t *testing.T) {
	h, _ := startHub(t, 10)

	conn := newFakeConn()
	client := NewClient(h, conn)
	go client.Run()

	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, h.BroadcastJSON(map[string]int{"faces": 2}))

	require.Eventually(t, func() bool { return len(conn.messages()) == 1 }, time.Second, time.Millisecond)
	assert.JSONEq(t, `{"faces":2}`, conn.messages()[0])
	assert.Equal(t, int64(1), h.Stats().Sent)
	assert.Eventually(t, func() bool { return client.Written() == 1 }, time.Second, time.Millisecond)
}

func TestHub_UnregisterOnDisconnect(t *testing.T) {
	h, _ := startHub(t, 10)

	conn := newFakeConn()
	client := NewClient(h, conn)
	go client.Run()
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, time.Millisecond)
}

func TestHub_QueueFull(t *testing.T) {
	// Not running, so nothing drains the queue.
	h := New("noface", 1, nil)

	require.NoError(t, h.Broadcast(NewMessage([]byte(`{}`))))
	assert.ErrorIs(t, h.Broadcast(NewMessage([]byte(`{}`))), ErrQueueFull)
	assert.Equal(t, int64(1), h.Stats().Dropped)
}

func TestHub_StopClosesSubscribers(t *testing.T) {
	h, cancel := startHub(t, 10)

	conn := newFakeConn()
	client := NewClient(h, conn)
	done := make(chan struct{})
	go func() {
		client.Run()
		close(done)
	}()
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, time.Millisecond)

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("client did not stop after hub shutdown")
	}
	assert.False(t, h.IsRunning())
}

func TestNewClient_AfterStop(t *testing.T) {
	h, cancel := startHub(t, 10)
	cancel()
	require.Eventually(t, func() bool { return !h.IsRunning() }, time.Second, time.Millisecond)

	client := NewClient(h, newFakeConn())
	_, ok := <-client.send
	assert.False(t, ok, "send channel closed when hub is gone")
}

func TestHub_EvictsSlowSubscriber(t *testing.T) {
	h, _ := startHub(t, 2*sendBuffer)

	// Never run, so its backlog never drains.
	client := NewClient(h, newFakeConn())
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, time.Millisecond)

	for i := 0; i <= sendBuffer; i++ {
		require.NoError(t, h.Broadcast(NewMessage([]byte(`{}`))))
	}

	require.Eventually(t, func() bool { return h.Stats().Evicted == 1 }, time.Second, time.Millisecond)
	assert.Zero(t, h.ClientCount())
	assert.Equal(t, int64(sendBuffer), h.Stats().Sent)
	assert.NotEmpty(t, client.ID())
}
