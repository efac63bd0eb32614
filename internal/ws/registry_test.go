package ws

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu      sync.Mutex
	written []any
	failing bool
	closed  bool
}

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return errors.New("broken pipe")
	}
	c.written = append(c.written, v)
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.written)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// stalledConn blocks every write until release is closed, like a peer that
// stopped reading.
type stalledConn struct {
	release chan struct{}
	closed  chan struct{}
	once    sync.Once
}

func newStalledConn() *stalledConn {
	return &stalledConn{release: make(chan struct{}), closed: make(chan struct{})}
}

func (c *stalledConn) WriteJSON(any) error {
	<-c.release
	return errors.New("peer gone")
}

func (c *stalledConn) SetWriteDeadline(time.Time) error { return nil }

func (c *stalledConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

const waitFor = 2 * time.Second

func TestRegistryLastConnectionWins(t *testing.T) {
	reg := NewRegistry()
	first, second := &fakeConn{}, &fakeConn{}

	c1 := reg.Register(7, first)
	c2 := reg.Register(7, second)
	require.NotEqual(t, c1.ID, c2.ID)

	id, ok := reg.Lookup(7)
	require.True(t, ok)
	assert.Equal(t, c2.ID, id)

	assert.True(t, reg.Push(7, "hello"))
	require.Eventually(t, func() bool { return second.count() == 1 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, 0, first.count())
}

func TestRegistryStaleUnregisterKeepsNewer(t *testing.T) {
	reg := NewRegistry()
	old := reg.Register(7, &fakeConn{})
	current := reg.Register(7, &fakeConn{})

	assert.False(t, reg.Unregister(7, old.ID))
	id, ok := reg.Lookup(7)
	require.True(t, ok)
	assert.Equal(t, current.ID, id)

	assert.True(t, reg.Unregister(7, current.ID))
	_, ok = reg.Lookup(7)
	assert.False(t, ok)
	assert.False(t, reg.Unregister(7, current.ID))
}

func TestRegistryPushMissAndFailure(t *testing.T) {
	reg := NewRegistry()
	assert.False(t, reg.Push(42, "nobody home"))

	broken := &fakeConn{failing: true}
	reg.Register(42, broken)
	reg.Push(42, "lost")
	require.Eventually(t, broken.isClosed, waitFor, 5*time.Millisecond)
	assert.False(t, reg.Push(42, "after close"))
	assert.Zero(t, broken.count())
}

func TestRegistryPushDoesNotBlockOnStalledPeer(t *testing.T) {
	reg := NewRegistry()
	stalled := newStalledConn()
	defer close(stalled.release)
	reg.Register(9, stalled)

	start := time.Now()
	accepted := 0
	for i := 0; i < sendBuffer+2; i++ {
		if reg.Push(9, i) {
			accepted++
		}
	}
	assert.Less(t, time.Since(start), time.Second)
	assert.LessOrEqual(t, accepted, sendBuffer+1)

	select {
	case <-stalled.closed:
	case <-time.After(waitFor):
		t.Fatal("overflowing client was not dropped")
	}
	assert.False(t, reg.Push(9, "late"))
}

func TestRegistryOnlineAndBroadcast(t *testing.T) {
	reg := NewRegistry()
	a, b := &fakeConn{}, &fakeConn{}
	reg.Register(3, a)
	reg.Register(1, b)

	assert.Equal(t, []int64{1, 3}, reg.Online())

	reg.Broadcast("ping")
	require.Eventually(t, func() bool { return a.count() == 1 && b.count() == 1 }, waitFor, 5*time.Millisecond)

	reg.Close()
	assert.Empty(t, reg.Online())
	assert.True(t, a.isClosed())
	assert.True(t, b.isClosed())
}

func TestRegistryConcurrentAccess(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup
	for i := int64(1); i <= 50; i++ {
		wg.Add(1)
		go func(uid int64) {
			defer wg.Done()
			c := reg.Register(uid, &fakeConn{})
			reg.Push(uid, "x")
			reg.Lookup(uid)
			reg.Unregister(uid, c.ID)
		}(i)
	}
	wg.Wait()
	assert.Empty(t, reg.Online())
}
