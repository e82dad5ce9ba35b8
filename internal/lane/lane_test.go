package lane

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSameKeyRunsInOrder(t *testing.T) {
	g := NewGroup()

	var mu sync.Mutex
	var order []int
	for i := 0; i < 50; i++ {
		i := i
		require.True(t, g.Submit("channel", func() {
			if i%7 == 0 {
				time.Sleep(time.Millisecond)
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}))
	}
	g.Close()

	require.Len(t, order, 50)
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestDifferentKeysRunConcurrently(t *testing.T) {
	g := NewGroup()
	defer g.Close()

	release := make(chan struct{})
	done := make(chan struct{})

	g.Submit("a", func() {
		<-release
	})
	g.Submit("b", func() {
		close(done)
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lane b was blocked by lane a")
	}
	assert.Equal(t, 1, g.Pending("a"))
	close(release)
}

func TestSubmitAfterClose(t *testing.T) {
	g := NewGroup()
	g.Close()

	assert.False(t, g.Submit("a", func() {}))
}

func TestPanicDoesNotStallLane(t *testing.T) {
	g := NewGroup()

	var recovered any
	g.OnPanic = func(key string, v any) {
		recovered = v
	}

	ran := false
	g.Submit("a", func() { panic("boom") })
	g.Submit("a", func() { ran = true })
	g.Close()

	assert.Equal(t, "boom", recovered)
	assert.True(t, ran)
	assert.Equal(t, 0, g.Pending("a"))
}
