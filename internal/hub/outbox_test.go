package hub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, o *outbox) []string {
	t.Helper()
	var got []string
	for o.len() > 0 {
		msg, ok := o.pop()
		require.True(t, ok)
		got = append(got, string(msg))
	}
	return got
}

func TestOutboxCoalescesKeyedMessagesInPlace(t *testing.T) {
	o := newOutbox(8)
	assert.Equal(t, pushQueued, o.push("ticker|BTC", []byte("btc-1")))
	assert.Equal(t, pushQueued, o.push("", []byte("alert-1")))
	assert.Equal(t, pushQueued, o.push("ticker|ETH", []byte("eth-1")))
	assert.Equal(t, pushCoalesced, o.push("ticker|BTC", []byte("btc-2")))
	assert.Equal(t, pushQueued, o.push("", []byte("alert-2")))

	assert.Equal(t, []string{"btc-2", "alert-1", "eth-1", "alert-2"}, drain(t, o))

	assert.Equal(t, pushQueued, o.push("ticker|BTC", []byte("btc-3")))
	assert.Equal(t, []string{"btc-3"}, drain(t, o))
}

func TestOutboxEvictsOldestWhenFull(t *testing.T) {
	o := newOutbox(2)
	assert.Equal(t, pushQueued, o.push("movers|", []byte("a")))
	assert.Equal(t, pushQueued, o.push("", []byte("b")))
	assert.Equal(t, pushEvicted, o.push("", []byte("c")))
	assert.Equal(t, 2, o.len())

	// the evicted key is gone, so the next push queues instead of replacing
	assert.Equal(t, pushEvicted, o.push("movers|", []byte("d")))
	assert.Equal(t, pushCoalesced, o.push("movers|", []byte("e")))
	assert.Equal(t, []string{"c", "e"}, drain(t, o))
}

func TestOutboxCloseUnblocksPop(t *testing.T) {
	o := newOutbox(4)
	done := make(chan bool, 1)
	go func() {
		_, ok := o.pop()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	o.close()
	o.close()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("pop did not return after close")
	}
	assert.Equal(t, pushClosed, o.push("", []byte("late")))
}
