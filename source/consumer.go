package source

import (
	"sync"
	"time"

	"github.com/bugVanisher/srs-session/rtmp"
)

// consumerQueueLimit bounds how many undelivered messages a Consumer
// holds before it starts dropping the oldest; a client this far behind
// resyncs off the GOP cache when it reconnects.
const consumerQueueLimit = 2048

// Consumer is a per-play handle allocated from a Source. It has no
// knowledge of the session driver that owns it: waking is done by sending
// on newMsg or wake, or closing done, never via a callback into the driver.
type Consumer struct {
	src *Source

	mu       sync.Mutex
	queue    []*rtmp.Message
	newMsg   chan struct{}
	wake     chan struct{}
	closed   bool
	done     chan struct{}
	isPaused bool
}

func newConsumer(src *Source) *Consumer {
	return &Consumer{
		src:    src,
		newMsg: make(chan struct{}, 1),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (c *Consumer) enqueue(msg *rtmp.Message) {
	c.mu.Lock()
	if c.closed || c.isPaused {
		c.mu.Unlock()
		return
	}
	c.queue = append(c.queue, msg)
	if len(c.queue) > consumerQueueLimit {
		c.queue = c.queue[len(c.queue)-consumerQueueLimit:]
	}
	c.mu.Unlock()
	select {
	case c.newMsg <- struct{}{}:
	default:
	}
}

// Wait blocks until more than minMsgs are queued, Wakeup is called,
// timeout elapses, or the consumer is closed. minMsgs=0 means "return as soon as there is at
// least one message, or the timeout fires" (the realtime path, where
// merged-write batching is off).
func (c *Consumer) Wait(minMsgs int, timeout time.Duration) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		c.mu.Lock()
		n := len(c.queue)
		closed := c.closed
		c.mu.Unlock()
		if closed || n > minMsgs || (minMsgs == 0 && n > 0) {
			return
		}
		select {
		case <-c.newMsg:
			continue
		case <-c.wake:
			return
		case <-c.done:
			return
		case <-deadline.C:
			return
		}
	}
}

// DumpPackets drains up to max queued messages; max<=0 means unbounded.
// Send-min-interval pacing passes max=1 so each sleep covers one message.
func (c *Consumer) DumpPackets(max int) []*rtmp.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return nil
	}
	n := len(c.queue)
	if max > 0 && max < n {
		n = max
	}
	out := c.queue[:n]
	c.queue = c.queue[n:]
	return out
}

// OnPlayClientPause toggles whether new media is buffered for this
// consumer while the player is paused.
func (c *Consumer) OnPlayClientPause(pause bool) {
	c.mu.Lock()
	c.isPaused = pause
	c.mu.Unlock()
}

// Wakeup unblocks any in-progress Wait immediately. Safe from any
// goroutine.
func (c *Consumer) Wakeup() {
	c.mu.Lock()
	if !c.closed {
		select {
		case c.wake <- struct{}{}:
		default:
		}
	}
	c.mu.Unlock()
}

// Close detaches the consumer from its Source and unblocks any waiter. It
// is the sole path by which a Consumer's lifetime ends; the driver must
// call it exactly once when the play loop exits.
func (c *Consumer) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()
	c.src.removeConsumer(c)
}
