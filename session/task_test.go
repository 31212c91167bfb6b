package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestControlTaskDrainReturnsQueuedItemsInOrder(t *testing.T) {
	task := newControlTask()
	task.push("a")
	task.push("b")

	require.Equal(t, []interface{}{"a", "b"}, task.drain())
	require.Empty(t, task.drain())
}

func TestControlTaskSetErrKeepsFirstError(t *testing.T) {
	task := newControlTask()
	first := errors.New("first")
	second := errors.New("second")

	task.setErr(first)
	task.setErr(second)
	require.Equal(t, first, task.err())
}

func TestPublishTaskWaitReturnsOnIncrement(t *testing.T) {
	task := newPublishTask()
	go func() {
		time.Sleep(20 * time.Millisecond)
		task.incr()
	}()

	start := time.Now()
	task.wait(2 * time.Second)
	require.Less(t, time.Since(start), time.Second)
	require.Equal(t, int64(1), task.nbMsgsVal())
}

func TestPublishTaskWaitTimesOutWithNoProgress(t *testing.T) {
	task := newPublishTask()
	start := time.Now()
	task.wait(30 * time.Millisecond)
	require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
	require.Equal(t, int64(0), task.nbMsgsVal())
}

func TestPublishTaskWaitReturnsImmediatelyOnError(t *testing.T) {
	task := newPublishTask()
	task.setErr(errors.New("boom"))

	start := time.Now()
	task.wait(2 * time.Second)
	require.Less(t, time.Since(start), time.Second)
	require.Error(t, task.err())
}
