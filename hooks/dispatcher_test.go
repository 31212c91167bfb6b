package hooks

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCheckAllowsWhenEveryHookReturns2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(context.Background())
	ok, err := d.Check([]string{srv.URL, srv.URL}, Payload{Action: "on_connect"})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCheckDeniesOnFirstNon2xx(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	d := NewDispatcher(context.Background())
	ok, err := d.Check([]string{srv.URL, srv.URL}, Payload{Action: "on_publish"})
	require.Error(t, err)
	require.False(t, ok)
	// The second URL in the list must not be contacted once the first denies.
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCheckPostsJSONPayload(t *testing.T) {
	received := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(context.Background())
	_, err := d.Check([]string{srv.URL}, Payload{Action: "on_play", Vhost: "live", Stream: "x"})
	require.NoError(t, err)

	select {
	case body := <-received:
		require.Contains(t, body, `"action":"on_play"`)
		require.Contains(t, body, `"vhost":"live"`)
	case <-time.After(time.Second):
		t.Fatal("hook was never delivered")
	}
}

func TestFireDoesNotBlockCallerAndDeliversAsync(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wg.Done()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(context.Background())
	start := time.Now()
	d.Fire([]string{srv.URL}, Payload{Action: "on_close"})
	require.Less(t, time.Since(start), 500*time.Millisecond)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("fired hook was never delivered")
	}
}
