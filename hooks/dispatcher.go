// Package hooks implements the HTTP webhook dispatcher:
// on_connect/on_close/on_publish/on_unpublish/on_play/on_stop, each a
// configurable per-vhost URL list that is copied before iteration.
// Notifications run through a queue and worker pool; the connect/publish/
// play checks are synchronous because the remote can deny the session.
package hooks

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
)

const (
	eventQueueLen = 10000
	workerCount   = 20
)

// Payload is the JSON body posted to every hook URL.
type Payload struct {
	Action   string `json:"action"`
	IP       string `json:"ip"`
	Vhost    string `json:"vhost"`
	App      string `json:"app"`
	Stream   string `json:"stream"`
	Param    string `json:"param"`
	Duration  int64  `json:"duration,omitempty"`
	SendBytes int64  `json:"send_bytes,omitempty"`
	RecvBytes int64  `json:"recv_bytes,omitempty"`
}

type job struct {
	url     string
	payload Payload
}

// Dispatcher fires webhooks. Fire is used for notifications whose failure
// is logged and swallowed, so teardown hooks never shadow the primary
// error (on_close, on_unpublish, on_stop); Check is used for the hooks
// that may reject a connection (on_connect, on_publish, on_play).
type Dispatcher struct {
	client *http.Client
	queue  chan job
}

func NewDispatcher(ctx context.Context) *Dispatcher {
	d := &Dispatcher{
		client: newHTTPClient(),
		queue:  make(chan job, eventQueueLen),
	}
	for i := 0; i < workerCount; i++ {
		go d.worker(ctx)
	}
	return d
}

func (d *Dispatcher) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-d.queue:
			if !ok {
				return
			}
			if err := d.post(j.url, j.payload); err != nil {
				log.Error().Err(err).Str("url", j.url).Str("action", j.payload.Action).Msg("webhook delivery failed")
			}
		}
	}
}

// Fire copies urls before enqueuing (the caller's slice may be mutated by a
// concurrent reload) and never blocks the caller.
func (d *Dispatcher) Fire(urls []string, payload Payload) {
	copied := append([]string{}, urls...)
	for _, u := range copied {
		select {
		case d.queue <- job{url: u, payload: payload}:
		default:
			log.Warn().Str("url", u).Msg("webhook queue full, dropping event")
		}
	}
}

// Check calls every URL in order and denies (returns false) on the first
// non-2xx response. An empty list always allows.
func (d *Dispatcher) Check(urls []string, payload Payload) (bool, error) {
	copied := append([]string{}, urls...)
	for _, u := range copied {
		if err := d.post(u, payload); err != nil {
			return false, fmt.Errorf("hook %s denied: %w", u, err)
		}
	}
	return true, nil
}

func (d *Dispatcher) post(url string, payload Payload) error {
	data, err := jsoniter.Marshal(payload)
	if err != nil {
		return err
	}
	resp, err := d.client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   3 * time.Second,
				KeepAlive: 3 * time.Second,
			}).DialContext,
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   10,
			MaxConnsPerHost:       10,
			IdleConnTimeout:       90 * time.Second,
			ExpectContinueTimeout: 1000 * time.Millisecond,
		},
		Timeout: 1000 * time.Millisecond,
	}
}
