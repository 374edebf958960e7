package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const webhookQueueCapacity = 256

// WebhookNotifier POSTs every event as JSON to a configured endpoint. Events
// are queued and sent by a single worker so Notify never blocks.
type WebhookNotifier struct {
	url    *url.URL
	client http.Client

	mu     sync.Mutex
	closed bool
	queue  chan Event
	done   chan struct{}
}

func NewWebhookNotifier(rawurl string, timeout time.Duration) (*WebhookNotifier, error) {
	u, err := url.ParseRequestURI(rawurl)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url: %w", err)
	}

	n := &WebhookNotifier{
		url:    u,
		client: http.Client{Timeout: timeout},
		queue:  make(chan Event, webhookQueueCapacity),
		done:   make(chan struct{}),
	}

	go n.run()

	return n, nil
}

func (n *WebhookNotifier) Notify(e Event) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}

	select {
	case n.queue <- e:
	default:
		log.
			WithFields(log.Fields{"kind": e.Kind, "hash": e.Hash}).
			Warn("Webhook queue full, dropping event")
	}
}

// Close stops accepting events and waits for the queued ones to be sent.
func (n *WebhookNotifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	close(n.queue)
	n.mu.Unlock()

	<-n.done
	n.client.CloseIdleConnections()
}

func (n *WebhookNotifier) run() {
	defer close(n.done)
	for e := range n.queue {
		if err := n.send(context.Background(), e); err != nil {
			log.
				WithFields(log.Fields{"kind": e.Kind, "error": err}).
				Warn("Failed to deliver event webhook")
		}
	}
}

func (n *WebhookNotifier) send(ctx context.Context, e Event) error {
	content, err := json.Marshal(e)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url.String(), bytes.NewBuffer(content))
	if err != nil {
		return fmt.Errorf("error while creating webhook request: %w", err)
	}

	req.Header.Add("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("error while sending webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook endpoint responded with an unexpected status code: %d", resp.StatusCode)
	}

	return nil
}
