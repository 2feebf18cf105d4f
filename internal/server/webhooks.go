package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"gmao/internal/config"
	"gmao/internal/domain"
	"gmao/internal/events"
	"gmao/internal/logger"
)

const (
	defaultWebhookInterval = 2 * time.Second
	defaultWebhookTimeout  = 5 * time.Second
	defaultWebhookBatch    = 100
)

type webhookDispatcher struct {
	events   events.Reader
	workshop string
	webhooks []config.WebhookConfig
	client   *http.Client
	log      *logger.Logger
	mu       sync.Mutex
	cursors  map[int]int64
}

// StartWebhookDispatcher polls the audit log and posts new events to the
// configured webhooks until ctx is done. It does nothing without webhooks
// or without an audit log.
func StartWebhookDispatcher(ctx context.Context, cfg *config.Config, r events.Reader, log *logger.Logger) {
	d := newWebhookDispatcher(cfg, r, log)
	if d == nil {
		return
	}
	go d.run(ctx)
}

func newWebhookDispatcher(cfg *config.Config, r events.Reader, log *logger.Logger) *webhookDispatcher {
	if cfg == nil || len(cfg.Webhooks) == 0 || r.DB == nil {
		return nil
	}
	if log == nil {
		log = logger.Nop()
	}
	return &webhookDispatcher{
		events:   r,
		workshop: cfg.Workshop.ID,
		webhooks: cfg.Webhooks,
		client:   &http.Client{},
		log:      log.With("component", "webhooks"),
		cursors:  make(map[int]int64),
	}
}

func (d *webhookDispatcher) run(ctx context.Context) {
	ticker := time.NewTicker(defaultWebhookInterval)
	defer ticker.Stop()
	for {
		d.dispatchAll(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (d *webhookDispatcher) dispatchAll(ctx context.Context) {
	for i, hook := range d.webhooks {
		if hook.Enabled != nil && !*hook.Enabled {
			continue
		}
		if strings.TrimSpace(hook.URL) == "" {
			continue
		}
		d.dispatchWebhook(ctx, i, hook)
	}
}

func (d *webhookDispatcher) dispatchWebhook(ctx context.Context, idx int, hook config.WebhookConfig) {
	cursor := d.cursorFor(ctx, idx)
	evts, err := d.events.After(ctx, cursor, defaultWebhookBatch)
	if err != nil {
		d.log.Warn("fetch events failed", "error", err)
		return
	}
	sub := subscriptionFor(hook)
	for _, evt := range evts {
		if !sub.wants(evt.Type) {
			d.setCursor(idx, evt.ID)
			continue
		}
		if err := d.deliver(ctx, hook, evt); err != nil {
			d.log.Warn("delivery failed", "url", hook.URL, "event", evt.ID, "error", err)
			return
		}
		d.setCursor(idx, evt.ID)
	}
}

// cursorFor starts each webhook at the newest event, so only events
// appended after startup are delivered.
func (d *webhookDispatcher) cursorFor(ctx context.Context, idx int) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cur, ok := d.cursors[idx]; ok {
		return cur
	}
	cur, err := d.events.LatestID(ctx)
	if err != nil {
		d.log.Warn("init cursor failed", "error", err)
		cur = 0
	}
	d.cursors[idx] = cur
	return cur
}

func (d *webhookDispatcher) setCursor(idx int, value int64) {
	d.mu.Lock()
	d.cursors[idx] = value
	d.mu.Unlock()
}

// webhookEvent is the JSON body posted to receivers.
type webhookEvent struct {
	ID         int64           `json:"id"`
	Type       string          `json:"type"`
	Workshop   string          `json:"workshop"`
	EntityKind string          `json:"entity_kind"`
	EntityID   string          `json:"entity_id,omitempty"`
	TS         string          `json:"ts"`
	Payload    json.RawMessage `json:"payload"`
}

func (d *webhookDispatcher) envelope(evt domain.Event) webhookEvent {
	out := webhookEvent{
		ID:         evt.ID,
		Type:       evt.Type,
		Workshop:   d.workshop,
		EntityKind: evt.EntityKind,
		EntityID:   evt.EntityID,
		TS:         evt.TS,
		Payload:    json.RawMessage("{}"),
	}
	if raw := []byte(evt.Payload); len(raw) > 0 && json.Valid(raw) {
		out.Payload = raw
	}
	return out
}

// deliver posts one event to hook. Anything but a 2xx answer is an error
// and leaves the cursor where it was.
func (d *webhookDispatcher) deliver(ctx context.Context, hook config.WebhookConfig, evt domain.Event) error {
	body, err := json.Marshal(d.envelope(evt))
	if err != nil {
		return fmt.Errorf("encode event %d: %w", evt.ID, err)
	}
	timeout := defaultWebhookTimeout
	if hook.TimeoutSeconds > 0 {
		timeout = time.Duration(hook.TimeoutSeconds) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	h := req.Header
	h.Set("Content-Type", "application/json")
	h.Set("X-Gmao-Event", evt.Type)
	h.Set("X-Gmao-Delivery", strconv.FormatInt(evt.ID, 10))
	h.Set("X-Gmao-Workshop", d.workshop)
	if secret := strings.TrimSpace(hook.Secret); secret != "" {
		h.Set("X-Gmao-Secret", secret)
	}
	res, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode/100 == 2 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return fmt.Errorf("receiver answered %s: %s", res.Status, bytes.TrimSpace(msg))
}

// subscription lists the event types a webhook receives. An entry is an
// exact type, "*", or a family such as "mission.*". No entries means
// every event.
type subscription []string

func subscriptionFor(hook config.WebhookConfig) subscription {
	var sub subscription
	for _, t := range hook.Events {
		if t = strings.TrimSpace(t); t != "" {
			sub = append(sub, t)
		}
	}
	return sub
}

func (s subscription) wants(eventType string) bool {
	if len(s) == 0 {
		return true
	}
	for _, t := range s {
		if t == "*" || t == eventType {
			return true
		}
		if family, ok := strings.CutSuffix(t, ".*"); ok && strings.HasPrefix(eventType, family+".") {
			return true
		}
	}
	return false
}
