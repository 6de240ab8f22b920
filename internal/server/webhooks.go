package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"sigma/internal/config"
	"sigma/internal/derive"
	"sigma/internal/engine"
)

const defaultWebhookTimeout = 5 * time.Second

// Store change kinds delivered to webhooks.
const (
	changeEvents  = "events.changed"
	changeActions = "actions.changed"
)

// webhookNotifier bridges the stores' subscription contract to outbound
// HTTP: on every notification it re-reads store state and posts a change
// summary. The subscription itself carries no payload.
type webhookNotifier struct {
	engine *engine.Engine
	hooks  []config.WebhookConfig
	client *http.Client
	seq    atomic.Int64
	wg     sync.WaitGroup
}

func startWebhookNotifier(e *engine.Engine) *webhookNotifier {
	if e.Config == nil || len(e.Config.Webhooks) == 0 {
		return nil
	}
	n := &webhookNotifier{
		engine: e,
		hooks:  e.Config.Webhooks,
		client: &http.Client{Timeout: defaultWebhookTimeout},
	}
	e.Events.Subscribe(func() { n.changed(changeEvents) })
	e.Actions.Subscribe(func() { n.changed(changeActions) })
	return n
}

type changeSummary struct {
	Seq         int64  `json:"seq"`
	Type        string `json:"type"`
	Project     string `json:"project"`
	TS          int64  `json:"ts"`
	Count       int    `json:"count"`
	LastEventAt int64  `json:"last_event_at,omitempty"`
}

// changed builds the summary synchronously (honoring the re-read contract)
// and delivers it in the background so store mutations never block on the
// network.
func (n *webhookNotifier) changed(kind string) {
	summary := changeSummary{
		Seq:     n.seq.Add(1),
		Type:    kind,
		Project: n.engine.Config.Project.ID,
		TS:      time.Now().UnixMilli(),
	}
	switch kind {
	case changeEvents:
		events := n.engine.Events.List(nil)
		summary.Count = len(events)
		if at, ok := derive.LastEventAt(events); ok {
			summary.LastEventAt = at
		}
	case changeActions:
		summary.Count = len(n.engine.Actions.List())
	}
	for _, hook := range n.hooks {
		if hook.Enabled != nil && !*hook.Enabled {
			continue
		}
		if strings.TrimSpace(hook.URL) == "" {
			continue
		}
		hook := hook
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			if err := n.post(context.Background(), hook, summary); err != nil {
				log.Printf("webhook: deliver to %s failed: %v", hook.URL, err)
			}
		}()
	}
}

func (n *webhookNotifier) post(ctx context.Context, hook config.WebhookConfig, summary changeSummary) error {
	if !matchHookEvents(hook.Events, summary.Type) {
		return nil
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	client := n.client
	if hook.TimeoutSeconds > 0 {
		client = &http.Client{Timeout: time.Duration(hook.TimeoutSeconds) * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Sigma-Event", summary.Type)
	req.Header.Set("X-Sigma-Delivery", fmt.Sprintf("%d", summary.Seq))
	if strings.TrimSpace(hook.Secret) != "" {
		req.Header.Set("X-Sigma-Secret", hook.Secret)
	}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("status %d", res.StatusCode)
	}
	return nil
}

func matchHookEvents(filter []string, kind string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		if strings.TrimSpace(f) == kind {
			return true
		}
	}
	return false
}
