package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// PostHogSink posts events to the PostHog capture endpoint.
type PostHogSink struct {
	apiKey string
	host   string
	client *http.Client
}

// NewPostHogSink creates a sink for host (for example https://app.posthog.com).
func NewPostHogSink(apiKey, host string) *PostHogSink {
	return &PostHogSink{
		apiKey: apiKey,
		host:   strings.TrimRight(host, "/"),
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

type posthogCaptureRequest struct {
	APIKey     string                 `json:"api_key"`
	Event      string                 `json:"event"`
	DistinctID string                 `json:"distinct_id"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	Timestamp  string                 `json:"timestamp"`
}

// Capture implements Sink.
func (s *PostHogSink) Capture(ctx context.Context, event Event) error {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	body, err := json.Marshal(posthogCaptureRequest{
		APIKey:     s.apiKey,
		Event:      event.Name,
		DistinctID: event.DistinctID,
		Properties: event.Properties,
		Timestamp:  ts.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.host+"/capture/", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("content-type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("posthog capture failed: status %d: %s", resp.StatusCode, string(data))
	}
	return nil
}
