package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/cardarena/arena/src/domain/analytics"
)

// SegmentDispatcher implements EventDispatcher for Segment.io.
type SegmentDispatcher struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NewSegmentDispatcher creates a new Segment dispatcher.
func NewSegmentDispatcher(apiKey, baseURL string, logger *zap.Logger) *SegmentDispatcher {
	if baseURL == "" {
		baseURL = "https://api.segment.io/v1/batch"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SegmentDispatcher{
		APIKey:  apiKey,
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		Logger: logger,
	}
}

// WithHTTPClient sets a custom HTTP client.
func (d *SegmentDispatcher) WithHTTPClient(client *http.Client) *SegmentDispatcher {
	d.HTTPClient = client
	return d
}

// segmentEvent represents the Segment API event format.
type segmentEvent struct {
	Type       string         `json:"type"`
	UserID     string         `json:"userId"`
	Event      string         `json:"event,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	Context    map[string]any `json:"context"`
	Timestamp  string         `json:"timestamp"`
}

type segmentBatch struct {
	Batch []segmentEvent `json:"batch"`
}

// Dispatch sends events to Segment in a single batch.
func (d *SegmentDispatcher) Dispatch(ctx context.Context, events []*analytics.Event) error {
	if len(events) == 0 {
		return nil
	}

	segmentEvents := make([]segmentEvent, 0, len(events))
	for _, event := range events {
		if err := event.Validate(); err != nil {
			return err
		}

		evCtx := map[string]any{
			"direct": event.Context.Direct,
			"library": map[string]string{
				"name":    event.Context.Library.Name,
				"version": event.Context.Library.Version,
			},
		}
		if event.App != nil {
			evCtx["app"] = map[string]string{
				"name":    event.App.Name,
				"version": event.App.Version,
			}
		}

		se := segmentEvent{
			Type:       string(event.Type),
			UserID:     string(event.UserID),
			Properties: event.Properties,
			Context:    evCtx,
			Timestamp:  event.Timestamp.UTC().Format(time.RFC3339Nano),
		}
		if event.Type == analytics.EventTypeTrack {
			se.Event = string(event.Name)
		}
		segmentEvents = append(segmentEvents, se)
	}

	body, err := json.Marshal(segmentBatch{Batch: segmentEvents})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.BaseURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(d.APIKey, "")

	resp, err := d.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		d.Logger.Warn("segment rejected batch",
			zap.Int("status", resp.StatusCode),
			zap.Int("events", len(segmentEvents)),
		)
		return fmt.Errorf("%w: segment responded %d", analytics.ErrDispatchFailed, resp.StatusCode)
	}
	return nil
}
