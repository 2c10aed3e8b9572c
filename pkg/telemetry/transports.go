package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPTransport posts event batches to the ingestion endpoint as JSON.
type HTTPTransport struct {
	ingestURL string
	client    *http.Client
}

func NewHTTPTransport(ingestURL string) *HTTPTransport {
	return &HTTPTransport{
		ingestURL: ingestURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (t *HTTPTransport) Send(ctx context.Context, events []Event) error {
	body, err := json.Marshal(map[string]interface{}{
		"events": events,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal telemetry batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.ingestURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build ingest request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post telemetry batch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("telemetry ingest returned status %d", resp.StatusCode)
	}

	return nil
}

func (t *HTTPTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}
