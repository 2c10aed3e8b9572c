// Package telemetry is the client SDK for the platform's error and event
// ingestion service. Captured exceptions and messages are buffered in-process
// and shipped in batches by a background sender; a full buffer drops events
// rather than blocking the caller.
package telemetry

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Severity represents telemetry event severity levels
type Severity string

const (
	SeverityDebug   Severity = "debug"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityFatal   Severity = "fatal"
)

// EventKind distinguishes captured exceptions from plain messages.
type EventKind string

const (
	KindException EventKind = "exception"
	KindMessage   EventKind = "message"
)

// User identifies the acting user attached to subsequent events.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
}

// Breadcrumb is a trail entry attached to captured events.
type Breadcrumb struct {
	Message   string                 `json:"message"`
	Category  string                 `json:"category"`
	Level     Severity               `json:"level"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Event is one captured telemetry event.
type Event struct {
	ID            string                 `json:"id"`
	Kind          EventKind              `json:"kind"`
	Severity      Severity               `json:"severity"`
	Message       string                 `json:"message"`
	Context       map[string]interface{} `json:"context,omitempty"`
	User          *User                  `json:"user,omitempty"`
	Breadcrumbs   []Breadcrumb           `json:"breadcrumbs,omitempty"`
	SourceService string                 `json:"source_service"`
	SourceHost    string                 `json:"source_host,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
}

// Transport delivers event batches to a backend.
type Transport interface {
	Send(ctx context.Context, events []Event) error
	Close() error
}

// Sink is the capability set consumed by monitoring components. The full
// Client adds user identity and breadcrumb management on top.
type Sink interface {
	CaptureException(err error, context map[string]interface{})
	CaptureMessage(message string, level Severity, context map[string]interface{})
}

const maxBreadcrumbs = 100

// Client buffers telemetry events and ships them via its transports.
type Client struct {
	serviceName string
	hostname    string
	transports  []Transport
	buffer      chan Event

	mu          sync.Mutex
	user        *User
	breadcrumbs []Breadcrumb

	done chan struct{}
}

// NewClient creates a telemetry client and starts its background sender.
func NewClient(serviceName string, transports ...Transport) *Client {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	c := &Client{
		serviceName: serviceName,
		hostname:    hostname,
		transports:  transports,
		buffer:      make(chan Event, 1000),
		done:        make(chan struct{}),
	}

	go c.backgroundSender()

	return c
}

// CaptureException records an error-level event for err.
func (c *Client) CaptureException(err error, context map[string]interface{}) {
	if err == nil {
		return
	}
	c.enqueue(KindException, SeverityError, err.Error(), context)
}

// CaptureMessage records a message event at the given severity.
func (c *Client) CaptureMessage(message string, level Severity, context map[string]interface{}) {
	c.enqueue(KindMessage, level, message, context)
}

// SetUser attaches a user identity to subsequent events. A nil user clears it.
func (c *Client) SetUser(user *User) {
	c.mu.Lock()
	c.user = user
	c.mu.Unlock()
}

// AddBreadcrumb appends a trail entry attached to subsequent events. The
// trail is capped; the oldest entries are discarded first.
func (c *Client) AddBreadcrumb(message, category string, level Severity, data map[string]interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.breadcrumbs = append(c.breadcrumbs, Breadcrumb{
		Message:   message,
		Category:  category,
		Level:     level,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
	if len(c.breadcrumbs) > maxBreadcrumbs {
		c.breadcrumbs = c.breadcrumbs[len(c.breadcrumbs)-maxBreadcrumbs:]
	}
}

func (c *Client) enqueue(kind EventKind, level Severity, message string, context map[string]interface{}) {
	c.mu.Lock()
	user := c.user
	trail := make([]Breadcrumb, len(c.breadcrumbs))
	copy(trail, c.breadcrumbs)
	c.mu.Unlock()

	event := Event{
		ID:            generateID(),
		Kind:          kind,
		Severity:      level,
		Message:       message,
		Context:       context,
		User:          user,
		Breadcrumbs:   trail,
		SourceService: c.serviceName,
		SourceHost:    c.hostname,
		Timestamp:     time.Now().UTC(),
	}

	select {
	case c.buffer <- event:
	default:
		fmt.Fprintf(os.Stderr, "telemetry buffer full, dropping %s event\n", kind)
	}
}

// backgroundSender drains the buffer and ships batches on a short cadence.
func (c *Client) backgroundSender() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	batch := make([]Event, 0, 100)

	for {
		select {
		case event, ok := <-c.buffer:
			if !ok {
				if len(batch) > 0 {
					c.sendBatch(batch)
				}
				close(c.done)
				return
			}
			batch = append(batch, event)

			if len(batch) >= 100 {
				c.sendBatch(batch)
				batch = make([]Event, 0, 100)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				c.sendBatch(batch)
				batch = make([]Event, 0, 100)
			}
		}
	}
}

func (c *Client) sendBatch(batch []Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, transport := range c.transports {
		if err := transport.Send(ctx, batch); err != nil {
			fmt.Fprintf(os.Stderr, "failed to send telemetry via %T: %v\n", transport, err)
		}
	}
}

// Close flushes buffered events and shuts down the transports.
func (c *Client) Close() error {
	close(c.buffer)
	<-c.done

	for _, transport := range c.transports {
		if err := transport.Close(); err != nil {
			return err
		}
	}

	return nil
}

func generateID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return fmt.Sprintf("%d-%d", time.Now().UnixNano(), os.Getpid())
	}
	return id.String()
}
