// Package notify publishes monitoring events to RabbitMQ so downstream
// consumers (notification dispatchers, audit sinks) can react to incidents
// and alert triggers without polling the store.
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"

	"studio-monitoring/pkg/models"
)

const (
	exchangeName           = "studio.monitoring"
	routingIncidentCreated = "monitoring.incident.created"
	routingAlertTriggered  = "monitoring.alert.triggered"
)

// Notifier publishes incident and alert events to a topic exchange.
type Notifier struct {
	connection *amqp.Connection
	channel    *amqp.Channel
}

func NewNotifier(amqpURL string) (*Notifier, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchangeName,
		"topic", // routed by event type
		true,    // durable
		false,   // auto-deleted
		false,   // internal
		false,   // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Notifier{
		connection: conn,
		channel:    ch,
	}, nil
}

// IncidentCreated announces a newly opened incident.
func (n *Notifier) IncidentCreated(incident *models.Incident) error {
	return n.publish(routingIncidentCreated, incident, amqp.Table{
		"tenant_id": incident.TenantID,
		"severity":  incident.Severity,
	})
}

// AlertTriggered announces an alert entering the triggered state.
func (n *Notifier) AlertTriggered(alert *models.Alert) error {
	return n.publish(routingAlertTriggered, alert, amqp.Table{
		"tenant_id": alert.TenantID,
		"severity":  alert.Severity,
	})
}

func (n *Notifier) publish(routingKey string, payload interface{}, headers amqp.Table) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = n.channel.Publish(
		exchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
			DeliveryMode: amqp.Persistent,
			Headers:      headers,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}
	return nil
}

// Healthy reports whether the connection is still usable.
func (n *Notifier) Healthy() bool {
	return n.connection != nil && !n.connection.IsClosed()
}

func (n *Notifier) Close() error {
	if n.channel != nil {
		n.channel.Close()
	}
	if n.connection != nil {
		return n.connection.Close()
	}
	return nil
}
