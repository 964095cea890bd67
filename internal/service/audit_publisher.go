// Package service holds outbound integrations that sit behind the HTTP
// handlers, currently the audit event publisher.
package service

import (
    "context"
    "encoding/json"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"

    "github.com/dmarkova/taskhub/internal/queue"
)

const auditQueue = "audit.events"

// AuditPublisher ships AuditEvents to RabbitMQ. Publish failures are
// logged and swallowed so a broker outage never fails the request that
// produced the event.
type AuditPublisher struct {
    url string
    log *zap.Logger
}

// NewAuditPublisher returns a publisher for the given AMQP URL. An empty
// URL yields a publisher whose Publish is a no-op, so callers never need
// to nil-check.
func NewAuditPublisher(url string, log *zap.Logger) *AuditPublisher {
    return &AuditPublisher{url: url, log: log}
}

// Publish sends one audit event. It dials per call so a dropped broker
// connection cannot poison later publishes; the queue is declared durable
// and messages persistent, matching the at-least-once expectation of the
// audit consumers.
func (p *AuditPublisher) Publish(ctx context.Context, ev queue.AuditEvent) {
    if p.url == "" {
        return
    }
    if ev.OccurredAt == "" {
        ev.OccurredAt = time.Now().UTC().Format(time.RFC3339)
    }

    conn, err := amqp.Dial(p.url)
    if err != nil {
        p.log.Warn("audit: dial failed", zap.Error(err))
        return
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        p.log.Warn("audit: channel open failed", zap.Error(err))
        return
    }
    defer func() { _ = ch.Close() }()

    // Idempotent; durable so events survive broker restarts.
    if _, err := ch.QueueDeclare(auditQueue, true, false, false, false, nil); err != nil {
        p.log.Warn("audit: queue declare failed", zap.Error(err))
        return
    }

    body, err := json.Marshal(ev)
    if err != nil {
        p.log.Warn("audit: marshal failed", zap.Error(err))
        return
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", auditQueue, false, false, pub); err != nil {
        p.log.Warn("audit: publish failed", zap.String("action", ev.Action), zap.Error(err))
    }
}
