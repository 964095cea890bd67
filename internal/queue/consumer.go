package queue

import (
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

const auditQueueName = "audit.events"

// StartAuditConsumer connects to RabbitMQ, declares the audit.events
// queue and appends every event to logs/audit.log as one line per action.
// It runs a reconnect loop with capped backoff and never returns under
// normal operation; malformed messages are rejected without requeue so a
// poison message cannot wedge the queue.
func StartAuditConsumer(url string, log *zap.Logger) {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(url)
        if err != nil {
            log.Warn("audit-consumer: dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
            time.Sleep(backoff)
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        if err := consumeAudit(conn); err != nil {
            log.Warn("audit-consumer: consume loop ended", zap.Error(err))
            _ = conn.Close()
            time.Sleep(2 * time.Second)
        }
    }
}

func consumeAudit(conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        return fmt.Errorf("set qos: %w", err)
    }
    if _, err := ch.QueueDeclare(auditQueueName, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(auditQueueName, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for d := range msgs {
        if err := appendAuditLine(d.Body); err != nil {
            _ = d.Nack(false, false)
            continue
        }
        _ = d.Ack(false)
    }
    return errors.New("deliveries channel closed")
}

func appendAuditLine(body []byte) error {
    var ev AuditEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if err := os.MkdirAll("logs", 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(filepath.Join("logs", "audit.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    tenant := "-"
    if ev.TenantID != nil {
        tenant = *ev.TenantID
    }
    line := fmt.Sprintf("[%s] %s | actor=%s | tenant=%s | %s=%s\n",
        ev.OccurredAt, ev.Action, ev.ActorID, tenant, ev.EntityType, ev.EntityID)
    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}
