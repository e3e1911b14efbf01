// Package queue contains the background consumer that listens to the
// event_lock.audit queue and appends one line per lock event to an audit
// log file.
package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "log"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// StartAuditConsumer connects to RabbitMQ, declares the audit queue
// (durable) and consumes messages into logPath.  It runs a reconnect
// loop with exponential backoff and only returns once ctx is cancelled.
// Malformed messages are logged and rejected without requeue so the
// loop keeps running.
func StartAuditConsumer(ctx context.Context, url, logPath string) error {
    backoff := time.Second
    for {
        if err := ctx.Err(); err != nil {
            return err
        }
        conn, err := dial(url, dialTimeout)
        if err != nil {
            log.Printf("audit-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
            if !sleepCtx(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = consumeLoop(ctx, conn, logPath)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Printf("audit-consumer: consume loop ended: %v; reconnecting", err)
        if !sleepCtx(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, logPath string) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Printf("audit-consumer: set QoS failed: %v", err)
    }
    if _, err := ch.QueueDeclare(AuditQueueName, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(AuditQueueName, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := HandleAuditMessage(f, d.Body); err != nil {
                log.Printf("audit-consumer: handle message failed: %v", err)
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// HandleAuditMessage decodes one message and writes its audit line to w.
func HandleAuditMessage(w io.Writer, body []byte) error {
    var ev LockAuditEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Type == "" {
        return errors.New("missing event type")
    }
    if _, err := io.WriteString(w, FormatAuditLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatAuditLine renders ev as a single human-friendly log line.
func FormatAuditLine(ev LockAuditEvent) string {
    line := fmt.Sprintf("[%s] %s | lock_id=%s | token=%s… | event_id=%d",
        ev.At, ev.Type, ev.LockID, ev.TokenPrefix, ev.EventID)
    if ev.AdminID != 0 {
        line += fmt.Sprintf(" | admin_id=%d", ev.AdminID)
    }
    if ev.Type == LockVerified || ev.Type == LockGenerated {
        limit := "unlimited"
        if ev.MaxUsage != nil {
            limit = fmt.Sprint(*ev.MaxUsage)
        }
        line += fmt.Sprintf(" | usage=%d/%s", ev.UsageCount, limit)
    }
    if ev.Reason != "" {
        line += fmt.Sprintf(" | reason=%s", ev.Reason)
    }
    return line + "\n"
}
