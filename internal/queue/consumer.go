package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const activityLogName = "activity.log"

// StartActivityConsumer connects to the broker, consumes both activity
// queues and appends one line per event to <logDir>/activity.log. It
// reconnects with exponential backoff until ctx is cancelled. Messages that
// cannot be decoded or written are rejected without requeue so a poison
// message cannot spin the loop.
func StartActivityConsumer(ctx context.Context, url, logDir string) {
	backoff := time.Second
	for ctx.Err() == nil {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("activity-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleepCtx(ctx, backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, logDir)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		log.Printf("activity-consumer: consume loop ended: %v; reconnecting", err)
		if !sleepCtx(ctx, 2*time.Second) {
			return
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, logDir string) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("activity-consumer: set QoS failed: %v", err)
	}

	lessons, err := declareAndConsume(ch, LessonScheduledQueue)
	if err != nil {
		return err
	}
	messages, err := declareAndConsume(ch, MessageSentQueue)
	if err != nil {
		return err
	}

	for {
		var (
			d  amqp.Delivery
			ok bool
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok = <-lessons:
		case d, ok = <-messages:
		}
		if !ok {
			return errors.New("deliveries channel closed")
		}
		if err := handleDelivery(logDir, d.RoutingKey, d.Body, time.Now().UTC()); err != nil {
			log.Printf("activity-consumer: handle message failed: %v", err)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
}

func declareAndConsume(ch *amqp.Channel, name string) (<-chan amqp.Delivery, error) {
	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("queue declare %s: %w", name, err)
	}
	msgs, err := ch.Consume(name, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("queue consume %s: %w", name, err)
	}
	return msgs, nil
}

func handleDelivery(logDir, queueName string, body []byte, at time.Time) error {
	line, err := formatActivity(queueName, body, at)
	if err != nil {
		return err
	}
	return appendActivity(logDir, line)
}

// formatActivity renders one event as a single human-readable log line.
func formatActivity(queueName string, body []byte, at time.Time) (string, error) {
	stamp := at.Format(time.RFC3339)
	switch queueName {
	case LessonScheduledQueue:
		var ev LessonScheduledEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Lesson scheduled | lesson_id=%s | tutor_id=%s | student_id=%s | subject=%q | start=%s | end=%s | by=%s\n",
			stamp, ev.LessonID, ev.TutorID, ev.StudentID, ev.Subject, ev.StartTime, ev.EndTime, ev.ScheduledBy), nil
	case MessageSentQueue:
		var ev MessageSentEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal: %w", err)
		}
		return fmt.Sprintf("[%s] Message sent | message_id=%s | sender_id=%s | recipient_id=%s | length=%d | sent_at=%s\n",
			stamp, ev.MessageID, ev.SenderID, ev.RecipientID, ev.Length, ev.SentAt), nil
	}
	return "", fmt.Errorf("unknown queue %q", queueName)
}

func appendActivity(logDir, line string) error {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(logDir, activityLogName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
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
