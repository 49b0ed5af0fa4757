package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	defaultDialTimeout = 2 * time.Second
	defaultRetryAfter  = 10 * time.Second
)

// ErrBrokerUnavailable is returned without dialing while the publisher is
// backing off after a failed connection attempt.
var ErrBrokerUnavailable = errors.New("rabbitmq: broker unavailable")

// Publisher sends activity events to RabbitMQ over one lazily opened
// connection. A failed publish drops the connection so a later call
// redials. Dialing is bounded by a timeout, happens outside the lock and,
// after a failure, is not retried until the back-off window has passed.
// Publisher is safe for concurrent use.
type Publisher struct {
	url         string
	dialTimeout time.Duration
	retryAfter  time.Duration
	now         func() time.Time

	mu        sync.Mutex
	conn      *amqp.Connection
	ch        *amqp.Channel
	downUntil time.Time
}

func NewPublisher(url string) *Publisher {
	return &Publisher{
		url:         url,
		dialTimeout: defaultDialTimeout,
		retryAfter:  defaultRetryAfter,
		now:         time.Now,
	}
}

// WithDialTimeout bounds connection setup, handshake included.
func (p *Publisher) WithDialTimeout(d time.Duration) *Publisher {
	p.dialTimeout = d
	return p
}

// WithRetryAfter sets how long the publisher refuses to redial after a
// failed connection attempt.
func (p *Publisher) WithRetryAfter(d time.Duration) *Publisher {
	p.retryAfter = d
	return p
}

func (p *Publisher) PublishLessonScheduled(ctx context.Context, ev LessonScheduledEvent) error {
	return p.publish(ctx, LessonScheduledQueue, ev)
}

func (p *Publisher) PublishMessageSent(ctx context.Context, ev MessageSentEvent) error {
	return p.publish(ctx, MessageSentQueue, ev)
}

// Close releases the broker connection, if any.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resetLocked()
}

func (p *Publisher) publish(ctx context.Context, queueName string, event interface{}) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", queueName, err)
	}

	ch, err := p.channel()
	if err != nil {
		if !errors.Is(err, ErrBrokerUnavailable) {
			log.Printf("rabbitmq: connect failed: %v", err)
		}
		return err
	}
	// Declaring is idempotent; durable so events survive broker restarts.
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		p.drop(ch)
		log.Printf("rabbitmq: queue declare %s failed: %v", queueName, err)
		return err
	}
	err = ch.PublishWithContext(ctx, "", queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.drop(ch)
		log.Printf("rabbitmq: publish %s failed: %v", queueName, err)
		return err
	}
	return nil
}

// channel returns the shared channel, dialing a new connection when there
// is none. The lock is never held across the dial.
func (p *Publisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	if p.ch != nil && !p.ch.IsClosed() {
		ch := p.ch
		p.mu.Unlock()
		return ch, nil
	}
	if p.now().Before(p.downUntil) {
		p.mu.Unlock()
		return nil, ErrBrokerUnavailable
	}
	p.mu.Unlock()

	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(p.dialTimeout)})
	if err == nil {
		var ch *amqp.Channel
		if ch, err = conn.Channel(); err != nil {
			_ = conn.Close()
		} else {
			return p.adopt(conn, ch), nil
		}
	}

	p.mu.Lock()
	p.downUntil = p.now().Add(p.retryAfter)
	p.mu.Unlock()
	return nil, err
}

// adopt installs a freshly dialed connection unless a concurrent caller
// got there first, in which case the new one is closed and the winner's
// channel returned.
func (p *Publisher) adopt(conn *amqp.Connection, ch *amqp.Channel) *amqp.Channel {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil && !p.ch.IsClosed() {
		_ = ch.Close()
		_ = conn.Close()
		return p.ch
	}
	_ = p.resetLocked()
	p.conn, p.ch = conn, ch
	p.downUntil = time.Time{}
	return ch
}

// drop resets the connection if ch is still the current channel.
func (p *Publisher) drop(ch *amqp.Channel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == ch {
		_ = p.resetLocked()
	}
}

func (p *Publisher) resetLocked() error {
	var err error
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err = p.conn.Close()
		p.conn = nil
	}
	return err
}
