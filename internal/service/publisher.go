// Package service publishes storefront events to RabbitMQ.  Publishing is
// best effort: failures are logged and returned, and callers are free to
// ignore them without interrupting the request.
package service

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"

    q "github.com/iliyamo/service-storefront/internal/queue"
)

// ErrClosed is returned by Async.Publish after Close.
var ErrClosed = errors.New("publisher closed")

// Publisher sends events somewhere.
type Publisher interface {
    Publish(ctx context.Context, ev q.Event) error
}

// Nop drops every event.  It is used when EVENTS_ENABLED is off.
type Nop struct{}

func (Nop) Publish(context.Context, q.Event) error { return nil }

// AMQPPublisher keeps one connection and channel open and reopens them on
// the next publish after a failure.
type AMQPPublisher struct {
    url string
    log logrus.FieldLogger

    mu   sync.Mutex
    conn *amqp.Connection
    ch   *amqp.Channel
}

func NewAMQPPublisher(url string, log logrus.FieldLogger) *AMQPPublisher {
    return &AMQPPublisher{url: url, log: log}
}

func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
    if p.ch != nil && !p.ch.IsClosed() {
        return p.ch, nil
    }
    p.closeLocked()
    conn, err := amqp.Dial(p.url)
    if err != nil {
        return nil, fmt.Errorf("dial: %w", err)
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, fmt.Errorf("channel open: %w", err)
    }
    // Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(q.EventsQueue, true, false, false, false, nil); err != nil {
        _ = ch.Close()
        _ = conn.Close()
        return nil, fmt.Errorf("queue declare: %w", err)
    }
    p.conn, p.ch = conn, ch
    return ch, nil
}

// Publish sends ev to the events queue as a persistent JSON message.
func (p *AMQPPublisher) Publish(ctx context.Context, ev q.Event) error {
    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }

    p.mu.Lock()
    defer p.mu.Unlock()
    ch, err := p.channel()
    if err != nil {
        p.log.WithError(err).Warn("rabbitmq: publish skipped")
        return err
    }
    err = ch.PublishWithContext(ctx,
        "",            // default exchange
        q.EventsQueue, // routing key = queue name
        false,         // mandatory
        false,         // immediate
        amqp.Publishing{
            ContentType:  "application/json",
            DeliveryMode: amqp.Persistent,
            Timestamp:    time.Now().UTC(),
            Body:         body,
        })
    if err != nil {
        p.log.WithError(err).WithField("event", ev.Type).Warn("rabbitmq: publish failed")
        p.closeLocked()
        return err
    }
    return nil
}

// Close releases the connection.
func (p *AMQPPublisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.closeLocked()
    return nil
}

func (p *AMQPPublisher) closeLocked() {
    if p.ch != nil {
        _ = p.ch.Close()
        p.ch = nil
    }
    if p.conn != nil {
        _ = p.conn.Close()
        p.conn = nil
    }
}

// Async wraps a Publisher so Publish returns immediately.  Events are
// handed to a single background goroutine through a bounded buffer; when
// the buffer is full the event is dropped and logged.
type Async struct {
    next Publisher
    log  logrus.FieldLogger
    ch   chan q.Event
    done chan struct{}

    mu     sync.RWMutex
    closed bool
}

func NewAsync(next Publisher, buffer int, log logrus.FieldLogger) *Async {
    a := &Async{next: next, log: log, ch: make(chan q.Event, buffer), done: make(chan struct{})}
    go a.loop()
    return a
}

func (a *Async) loop() {
    defer close(a.done)
    for ev := range a.ch {
        ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
        _ = a.next.Publish(ctx, ev)
        cancel()
    }
}

func (a *Async) Publish(_ context.Context, ev q.Event) error {
    a.mu.RLock()
    defer a.mu.RUnlock()
    if a.closed {
        return ErrClosed
    }
    select {
    case a.ch <- ev:
        return nil
    default:
        a.log.WithField("event", ev.Type).Warn("event buffer full, dropping")
        return fmt.Errorf("event buffer full")
    }
}

// Close drains pending events, stops the worker and then closes the
// wrapped publisher if it is an io.Closer.  Later calls are no-ops.
func (a *Async) Close() error {
    a.mu.Lock()
    if a.closed {
        a.mu.Unlock()
        return nil
    }
    a.closed = true
    close(a.ch)
    a.mu.Unlock()

    <-a.done
    if c, ok := a.next.(io.Closer); ok {
        return c.Close()
    }
    return nil
}
