package events

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// NopPublisher drops events; used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

const (
	defaultDialTimeout   = 5 * time.Second
	defaultRedialBackoff = 5 * time.Second
)

var ErrBrokerUnavailable = errors.New("rabbitmq: broker unavailable")

// RabbitPublisher publishes persistent JSON messages to a topic exchange.
// The connection is opened lazily and re-dialled after a failure. Dialling
// never outlives the caller's context, and after a failed dial further
// publishes fail fast until the backoff expires.
type RabbitPublisher struct {
	url           string
	exchange      string
	dialTimeout   time.Duration
	redialBackoff time.Duration
	now           func() time.Time

	// sem is a one-slot lock that waiters can abandon when ctx ends.
	sem      chan struct{}
	conn     *amqp.Connection
	ch       *amqp.Channel
	nextDial time.Time
}

func NewRabbitPublisher(url, exchange string) *RabbitPublisher {
	return &RabbitPublisher{
		url:           url,
		exchange:      exchange,
		dialTimeout:   defaultDialTimeout,
		redialBackoff: defaultRedialBackoff,
		now:           time.Now,
		sem:           make(chan struct{}, 1),
	}
}

func (p *RabbitPublisher) Publish(ctx context.Context, e Event) error {
	body, err := e.Encode()
	if err != nil {
		return err
	}

	if err := p.lock(ctx); err != nil {
		return fmt.Errorf("rabbitmq: publish %s: %w", e.Type, err)
	}
	defer p.unlock()

	if err := p.ensureChannel(ctx); err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID,
		Type:         string(e.Type),
		Timestamp:    p.now().UTC(),
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, string(e.Type), false, false, pub); err != nil {
		p.reset()
		return fmt.Errorf("rabbitmq: publish %s: %w", e.Type, err)
	}
	return nil
}

func (p *RabbitPublisher) lock(ctx context.Context) error {
	select {
	case p.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *RabbitPublisher) unlock() { <-p.sem }

func (p *RabbitPublisher) ensureChannel(ctx context.Context) error {
	if p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	p.reset()

	if now := p.now(); now.Before(p.nextDial) {
		return fmt.Errorf("%w: next dial in %s", ErrBrokerUnavailable, p.nextDial.Sub(now).Round(time.Millisecond))
	}

	timeout := p.dialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		left := deadline.Sub(p.now())
		if left <= 0 {
			return ctx.Err()
		}
		if left < timeout {
			timeout = left
		}
	}

	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
	if err != nil {
		p.nextDial = p.now().Add(p.redialBackoff)
		return fmt.Errorf("rabbitmq: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		p.nextDial = p.now().Add(p.redialBackoff)
		return fmt.Errorf("rabbitmq: channel open: %w", err)
	}
	if err := DeclareExchange(ch, p.exchange); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	p.conn, p.ch = conn, ch
	p.nextDial = time.Time{}
	log.Printf("rabbitmq: publisher connected exchange=%s", p.exchange)
	return nil
}

func (p *RabbitPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

func (p *RabbitPublisher) Close() error {
	p.sem <- struct{}{}
	defer p.unlock()
	p.reset()
	return nil
}

// DeclareExchange is idempotent; both sides call it so start order does not matter.
func DeclareExchange(ch *amqp.Channel, exchange string) error {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: exchange declare: %w", err)
	}
	return nil
}
