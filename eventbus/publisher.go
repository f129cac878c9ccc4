package eventbus

import (
	"context"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/openland/landauction/engineapi"
)

// Publisher publishes engine events to a topic exchange, routed by event type.
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection // nil when built over a caller-owned channel
	ch       Channel
	exchange string
	codec    engineapi.Codec
}

// Dial connects to url and returns a Publisher owning the connection.
func Dial(url, exchange string, codec engineapi.Codec) (*Publisher, error) {
	conn, ch, err := Connect(url)
	if err != nil {
		return nil, err
	}

	p, err := NewPublisher(ch, exchange, codec)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// NewPublisher declares the exchange on ch and returns a Publisher using it.
func NewPublisher(ch Channel, exchange string, codec engineapi.Codec) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if err := declareExchange(ch, exchange); err != nil {
		return nil, err
	}
	return &Publisher{ch: ch, exchange: exchange, codec: codec}, nil
}

// Publish sends ev as a persistent message with the event type as routing key.
func (p *Publisher) Publish(ctx context.Context, ev engineapi.Event) error {
	body, err := engineapi.EncodeEvent(p.codec, ev)
	if err != nil {
		return err
	}

	msg := amqp.Publishing{
		ContentType:  p.codec.ContentType(),
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Timestamp:    ev.OccurredAt,
		Type:         string(ev.Type),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx, p.exchange, string(ev.Type), false, false, msg); err != nil {
		return fmt.Errorf("failed to publish to exchange %s: %w", p.exchange, err)
	}
	return nil
}

// Close closes the channel and, for dialed publishers, the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// LogPublisher writes events to the log instead of a broker.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, ev engineapi.Event) error {
	log.Printf("INFO: Event %s %s for auction %s", ev.Type, ev.ID, ev.AuctionID)
	return nil
}
