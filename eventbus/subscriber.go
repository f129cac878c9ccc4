package eventbus

import (
	"context"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/openland/landauction/engineapi"
)

// Handler processes one delivered event. Returning an error requeues the message.
type Handler func(ctx context.Context, ev *engineapi.Event) error

// Subscriber consumes auction events from a durable queue bound to the exchange.
type Subscriber struct {
	ch       Channel
	exchange string
}

// NewSubscriber declares the exchange on ch and returns a Subscriber using it.
func NewSubscriber(ch Channel, exchange string) (*Subscriber, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if err := declareExchange(ch, exchange); err != nil {
		return nil, err
	}
	return &Subscriber{ch: ch, exchange: exchange}, nil
}

// Subscribe binds queue to routingKeys ("#" for all events) and feeds deliveries to
// handler one at a time. It returns when ctx is done or the delivery channel closes.
func (s *Subscriber) Subscribe(ctx context.Context, queue string, routingKeys []string, handler Handler) error {
	if _, err := s.ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}

	for _, key := range routingKeys {
		if err := s.ch.QueueBind(queue, key, s.exchange, false, nil); err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", queue, key, err)
		}
		log.Printf("INFO: Queue %s bound to exchange %s with routing key %s", queue, s.exchange, key)
	}

	if err := s.ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	msgs, err := s.ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume queue %s: %w", queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			s.handle(ctx, msg, handler)
		}
	}
}

func (s *Subscriber) handle(ctx context.Context, msg amqp.Delivery, handler Handler) {
	ev, err := engineapi.DecodeEvent(engineapi.CodecForContentType(msg.ContentType), msg.Body)
	if err != nil {
		log.Printf("ERROR: Dropping undecodable message %s: %v", msg.MessageId, err)
		if err := msg.Nack(false, false); err != nil {
			log.Printf("WARNING: Failed to nack message %s: %v", msg.MessageId, err)
		}
		return
	}

	if err := handler(ctx, ev); err != nil {
		log.Printf("WARNING: Handler failed for %s %s, requeueing: %v", ev.Type, ev.ID, err)
		if err := msg.Nack(false, true); err != nil {
			log.Printf("WARNING: Failed to nack %s %s: %v", ev.Type, ev.ID, err)
		}
		return
	}
	if err := msg.Ack(false); err != nil {
		log.Printf("WARNING: Failed to ack %s %s, it will be redelivered: %v", ev.Type, ev.ID, err)
	}
}
