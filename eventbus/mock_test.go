package eventbus

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// mockChannel records publishes and serves deliveries from a prepared slice
type mockChannel struct {
	mu         sync.Mutex
	published  []publishedMessage
	exchanges  []string
	bindings   []string
	deliveries []amqp.Delivery
	closed     bool

	PublishFunc func(ctx context.Context, exchange, key string, msg amqp.Publishing) error
}

type publishedMessage struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

func (m *mockChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exchanges = append(m.exchanges, name+":"+kind)
	return nil
}

func (m *mockChannel) QueueDeclare(name string, _, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	return amqp.Queue{Name: name}, nil
}

func (m *mockChannel) QueueBind(name, key, exchange string, _ bool, _ amqp.Table) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bindings = append(m.bindings, exchange+"/"+key+"->"+name)
	return nil
}

func (m *mockChannel) Qos(_, _ int, _ bool) error {
	return nil
}

func (m *mockChannel) Consume(_, _ string, _, _, _, _ bool, _ amqp.Table) (<-chan amqp.Delivery, error) {
	out := make(chan amqp.Delivery, len(m.deliveries))
	for _, d := range m.deliveries {
		out <- d
	}
	close(out)
	return out, nil
}

func (m *mockChannel) PublishWithContext(ctx context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if m.PublishFunc != nil {
		if err := m.PublishFunc(ctx, exchange, key, msg); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, publishedMessage{exchange: exchange, key: key, msg: msg})
	return nil
}

func (m *mockChannel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// mockAcknowledger records how each delivery tag was settled
type mockAcknowledger struct {
	mu      sync.Mutex
	acked   []uint64
	nacked  []uint64
	requeue []bool
	err     error // returned from every Ack and Nack
}

func (a *mockAcknowledger) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return a.err
}

func (a *mockAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked = append(a.nacked, tag)
	a.requeue = append(a.requeue, requeue)
	return a.err
}

func (a *mockAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}
