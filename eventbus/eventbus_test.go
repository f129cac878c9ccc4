package eventbus

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/openland/landauction/engineapi"
)

func overdueEvent() engineapi.Event {
	occurred := time.Date(2026, 7, 11, 9, 0, 0, 0, time.UTC)
	return engineapi.Event{
		ID:         "evt-7",
		Type:       engineapi.EventPaymentOverdue,
		AuctionID:  "auction-1",
		OccurredAt: occurred,
		Payload: engineapi.PaymentOverdueEvent{
			PaymentID: "payment-1",
			AuctionID: "auction-1",
			WinnerID:  "bidder_y",
		},
	}
}

func TestPublisher_Publish(t *testing.T) {
	for _, codec := range []engineapi.Codec{engineapi.CodecJSON, engineapi.CodecCBOR} {
		t.Run(string(codec), func(t *testing.T) {
			ch := &mockChannel{}
			p, err := NewPublisher(ch, "", codec)
			assert.NoError(t, err)
			check.Equal(t, []string{DefaultExchange + ":topic"}, ch.exchanges)

			ev := overdueEvent()
			assert.NoError(t, p.Publish(context.Background(), ev))

			assert.Equal(t, 1, len(ch.published))
			sent := ch.published[0]
			check.Equal(t, DefaultExchange, sent.exchange)
			check.Equal(t, "payment.overdue", sent.key)
			check.Equal(t, codec.ContentType(), sent.msg.ContentType)
			check.Equal(t, amqp.Persistent, sent.msg.DeliveryMode)
			check.Equal(t, "evt-7", sent.msg.MessageId)

			decoded, err := engineapi.DecodeEvent(codec, sent.msg.Body)
			assert.NoError(t, err)
			payload, ok := decoded.Payload.(*engineapi.PaymentOverdueEvent)
			assert.True(t, ok)
			check.Equal(t, "bidder_y", payload.WinnerID)
		})
	}
}

func TestPublisher_PublishError(t *testing.T) {
	ch := &mockChannel{
		PublishFunc: func(_ context.Context, _, _ string, _ amqp.Publishing) error {
			return errors.New("channel/connection is not open")
		},
	}
	p, err := NewPublisher(ch, "county_events", engineapi.CodecJSON)
	assert.NoError(t, err)

	err = p.Publish(context.Background(), overdueEvent())
	check.Error(t, err)
	check.True(t, strings.Contains(err.Error(), "exchange county_events"))

	assert.NoError(t, p.Close())
	check.True(t, ch.closed)
}

func TestLogPublisher(t *testing.T) {
	check.NoError(t, LogPublisher{}.Publish(context.Background(), overdueEvent()))
}

func TestSubscriber_Subscribe(t *testing.T) {
	ack := &mockAcknowledger{}
	body, err := engineapi.EncodeEvent(engineapi.CodecCBOR, overdueEvent())
	assert.NoError(t, err)

	ch := &mockChannel{
		deliveries: []amqp.Delivery{
			{Acknowledger: ack, DeliveryTag: 1, ContentType: "application/cbor", Body: body},
			{Acknowledger: ack, DeliveryTag: 2, ContentType: "application/json", Body: []byte(`{"id":`)},
			{Acknowledger: ack, DeliveryTag: 3, ContentType: "application/cbor", Body: body},
		},
	}
	sub, err := NewSubscriber(ch, "")
	assert.NoError(t, err)

	calls := 0
	handler := func(_ context.Context, ev *engineapi.Event) error {
		calls++
		check.Equal(t, engineapi.EventPaymentOverdue, ev.Type)
		if calls == 2 {
			return errors.New("fee service unavailable")
		}
		return nil
	}

	err = sub.Subscribe(context.Background(), "fee_collector", []string{"payment.*", "auction.settled"}, handler)
	assert.NoError(t, err)

	check.Equal(t, 2, calls)
	check.Equal(t, []string{
		DefaultExchange + "/payment.*->fee_collector",
		DefaultExchange + "/auction.settled->fee_collector",
	}, ch.bindings)
	check.Equal(t, []uint64{1}, ack.acked)
	check.Equal(t, []uint64{2, 3}, ack.nacked)
	check.Equal(t, []bool{false, true}, ack.requeue)
}

func TestSubscriber_ContextCancelled(t *testing.T) {
	sub, err := NewSubscriber(&blockingChannel{}, "")
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = sub.Subscribe(ctx, "fee_collector", nil, func(context.Context, *engineapi.Event) error { return nil })
	check.True(t, errors.Is(err, context.Canceled))
}

// blockingChannel never delivers
type blockingChannel struct {
	mockChannel
}

func (*blockingChannel) Consume(_, _ string, _, _, _, _ bool, _ amqp.Table) (<-chan amqp.Delivery, error) {
	return make(chan amqp.Delivery), nil
}

func TestSubscriber_AckFailuresDoNotStopConsuming(t *testing.T) {
	ack := &mockAcknowledger{err: amqp.ErrClosed}
	body, err := engineapi.EncodeEvent(engineapi.CodecJSON, overdueEvent())
	assert.NoError(t, err)

	ch := &mockChannel{
		deliveries: []amqp.Delivery{
			{Acknowledger: ack, DeliveryTag: 1, ContentType: "application/json", Body: []byte(`{"id":`)},
			{Acknowledger: ack, DeliveryTag: 2, ContentType: "application/json", Body: body},
			{Acknowledger: ack, DeliveryTag: 3, ContentType: "application/json", Body: body},
		},
	}
	sub, err := NewSubscriber(ch, "")
	assert.NoError(t, err)

	calls := 0
	handler := func(_ context.Context, _ *engineapi.Event) error {
		calls++
		if calls == 1 {
			return errors.New("fee service unavailable")
		}
		return nil
	}

	err = sub.Subscribe(context.Background(), "fee_collector", []string{"payment.overdue"}, handler)
	assert.NoError(t, err)

	check.Equal(t, 2, calls)
	check.Equal(t, []uint64{3}, ack.acked)
	check.Equal(t, []uint64{1, 2}, ack.nacked)
	check.Equal(t, []bool{false, true}, ack.requeue)
}
