package rabbitmq

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"inventory/internal/models"

	amqp "github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	declared   []string
	published  []amqp.Publishing
	keys       []string
	deliveries chan amqp.Delivery
	declareErr error
	closed     bool
}

func (f *fakeChannel) QueueDeclare(name string, durable, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	if f.declareErr != nil {
		return amqp.Queue{}, f.declareErr
	}
	if !durable {
		return amqp.Queue{}, errors.New("queue must be durable")
	}
	f.declared = append(f.declared, name)
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) Publish(_, key string, _, _ bool, msg amqp.Publishing) error {
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Consume(queue string, _ string, autoAck, _, _, _ bool, _ amqp.Table) (<-chan amqp.Delivery, error) {
	if queue != StockCommandsQueue || autoAck {
		return nil, errors.New("unexpected consume arguments")
	}
	return f.deliveries, nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

type fakeAcknowledger struct {
	mu     sync.Mutex
	acked  []uint64
	nacked []uint64
	done   chan struct{}
}

func (a *fakeAcknowledger) record(list *[]uint64, tag uint64) error {
	a.mu.Lock()
	*list = append(*list, tag)
	a.mu.Unlock()
	a.done <- struct{}{}
	return nil
}

func (a *fakeAcknowledger) Ack(tag uint64, _ bool) error { return a.record(&a.acked, tag) }

func (a *fakeAcknowledger) Nack(tag uint64, _ bool, _ bool) error { return a.record(&a.nacked, tag) }

func (a *fakeAcknowledger) Reject(tag uint64, _ bool) error { return a.record(&a.nacked, tag) }

func TestNewClientDeclaresQueues(t *testing.T) {
	ch := &fakeChannel{}
	c, err := newClientWithChannel(ch)
	require.NoError(t, err)
	assert.Equal(t, []string{EventsQueue, StockCommandsQueue}, ch.declared)

	require.NoError(t, c.Close())
	assert.True(t, ch.closed)
}

func TestNewClientDeclareFailureClosesChannel(t *testing.T) {
	ch := &fakeChannel{declareErr: errors.New("access refused")}
	_, err := newClientWithChannel(ch)
	assert.ErrorContains(t, err, "access refused")
	assert.True(t, ch.closed)
}

func TestPublishInventoryEvent(t *testing.T) {
	ch := &fakeChannel{}
	c, err := newClientWithChannel(ch)
	require.NoError(t, err)

	event := models.InventoryEvent{
		Type:      models.EventStockLow,
		ProductID: "p-1",
		Code:      "W1",
		Quantity:  3,
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, c.PublishInventoryEvent(event))

	require.Len(t, ch.published, 1)
	msg := ch.published[0]
	assert.Equal(t, EventsQueue, ch.keys[0])
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, models.EventStockLow, msg.Type)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)

	var decoded models.InventoryEvent
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, event, decoded)
}

func TestConsumeStockCommandsAcksAndNacks(t *testing.T) {
	ch := &fakeChannel{deliveries: make(chan amqp.Delivery, 2)}
	c, err := newClientWithChannel(ch)
	require.NoError(t, err)

	ack := &fakeAcknowledger{done: make(chan struct{}, 2)}
	ch.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte("ok")}
	ch.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: []byte("fail")}
	close(ch.deliveries)

	err = c.ConsumeStockCommands(func(msg amqp.Delivery) error {
		if string(msg.Body) == "fail" {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		select {
		case <-ack.done:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for acknowledgements")
		}
	}

	ack.mu.Lock()
	defer ack.mu.Unlock()
	assert.Equal(t, []uint64{1}, ack.acked)
	assert.Equal(t, []uint64{2}, ack.nacked)
}

func TestClientWithoutChannel(t *testing.T) {
	c := &Client{}
	assert.Error(t, c.PublishInventoryEvent(models.InventoryEvent{Type: models.EventProductCreated}))
	assert.Error(t, c.ConsumeStockCommands(func(amqp.Delivery) error { return nil }))
	assert.NoError(t, c.Close())
}
