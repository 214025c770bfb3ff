package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges.
const (
	ExchangeBatches Exchange = "uploads.batches"
	ExchangeTasks   Exchange = "uploads.tasks"
)

// Queues.
const (
	// QueueBatchSubmit — входящие заявки на запуск батчей.
	QueueBatchSubmit Queue = "batches.submit"

	// QueueBatchSettled — события завершения батчей для внешних подписчиков.
	QueueBatchSettled Queue = "batches.settled"

	// QueueTaskEvents — события смены статусов задач.
	QueueTaskEvents Queue = "tasks.events"
)

// Routing keys.
const (
	RoutingKeySubmit       RoutingKey = "submit"
	RoutingKeySettled      RoutingKey = "settled"
	RoutingKeyStateChanged RoutingKey = "state_changed"
)

// SetupTopology объявляет exchanges, queues и bindings.
// Идемпотентно: повторное объявление существующей топологии безопасно.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareExchanges(ch); err != nil {
			return err
		}

		if err := declareQueues(ch); err != nil {
			return err
		}

		return bindQueues(ch)
	})
}

// declareExchanges создаёт обменники.
func declareExchanges(ch *amqp.Channel) error {
	for _, name := range []Exchange{ExchangeBatches, ExchangeTasks} {
		err := ch.ExchangeDeclare(
			string(name), // name
			"direct",     // type
			true,         // durable
			false,        // auto-deleted
			false,        // internal
			false,        // no-wait
			nil,          // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", name, err)
		}
	}

	return nil
}

// declareQueues создаёт очереди.
func declareQueues(ch *amqp.Channel) error {
	for _, name := range []Queue{QueueBatchSubmit, QueueBatchSettled, QueueTaskEvents} {
		_, err := ch.QueueDeclare(
			string(name), // name
			true,         // durable
			false,        // delete when unused
			false,        // exclusive
			false,        // no-wait
			nil,          // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", name, err)
		}
	}

	return nil
}

// bindQueues привязывает очереди к обменникам.
func bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueueBatchSubmit, RoutingKeySubmit, ExchangeBatches},
		{QueueBatchSettled, RoutingKeySettled, ExchangeBatches},
		{QueueTaskEvents, RoutingKeyStateChanged, ExchangeTasks},
	}

	for _, b := range bindings {
		err := ch.QueueBind(
			string(b.queue),
			string(b.routingKey),
			string(b.exchange),
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}
