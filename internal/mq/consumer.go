package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cain76/finderskeepers-v2-sub001/internal/domain"
	"github.com/cain76/finderskeepers-v2-sub001/internal/sched"
)

// Submitter принимает заявки на запуск батчей.
// Реализуется sched.Manager.
type Submitter interface {
	Submit(name string, items []sched.SubmitItem, cfg *domain.SchedulerConfig) (uuid.UUID, error)
}

// SubmitConsumer потребляет заявки batch.submit из очереди batches.submit
// и передаёт их планировщику.
type SubmitConsumer struct {
	conn      *Connection
	submitter Submitter
	logger    *slog.Logger
	prefetch  int
}

// NewSubmitConsumer создаёт нового потребителя заявок.
func NewSubmitConsumer(conn *Connection, submitter Submitter, logger *slog.Logger) *SubmitConsumer {
	return &SubmitConsumer{
		conn:      conn,
		submitter: submitter,
		logger:    logger,
		prefetch:  1,
	}
}

// Run запускает цикл потребления. Блокирует до отмены ctx.
// При разрыве соединения ждёт переподключения и возобновляет потребление.
func (c *SubmitConsumer) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		deliveries, err := c.openStream()
		if err != nil {
			c.logger.Error("failed to start consuming", "queue", QueueBatchSubmit, "error", err)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.conn.ReconnectNotify():
				continue
			}
		}

		c.logger.Info("consumer started", "queue", QueueBatchSubmit)

		if err := c.drain(ctx, deliveries); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			c.logger.Warn("deliveries channel closed, waiting for reconnect", "queue", QueueBatchSubmit)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.conn.ReconnectNotify():
			}
		}
	}
}

// openStream настраивает prefetch и начинает потребление очереди.
func (c *SubmitConsumer) openStream() (<-chan amqp.Delivery, error) {
	var deliveries <-chan amqp.Delivery

	err := c.conn.WithChannel(context.Background(), func(ch *amqp.Channel) error {
		if err := ch.Qos(c.prefetch, 0, false); err != nil {
			return fmt.Errorf("set qos: %w", err)
		}

		d, err := ch.Consume(
			string(QueueBatchSubmit), // queue
			"",                       // consumer tag (auto-generated)
			false,                    // auto-ack (ack вручную)
			false,                    // exclusive
			false,                    // no-local
			false,                    // no-wait
			nil,                      // args
		)
		if err != nil {
			return fmt.Errorf("consume: %w", err)
		}

		deliveries = d
		return nil
	})

	return deliveries, err
}

// drain обрабатывает сообщения до отмены ctx или закрытия канала доставки.
func (c *SubmitConsumer) drain(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case raw, ok := <-deliveries:
			if !ok {
				return errors.New("deliveries channel closed")
			}

			c.handle(raw)
		}
	}
}

// handle обрабатывает одну заявку.
func (c *SubmitConsumer) handle(raw amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(raw.Body, &msg); err != nil {
		c.logger.Error("failed to unmarshal message", "queue", QueueBatchSubmit, "error", err)
		// Некорректный JSON — повтор бессмыслен
		raw.Nack(false, false)
		return
	}

	payload, err := ParsePayload[BatchSubmitPayload](&msg)
	if err != nil {
		c.logger.Error("failed to parse submit payload",
			"message_id", msg.ID,
			"error", err,
		)
		raw.Nack(false, false)
		return
	}

	items := make([]sched.SubmitItem, 0, len(payload.Tasks))
	for _, t := range payload.Tasks {
		items = append(items, sched.SubmitItem{
			Name:    t.Name,
			Type:    t.Type,
			Payload: t.Payload,
		})
	}

	batchID, err := c.submitter.Submit(payload.Name, items, payload.Config)
	if err != nil {
		c.logger.Error("failed to submit batch",
			"message_id", msg.ID,
			"name", payload.Name,
			"error", err,
		)
		// Заявка отвергнута планировщиком (пустой батч и т.п.) — повтор не поможет
		raw.Nack(false, false)
		return
	}

	c.logger.Info("batch submitted from queue",
		"message_id", msg.ID,
		"batch_id", batchID,
		"tasks", len(items),
	)

	raw.Ack(false)
}

// ParsePayload парсит payload сообщения в указанный тип.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T

	// Payload приходит распарсенным как map — прогоняем через JSON ещё раз
	raw, err := json.Marshal(msg.Payload)
	if err != nil {
		return result, fmt.Errorf("marshal payload: %w", err)
	}

	if err := json.Unmarshal(raw, &result); err != nil {
		return result, fmt.Errorf("unmarshal payload: %w", err)
	}

	return result, nil
}
