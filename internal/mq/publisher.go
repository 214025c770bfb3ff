package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cain76/finderskeepers-v2-sub001/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeBatchSubmit      MessageType = "batch.submit"
	MessageTypeTaskStateChanged MessageType = "task.state_changed"
	MessageTypeBatchSettled     MessageType = "batch.settled"
)

// Message — конверт сообщения.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// BatchSubmitPayload — заявка на запуск батча через очередь.
type BatchSubmitPayload struct {
	Name   string                  `json:"name"`
	Config *domain.SchedulerConfig `json:"config,omitempty"`
	Tasks  []SubmitTaskPayload     `json:"tasks"`
}

// SubmitTaskPayload — описание одной задачи в заявке.
type SubmitTaskPayload struct {
	Name    string         `json:"name"`
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// TaskStateChangedPayload — событие смены статуса задачи.
type TaskStateChangedPayload struct {
	BatchID   uuid.UUID         `json:"batch_id"`
	TaskID    uuid.UUID         `json:"task_id"`
	OldStatus domain.TaskStatus `json:"old_status"`
	NewStatus domain.TaskStatus `json:"new_status"`
}

// BatchSettledPayload — событие завершения батча.
type BatchSettledPayload struct {
	BatchID   uuid.UUID `json:"batch_id"`
	Completed int       `json:"completed"`
	Failed    int       `json:"failed"`
	Cancelled int       `json:"cancelled"`
}

// Publisher публикует события жизненного цикла батчей в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{conn: conn, logger: logger}
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),
			string(routingKey),
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishTaskStateChanged публикует событие смены статуса задачи.
func (p *Publisher) PublishTaskStateChanged(ctx context.Context, payload TaskStateChangedPayload) error {
	return p.Publish(ctx, ExchangeTasks, RoutingKeyStateChanged, newMessage(MessageTypeTaskStateChanged, payload))
}

// PublishBatchSettled публикует событие завершения батча.
func (p *Publisher) PublishBatchSettled(ctx context.Context, payload BatchSettledPayload) error {
	return p.Publish(ctx, ExchangeBatches, RoutingKeySettled, newMessage(MessageTypeBatchSettled, payload))
}

// PublishBatchSubmit публикует заявку на запуск батча.
// Используется внешними продюсерами и командой batchctl.
func (p *Publisher) PublishBatchSubmit(ctx context.Context, payload BatchSubmitPayload) error {
	return p.Publish(ctx, ExchangeBatches, RoutingKeySubmit, newMessage(MessageTypeBatchSubmit, payload))
}

func newMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}
