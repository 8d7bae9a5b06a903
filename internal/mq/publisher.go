package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeRunRequested MessageType = "run.requested"
	MessageTypeRunCompleted MessageType = "run.completed"
	MessageTypeNodeFinished MessageType = "node.finished"
)

// Message — конверт сообщения.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload json.RawMessage `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// RunRequestedPayload — запрос запуска группы.
type RunRequestedPayload struct {
	ProcessGroup   string `json:"process_group"`
	MaxParallelism int    `json:"max_parallelism,omitempty"`
}

// RunCompletedPayload — событие завершения запуска.
type RunCompletedPayload struct {
	RunID        uuid.UUID `json:"run_id"`
	ProcessGroup string    `json:"process_group"`
	Status       string    `json:"status"`
	Success      int       `json:"success"`
	Failed       int       `json:"failed"`
	Skipped      int       `json:"skipped"`
}

// NodeFinishedPayload — событие завершения попытки узла.
type NodeFinishedPayload struct {
	RunID        uuid.UUID `json:"run_id"`
	ProcessGroup string    `json:"process_group"`
	NodeName     string    `json:"node_name"`
	Attempt      int       `json:"attempt"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
}

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msgType MessageType, payload any) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	msg := Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payloadJSON,
		Timestamp: time.Now().UTC(),
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
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

// PublishRunRequested публикует запрос запуска группы.
// Потребитель: daemon.
func (p *Publisher) PublishRunRequested(ctx context.Context, payload RunRequestedPayload) error {
	return p.Publish(ctx, ExchangeCommands, RoutingKeyRunRequested, MessageTypeRunRequested, payload)
}

// PublishRunCompleted публикует событие завершения запуска.
func (p *Publisher) PublishRunCompleted(ctx context.Context, payload RunCompletedPayload) error {
	return p.Publish(ctx, ExchangeEvents, RoutingKeyRunCompleted, MessageTypeRunCompleted, payload)
}

// PublishNodeFinished публикует событие завершения попытки узла.
func (p *Publisher) PublishNodeFinished(ctx context.Context, payload NodeFinishedPayload) error {
	return p.Publish(ctx, ExchangeEvents, RoutingKeyNodeFinished, MessageTypeNodeFinished, payload)
}
