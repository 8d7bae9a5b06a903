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

// Exchanges — имена обменников.
const (
	// ExchangeCommands — команды Dirigent'у (запросы запусков).
	ExchangeCommands Exchange = "dirigent.commands"

	// ExchangeEvents — события выполнения (topic: подписчики выбирают
	// run.* или node.* по ключу).
	ExchangeEvents Exchange = "dirigent.events"
)

// Queues — имена очередей.
const (
	// QueueRunsRequested — входящие запросы запусков групп.
	QueueRunsRequested Queue = "runs.requested"
)

// Routing keys.
const (
	RoutingKeyRunRequested RoutingKey = "run.requested"
	RoutingKeyRunCompleted RoutingKey = "run.completed"
	RoutingKeyNodeFinished RoutingKey = "node.finished"
)

// SetupTopology объявляет обменники, очереди и привязки Dirigent.
// Идемпотентна: повторное объявление существующей топологии безопасно.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		exchanges := []struct {
			name Exchange
			kind string
		}{
			{ExchangeCommands, "direct"},
			{ExchangeEvents, "topic"},
		}
		for _, ex := range exchanges {
			err := ch.ExchangeDeclare(
				string(ex.name), // name
				ex.kind,         // type
				true,            // durable
				false,           // auto-deleted
				false,           // internal
				false,           // no-wait
				nil,             // arguments
			)
			if err != nil {
				return fmt.Errorf("declare exchange %s: %w", ex.name, err)
			}
		}

		_, err := ch.QueueDeclare(
			string(QueueRunsRequested), // name
			true,                       // durable
			false,                      // delete when unused
			false,                      // exclusive
			false,                      // no-wait
			nil,                        // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", QueueRunsRequested, err)
		}

		err = ch.QueueBind(
			string(QueueRunsRequested),
			string(RoutingKeyRunRequested),
			string(ExchangeCommands),
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s: %w", QueueRunsRequested, err)
		}

		return nil
	})
}
