package mq

import (
	"context"

	"github.com/shaiso/Dirigent/internal/domain"
)

// EventLog транслирует записи журнала выполнения в события брокера.
//
// Реализует orchestrator.ExecutionLog и подключается к запуску как
// secondary через TeeLog: durable-журналом остаётся БД, а события
// node.finished — best-effort уведомления подписчиков.
type EventLog struct {
	publisher *Publisher
}

// NewEventLog создаёт EventLog.
func NewEventLog(publisher *Publisher) *EventLog {
	return &EventLog{publisher: publisher}
}

// Append публикует событие node.finished по записи журнала.
func (l *EventLog) Append(ctx context.Context, rec domain.ExecutionRecord) error {
	return l.publisher.PublishNodeFinished(ctx, NodeFinishedPayload{
		RunID:        rec.RunID,
		ProcessGroup: rec.ProcessGroup,
		NodeName:     rec.NodeName,
		Attempt:      rec.AttemptNumber,
		Status:       string(rec.Status),
		Error:        rec.ErrorMessage,
	})
}

// Ping всегда успешен: недоступный брокер не должен блокировать запуск.
func (l *EventLog) Ping(context.Context) error {
	return nil
}
