package repo

import (
	"context"
	"sync"

	"github.com/shaiso/Dirigent/internal/domain"
)

// MemoryLog — журнал выполнения в памяти.
//
// Используется в dry-run режиме и при работе без БД (file-only):
// записи накапливаются и доступны вызывающему после запуска,
// но не переживают процесс.
type MemoryLog struct {
	mu      sync.Mutex
	records []domain.ExecutionRecord
}

// NewMemoryLog создаёт пустой MemoryLog.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// Append дописывает запись.
func (l *MemoryLog) Append(_ context.Context, rec domain.ExecutionRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, rec)
	return nil
}

// Ping всегда успешен.
func (l *MemoryLog) Ping(context.Context) error {
	return nil
}

// Records возвращает копию накопленных записей в порядке добавления.
func (l *MemoryLog) Records() []domain.ExecutionRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	records := make([]domain.ExecutionRecord, len(l.records))
	copy(records, l.records)
	return records
}
