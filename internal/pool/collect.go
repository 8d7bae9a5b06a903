package pool

import (
	"context"
	"sync"
)

// Result — результат одного задания Collect.
type Result[T any] struct {
	// Value — значение, возвращённое заданием.
	Value T

	// Err — ошибка задания. Ошибка одного задания не влияет на остальные.
	Err error
}

// Job — задание для Collect.
type Job[T any] func(ctx context.Context) (T, error)

// Collect выполняет независимые задания с ограниченным параллелизмом
// и собирает результаты в порядке входного списка.
//
// Используется везде, где нужна форма "выполнить N независимых задач,
// собрать результаты или ошибки": запуск нескольких групп, пакетные
// операции CLI. Отменённый контекст останавливает выдачу новых заданий;
// невыполненные задания получают ctx.Err().
func Collect[T any](ctx context.Context, limit int, jobs []Job[T]) []Result[T] {
	if limit < 1 {
		limit = 1
	}

	results := make([]Result[T], len(jobs))
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup

	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			results[i] = Result[T]{Err: err}
			continue
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			results[i] = Result[T]{Err: ctx.Err()}
			continue
		}

		wg.Add(1)
		go func(i int, job Job[T]) {
			defer wg.Done()
			defer func() { <-sem }()

			value, err := job(ctx)
			results[i] = Result[T]{Value: value, Err: err}
		}(i, job)
	}

	wg.Wait()
	return results
}
