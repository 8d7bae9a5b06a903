package pool

import (
	"errors"
	"sync"
)

// ErrPoolClosed — Submit после Close.
var ErrPoolClosed = errors.New("pool is closed")

// Pool — пул воркеров с ограниченным параллелизмом.
//
// Фиксированное число горутин потребляет задания из буферизованной
// очереди. Submit блокируется, когда очередь заполнена, — это и есть
// backpressure: избыточные задания ждут, а не плодят горутины.
type Pool struct {
	jobs chan func()
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// New создаёт пул с workers воркерами и очередью на queueCap заданий.
// Значения меньше 1 нормализуются до 1.
func New(workers, queueCap int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueCap < 1 {
		queueCap = 1
	}

	p := &Pool{jobs: make(chan func(), queueCap)}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				job()
			}
		}()
	}
	return p
}

// Submit ставит задание в очередь. Блокируется при заполненной очереди.
// После Close возвращает ErrPoolClosed.
func (p *Pool) Submit(job func()) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	// Отправляем под мьютексом: закрытие канала сериализовано
	// с отправкой, send в закрытый канал исключён.
	p.jobs <- job
	p.mu.Unlock()
	return nil
}

// Close закрывает очередь и дожидается завершения всех принятых заданий.
// Повторный Close безопасен.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
}
